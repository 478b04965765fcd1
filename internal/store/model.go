package store

// Response bodies for the subset of the Elasticsearch API the client uses.

type searchResponse struct {
	Took     int        `json:"took"`
	TimedOut bool       `json:"timed_out"`
	Hits     searchHits `json:"hits"`
}

type searchHits struct {
	Total    hitsTotal `json:"total"`
	HitArray []hit     `json:"hits"`
}

type hitsTotal struct {
	Value    int    `json:"value"`
	Relation string `json:"relation"`
}

type hit struct {
	Index  string                 `json:"_index"`
	ID     string                 `json:"_id"`
	Source map[string]interface{} `json:"_source"`
	Sort   []interface{}          `json:"sort"`
}

type countResponse struct {
	Count  int64  `json:"count"`
	Shards shards `json:"_shards"`
}

type shards struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

type boundsResponse struct {
	Aggregations boundsAggregations `json:"aggregations"`
}

type boundsAggregations struct {
	FirstSample instantAggregate `json:"first_sample"`
	LastSample  instantAggregate `json:"last_sample"`
}

// instantAggregate is a min/max aggregation over a date field. Value is
// epoch milliseconds (null when the filter matched no documents);
// ValueAsString is the RFC3339 rendering.
type instantAggregate struct {
	Value         *float64 `json:"value"`
	ValueAsString string   `json:"value_as_string"`
}

type mappingResponse map[string]indexMapping

type indexMapping struct {
	Mappings mappingBody `json:"mappings"`
}

type mappingBody struct {
	Properties map[string]interface{} `json:"properties"`
}
