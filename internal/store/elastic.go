package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// Options configures the Elasticsearch-backed client.
type Options struct {
	Addresses    []string
	Username     string
	Password     string
	IndexPattern string
	TimeField    string
	VehicleField string
}

// ElasticClient implements Client on an Elasticsearch cluster. Each
// measurement is one index; signal fields are top-level document fields.
type ElasticClient struct {
	es           *elasticsearch.Client
	indexPattern string
	timeField    string
	vehicleField string
	pageSize     int
	logger       *zap.Logger
}

// NewElasticClient builds the client and verifies connectivity. A failed
// ping is a fatal ErrConnection: the run never starts against an
// unreachable store.
func NewElasticClient(opts Options, logger *zap.Logger) (*ElasticClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: opts.Addresses,
		Username:  opts.Username,
		Password:  opts.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}

	res, err := es.Ping()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrConnection, res.String())
	}

	return &ElasticClient{
		es:           es,
		indexPattern: opts.IndexPattern,
		timeField:    opts.TimeField,
		vehicleField: opts.VehicleField,
		pageSize:     rowPageSize,
		logger:       logger,
	}, nil
}

func (c *ElasticClient) Measurements(ctx context.Context) ([]string, error) {
	res, err := c.es.Indices.Get(
		[]string{c.indexPattern},
		c.es.Indices.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrDiscovery, res.String())
	}

	var indices map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&indices); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response body: %w", ErrDiscovery, err)
	}

	names := make([]string, 0, len(indices))
	for name := range indices {
		if strings.HasPrefix(name, ".") {
			continue // system indices
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *ElasticClient) Fields(ctx context.Context, measurement string) ([]string, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(measurement),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrDiscovery, res.String())
	}

	var mapping mappingResponse
	if err := json.NewDecoder(res.Body).Decode(&mapping); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response body: %w", ErrDiscovery, err)
	}

	var fields []string
	for _, index := range mapping {
		for name := range index.Mappings.Properties {
			if name == c.timeField || name == c.vehicleField {
				continue
			}
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields, nil
}

// rowPageSize keeps each search page within Elasticsearch's default
// index.max_result_window of 10000; requesting more in a single search
// is rejected with a 400.
const rowPageSize = 10000

// Rows pages through the window with search_after until the window is
// exhausted or q.Cap rows have been fetched.
func (c *ElasticClient) Rows(ctx context.Context, q RowQuery) ([]Row, error) {
	rows := make([]Row, 0)
	remaining := q.Cap
	var searchAfter []interface{}

	for remaining > 0 {
		size := remaining
		if size > c.pageSize {
			size = c.pageSize
		}

		hits, err := c.rowPage(ctx, q, searchAfter, size)
		if err != nil {
			return nil, err
		}
		if len(hits) == 0 {
			break
		}

		for _, h := range hits {
			ts, ok := c.parseTimestamp(h.Source)
			if !ok {
				c.logger.Warn("Dropping row without a parseable timestamp",
					zap.String("measurement", q.Measurement),
					zap.String("doc_id", h.ID),
				)
				continue
			}
			rows = append(rows, Row{Timestamp: ts, Fields: h.Source})
		}

		remaining -= len(hits)
		if len(hits) < size {
			break
		}
		searchAfter = hits[len(hits)-1].Sort
	}
	return rows, nil
}

func (c *ElasticClient) rowPage(ctx context.Context, q RowQuery, searchAfter []interface{}, size int) ([]hit, error) {
	body, err := json.Marshal(buildRowQuery(c.timeField, c.vehicleField, q, searchAfter))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal query: %w", ErrRowQuery, err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(q.Measurement),
		c.es.Search.WithBody(strings.NewReader(string(body))),
		c.es.Search.WithSize(size),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRowQuery, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrRowQuery, res.String())
	}

	var searchRes searchResponse
	if err := json.NewDecoder(res.Body).Decode(&searchRes); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response body: %w", ErrRowQuery, err)
	}
	return searchRes.Hits.HitArray, nil
}

func (c *ElasticClient) CountField(ctx context.Context, q CountQuery) (int64, error) {
	body, err := json.Marshal(buildCountQuery(c.timeField, c.vehicleField, q))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to marshal query: %w", ErrCountQuery, err)
	}

	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(q.Measurement),
		c.es.Count.WithBody(strings.NewReader(string(body))),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCountQuery, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("%w: %s", ErrCountQuery, res.String())
	}

	var countRes countResponse
	if err := json.NewDecoder(res.Body).Decode(&countRes); err != nil {
		return 0, fmt.Errorf("%w: failed to decode response body: %w", ErrCountQuery, err)
	}
	return countRes.Count, nil
}

func (c *ElasticClient) TimeBounds(ctx context.Context, measurement, vehicleID string) (time.Time, time.Time, bool, error) {
	body, err := json.Marshal(buildTimeBoundsQuery(c.timeField, c.vehicleField, vehicleID))
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("%w: failed to marshal query: %w", ErrDiscovery, err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(measurement),
		c.es.Search.WithBody(strings.NewReader(string(body))),
	)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return time.Time{}, time.Time{}, false, fmt.Errorf("%w: %s", ErrDiscovery, res.String())
	}

	var boundsRes boundsResponse
	if err := json.NewDecoder(res.Body).Decode(&boundsRes); err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("%w: failed to decode response body: %w", ErrDiscovery, err)
	}

	first := boundsRes.Aggregations.FirstSample
	last := boundsRes.Aggregations.LastSample
	if first.Value == nil || last.Value == nil {
		return time.Time{}, time.Time{}, false, nil
	}
	return epochMillisToTime(*first.Value), epochMillisToTime(*last.Value), true, nil
}

// parseTimestamp extracts the time field from a document source.
func (c *ElasticClient) parseTimestamp(source map[string]interface{}) (time.Time, bool) {
	raw, ok := source[c.timeField].(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func epochMillisToTime(millis float64) time.Time {
	return time.UnixMilli(int64(millis)).UTC()
}
