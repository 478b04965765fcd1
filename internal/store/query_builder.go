package store

import "time"

// vehicleRangeFilter is the shared filter clause: one vehicle, half-open
// [start, end) on the time field.
func vehicleRangeFilter(vehicleField, timeField, vehicleID string, start, end time.Time) []map[string]interface{} {
	return []map[string]interface{}{
		{
			"term": map[string]interface{}{
				vehicleField: vehicleID,
			},
		},
		{
			"range": map[string]interface{}{
				timeField: map[string]interface{}{
					"gte": start.UTC().Format(time.RFC3339Nano),
					"lt":  end.UTC().Format(time.RFC3339Nano),
				},
			},
		},
	}
}

// buildRowQuery builds one page of the row scan. Rows are sorted on the
// time field with _doc as tiebreaker so that search_after pagination is
// stable across documents sharing a timestamp. A non-nil searchAfter is
// the sort tuple of the previous page's last hit.
func buildRowQuery(timeField, vehicleField string, q RowQuery, searchAfter []interface{}) map[string]interface{} {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": vehicleRangeFilter(vehicleField, timeField, q.VehicleID, q.Start, q.End),
			},
		},
		"sort": []map[string]interface{}{
			{
				timeField: map[string]interface{}{
					"order": "asc",
				},
			},
			{
				"_doc": map[string]interface{}{
					"order": "asc",
				},
			},
		},
	}
	if searchAfter != nil {
		query["search_after"] = searchAfter
	}
	return query
}

func buildCountQuery(timeField, vehicleField string, q CountQuery) map[string]interface{} {
	must := vehicleRangeFilter(vehicleField, timeField, q.VehicleID, q.Start, q.End)
	must = append(must, map[string]interface{}{
		"exists": map[string]interface{}{
			"field": q.Field,
		},
	})
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": must,
			},
		},
	}
}

func buildTimeBoundsQuery(timeField, vehicleField, vehicleID string) map[string]interface{} {
	return map[string]interface{}{
		"size": 0,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{
						"term": map[string]interface{}{
							vehicleField: vehicleID,
						},
					},
				},
			},
		},
		"aggs": map[string]interface{}{
			"first_sample": map[string]interface{}{
				"min": map[string]interface{}{
					"field": timeField,
				},
			},
			"last_sample": map[string]interface{}{
				"max": map[string]interface{}{
					"field": timeField,
				},
			},
		},
	}
}
