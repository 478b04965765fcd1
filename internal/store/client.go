// Package store provides read access to the telemetry time-series store.
// One Elasticsearch index per measurement; documents carry a vehicle tag, a
// timestamp, and a flat set of signal fields.
package store

import (
	"context"
	"time"
)

// Row is one retrieved sample: its instant and the dynamic field → value
// mapping from the stored document. Values may be nil for fields that were
// written as explicit nulls.
type Row struct {
	Timestamp time.Time
	Fields    map[string]interface{}
}

// HasNonNull reports whether a field is present in the row with a non-null value.
func (r Row) HasNonNull(field string) bool {
	val, exists := r.Fields[field]
	return exists && val != nil
}

// RowQuery is a bounded, time-filtered, vehicle-filtered row retrieval for
// one window: all rows in [Start, End), ordered ascending by time, at most
// Cap rows.
type RowQuery struct {
	Measurement string
	VehicleID   string
	Start       time.Time
	End         time.Time
	Cap         int
}

// CountQuery is a server-side aggregate: the number of non-null values of
// Field within the filtered time range.
type CountQuery struct {
	Measurement string
	Field       string
	VehicleID   string
	Start       time.Time
	End         time.Time
}

// Client is the capability the analysis engine consumes. Implementations
// must return rows sorted ascending by timestamp when the store honors the
// ordering request; callers still verify.
type Client interface {
	// Measurements lists the known measurement names.
	Measurements(ctx context.Context) ([]string, error)
	// Fields lists the known signal fields of a measurement.
	Fields(ctx context.Context, measurement string) ([]string, error)
	// Rows executes one bounded window query.
	Rows(ctx context.Context, q RowQuery) ([]Row, error)
	// CountField executes one server-side non-null count.
	CountField(ctx context.Context, q CountQuery) (int64, error)
	// TimeBounds returns the first and last sample instants for a vehicle in
	// a measurement. ok is false when the measurement holds no data at all.
	TimeBounds(ctx context.Context, measurement, vehicleID string) (min, max time.Time, ok bool, err error)
}
