package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleetscan/internal/channelmap"
	"fleetscan/internal/store"
	"fleetscan/internal/timespec"
)

// fakeStore serves a fixed, sorted sample series per measurement and
// implements the window/count filtering the real store performs server-side.
type fakeStore struct {
	series   map[string][]store.Row
	rowsErr  func(q store.RowQuery) error
	countErr func(q store.CountQuery) error
	reversed bool

	rowQueries []store.RowQuery
}

func (f *fakeStore) Measurements(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.series))
	for name := range f.series {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeStore) Fields(ctx context.Context, measurement string) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) Rows(ctx context.Context, q store.RowQuery) ([]store.Row, error) {
	f.rowQueries = append(f.rowQueries, q)
	if f.rowsErr != nil {
		if err := f.rowsErr(q); err != nil {
			return nil, err
		}
	}

	var rows []store.Row
	for _, row := range f.series[q.Measurement] {
		if row.Timestamp.Before(q.Start) || !row.Timestamp.Before(q.End) {
			continue
		}
		rows = append(rows, row)
		if q.Cap > 0 && len(rows) >= q.Cap {
			break
		}
	}
	if f.reversed {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	return rows, nil
}

func (f *fakeStore) CountField(ctx context.Context, q store.CountQuery) (int64, error) {
	if f.countErr != nil {
		if err := f.countErr(q); err != nil {
			return 0, err
		}
	}
	var n int64
	for _, row := range f.series[q.Measurement] {
		if row.Timestamp.Before(q.Start) || !row.Timestamp.Before(q.End) {
			continue
		}
		if row.HasNonNull(q.Field) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) TimeBounds(ctx context.Context, measurement, vehicleID string) (time.Time, time.Time, bool, error) {
	series := f.series[measurement]
	if len(series) == 0 {
		return time.Time{}, time.Time{}, false, nil
	}
	return series[0].Timestamp, series[len(series)-1].Timestamp, true, nil
}

// tempSeries produces one "temp" sample every interval over [start, end),
// skipping the outage range [outageStart, outageEnd).
func tempSeries(start, end time.Time, interval time.Duration, outageStart, outageEnd time.Time) []store.Row {
	var rows []store.Row
	for ts := start; ts.Before(end); ts = ts.Add(interval) {
		if !ts.Before(outageStart) && ts.Before(outageEnd) {
			continue
		}
		rows = append(rows, store.Row{
			Timestamp: ts,
			Fields:    map[string]interface{}{"temp": 21.5},
		})
	}
	return rows
}

func scenarioParams(r timespec.InstantRange, carry bool) Params {
	return Params{
		VehicleID:    "V1",
		Range:        r,
		WindowSize:   30 * time.Minute,
		RowCap:       100000,
		GapThreshold: 10 * time.Second,
		CarryGaps:    carry,
	}
}

func TestRunnerRunMeasurement(t *testing.T) {
	base := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	hour := mustRange(t, base, base.Add(time.Hour))
	channels := channelmap.Channels{"CAN_ID_1": {"temp"}}
	logger := zap.NewNop()

	// 1-hour range, one sample every 5s, 20-minute outage starting at
	// minute 10. The sample at minute 10 itself is present; the next one is
	// at minute 30, the start of the second window.
	outage := tempSeries(base, base.Add(time.Hour), 5*time.Second,
		base.Add(10*time.Minute+5*time.Second), base.Add(30*time.Minute))

	t.Run("Outage scenario without carry misses the boundary gap", func(t *testing.T) {
		fs := &fakeStore{series: map[string][]store.Row{"engine": outage}}
		runner := NewRunner(fs, logger)

		res, err := runner.RunMeasurement(context.Background(), "engine", channels, scenarioParams(hour, false))
		require.NoError(t, err)

		// Two windows scheduled, both internally gap-free: the 1200s hole
		// spans the window boundary and goes unnoticed in reset mode.
		assert.Equal(t, 2, res.WindowsScheduled)
		require.Len(t, fs.rowQueries, 2)
		assert.Equal(t, base.Add(30*time.Minute), fs.rowQueries[0].End)
		assert.Equal(t, base.Add(30*time.Minute), fs.rowQueries[1].Start)
		assert.Equal(t, time.Hour, res.EffectiveDuration)
		assert.Equal(t, int64(len(outage)), res.Frequencies["CAN_ID_1"]["temp"])
	})

	t.Run("Outage scenario with carry detects the boundary gap", func(t *testing.T) {
		fs := &fakeStore{series: map[string][]store.Row{"engine": outage}}
		runner := NewRunner(fs, logger)

		res, err := runner.RunMeasurement(context.Background(), "engine", channels, scenarioParams(hour, true))
		require.NoError(t, err)

		// 20-minute hole minus the 10s acceptable period.
		lost := 20*time.Minute - 10*time.Second
		assert.Equal(t, time.Hour-lost, res.EffectiveDuration)
		assert.Equal(t, int64(len(outage)), res.Frequencies["CAN_ID_1"]["temp"])
	})

	t.Run("Outage inside one window is detected in both modes", func(t *testing.T) {
		// Shift the outage fully into the first window.
		series := tempSeries(base, base.Add(time.Hour), 5*time.Second,
			base.Add(5*time.Minute+5*time.Second), base.Add(25*time.Minute))

		for _, carry := range []bool{false, true} {
			fs := &fakeStore{series: map[string][]store.Row{"engine": series}}
			runner := NewRunner(fs, logger)

			res, err := runner.RunMeasurement(context.Background(), "engine", channels, scenarioParams(hour, carry))
			require.NoError(t, err)

			lost := 20*time.Minute - 10*time.Second
			assert.Equal(t, time.Hour-lost, res.EffectiveDuration, "carry=%v", carry)
		}
	})

	t.Run("Empty store response yields zero counts and full coverage", func(t *testing.T) {
		fs := &fakeStore{series: map[string][]store.Row{}}
		runner := NewRunner(fs, logger)

		res, err := runner.RunMeasurement(context.Background(), "engine", channels, scenarioParams(hour, false))
		require.NoError(t, err)

		assert.Equal(t, time.Hour, res.EffectiveDuration)
		assert.Equal(t, int64(0), res.Frequencies["CAN_ID_1"]["temp"])
		assert.Zero(t, res.RowsFetched)
	})

	t.Run("Failed window is skipped and the run continues", func(t *testing.T) {
		full := tempSeries(base, base.Add(time.Hour), 5*time.Second, base, base)
		fs := &fakeStore{
			series: map[string][]store.Row{"engine": full},
			rowsErr: func(q store.RowQuery) error {
				if q.Start.Equal(base) {
					return store.ErrRowQuery
				}
				return nil
			},
		}
		runner := NewRunner(fs, logger)

		res, err := runner.RunMeasurement(context.Background(), "engine", channels, scenarioParams(hour, false))
		require.NoError(t, err)

		assert.Equal(t, 1, res.WindowsFailed)
		// Only the second window's samples are counted.
		assert.Equal(t, int64(360), res.Frequencies["CAN_ID_1"]["temp"])
	})

	t.Run("Row cap hit is surfaced as truncation, not fixed", func(t *testing.T) {
		full := tempSeries(base, base.Add(time.Hour), 5*time.Second, base, base)
		fs := &fakeStore{series: map[string][]store.Row{"engine": full}}
		runner := NewRunner(fs, logger)

		p := scenarioParams(hour, false)
		p.RowCap = 100
		res, err := runner.RunMeasurement(context.Background(), "engine", channels, p)
		require.NoError(t, err)

		assert.Equal(t, 2, res.WindowsTruncated)
		assert.Equal(t, int64(200), res.Frequencies["CAN_ID_1"]["temp"])
	})

	t.Run("Out-of-order batches are sorted before gap detection", func(t *testing.T) {
		fs := &fakeStore{
			series:   map[string][]store.Row{"engine": outage},
			reversed: true,
		}
		runner := NewRunner(fs, logger)

		res, err := runner.RunMeasurement(context.Background(), "engine", channels, scenarioParams(hour, true))
		require.NoError(t, err)

		lost := 20*time.Minute - 10*time.Second
		assert.Equal(t, time.Hour-lost, res.EffectiveDuration)
	})

	t.Run("Field counts are invariant under windowing", func(t *testing.T) {
		series := tempSeries(base, base.Add(time.Hour), 7*time.Second, base, base)
		fs := &fakeStore{series: map[string][]store.Row{"engine": series}}
		runner := NewRunner(fs, logger)

		whole, err := fs.CountField(context.Background(), store.CountQuery{
			Measurement: "engine", Field: "temp", Start: hour.Start, End: hour.End,
		})
		require.NoError(t, err)

		for _, size := range []time.Duration{time.Hour, 30 * time.Minute, 11 * time.Minute, 90 * time.Second} {
			p := scenarioParams(hour, false)
			p.WindowSize = size
			res, err := runner.RunMeasurement(context.Background(), "engine", channels, p)
			require.NoError(t, err)
			assert.Equal(t, whole, res.Frequencies["CAN_ID_1"]["temp"], "window size %s", size)
		}
	})
}

func TestRunnerRun(t *testing.T) {
	base := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	hour := mustRange(t, base, base.Add(time.Hour))
	logger := zap.NewNop()

	t.Run("Empty channel map completes trivially", func(t *testing.T) {
		runner := NewRunner(&fakeStore{}, logger)
		results, err := runner.Run(context.Background(), channelmap.Map{}, scenarioParams(hour, false))
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Produces one result per measurement in sorted order", func(t *testing.T) {
		series := tempSeries(base, base.Add(time.Hour), time.Minute, base, base)
		fs := &fakeStore{series: map[string][]store.Row{
			"bms":    series,
			"engine": series,
		}}
		cm := channelmap.Map{
			"engine": {"CAN_ID_1": {"temp"}},
			"bms":    {"CAN_ID_1": {"temp"}},
		}
		runner := NewRunner(fs, logger)

		results, err := runner.Run(context.Background(), cm, scenarioParams(hour, false))
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "bms", results[0].Measurement)
		assert.Equal(t, "engine", results[1].Measurement)
	})

	t.Run("Cancellation is observed between windows", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		runner := NewRunner(&fakeStore{}, logger)
		cm := channelmap.Map{"engine": {"CAN_ID_1": {"temp"}}}
		_, err := runner.Run(ctx, cm, scenarioParams(hour, false))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunnerRunAggregate(t *testing.T) {
	base := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	hour := mustRange(t, base, base.Add(time.Hour))
	logger := zap.NewNop()

	series := tempSeries(base, base.Add(time.Hour), 5*time.Second, base, base)
	cm := channelmap.Map{"engine": {"CAN_ID_1": {"temp", "rpm"}}}

	t.Run("Counts each measurement field server-side", func(t *testing.T) {
		fs := &fakeStore{series: map[string][]store.Row{"engine": series}}
		runner := NewRunner(fs, logger)

		results, err := runner.RunAggregate(context.Background(), cm, scenarioParams(hour, false))
		require.NoError(t, err)
		require.Len(t, results, 1)

		assert.Equal(t, int64(720), results[0].Frequencies["CAN_ID_1"]["temp"])
		assert.Equal(t, int64(0), results[0].Frequencies["CAN_ID_1"]["rpm"])
		assert.Zero(t, results[0].EffectiveDuration)
	})

	t.Run("Failed count reports zero and continues", func(t *testing.T) {
		fs := &fakeStore{
			series: map[string][]store.Row{"engine": series},
			countErr: func(q store.CountQuery) error {
				if q.Field == "temp" {
					return errors.New("shard failure")
				}
				return nil
			},
		}
		runner := NewRunner(fs, logger)

		results, err := runner.RunAggregate(context.Background(), cm, scenarioParams(hour, false))
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, int64(0), results[0].Frequencies["CAN_ID_1"]["temp"])
	})
}
