package analysis

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"fleetscan/internal/channelmap"
	"fleetscan/internal/store"
	"fleetscan/internal/timespec"
)

// Params are the externally supplied knobs of one analysis run.
type Params struct {
	VehicleID    string
	Range        timespec.InstantRange
	WindowSize   time.Duration
	RowCap       int
	GapThreshold time.Duration
	CarryGaps    bool
}

// Result is the engine's sole output per measurement processed.
type Result struct {
	Measurement       string
	EffectiveDuration time.Duration
	Frequencies       FrequencyTable

	WindowsScheduled int
	WindowsFailed    int
	WindowsTruncated int
	RowsFetched      int
}

// Runner drives the sequential window loop for each measurement of a run.
// One logical worker: windows are fetched strictly one at a time, since gap
// carry between windows depends on the previous window's last sample.
type Runner struct {
	client store.Client
	logger *zap.Logger
}

func NewRunner(client store.Client, logger *zap.Logger) *Runner {
	return &Runner{client: client, logger: logger}
}

// Run analyzes every measurement in the channel map, in sorted order, and
// returns one Result per measurement. An empty map completes trivially with
// no results. Only context cancellation aborts the loop; per-measurement
// and per-window store failures are recovered locally.
func (r *Runner) Run(ctx context.Context, cm channelmap.Map, p Params) ([]Result, error) {
	sugar := r.logger.Sugar()
	if len(cm) == 0 {
		sugar.Warn("Channel map is empty, run completes trivially")
		return nil, nil
	}

	results := make([]Result, 0, len(cm))
	for _, measurement := range cm.Measurements() {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		r.logCoverage(ctx, measurement, p.VehicleID)

		res, err := r.RunMeasurement(ctx, measurement, cm[measurement], p)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// RunMeasurement performs the windowed gap/frequency analysis for one
// measurement. The only error it returns is context cancellation; a window
// whose query fails is logged, counted, and skipped, so the run always
// produces a (possibly reduced-coverage) result.
func (r *Runner) RunMeasurement(
	ctx context.Context,
	measurement string,
	channels channelmap.Channels,
	p Params,
) (Result, error) {
	sugar := r.logger.Sugar()

	windows := Schedule(p.Range, p.WindowSize)
	windowsScheduled.WithLabelValues(measurement).Add(float64(len(windows)))

	result := Result{
		Measurement:      measurement,
		WindowsScheduled: len(windows),
	}

	var (
		state   GapState
		samples []store.Row
	)

	for _, w := range windows {
		// Cancellation is observed between windows only; a single window
		// query cannot be interrupted once issued and is bounded by the
		// row cap and window size instead.
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := r.client.Rows(ctx, store.RowQuery{
			Measurement: measurement,
			VehicleID:   p.VehicleID,
			Start:       w.Start,
			End:         w.End,
			Cap:         p.RowCap,
		})
		if err != nil {
			// Fail-soft: skip the window, keep the run going.
			sugar.Warnw("Window query failed, skipping window",
				"measurement", measurement,
				"window_start", w.Start,
				"window_end", w.End,
				"error", err,
			)
			windowsFailed.WithLabelValues(measurement).Inc()
			result.WindowsFailed++
			continue
		}

		if len(batch) == 0 {
			// No samples and no gap evidence; the schedule still advances.
			continue
		}

		if p.RowCap > 0 && len(batch) >= p.RowCap {
			sugar.Warnw("Window hit the row cap, data may be truncated",
				"measurement", measurement,
				"window_start", w.Start,
				"window_end", w.End,
				"row_cap", p.RowCap,
			)
			windowsTruncated.WithLabelValues(measurement).Inc()
			result.WindowsTruncated++
		}

		ensureAscending(batch, measurement, r.logger)

		state = DetectGaps(batch, p.GapThreshold, state, p.CarryGaps)
		samples = append(samples, batch...)
	}

	result.RowsFetched = len(samples)
	result.EffectiveDuration = EffectiveDuration(p.Range, state)
	result.Frequencies = CountFields(channels, samples)

	rowsFetched.WithLabelValues(measurement).Add(float64(len(samples)))
	gapSeconds.WithLabelValues(measurement).Set(state.Accumulated.Seconds())
	effectiveSeconds.WithLabelValues(measurement).Set(result.EffectiveDuration.Seconds())

	sugar.Infow("Measurement analyzed",
		"measurement", measurement,
		"rows", len(samples),
		"windows", len(windows),
		"windows_failed", result.WindowsFailed,
		"gap_duration", state.Accumulated,
		"effective_duration", result.EffectiveDuration,
	)
	return result, nil
}

// RunAggregate is the store-side companion mode: one server-side non-null
// count per measurement/field pair, no raw-row transfer and no gap
// awareness. EffectiveDuration is left zero. A failed count query logs and
// reports 0 for that field rather than aborting.
func (r *Runner) RunAggregate(ctx context.Context, cm channelmap.Map, p Params) ([]Result, error) {
	sugar := r.logger.Sugar()
	if len(cm) == 0 {
		sugar.Warn("Channel map is empty, run completes trivially")
		return nil, nil
	}

	results := make([]Result, 0, len(cm))
	for _, measurement := range cm.Measurements() {
		channels := cm[measurement]
		table := make(FrequencyTable, len(channels))

		for channelID, fields := range channels {
			counts := make(map[string]int64, len(fields))
			for _, field := range fields {
				if err := ctx.Err(); err != nil {
					return results, err
				}

				n, err := r.client.CountField(ctx, store.CountQuery{
					Measurement: measurement,
					Field:       field,
					VehicleID:   p.VehicleID,
					Start:       p.Range.Start,
					End:         p.Range.End,
				})
				if err != nil {
					sugar.Warnw("Count query failed, reporting zero",
						"measurement", measurement,
						"field", field,
						"error", err,
					)
					n = 0
				}
				counts[field] = n
			}
			table[channelID] = counts
		}

		results = append(results, Result{Measurement: measurement, Frequencies: table})
		sugar.Infow("Measurement counted", "measurement", measurement, "channels", len(channels))
	}
	return results, nil
}

// logCoverage surfaces the store-side first/last sample instants before the
// windowed queries start. Discovery failures are informational only.
func (r *Runner) logCoverage(ctx context.Context, measurement, vehicleID string) {
	sugar := r.logger.Sugar()
	min, max, ok, err := r.client.TimeBounds(ctx, measurement, vehicleID)
	switch {
	case err != nil:
		sugar.Debugw("Coverage discovery failed", "measurement", measurement, "error", err)
	case !ok:
		sugar.Infow("No recorded data for vehicle in measurement",
			"measurement", measurement, "vehicle_id", vehicleID)
	default:
		sugar.Infow("Recorded coverage",
			"measurement", measurement,
			"first_sample", min,
			"last_sample", max,
		)
	}
}

// ensureAscending verifies the non-decreasing timestamp invariant the store
// was asked for. Store clients may reorder on retry, so a violated batch is
// sorted before gap detection; counting is order-independent.
func ensureAscending(batch []store.Row, measurement string, logger *zap.Logger) {
	if sort.SliceIsSorted(batch, func(i, j int) bool {
		return batch[i].Timestamp.Before(batch[j].Timestamp)
	}) {
		return
	}
	logger.Warn("Store returned out-of-order rows, sorting batch",
		zap.String("measurement", measurement),
		zap.Int("rows", len(batch)),
	)
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Timestamp.Before(batch[j].Timestamp)
	})
}
