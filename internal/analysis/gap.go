package analysis

import (
	"time"

	"fleetscan/internal/store"
	"fleetscan/internal/timespec"
)

// GapState carries the running gap accounting of one analysis run.
// Accumulated is the total lost duration; LastSeen is the reference point
// for the next delta and is only consulted across batches when the runner
// carries state over window boundaries.
type GapState struct {
	Accumulated time.Duration
	LastSeen    *time.Time
}

// DetectGaps scans the successive timestamp deltas of a time-ordered batch.
// A delta strictly greater than threshold is a gap; only the excess over the
// threshold counts as lost time, since the threshold is the acceptable
// native inter-sample period.
//
// With carry=false the reference point resets at each batch, so a gap that
// straddles two windows goes unnoticed. That matches the recording
// platform's historical behavior and is the default; carry=true closes the
// boundary hole by seeding the first delta from state.LastSeen.
func DetectGaps(batch []store.Row, threshold time.Duration, state GapState, carry bool) GapState {
	if len(batch) == 0 {
		return state
	}

	start := 0
	var prev time.Time
	if carry && state.LastSeen != nil {
		prev = *state.LastSeen
	} else {
		prev = batch[0].Timestamp
		start = 1
	}

	for _, row := range batch[start:] {
		if delta := row.Timestamp.Sub(prev); delta > threshold {
			state.Accumulated += delta - threshold
		}
		prev = row.Timestamp
	}

	last := batch[len(batch)-1].Timestamp
	state.LastSeen = &last
	return state
}

// EffectiveDuration is the portion of the range judged to contain live data:
// range length minus accumulated lost time. The result is deliberately not
// clamped at zero, so malformed gap accounting stays visible to callers.
// With no samples at all the accumulated gap is zero and the full range
// length is returned, which reads as full coverage despite total absence of
// data; callers that care must inspect the frequency table.
func EffectiveDuration(r timespec.InstantRange, state GapState) time.Duration {
	return r.Length() - state.Accumulated
}
