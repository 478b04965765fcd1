// Package analysis implements the windowed coverage engine: it partitions a
// time range into store-size-bounded windows, drives sequential retrieval,
// quantifies recording gaps, and counts valid samples per signal field.
package analysis

import (
	"time"

	"fleetscan/internal/timespec"
)

// TimeWindow is one half-open [Start, End) sub-range of the analysis range.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Schedule partitions r into contiguous, non-overlapping windows of the
// given size that cover the range exactly once. The final window is clipped
// to the range end and may be shorter than size. Pure function of its
// inputs; a non-positive size yields a single window spanning the range.
func Schedule(r timespec.InstantRange, size time.Duration) []TimeWindow {
	if size <= 0 {
		return []TimeWindow{{Start: r.Start, End: r.End}}
	}

	windows := make([]TimeWindow, 0, int(r.Length()/size)+1)
	for cursor := r.Start; cursor.Before(r.End); cursor = cursor.Add(size) {
		end := cursor.Add(size)
		if end.After(r.End) {
			end = r.End
		}
		windows = append(windows, TimeWindow{Start: cursor, End: end})
	}
	return windows
}
