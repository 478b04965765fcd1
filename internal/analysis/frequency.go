package analysis

import (
	"fleetscan/internal/channelmap"
	"fleetscan/internal/store"
)

// FrequencyTable maps channel id → field name → number of samples carrying
// a present, non-null value for that field.
type FrequencyTable map[string]map[string]int64

// CountFields counts non-null occurrences of every configured field across
// the accumulated samples of one measurement. Every configured field appears
// in the table, so fields absent from the returned rows report 0 rather
// than being missing. Samples are not deduplicated; the scheduler's
// non-overlap invariant is what prevents double counting.
func CountFields(channels channelmap.Channels, samples []store.Row) FrequencyTable {
	table := make(FrequencyTable, len(channels))
	for channelID, fields := range channels {
		counts := make(map[string]int64, len(fields))
		for _, field := range fields {
			counts[field] = 0
		}
		table[channelID] = counts
	}

	for _, sample := range samples {
		for channelID, fields := range channels {
			for _, field := range fields {
				if sample.HasNonNull(field) {
					table[channelID][field]++
				}
			}
		}
	}
	return table
}
