// Package report flattens analysis results into the two-column table
// consumed by external exporters: one row per measurement/field pair.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fleetscan/internal/analysis"
	"fleetscan/internal/channelmap"
)

// Row is one flat result line. Key follows the platform convention
// "measurement.count_<field>".
type Row struct {
	Key   string `json:"measurement_field"`
	Count int64  `json:"count"`
}

// Rows flattens one measurement's result in channel-map order, so output is
// stable across runs. Fields configured but never observed appear with 0.
func Rows(cm channelmap.Map, result analysis.Result) []Row {
	var rows []Row
	for _, channelID := range cm.ChannelIDs(result.Measurement) {
		for _, field := range cm[result.Measurement][channelID] {
			var count int64
			if counts, ok := result.Frequencies[channelID]; ok {
				count = counts[field]
			}
			rows = append(rows, Row{
				Key:   fmt.Sprintf("%s.count_%s", result.Measurement, field),
				Count: count,
			})
		}
	}
	return rows
}

// WriteCSV emits the flat table with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Measurement_Field", "Count"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Key, strconv.FormatInt(row.Count, 10)}); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// DefaultFilename reproduces the platform's historical output naming:
// measurements_field_counts_<vehicle>_<startdate>_<starttime>_to_<endtime>.csv
func DefaultFilename(vehicleID, startDate, startTime, endTime string) string {
	return fmt.Sprintf("measurements_field_counts_%s_%s_%s_to_%s.csv",
		vehicleID,
		strings.ReplaceAll(startDate, "-", ""),
		strings.ReplaceAll(startTime, ":", ""),
		strings.ReplaceAll(endTime, ":", ""),
	)
}
