package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetscan/internal/channelmap"
	"fleetscan/internal/store"
)

func TestCountFields(t *testing.T) {
	base := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	channels := channelmap.Channels{
		"181": {"BatteryDischargeLimit", "BatteryChargeLimit"},
		"182": {"BMS_BatteryCurrent"},
	}

	t.Run("Counts present non-null values per field", func(t *testing.T) {
		samples := []store.Row{
			{Timestamp: base, Fields: map[string]interface{}{
				"BatteryDischargeLimit": 120.0,
				"BMS_BatteryCurrent":    -3.5,
			}},
			{Timestamp: base.Add(time.Second), Fields: map[string]interface{}{
				"BatteryDischargeLimit": 121.0,
				"BatteryChargeLimit":    80.0,
			}},
		}

		table := CountFields(channels, samples)
		assert.Equal(t, int64(2), table["181"]["BatteryDischargeLimit"])
		assert.Equal(t, int64(1), table["181"]["BatteryChargeLimit"])
		assert.Equal(t, int64(1), table["182"]["BMS_BatteryCurrent"])
	})

	t.Run("Explicit nulls are not counted", func(t *testing.T) {
		samples := []store.Row{
			{Timestamp: base, Fields: map[string]interface{}{
				"BatteryDischargeLimit": nil,
				"BatteryChargeLimit":    80.0,
			}},
		}

		table := CountFields(channels, samples)
		assert.Equal(t, int64(0), table["181"]["BatteryDischargeLimit"])
		assert.Equal(t, int64(1), table["181"]["BatteryChargeLimit"])
	})

	t.Run("Fields absent from all rows report zero, not an error", func(t *testing.T) {
		samples := []store.Row{
			{Timestamp: base, Fields: map[string]interface{}{"unrelated": 1.0}},
		}

		table := CountFields(channels, samples)
		require.Contains(t, table, "181")
		require.Contains(t, table, "182")
		assert.Equal(t, int64(0), table["181"]["BatteryDischargeLimit"])
		assert.Equal(t, int64(0), table["181"]["BatteryChargeLimit"])
		assert.Equal(t, int64(0), table["182"]["BMS_BatteryCurrent"])
	})

	t.Run("No samples yields an all-zero table", func(t *testing.T) {
		table := CountFields(channels, nil)
		for channelID, fields := range table {
			for field, count := range fields {
				assert.Zero(t, count, "%s/%s", channelID, field)
			}
		}
	})

	t.Run("Samples are not deduplicated", func(t *testing.T) {
		row := store.Row{Timestamp: base, Fields: map[string]interface{}{
			"BMS_BatteryCurrent": 1.0,
		}}
		table := CountFields(channels, []store.Row{row, row})
		assert.Equal(t, int64(2), table["182"]["BMS_BatteryCurrent"])
	})
}
