package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Run("Localizes wall clock to UTC", func(t *testing.T) {
		got, err := Resolve("2025-01-08", "11:00:00", "Asia/Kolkata")
		require.NoError(t, err)

		// IST is UTC+05:30.
		assert.Equal(t, time.Date(2025, 1, 8, 5, 30, 0, 0, time.UTC), got)
		assert.Equal(t, time.UTC, got.Location())
	})

	t.Run("UTC passes through unchanged", func(t *testing.T) {
		got, err := Resolve("2025-06-01", "00:00:00", "UTC")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("Unknown timezone is a distinct fatal error", func(t *testing.T) {
		_, err := Resolve("2025-01-08", "11:00:00", "Mars/Olympus_Mons")
		assert.ErrorIs(t, err, ErrUnknownTimezone)
	})

	t.Run("Unparseable date aborts", func(t *testing.T) {
		_, err := Resolve("08-01-2025", "11:00:00", "UTC")
		assert.ErrorIs(t, err, ErrInvalidTimeSpec)
	})

	t.Run("Unparseable clock aborts", func(t *testing.T) {
		_, err := Resolve("2025-01-08", "25:99:00", "UTC")
		assert.ErrorIs(t, err, ErrInvalidTimeSpec)
	})
}

func TestNewRange(t *testing.T) {
	base := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)

	t.Run("Valid range reports its length", func(t *testing.T) {
		r, err := NewRange(base, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, r.Length())
	})

	t.Run("Start equal to end is rejected", func(t *testing.T) {
		_, err := NewRange(base, base)
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("Start after end is rejected", func(t *testing.T) {
		_, err := NewRange(base.Add(time.Hour), base)
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}

func TestResolveRange(t *testing.T) {
	t.Run("Resolves both endpoints in the same zone", func(t *testing.T) {
		r, err := ResolveRange("2025-01-08", "11:00:00", "2025-01-08", "14:20:00", "Asia/Kolkata")
		require.NoError(t, err)
		assert.Equal(t, 3*time.Hour+20*time.Minute, r.Length())
		assert.Equal(t, time.Date(2025, 1, 8, 5, 30, 0, 0, time.UTC), r.Start)
	})

	t.Run("Inverted endpoints are rejected", func(t *testing.T) {
		_, err := ResolveRange("2025-01-08", "14:00:00", "2025-01-08", "11:00:00", "UTC")
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}
