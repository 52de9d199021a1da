package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference clock: Tuesday 2026-02-03.
var testNow = time.Date(2026, 2, 3, 10, 30, 0, 0, time.UTC)

func TestNormalizeFlightInfo(t *testing.T) {
	t.Run("normalizes flight number and relative date", func(t *testing.T) {
		fi, err := NormalizeFlightInfo(FlightInfo{
			FlightNumber:    " ey123 ",
			Date:            "today",
			DisruptionEvent: " mechanical failure ",
		}, testNow)
		require.NoError(t, err)
		assert.Equal(t, FlightInfo{
			FlightNumber:    "EY123",
			Date:            "2026-02-03",
			DisruptionEvent: "mechanical failure",
		}, fi)
	})

	t.Run("accepts concrete ISO date", func(t *testing.T) {
		fi, err := NormalizeFlightInfo(FlightInfo{
			FlightNumber:    "EY2787",
			Date:            "2026-01-30",
			DisruptionEvent: "mechanical issue",
		}, testNow)
		require.NoError(t, err)
		assert.Equal(t, "2026-01-30", fi.Date)
	})

	t.Run("resolves yesterday and tomorrow", func(t *testing.T) {
		fi, err := NormalizeFlightInfo(FlightInfo{FlightNumber: "EY100", Date: "yesterday", DisruptionEvent: "weather"}, testNow)
		require.NoError(t, err)
		assert.Equal(t, "2026-02-02", fi.Date)

		fi, err = NormalizeFlightInfo(FlightInfo{FlightNumber: "EY100", Date: "tomorrow", DisruptionEvent: "weather"}, testNow)
		require.NoError(t, err)
		assert.Equal(t, "2026-02-04", fi.Date)
	})

	t.Run("resolves weekday to most recent occurrence", func(t *testing.T) {
		// testNow is a Tuesday; Monday resolves to the day before,
		// Tuesday to today, Wednesday wraps to last week.
		cases := map[string]string{
			"Monday":    "2026-02-02",
			"tuesday":   "2026-02-03",
			"Wednesday": "2026-01-28",
		}
		for day, want := range cases {
			fi, err := NormalizeFlightInfo(FlightInfo{FlightNumber: "EY100", Date: day, DisruptionEvent: "delay"}, testNow)
			require.NoError(t, err, day)
			assert.Equal(t, want, fi.Date, day)
		}
	})

	t.Run("normalization is idempotent", func(t *testing.T) {
		first, err := NormalizeFlightInfo(FlightInfo{
			FlightNumber:    "ey123",
			Date:            "today",
			DisruptionEvent: "mechanical failure",
		}, testNow)
		require.NoError(t, err)

		second, err := NormalizeFlightInfo(first, testNow)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("rejects non-carrier flight numbers", func(t *testing.T) {
		for _, fn := range []string{"ZZ999", "EY12", "EY12345", "", "123"} {
			_, err := NormalizeFlightInfo(FlightInfo{FlightNumber: fn, Date: "today", DisruptionEvent: "x"}, testNow)
			require.Error(t, err, fn)
			assert.ErrorIs(t, err, ErrInvalidFlightInfo)
		}
	})

	t.Run("rejects unparseable date", func(t *testing.T) {
		_, err := NormalizeFlightInfo(FlightInfo{FlightNumber: "EY123", Date: "next fortnight", DisruptionEvent: "x"}, testNow)
		assert.ErrorIs(t, err, ErrInvalidFlightInfo)
	})

	t.Run("rejects empty disruption event", func(t *testing.T) {
		_, err := NormalizeFlightInfo(FlightInfo{FlightNumber: "EY123", Date: "today", DisruptionEvent: "  "}, testNow)
		assert.ErrorIs(t, err, ErrInvalidFlightInfo)
	})
}
