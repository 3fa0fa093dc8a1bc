package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDateRange(t *testing.T) {
	t.Run("Should parse inclusive calendar dates", func(t *testing.T) {
		r, err := ParseDateRange("2024-06-01", "2024-06-05")
		require.NoError(t, err)
		assert.Equal(t, day("2024-06-01"), r.Start)
		assert.Equal(t, day("2024-06-05"), r.End)
		assert.Equal(t, 5, r.Days())
	})

	t.Run("Should accept a single day", func(t *testing.T) {
		r, err := ParseDateRange("2024-06-01", "2024-06-01")
		require.NoError(t, err)
		assert.Equal(t, 1, r.Days())
	})

	t.Run("Should reject missing dates", func(t *testing.T) {
		_, err := ParseDateRange("", "2024-06-05")
		assert.ErrorIs(t, err, ErrMissingField)
	})

	t.Run("Should reject malformed dates", func(t *testing.T) {
		_, err := ParseDateRange("06/01/2024", "2024-06-05")
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("Should reject an end before the start", func(t *testing.T) {
		start := day("2024-01-01")
		for i := 1; i <= 40; i++ {
			s := start.AddDate(0, 0, i)
			e := s.AddDate(0, 0, -i%7-1)
			_, err := ParseDateRange(s.Format(DateLayout), e.Format(DateLayout))
			assert.ErrorIs(t, err, ErrEndBeforeStart, "start %s end %s", s, e)
		}
	})
}

func TestNewDateRange(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*60*60)
	r, err := NewDateRange(time.Date(2024, 6, 1, 22, 30, 0, 0, loc), time.Date(2024, 6, 2, 1, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, day("2024-06-01"), r.Start)
	assert.Equal(t, day("2024-06-02"), r.End)
}

func TestDateRangeOverlaps(t *testing.T) {
	t.Run("Should follow the closed interval test for every pair", func(t *testing.T) {
		base := day("2024-06-01")
		for s1 := 0; s1 < 8; s1++ {
			for e1 := s1; e1 < 8; e1++ {
				for s2 := 0; s2 < 8; s2++ {
					for e2 := s2; e2 < 8; e2++ {
						r1 := DateRange{Start: base.AddDate(0, 0, s1), End: base.AddDate(0, 0, e1)}
						r2 := DateRange{Start: base.AddDate(0, 0, s2), End: base.AddDate(0, 0, e2)}
						want := s1 <= e2 && s2 <= e1
						assert.Equal(t, want, r1.Overlaps(r2), "[%d,%d] vs [%d,%d]", s1, e1, s2, e2)
						assert.Equal(t, r1.Overlaps(r2), r2.Overlaps(r1))
					}
				}
			}
		}
	})

	t.Run("Should exclude a booked bike only on shared days", func(t *testing.T) {
		booked := DateRange{Start: day("2024-06-01"), End: day("2024-06-05")}
		assert.True(t, booked.Overlaps(DateRange{Start: day("2024-06-03"), End: day("2024-06-04")}))
		assert.True(t, booked.Overlaps(DateRange{Start: day("2024-06-05"), End: day("2024-06-06")}))
		assert.False(t, booked.Overlaps(DateRange{Start: day("2024-06-06"), End: day("2024-06-10")}))
	})
}

func TestToday(t *testing.T) {
	r := Today(time.Date(2024, 6, 3, 15, 4, 5, 0, time.UTC))
	assert.Equal(t, day("2024-06-03"), r.Start)
	assert.Equal(t, r.Start, r.End)
}
