package domain_test

import (
	"testing"
	"time"

	"github.com/caniken03/vioconcierge/internal/availability/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBusinessHours(t *testing.T) {
	t.Run("general profile is weekday nine to five", func(t *testing.T) {
		bh := domain.DefaultBusinessHours(domain.CategoryGeneral)

		monday := bh.Day(time.Monday)
		assert.True(t, monday.Enabled)
		assert.Equal(t, 9*60, monday.StartMin)
		assert.Equal(t, 17*60, monday.EndMin)
		assert.False(t, bh.Day(time.Saturday).Enabled)
		assert.False(t, bh.Day(time.Sunday).Enabled)
	})

	t.Run("medical profile is narrower and weekday only", func(t *testing.T) {
		bh := domain.DefaultBusinessHours(domain.CategoryMedical)

		wednesday := bh.Day(time.Wednesday)
		assert.True(t, wednesday.Enabled)
		assert.Equal(t, 8*60, wednesday.StartMin)
		assert.Equal(t, 16*60, wednesday.EndMin)
		assert.False(t, bh.Day(time.Saturday).Enabled)
	})

	t.Run("salon profile has evenings and weekend", func(t *testing.T) {
		bh := domain.DefaultBusinessHours(domain.CategorySalon)

		assert.True(t, bh.Day(time.Saturday).Enabled)
		assert.Equal(t, 20*60, bh.Day(time.Saturday).EndMin)
		assert.True(t, bh.Day(time.Sunday).Enabled)
		assert.False(t, bh.Day(time.Monday).Enabled)
	})
}

func TestNewBusinessHours_RejectsInvertedWindow(t *testing.T) {
	_, err := domain.NewBusinessHours(map[time.Weekday]domain.DayWindow{
		time.Monday: {Enabled: true, StartMin: 17 * 60, EndMin: 9 * 60},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDayWindow)
}

func TestDayWindow_Window(t *testing.T) {
	w := domain.DayWindow{Enabled: true, StartMin: 9 * 60, EndMin: 17 * 60}
	date := time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC) // time of day ignored

	start, end := w.Window(date)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC), end)
}

func TestSlot_Overlaps(t *testing.T) {
	slot := domain.NewSlot(
		time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		domain.ProviderBusinessHours,
	)

	assert.True(t, slot.Overlaps(
		time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 11, 30, 0, 0, time.UTC),
	))
	// Adjacent windows do not overlap under the half-open test.
	assert.False(t, slot.Overlaps(
		time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	))
	assert.Equal(t, 60, slot.DurationMinutes)
	assert.False(t, slot.FromProvider())
}
