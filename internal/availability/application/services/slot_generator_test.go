package services_test

import (
	"testing"
	"time"

	"github.com/caniken03/vioconcierge/internal/availability/application/services"
	"github.com/caniken03/vioconcierge/internal/availability/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 2026-03-02. All tests pin "now" to the prior Friday evening so the
// candidate dates land on deterministic weekdays.
var (
	testNow    = time.Date(2026, 2, 27, 19, 0, 0, 0, time.UTC)
	testMonday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
)

func generalInput() services.GenerateInput {
	return services.GenerateInput{
		Hours:          domain.DefaultBusinessHours(domain.CategoryGeneral),
		Duration:       60 * time.Minute,
		PreferredDates: []time.Time{testMonday},
		OriginalTime:   time.Date(2026, 2, 25, 10, 0, 0, 0, time.UTC),
		Timezone:       time.UTC,
		Now:            testNow,
	}
}

func TestGenerate_BufferedOverlapExample(t *testing.T) {
	// 60-minute check against 09:00-17:00 weekday hours with one booking
	// 10:00-11:00: no slot may start at 09:30, and with the 15-minute
	// buffer the first slot after the booking starts at 11:15.
	gen := services.NewSlotGenerator(services.DefaultGeneratorConfig())
	input := generalInput()
	input.Busy = []domain.Busy{{
		Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}}

	slots := gen.Generate(input)
	require.NotEmpty(t, slots)

	var starts []string
	for _, slot := range slots {
		starts = append(starts, slot.StartTime.Format("15:04"))
	}
	assert.NotContains(t, starts, "09:30")
	assert.Contains(t, starts, "11:15")
}

func TestGenerate_NoDoubleBooking(t *testing.T) {
	gen := services.NewSlotGenerator(services.DefaultGeneratorConfig())
	input := generalInput()
	input.Busy = []domain.Busy{
		{Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)},
		{Start: time.Date(2026, 3, 2, 13, 30, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)},
	}

	slots := gen.Generate(input)
	require.NotEmpty(t, slots)

	buffer := 15 * time.Minute
	for _, slot := range slots {
		for _, b := range input.Busy {
			assert.False(t, b.Overlaps(slot.StartTime, slot.EndTime.Add(buffer)),
				"slot %s overlaps booking %s", slot.StartTime, b.Start)
		}
	}
}

func TestGenerate_DeterministicRanking(t *testing.T) {
	gen := services.NewSlotGenerator(services.DefaultGeneratorConfig())
	input := generalInput()
	input.PreferredDates = []time.Time{
		testMonday,
		testMonday.AddDate(0, 0, 1),
		testMonday.AddDate(0, 0, 2),
	}
	input.Busy = []domain.Busy{{
		Start: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}}

	first := gen.Generate(input)
	second := gen.Generate(input)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].StartTime, second[i].StartTime, "slot %d differs between runs", i)
		assert.Equal(t, first[i].Provider, second[i].Provider)
	}
}

func TestGenerate_SkipsDisabledDays(t *testing.T) {
	gen := services.NewSlotGenerator(services.DefaultGeneratorConfig())
	input := generalInput()
	// Saturday and Sunday are disabled on the general profile.
	input.PreferredDates = []time.Time{
		time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
	}

	slots := gen.Generate(input)
	assert.Empty(t, slots)
}

func TestGenerate_EmptyWhenDayFullyBooked(t *testing.T) {
	gen := services.NewSlotGenerator(services.DefaultGeneratorConfig())
	input := generalInput()
	input.Busy = []domain.Busy{{
		Start: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
	}}

	slots := gen.Generate(input)
	assert.Empty(t, slots)
}

func TestGenerate_NearerDaysRankFirst(t *testing.T) {
	gen := services.NewSlotGenerator(services.DefaultGeneratorConfig())
	input := generalInput()
	input.OriginalTime = time.Time{} // isolate the day-proximity boost
	input.PreferredDates = []time.Time{
		testMonday.AddDate(0, 0, 7),
		testMonday,
	}

	slots := gen.Generate(input)
	require.NotEmpty(t, slots)
	assert.Equal(t, testMonday.Day(), slots[0].StartTime.Day())
}

func TestGenerate_ProviderSlotsOutrankFallback(t *testing.T) {
	gen := services.NewSlotGenerator(services.DefaultGeneratorConfig())

	fromProvider := generalInput()
	fromProvider.Provider = "calbook"
	providerSlots := gen.Generate(fromProvider)
	require.NotEmpty(t, providerSlots)

	assert.True(t, providerSlots[0].FromProvider())
	assert.Equal(t, "calbook", providerSlots[0].Provider)
}

func TestGenerate_HourProximityToOriginal(t *testing.T) {
	cfg := services.DefaultGeneratorConfig()
	cfg.MaxSlots = 0
	gen := services.NewSlotGenerator(cfg)

	input := generalInput()
	// Original appointment mid-afternoon; top-ranked slot should sit inside
	// core hours near that hour, not at the edges of the day.
	input.OriginalTime = time.Date(2026, 2, 25, 14, 0, 0, 0, time.UTC)

	slots := gen.Generate(input)
	require.NotEmpty(t, slots)
	top := slots[0].StartTime.Hour()
	assert.GreaterOrEqual(t, top, 10)
	assert.Less(t, top, 16)
}

func TestGenerate_RespectsMaxSlots(t *testing.T) {
	cfg := services.DefaultGeneratorConfig()
	cfg.MaxSlots = 5
	gen := services.NewSlotGenerator(cfg)

	input := generalInput()
	input.PreferredDates = []time.Time{
		testMonday,
		testMonday.AddDate(0, 0, 1),
		testMonday.AddDate(0, 0, 2),
	}

	slots := gen.Generate(input)
	assert.Len(t, slots, 5)
}

func TestGenerate_ZeroDurationYieldsNothing(t *testing.T) {
	gen := services.NewSlotGenerator(services.DefaultGeneratorConfig())
	input := generalInput()
	input.Duration = 0

	assert.Empty(t, gen.Generate(input))
}

func TestGenerate_ShortDurationUsesMinimumStep(t *testing.T) {
	gen := services.NewSlotGenerator(services.DefaultGeneratorConfig())
	input := generalInput()
	input.Duration = 10 * time.Minute

	slots := gen.Generate(input)
	require.NotEmpty(t, slots)

	// Find two slots on the same day and check the grid spacing is the
	// 15-minute clamp, not the raw 10-minute duration.
	byStart := map[time.Time]bool{}
	for _, slot := range slots {
		byStart[slot.StartTime] = true
	}
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	assert.True(t, byStart[base] || byStart[base.Add(15*time.Minute)])
	assert.False(t, byStart[base.Add(10*time.Minute)])
}
