// Package services contains the slot generation engine.
package services

import (
	"sort"
	"time"

	"github.com/caniken03/vioconcierge/internal/availability/domain"
)

// GeneratorConfig contains tuning knobs for slot generation.
type GeneratorConfig struct {
	SearchDays    int           // default candidate horizon when no dates given
	MinStep       time.Duration // lower clamp for the start-time step
	MaxStep       time.Duration // upper clamp for the start-time step
	MaxBuffer     time.Duration // cap on the anti-back-to-back buffer
	CoreStartHour int           // start of the preferred mid-day band
	CoreEndHour   int           // end of the preferred mid-day band
	EarlyHour     int           // slots before this hour are penalized
	LateHour      int           // slots at/after this hour are penalized
	MaxSlots      int           // cap on returned slots, 0 = unlimited
}

// DefaultGeneratorConfig returns the production defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		SearchDays:    14,
		MinStep:       15 * time.Minute,
		MaxStep:       60 * time.Minute,
		MaxBuffer:     15 * time.Minute,
		CoreStartHour: 10,
		CoreEndHour:   16,
		EarlyHour:     8,
		LateHour:      18,
		MaxSlots:      20,
	}
}

// GenerateInput describes one availability check.
type GenerateInput struct {
	Hours           domain.BusinessHours
	Duration        time.Duration
	Busy            []domain.Busy // existing bookings/events, any order
	PreferredDates  []time.Time   // candidate dates; defaults to the next SearchDays days
	OriginalTime    time.Time     // original appointment, drives hour-proximity ranking
	AppointmentType string
	Provider        string // slot source; empty means business-hours fallback
	Location        string
	Timezone        *time.Location
	Now             time.Time // injection point for deterministic tests
}

// SlotGenerator produces ranked, conflict-free candidate appointment slots.
type SlotGenerator struct {
	config GeneratorConfig
}

// NewSlotGenerator creates a slot generator.
func NewSlotGenerator(config GeneratorConfig) *SlotGenerator {
	return &SlotGenerator{config: config}
}

// Generate computes conflict-free candidate slots and returns them ordered
// by descending composite score, ties broken by earliest start. The output
// is deterministic given identical inputs.
func (g *SlotGenerator) Generate(input GenerateInput) []domain.Slot {
	if input.Duration <= 0 {
		return nil
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := input.Timezone
	if loc == nil {
		loc = now.Location()
	}
	now = now.In(loc)

	provider := input.Provider
	if provider == "" {
		provider = domain.ProviderBusinessHours
	}

	dates := input.PreferredDates
	if len(dates) == 0 {
		dates = g.defaultDates(now)
	}

	step := clampDuration(input.Duration, g.config.MinStep, g.config.MaxStep)
	buffer := g.buffer(input.Duration)

	slots := make([]domain.Slot, 0)
	for _, date := range dates {
		date = date.In(loc)
		window := input.Hours.Day(date.Weekday())
		if !window.Enabled {
			continue
		}

		dayStart, dayEnd := window.Window(date)
		t := dayStart
		if sameDay(date, now) && now.After(t) {
			t = now.Truncate(step).Add(step)
		}

		for !t.Add(input.Duration + buffer).After(dayEnd) {
			slotEnd := t.Add(input.Duration)
			bufferedEnd := slotEnd.Add(buffer)

			if conflict, blockedUntil := firstConflict(input.Busy, t, bufferedEnd); conflict {
				// Resume just past the colliding booking plus buffer rather
				// than on the next grid step.
				next := blockedUntil.Add(buffer)
				if !next.After(t) {
					next = t.Add(step)
				}
				t = next
				continue
			}

			slot := domain.NewSlot(t, slotEnd, provider)
			slot.AppointmentType = input.AppointmentType
			slot.Location = input.Location
			slot.Timezone = loc.String()
			slots = append(slots, slot)
			t = t.Add(step)
		}
	}

	g.rank(slots, now, input.OriginalTime)

	if g.config.MaxSlots > 0 && len(slots) > g.config.MaxSlots {
		slots = slots[:g.config.MaxSlots]
	}
	return slots
}

// buffer returns the anti-back-to-back extension: a quarter of the
// duration, capped at MaxBuffer. A standard 60-minute appointment gets
// the full 15-minute buffer.
func (g *SlotGenerator) buffer(duration time.Duration) time.Duration {
	b := duration / 4
	if b > g.config.MaxBuffer {
		b = g.config.MaxBuffer
	}
	return b
}

func (g *SlotGenerator) defaultDates(now time.Time) []time.Time {
	days := g.config.SearchDays
	if days <= 0 {
		days = 14
	}
	dates := make([]time.Time, 0, days)
	for i := 1; i <= days; i++ {
		dates = append(dates, now.AddDate(0, 0, i))
	}
	return dates
}

// rank orders slots by descending composite score built from independent
// boosts: provider-sourced beats fallback, nearer days beat farther ones,
// hour proximity to the original appointment, a core-hours bonus, and an
// off-hours penalty. Ties break on earliest start.
func (g *SlotGenerator) rank(slots []domain.Slot, now, originalTime time.Time) {
	scores := make(map[int]float64, len(slots))
	for i, slot := range slots {
		scores[i] = g.score(slot, now, originalTime)
	}

	idx := make([]int, len(slots))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if scores[idx[a]] != scores[idx[b]] {
			return scores[idx[a]] > scores[idx[b]]
		}
		return slots[idx[a]].StartTime.Before(slots[idx[b]].StartTime)
	})

	ordered := make([]domain.Slot, len(slots))
	for i, j := range idx {
		ordered[i] = slots[j]
	}
	copy(slots, ordered)
}

func (g *SlotGenerator) score(slot domain.Slot, now, originalTime time.Time) float64 {
	score := 0.0

	if slot.FromProvider() {
		score += 25
	}

	daysAway := calendarDaysBetween(now, slot.StartTime)
	if proximity := float64(g.config.SearchDays - daysAway); proximity > 0 {
		score += proximity
	}

	hour := slot.StartTime.Hour()
	if !originalTime.IsZero() {
		diff := hour - originalTime.Hour()
		if diff < 0 {
			diff = -diff
		}
		if proximity := float64(12 - diff); proximity > 0 {
			score += proximity / 2
		}
	}

	if hour >= g.config.CoreStartHour && hour < g.config.CoreEndHour {
		score += 3
	}
	if hour < g.config.EarlyHour || hour >= g.config.LateHour {
		score -= 5
	}

	return score
}

func firstConflict(busy []domain.Busy, start, bufferedEnd time.Time) (bool, time.Time) {
	conflict := false
	var blockedUntil time.Time
	for _, b := range busy {
		if b.Overlaps(start, bufferedEnd) {
			conflict = true
			if b.End.After(blockedUntil) {
				blockedUntil = b.End
			}
		}
	}
	return conflict, blockedUntil
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func calendarDaysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	return int(toDay.Sub(fromDay).Hours() / 24)
}
