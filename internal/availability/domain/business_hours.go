package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidDayWindow = errors.New("day window end must be after start")

// BusinessCategory selects a default business-hours profile when a tenant
// has not configured one.
type BusinessCategory string

const (
	CategoryGeneral BusinessCategory = "general"
	CategoryMedical BusinessCategory = "medical"
	CategoryDental  BusinessCategory = "dental"
	CategorySalon   BusinessCategory = "salon"
	CategorySpa     BusinessCategory = "spa"
)

// DayWindow is the open window for a single weekday. Start and End are
// minutes from midnight in the tenant's local time.
type DayWindow struct {
	Enabled  bool `json:"enabled"`
	StartMin int  `json:"start_min"`
	EndMin   int  `json:"end_min"`
}

// Window materializes the day window onto a concrete date.
func (w DayWindow) Window(date time.Time) (time.Time, time.Time) {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return midnight.Add(time.Duration(w.StartMin) * time.Minute),
		midnight.Add(time.Duration(w.EndMin) * time.Minute)
}

// BusinessHours is a tenant's weekly opening profile.
type BusinessHours struct {
	days [7]DayWindow // indexed by time.Weekday
}

// NewBusinessHours builds a profile from explicit per-weekday windows.
func NewBusinessHours(days map[time.Weekday]DayWindow) (BusinessHours, error) {
	var bh BusinessHours
	for day, window := range days {
		if window.Enabled && window.EndMin <= window.StartMin {
			return BusinessHours{}, fmt.Errorf("%w: %s", ErrInvalidDayWindow, day)
		}
		bh.days[day] = window
	}
	return bh, nil
}

// Day returns the window for the given weekday.
func (bh BusinessHours) Day(day time.Weekday) DayWindow {
	return bh.days[day]
}

// IsOpen reports whether the profile has any enabled day.
func (bh BusinessHours) IsOpen() bool {
	for _, w := range bh.days {
		if w.Enabled {
			return true
		}
	}
	return false
}

// DefaultBusinessHours returns the default weekly profile for a business
// category. Medical practices get narrower weekday-only hours; salons and
// spas get extended evening and weekend hours.
func DefaultBusinessHours(category BusinessCategory) BusinessHours {
	switch category {
	case CategoryMedical, CategoryDental:
		return weekdays(8*60, 16*60)
	case CategorySalon, CategorySpa:
		bh := BusinessHours{}
		for day := time.Tuesday; day <= time.Saturday; day++ {
			bh.days[day] = DayWindow{Enabled: true, StartMin: 9 * 60, EndMin: 20 * 60}
		}
		bh.days[time.Sunday] = DayWindow{Enabled: true, StartMin: 10 * 60, EndMin: 16 * 60}
		return bh
	default:
		return weekdays(9*60, 17*60)
	}
}

func weekdays(startMin, endMin int) BusinessHours {
	bh := BusinessHours{}
	for day := time.Monday; day <= time.Friday; day++ {
		bh.days[day] = DayWindow{Enabled: true, StartMin: startMin, EndMin: endMin}
	}
	return bh
}
