// Package domain models contact responsiveness: the persisted counters and
// rolling contact-event log on one side, and the derived behavioral pattern
// the workflow consults on the other.
package domain

import (
	"time"
)

// maxPatternEvents bounds the rolling contact-event log per contact.
const MaxPatternEvents = 50

// TrendDirection describes how a contact's answer behavior is moving.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

// RiskLevel grades the chance the contact misses the appointment entirely.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ContactStrategy is the recommended outreach approach.
type ContactStrategy string

const (
	// StrategyStandard is a single contact on the preferred channel.
	StrategyStandard ContactStrategy = "standard"
	// StrategyReminder adds a follow-up reminder after the first attempt.
	StrategyReminder ContactStrategy = "standard_with_reminder"
	// StrategyPersistent moves outreach earlier and schedules retries.
	StrategyPersistent ContactStrategy = "persistent_early_outreach"
	// StrategyMultiChannel fans out across channels with extended lead time.
	StrategyMultiChannel ContactStrategy = "multi_channel_extended_lead"
)

// ContactEvent is one entry in the rolling contact log.
type ContactEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	Success         bool      `json:"success"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
}

// ContactStats are the persisted per-contact counters the scorer reads.
type ContactStats struct {
	CallAttempts         int
	SuccessfulContacts   int
	ConsecutiveNoAnswers int
	NoShowCount          int
	Events               []ContactEvent // newest last, bounded at MaxPatternEvents
}

// AppendEvent pushes an event onto the rolling log, trimming to the bound.
func (s *ContactStats) AppendEvent(event ContactEvent) {
	s.Events = append(s.Events, event)
	if len(s.Events) > MaxPatternEvents {
		s.Events = s.Events[len(s.Events)-MaxPatternEvents:]
	}
}

// Analytics carries externally computed aggregates. Nil fields mean the
// signal is absent and must not bias the score.
type Analytics struct {
	AvgSentiment    *float64 // in [-1, 1]
	EngagementScore *float64 // in [0, 1]
}

// OptimalContactWindow is the best observed day/time band to reach the contact.
type OptimalContactWindow struct {
	DayOfWeek  time.Weekday `json:"day_of_week"`
	StartHour  int          `json:"start_hour"`
	EndHour    int          `json:"end_hour"`
	Confidence float64      `json:"confidence"`
}

// BehaviorPredictions summarizes what the workflow should expect and do.
type BehaviorPredictions struct {
	LikelyToAnswer      bool            `json:"likely_to_answer"`
	AppointmentRisk     RiskLevel       `json:"appointment_risk"`
	RecommendedStrategy ContactStrategy `json:"recommended_strategy"`
}

// Pattern is the derived responsiveness profile, recomputed on demand and
// never stored verbatim.
type Pattern struct {
	OverallScore   float64               `json:"overall_score"`
	TrendDirection TrendDirection        `json:"trend_direction"`
	OptimalWindow  *OptimalContactWindow `json:"optimal_contact_window,omitempty"`
	Predictions    BehaviorPredictions   `json:"behavior_predictions"`
	Insights       []string              `json:"insights"`
}
