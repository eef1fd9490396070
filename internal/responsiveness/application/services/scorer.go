// Package services computes responsiveness patterns from contact history.
package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/caniken03/vioconcierge/internal/responsiveness/domain"
)

// Signal weights. They sum to 1.0 when every signal is present; the score is
// renormalized by the weight actually present so missing signals do not pull
// the result toward the baseline.
const (
	weightAnswerRate  = 0.30
	weightRecentTrend = 0.25
	weightSentiment   = 0.20
	weightEngagement  = 0.15
	weightTiming      = 0.10

	baselineScore = 0.5

	// trend comparison window: last trendWindow attempts vs the prior trendWindow.
	trendWindow = 5

	// optimal-window binning.
	slidingWindowHours   = 4
	minBinSamples        = 2
	confidenceSaturation = 10
)

// Scorer derives a contact's responsiveness pattern.
type Scorer struct{}

// NewScorer creates a scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the full pattern from persisted counters plus optional
// external analytics. The overall score always lands in [0, 1].
func (s *Scorer) Score(stats domain.ContactStats, analytics domain.Analytics) domain.Pattern {
	var weightedSum, weightPresent float64

	if delta, ok := answerRateDelta(stats); ok {
		weightedSum += weightAnswerRate * delta
		weightPresent += weightAnswerRate
	}

	trendDelta, trendPresent := recentTrendDelta(stats.Events)
	if trendPresent {
		weightedSum += weightRecentTrend * trendDelta
		weightPresent += weightRecentTrend
	}

	if analytics.AvgSentiment != nil {
		// Rescale [-1,1] to [0,1], then center on the baseline.
		rescaled := (clamp(*analytics.AvgSentiment, -1, 1) + 1) / 2
		weightedSum += weightSentiment * (rescaled - baselineScore)
		weightPresent += weightSentiment
	}

	if analytics.EngagementScore != nil {
		weightedSum += weightEngagement * (clamp(*analytics.EngagementScore, 0, 1) - baselineScore)
		weightPresent += weightEngagement
	}

	if delta, ok := timingConsistencyDelta(stats.Events); ok {
		weightedSum += weightTiming * delta
		weightPresent += weightTiming
	}

	score := baselineScore
	if weightPresent > 0 {
		score = clamp(baselineScore+weightedSum/weightPresent, 0, 1)
	}

	trend := trendDirection(trendDelta, trendPresent)
	window := s.optimalWindow(stats.Events)
	risk := appointmentRisk(score, stats)

	pattern := domain.Pattern{
		OverallScore:   score,
		TrendDirection: trend,
		OptimalWindow:  window,
		Predictions: domain.BehaviorPredictions{
			LikelyToAnswer:      score >= 0.5,
			AppointmentRisk:     risk,
			RecommendedStrategy: recommendStrategy(score, trend, risk),
		},
	}
	pattern.Insights = buildInsights(pattern, stats)
	return pattern
}

// answerRateDelta maps the lifetime answer rate onto [-0.5, +0.5].
func answerRateDelta(stats domain.ContactStats) (float64, bool) {
	if stats.CallAttempts <= 0 {
		return 0, false
	}
	rate := float64(stats.SuccessfulContacts) / float64(stats.CallAttempts)
	return clamp(rate, 0, 1) - baselineScore, true
}

// recentTrendDelta compares the success rate of the last trendWindow attempts
// against the prior trendWindow. The raw difference spans [-1, 1]; it is
// halved to match the other signals' range.
func recentTrendDelta(events []domain.ContactEvent) (float64, bool) {
	if len(events) < 2*trendWindow {
		return 0, false
	}
	recent := events[len(events)-trendWindow:]
	prior := events[len(events)-2*trendWindow : len(events)-trendWindow]
	return (successRate(recent) - successRate(prior)) / 2, true
}

// timingConsistencyDelta rewards contacts whose successful-call durations are
// uniform: 1 minus the coefficient of variation, centered on the baseline.
func timingConsistencyDelta(events []domain.ContactEvent) (float64, bool) {
	var durations []float64
	for _, ev := range events {
		if ev.Success && ev.DurationSeconds > 0 {
			durations = append(durations, float64(ev.DurationSeconds))
		}
	}
	if len(durations) < 2 {
		return 0, false
	}

	var sum float64
	for _, d := range durations {
		sum += d
	}
	mean := sum / float64(len(durations))

	var variance float64
	for _, d := range durations {
		variance += (d - mean) * (d - mean)
	}
	stddev := math.Sqrt(variance / float64(len(durations)))

	consistency := clamp(1-stddev/mean, 0, 1)
	return consistency - baselineScore, true
}

func trendDirection(delta float64, present bool) domain.TrendDirection {
	if !present {
		return domain.TrendStable
	}
	switch {
	case delta > 0.1:
		return domain.TrendImproving
	case delta < -0.1:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

type windowBin struct {
	day       time.Weekday
	startHour int
	attempts  int
	successes int
}

// optimalWindow bins attempts by day-of-week and a sliding 4-hour window over
// hour-of-day, then picks the bin with the best success rate among bins with
// at least minBinSamples attempts. Ties resolve to the earliest day/hour so
// the result is deterministic.
func (s *Scorer) optimalWindow(events []domain.ContactEvent) *domain.OptimalContactWindow {
	bins := make(map[[2]int]*windowBin)
	for _, ev := range events {
		day := int(ev.Timestamp.Weekday())
		hour := ev.Timestamp.Hour()
		for start := hour - slidingWindowHours + 1; start <= hour; start++ {
			if start < 0 || start+slidingWindowHours > 24 {
				continue
			}
			key := [2]int{day, start}
			bin, ok := bins[key]
			if !ok {
				bin = &windowBin{day: time.Weekday(day), startHour: start}
				bins[key] = bin
			}
			bin.attempts++
			if ev.Success {
				bin.successes++
			}
		}
	}

	keys := make([][2]int, 0, len(bins))
	for key := range bins {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a][0] != keys[b][0] {
			return keys[a][0] < keys[b][0]
		}
		return keys[a][1] < keys[b][1]
	})

	var best *windowBin
	var bestRate float64
	for _, key := range keys {
		bin := bins[key]
		if bin.attempts < minBinSamples {
			continue
		}
		rate := float64(bin.successes) / float64(bin.attempts)
		if best == nil || rate > bestRate {
			best = bin
			bestRate = rate
		}
	}
	if best == nil {
		return nil
	}

	volume := math.Min(float64(best.attempts), confidenceSaturation) / confidenceSaturation
	return &domain.OptimalContactWindow{
		DayOfWeek:  best.day,
		StartHour:  best.startHour,
		EndHour:    best.startHour + slidingWindowHours,
		Confidence: clamp(volume*0.5+bestRate*0.5, 0, 1),
	}
}

// appointmentRisk combines the inverted score with no-show and
// consecutive-no-answer penalties, thresholded into three grades.
func appointmentRisk(score float64, stats domain.ContactStats) domain.RiskLevel {
	risk := (1 - score) + 0.1*float64(stats.NoShowCount) + 0.05*float64(stats.ConsecutiveNoAnswers)
	switch {
	case risk < 0.4:
		return domain.RiskLow
	case risk < 0.7:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

func recommendStrategy(score float64, trend domain.TrendDirection, risk domain.RiskLevel) domain.ContactStrategy {
	switch {
	case risk == domain.RiskHigh || score < 0.3:
		return domain.StrategyMultiChannel
	case trend == domain.TrendDeclining && risk == domain.RiskMedium:
		return domain.StrategyPersistent
	case score >= 0.7 && risk == domain.RiskLow:
		return domain.StrategyStandard
	default:
		return domain.StrategyReminder
	}
}

func buildInsights(pattern domain.Pattern, stats domain.ContactStats) []string {
	insights := make([]string, 0, 4)

	if stats.CallAttempts > 0 {
		rate := float64(stats.SuccessfulContacts) / float64(stats.CallAttempts)
		insights = append(insights, fmt.Sprintf("answers %.0f%% of contact attempts", rate*100))
	}
	switch pattern.TrendDirection {
	case domain.TrendImproving:
		insights = append(insights, "responsiveness improving over recent contacts")
	case domain.TrendDeclining:
		insights = append(insights, "responsiveness declining over recent contacts")
	}
	if pattern.OptimalWindow != nil {
		insights = append(insights, fmt.Sprintf("best reached %s between %02d:00 and %02d:00",
			pattern.OptimalWindow.DayOfWeek, pattern.OptimalWindow.StartHour, pattern.OptimalWindow.EndHour))
	}
	if stats.ConsecutiveNoAnswers >= 3 {
		insights = append(insights, fmt.Sprintf("%d consecutive unanswered attempts", stats.ConsecutiveNoAnswers))
	}
	if stats.NoShowCount > 0 {
		insights = append(insights, fmt.Sprintf("%d recorded no-shows", stats.NoShowCount))
	}
	return insights
}

func successRate(events []domain.ContactEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var successes int
	for _, ev := range events {
		if ev.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(events))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
