package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/eduverse/pkg/study"
)

// Statistics is the dashboard view of an assessment history.
type Statistics struct {
	TotalTests       int        `json:"total_tests"`
	AverageScore     float64    `json:"average_score"`
	BestScore        float64    `json:"best_score"`
	ImprovementRate  float64    `json:"improvement_rate"`
	WeakTopics       []string   `json:"weak_topics"`
	ImprovementAreas []string   `json:"improvement_areas"`
	LastTestAt       *time.Time `json:"last_test_at,omitempty"`
	RecentTrend      float64    `json:"recent_trend"`
}

// ComputeStatistics summarizes history, which must be ordered newest first.
// Unlike Aggregate it accepts records of several sources. ImprovementRate is
// the trend over every graded score.
func ComputeStatistics(history []*study.AssessmentRecord) Statistics {
	stats := Statistics{
		WeakTopics:       []string{},
		ImprovementAreas: []string{},
	}
	if len(history) == 0 {
		return stats
	}

	scores := Scores(history)
	stats.TotalTests = len(history)
	stats.AverageScore, stats.BestScore = scoreStats(scores)
	stats.ImprovementRate = Trend(scores)
	stats.RecentTrend = Trend(lastN(scores, TrendWindow))
	stats.WeakTopics = WeakTopics(history)
	stats.ImprovementAreas = ImprovementAreas(history)

	last := history[0].CreatedAt
	stats.LastTestAt = &last

	return stats
}

const (
	trendThreshold        = 5
	strugglingSessions    = 3
	strugglingBestScore   = 70
	excellingSessions     = 5
	excellingAverageScore = 80
)

// Recommendations turns a snapshot into study advice. A nil snapshot means no
// assessment has been taken yet.
func Recommendations(s *study.ProgressSnapshot) []string {
	if s == nil {
		return []string{"Take your first assessment to get personalized recommendations."}
	}

	var recs []string

	if len(s.OverallWeakTopics) > 0 {
		recs = append(recs, fmt.Sprintf("Focus on these persistent weak areas: %s",
			strings.Join(s.OverallWeakTopics[:min(3, len(s.OverallWeakTopics))], ", ")))
	}

	if len(s.ImprovementAreas) > 0 {
		recs = append(recs, fmt.Sprintf("Great improvement in: %s. Keep it up!",
			strings.Join(s.ImprovementAreas[:min(2, len(s.ImprovementAreas))], ", ")))
	}

	switch {
	case s.RecentTrend > trendThreshold:
		recs = append(recs, "Your performance is trending upward! Continue practicing regularly.")
	case s.RecentTrend < -trendThreshold:
		recs = append(recs, "Consider reviewing the material before your next assessment.")
	}

	if s.TotalSessions >= strugglingSessions && s.BestScore < strugglingBestScore {
		recs = append(recs, "Try using the Deep Dive content to strengthen your understanding.")
	}

	if s.TotalSessions >= excellingSessions && s.AverageScore > excellingAverageScore {
		recs = append(recs, "You're doing great! Try the harder difficulty setting for more challenge.")
	}

	if len(recs) == 0 {
		return []string{"Keep practicing to track your progress!"}
	}
	return recs
}
