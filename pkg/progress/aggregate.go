// Package progress keeps the assessment history and derives per-source
// progress from it: persistent weak topics, improvements, score statistics
// and the recent score trend.
package progress

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/papercomputeco/eduverse/pkg/study"
)

const (
	// WeakTopicWindow is how many of the newest records weak topics are mined from.
	WeakTopicWindow = 5

	// WeakTopicMinSessions is how many records in the window must flag a topic.
	WeakTopicMinSessions = 2

	// WeakTopicLimit caps the number of persistent weak topics.
	WeakTopicLimit = 10

	// TrendWindow is how many of the newest scores the recent trend spans.
	TrendWindow = 3
)

// ErrEmptyHistory is returned when there is nothing to aggregate.
var ErrEmptyHistory = errors.New("no assessment records to aggregate")

// Aggregate derives the progress snapshot for a single (user, fingerprint)
// from its history, which must be ordered newest first.
func Aggregate(history []*study.AssessmentRecord, now time.Time) (*study.ProgressSnapshot, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	latest := history[0]
	for _, rec := range history[1:] {
		if rec.UserID != latest.UserID || rec.Fingerprint != latest.Fingerprint {
			return nil, fmt.Errorf("history mixes %s/%s with %s/%s",
				latest.UserID, latest.Fingerprint, rec.UserID, rec.Fingerprint)
		}
	}

	scores := Scores(history)
	average, best := scoreStats(scores)

	return &study.ProgressSnapshot{
		UserID:            latest.UserID,
		Fingerprint:       latest.Fingerprint,
		OverallWeakTopics: WeakTopics(history),
		ImprovementAreas:  ImprovementAreas(history),
		TotalSessions:     len(history),
		AverageScore:      average,
		BestScore:         best,
		RecentTrend:       Trend(lastN(scores, TrendWindow)),
		LastSessionAt:     latest.CreatedAt,
		UpdatedAt:         now,
	}, nil
}

// WeakTopics returns the topics flagged in at least WeakTopicMinSessions of
// the newest WeakTopicWindow records, most frequent first. Ties keep the
// order in which topics were first seen, newest record first. Topics are
// compared literally.
func WeakTopics(history []*study.AssessmentRecord) []string {
	window := history[:min(len(history), WeakTopicWindow)]

	counts := make(map[string]int)
	var order []string
	for _, rec := range window {
		seen := make(map[string]bool, len(rec.WeakTopics))
		for _, topic := range rec.WeakTopics {
			if seen[topic] {
				continue
			}
			seen[topic] = true

			if counts[topic] == 0 {
				order = append(order, topic)
			}
			counts[topic]++
		}
	}

	topics := make([]string, 0, len(order))
	for _, topic := range order {
		if counts[topic] >= WeakTopicMinSessions {
			topics = append(topics, topic)
		}
	}

	slices.SortStableFunc(topics, func(a, b string) int {
		return counts[b] - counts[a]
	})

	if len(topics) > WeakTopicLimit {
		topics = topics[:WeakTopicLimit]
	}
	return topics
}

// ImprovementAreas returns the topics weak in the second newest record that
// are no longer weak in the newest.
func ImprovementAreas(history []*study.AssessmentRecord) []string {
	areas := []string{}
	if len(history) < 2 {
		return areas
	}

	current := history[0].WeakTopics
	for _, topic := range history[1].WeakTopics {
		if !slices.Contains(current, topic) && !slices.Contains(areas, topic) {
			areas = append(areas, topic)
		}
	}
	return areas
}

// Scores returns the graded scores of history in chronological order.
// history must be ordered newest first.
func Scores(history []*study.AssessmentRecord) []float64 {
	scores := make([]float64, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if s := history[i].Score; s != nil {
			scores = append(scores, *s)
		}
	}
	return scores
}

// Trend is the mean difference between consecutive scores, which must be in
// chronological order. Fewer than two scores have no trend.
func Trend(scores []float64) float64 {
	if len(scores) < 2 {
		return 0
	}

	var sum float64
	for i := 1; i < len(scores); i++ {
		sum += scores[i] - scores[i-1]
	}
	return sum / float64(len(scores)-1)
}

func scoreStats(scores []float64) (average, best float64) {
	if len(scores) == 0 {
		return 0, 0
	}

	var sum float64
	best = scores[0]
	for _, s := range scores {
		sum += s
		best = max(best, s)
	}
	return sum / float64(len(scores)), best
}

func lastN(scores []float64, n int) []float64 {
	if len(scores) <= n {
		return scores
	}
	return scores[len(scores)-n:]
}
