package progress_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/eduverse/pkg/progress"
	"github.com/papercomputeco/eduverse/pkg/study"
	testutils "github.com/papercomputeco/eduverse/pkg/utils/test"
)

// newestFirst builds a history from records given oldest first.
func newestFirst(recs ...*study.AssessmentRecord) []*study.AssessmentRecord {
	out := make([]*study.AssessmentRecord, len(recs))
	for i, r := range recs {
		out[len(recs)-1-i] = r
	}
	return out
}

func record(i int, score *float64, topics ...string) *study.AssessmentRecord {
	return testutils.NewTestRecord(string(rune('a'+i)), "u1", "fp", score, time.Duration(i)*time.Hour, topics...)
}

var _ = Describe("Aggregate", func() {
	now := testutils.Epoch.Add(24 * time.Hour)

	It("fails on an empty history", func() {
		_, err := progress.Aggregate(nil, now)
		Expect(err).To(MatchError(progress.ErrEmptyHistory))
	})

	It("fails on a history mixing sources", func() {
		history := []*study.AssessmentRecord{
			testutils.NewTestRecord("a", "u1", "fp", nil, 0),
			testutils.NewTestRecord("b", "u1", "other", nil, 0),
		}
		_, err := progress.Aggregate(history, now)
		Expect(err).To(HaveOccurred())
	})

	It("summarizes a single session", func() {
		history := newestFirst(record(0, testutils.Score(55), "recursion"))

		s, err := progress.Aggregate(history, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.UserID).To(Equal("u1"))
		Expect(s.Fingerprint).To(Equal("fp"))
		Expect(s.TotalSessions).To(Equal(1))
		Expect(s.AverageScore).To(BeNumerically("==", 55))
		Expect(s.BestScore).To(BeNumerically("==", 55))
		Expect(s.RecentTrend).To(BeZero())
		Expect(s.OverallWeakTopics).To(BeEmpty())
		Expect(s.ImprovementAreas).To(BeEmpty())
		Expect(s.LastSessionAt).To(BeTemporally("==", testutils.Epoch))
		Expect(s.UpdatedAt).To(BeTemporally("==", now))
	})

	It("counts every record but only graded scores", func() {
		history := newestFirst(
			record(0, testutils.Score(40)),
			record(1, nil),
			record(2, testutils.Score(80)),
		)

		s, err := progress.Aggregate(history, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.TotalSessions).To(Equal(3))
		Expect(s.AverageScore).To(BeNumerically("==", 60))
		Expect(s.BestScore).To(BeNumerically("==", 80))
		Expect(s.RecentTrend).To(BeNumerically("==", 40))
	})

	It("reports zero scores when nothing was graded", func() {
		s, err := progress.Aggregate(newestFirst(record(0, nil), record(1, nil)), now)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.AverageScore).To(BeZero())
		Expect(s.BestScore).To(BeZero())
		Expect(s.RecentTrend).To(BeZero())
	})
})

var _ = Describe("Trend", func() {
	DescribeTable("sign of the trend",
		func(scores []float64, expected float64) {
			Expect(progress.Trend(scores)).To(BeNumerically("~", expected, 1e-9))
		},
		Entry("improving", []float64{60, 70, 80}, 10.0),
		Entry("declining", []float64{80, 70, 60}, -10.0),
		Entry("single score", []float64{75}, 0.0),
		Entry("no scores", []float64{}, 0.0),
		Entry("two scores", []float64{55, 75}, 20.0),
		Entry("uneven steps", []float64{50, 80, 70}, 10.0),
	)

	It("uses the newest three scores in chronological order", func() {
		history := newestFirst(
			record(0, testutils.Score(100)),
			record(1, testutils.Score(60)),
			record(2, testutils.Score(70)),
			record(3, testutils.Score(80)),
		)

		s, err := progress.Aggregate(history, testutils.Epoch)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.RecentTrend).To(BeNumerically("==", 10))
	})
})

var _ = Describe("WeakTopics", func() {
	It("keeps topics flagged in two of the last five records", func() {
		history := newestFirst(
			record(0, nil, "X"),
			record(1, nil, "Y"),
			record(2, nil, "X"),
			record(3, nil),
			record(4, nil),
		)

		Expect(progress.WeakTopics(history)).To(Equal([]string{"X"}))
	})

	It("drops topics flagged only once", func() {
		history := newestFirst(record(0, nil, "X"), record(1, nil, "Y"))
		Expect(progress.WeakTopics(history)).To(BeEmpty())
	})

	It("ignores records older than the window", func() {
		history := newestFirst(
			record(0, nil, "old"),
			record(1, nil, "old"),
			record(2, nil),
			record(3, nil),
			record(4, nil),
			record(5, nil),
			record(6, nil, "old"),
		)

		Expect(progress.WeakTopics(history)).To(BeEmpty())
	})

	It("counts a topic once per record", func() {
		history := newestFirst(record(0, nil, "X", "X"), record(1, nil))
		Expect(progress.WeakTopics(history)).To(BeEmpty())
	})

	It("orders by frequency and breaks ties by first appearance", func() {
		history := newestFirst(
			record(0, nil, "b", "a"),
			record(1, nil, "a", "c"),
			record(2, nil, "c", "b"),
			record(3, nil, "a"),
		)

		// newest first: a(3), then c and b seen in record 2 with count 2 each
		Expect(progress.WeakTopics(history)).To(Equal([]string{"a", "c", "b"}))
	})

	It("treats differently cased topics as distinct", func() {
		history := newestFirst(record(0, nil, "Recursion"), record(1, nil, "recursion"))
		Expect(progress.WeakTopics(history)).To(BeEmpty())
	})

	It("caps the result", func() {
		var topics []string
		for i := range 12 {
			topics = append(topics, string(rune('a'+i)))
		}
		history := newestFirst(record(0, nil, topics...), record(1, nil, topics...))

		Expect(progress.WeakTopics(history)).To(HaveLen(progress.WeakTopicLimit))
	})
})

var _ = Describe("ImprovementAreas", func() {
	It("lists topics no longer weak in the newest record", func() {
		history := newestFirst(
			record(0, nil, "recursion", "graphs"),
			record(1, nil, "graphs"),
		)

		Expect(progress.ImprovementAreas(history)).To(Equal([]string{"recursion"}))
	})

	It("is empty with fewer than two records", func() {
		Expect(progress.ImprovementAreas(newestFirst(record(0, nil, "x")))).To(BeEmpty())
	})
})
