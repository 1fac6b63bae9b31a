package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/eduverse/pkg/eventstream"
	"github.com/papercomputeco/eduverse/pkg/study"
)

var _ = Describe("Event", func() {
	now := time.Unix(1735689600, 0).UTC()

	It("marshals a content event with expected top-level keys", func() {
		event := eventstream.NewContentGenerated("u1", "fp", eventstream.ContentGenerated{
			Kind:        study.KindQuiz,
			SourceTitle: "Algorithms",
			SizeBytes:   128,
		}, now)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKeyWithValue("event_type", eventstream.EventTypeContentGenerated))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("content"))
		Expect(got).NotTo(HaveKey("assessment"))
		Expect(event.Key()).To(Equal("u1/fp"))
	})

	It("carries the snapshot of an assessment event", func() {
		score := 75.0
		rec := &study.AssessmentRecord{
			ID:          "r1",
			UserID:      "u1",
			Fingerprint: "fp",
			Kind:        study.AssessmentTargetedQuiz,
			Score:       &score,
			WeakTopics:  []string{},
			IsRetake:    true,
		}
		snapshot := &study.ProgressSnapshot{TotalSessions: 2, AverageScore: 65, RecentTrend: 20}

		event := eventstream.NewAssessmentRecorded(rec, snapshot, now)
		Expect(event.EventType).To(Equal(eventstream.EventTypeAssessmentRecorded))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.Assessment.RecordID).To(Equal("r1"))
		Expect(event.Assessment.TotalSessions).To(Equal(2))
		Expect(event.Assessment.RecentTrend).To(BeNumerically("==", 20))

		without := eventstream.NewAssessmentRecorded(rec, nil, now)
		Expect(without.Assessment.TotalSessions).To(BeZero())
		Expect(without.EventID).NotTo(Equal(event.EventID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeContentGenerated).To(Equal("study.content.generated"))
		Expect(eventstream.EventTypeAssessmentRecorded).To(Equal("study.assessment.recorded"))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
