package study_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/eduverse/pkg/fingerprint"
	"github.com/papercomputeco/eduverse/pkg/study"
)

var _ = Describe("Kind", func() {
	It("parses canonical names", func() {
		k, err := study.ParseKind("deep_dive")
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(study.KindDeepDive))
	})

	It("parses UI display names", func() {
		k, err := study.ParseKind("PPT Mode")
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(study.KindSlides))

		k, err = study.ParseKind("Deep Dive")
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(study.KindDeepDive))
	})

	It("rejects unknown kinds", func() {
		_, err := study.ParseKind("podcast")
		Expect(err).To(HaveOccurred())
	})

	It("maps assessments to their targeted variant", func() {
		Expect(study.AssessmentQuiz.Targeted()).To(Equal(study.AssessmentTargetedQuiz))
		Expect(study.AssessmentVerbalTest.Targeted()).To(Equal(study.AssessmentTargetedVerbalTest))
		Expect(study.AssessmentTargetedQuiz.Targeted()).To(Equal(study.AssessmentTargetedQuiz))
	})

	It("marks quizzes and verbal tests as assessment material", func() {
		Expect(study.KindQuiz.IsAssessment()).To(BeTrue())
		Expect(study.KindVerbalTestQuestions.IsAssessment()).To(BeTrue())
		Expect(study.KindSummary.IsAssessment()).To(BeFalse())
	})
})

var _ = Describe("Payload", func() {
	DescribeTable("decodes each variant under its own kind",
		func(p study.Payload) {
			data, err := study.EncodePayload(p)
			Expect(err).NotTo(HaveOccurred())

			decoded, err := study.DecodePayload(p.Kind(), data)
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(p))
		},
		Entry("summary", study.Summary{Text: "short"}),
		Entry("deep dive", study.DeepDive{Text: "long"}),
		Entry("flashcards", study.Flashcards{Cards: []study.Flashcard{{ID: 1, Question: "q", Answer: "a", Tag: "t"}}}),
		Entry("quiz", study.Quiz{Questions: []study.QuizQuestion{{ID: 1, Question: "q", Options: []string{"a", "b"}, CorrectAnswer: "a"}}}),
		Entry("slides", study.Slides{Slides: []study.Slide{{Title: "Intro", Content: []string{"one"}}}}),
		Entry("verbal test questions", study.VerbalTestQuestions{Questions: []string{"why?"}}),
	)

	It("rejects an unknown kind", func() {
		_, err := study.DecodePayload(study.Kind("podcast"), []byte(`{}`))
		Expect(err).To(MatchError(study.ErrKindMismatch))
	})

	It("rejects malformed data", func() {
		_, err := study.DecodePayload(study.KindQuiz, []byte(`{"questions": "nope"}`))
		Expect(err).To(HaveOccurred())
	})

	It("checks payload kinds", func() {
		Expect(study.CheckKind(study.KindSummary, study.Summary{})).To(Succeed())
		Expect(study.CheckKind(study.KindQuiz, study.Summary{})).To(MatchError(study.ErrKindMismatch))
		Expect(study.CheckKind(study.KindQuiz, nil)).To(MatchError(study.ErrKindMismatch))
	})
})

var _ = Describe("CacheMetadata", func() {
	It("keeps registered kinds sorted and unique", func() {
		m := &study.CacheMetadata{}
		m.AddKind(study.KindQuiz)
		m.AddKind(study.KindFlashcards)
		m.AddKind(study.KindQuiz)
		Expect(m.RegisteredKinds).To(Equal([]study.Kind{study.KindFlashcards, study.KindQuiz}))

		m.RemoveKind(study.KindQuiz)
		Expect(m.RegisteredKinds).To(Equal([]study.Kind{study.KindFlashcards}))
		Expect(m.HasKind(study.KindQuiz)).To(BeFalse())
	})
})

var _ = Describe("CacheEntry", func() {
	It("is expired at and after its expiry", func() {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		e := &study.CacheEntry{ExpiresAt: now}
		Expect(e.Expired(now.Add(-time.Second))).To(BeFalse())
		Expect(e.Expired(now)).To(BeTrue())
	})
})

var _ = Describe("Source", func() {
	It("fingerprints by title and content", func() {
		s := study.Source{Title: "T", Content: "C"}
		Expect(s.Fingerprint()).To(Equal(fingerprint.Fingerprint("T", "C")))
	})
})
