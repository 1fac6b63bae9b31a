package progress_test

import (
	"context"
	"math"
	"reflect"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/eduverse/pkg/progress"
	"github.com/papercomputeco/eduverse/pkg/storage"
	"github.com/papercomputeco/eduverse/pkg/storage/inmemory"
	"github.com/papercomputeco/eduverse/pkg/study"
	testutils "github.com/papercomputeco/eduverse/pkg/utils/test"
)

var _ = Describe("History", func() {
	var (
		ctx     context.Context
		clock   *testutils.Clock
		driver  *inmemory.Driver
		history *progress.History
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = testutils.NewClock()
		driver = inmemory.NewDriver()
		history = progress.NewHistory(progress.Config{Driver: driver, Now: clock.Now})
	})

	valid := func() *study.AssessmentRecord {
		return &study.AssessmentRecord{
			UserID:      "u1",
			Fingerprint: "fp",
			Kind:        study.AssessmentQuiz,
			Score:       testutils.Score(55),
			WeakTopics:  []string{"recursion"},
		}
	}

	Describe("Append", func() {
		It("assigns an id and the creation time", func() {
			stored, err := history.Append(ctx, valid())
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ID).NotTo(BeEmpty())
			Expect(stored.CreatedAt).To(BeTemporally("==", testutils.Epoch))
			Expect(stored.Questions).NotTo(BeNil())
			Expect(stored.Answers).NotTo(BeNil())
		})

		It("keeps a caller supplied id", func() {
			rec := valid()
			rec.ID = "session-1"

			stored, err := history.Append(ctx, rec)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ID).To(Equal("session-1"))
		})

		It("accepts an ungraded record", func() {
			rec := valid()
			rec.Score = nil

			_, err := history.Append(ctx, rec)
			Expect(err).NotTo(HaveOccurred())
		})

		It("accepts the score bounds", func() {
			for _, score := range []float64{0, 100} {
				rec := valid()
				rec.Score = testutils.Score(score)
				_, err := history.Append(ctx, rec)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		DescribeTable("rejects invalid records without persisting them",
			func(mutate func(*study.AssessmentRecord), field string) {
				rec := valid()
				mutate(rec)

				_, err := history.Append(ctx, rec)
				Expect(err).To(MatchError(progress.ErrValidation))

				var verr *progress.ValidationError
				Expect(err).To(BeAssignableToTypeOf(verr))
				verr = err.(*progress.ValidationError)
				Expect(verr.Fields).To(HaveKey(field))

				recs, err := driver.QueryRecords(ctx, storage.AssessmentQuery{UserID: "u1"})
				Expect(err).NotTo(HaveOccurred())
				Expect(recs).To(BeEmpty())
			},
			Entry("score above 100", func(r *study.AssessmentRecord) { r.Score = testutils.Score(101) }, "score"),
			Entry("negative score", func(r *study.AssessmentRecord) { r.Score = testutils.Score(-1) }, "score"),
			Entry("NaN score", func(r *study.AssessmentRecord) { r.Score = testutils.Score(math.NaN()) }, "score"),
			Entry("missing user", func(r *study.AssessmentRecord) { r.UserID = "" }, "user_id"),
			Entry("blank fingerprint", func(r *study.AssessmentRecord) { r.Fingerprint = "  " }, "fingerprint"),
			Entry("unknown kind", func(r *study.AssessmentRecord) { r.Kind = "essay" }, "kind"),
			Entry("blank weak topic", func(r *study.AssessmentRecord) { r.WeakTopics = []string{"ok", ""} }, "weak_topics[1]"),
			Entry("answer without question", func(r *study.AssessmentRecord) {
				r.Answers = []study.Answer{{Answer: "42"}}
			}, "answers[0].question"),
		)

		It("does not alias the caller's record", func() {
			rec := valid()
			stored, err := history.Append(ctx, rec)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.ID).To(BeEmpty())
			Expect(stored).NotTo(BeIdenticalTo(rec))
		})

		It("surfaces store failures", func() {
			failing := testutils.NewFailingDriver(driver)
			failing.FailWrites.Store(true)
			h := progress.NewHistory(progress.Config{Driver: failing, Now: clock.Now})

			_, err := h.Append(ctx, valid())
			Expect(err).To(MatchError(storage.ErrStoreUnavailable))
		})
	})

	Describe("Query", func() {
		It("returns the newest record first", func() {
			first, err := history.Append(ctx, valid())
			Expect(err).NotTo(HaveOccurred())
			clock.Advance(time.Hour)
			second, err := history.Append(ctx, valid())
			Expect(err).NotTo(HaveOccurred())

			recs, err := history.Query(ctx, "u1", "fp")
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
			Expect(recs[0].ID).To(Equal(second.ID))
			Expect(recs[1].ID).To(Equal(first.ID))
		})

		It("returns the global history for an empty fingerprint", func() {
			_, err := history.Append(ctx, valid())
			Expect(err).NotTo(HaveOccurred())
			other := valid()
			other.Fingerprint = "other"
			_, err = history.Append(ctx, other)
			Expect(err).NotTo(HaveOccurred())

			recs, err := history.Query(ctx, "u1", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
		})
	})

	It("exposes no way to change or remove records", func() {
		t := reflect.TypeOf(history)
		for i := range t.NumMethod() {
			Expect(t.Method(i).Name).To(BeElementOf("Append", "Query"))
		}
	})
})
