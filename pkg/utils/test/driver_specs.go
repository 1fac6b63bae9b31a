package testutils

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/eduverse/pkg/storage"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// Epoch is the fixed reference time used by driver and service specs.
var Epoch = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// NewTestEntry builds a cache entry created at Epoch that expires after ttl.
func NewTestEntry(fp string, kind study.Kind, payload string, ttl time.Duration) *study.CacheEntry {
	return &study.CacheEntry{
		Fingerprint: fp,
		Kind:        kind,
		Payload:     []byte(payload),
		CreatedAt:   Epoch,
		ExpiresAt:   Epoch.Add(ttl),
	}
}

// NewTestRecord builds an assessment record for (userID, fp) created offset
// after Epoch.
func NewTestRecord(id, userID, fp string, score *float64, offset time.Duration, weakTopics ...string) *study.AssessmentRecord {
	if weakTopics == nil {
		weakTopics = []string{}
	}
	return &study.AssessmentRecord{
		ID:          id,
		UserID:      userID,
		Fingerprint: fp,
		Kind:        study.AssessmentQuiz,
		SourceTitle: "Algorithms",
		Questions:   []string{"What is recursion?"},
		Answers:     []study.Answer{{Question: "What is recursion?", Answer: "A function calling itself"}},
		Score:       score,
		WeakTopics:  weakTopics,
		CreatedAt:   Epoch.Add(offset),
	}
}

// Score returns a pointer to v.
func Score(v float64) *float64 {
	return &v
}

// DescribeDriverContract registers the behavior every storage.Driver must
// share. newDriver is called before each spec and must return an empty store.
func DescribeDriverContract(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("cache entries", func() {
		It("stores and retrieves an entry", func() {
			entry := NewTestEntry("abc123", study.KindSummary, `{"text":"hi"}`, time.Hour)
			Expect(driver.PutEntry(ctx, entry)).To(Succeed())

			got, err := driver.GetEntry(ctx, "abc123", study.KindSummary)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Fingerprint).To(Equal("abc123"))
			Expect(got.Kind).To(Equal(study.KindSummary))
			Expect(string(got.Payload)).To(Equal(`{"text":"hi"}`))
			Expect(got.CreatedAt).To(BeTemporally("==", entry.CreatedAt))
			Expect(got.ExpiresAt).To(BeTemporally("==", entry.ExpiresAt))
		})

		It("returns NotFoundError for a missing entry", func() {
			_, err := driver.GetEntry(ctx, "missing", study.KindQuiz)
			Expect(err).To(HaveOccurred())
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("overwrites an entry with the same fingerprint and kind", func() {
			Expect(driver.PutEntry(ctx, NewTestEntry("abc123", study.KindSummary, `{"text":"one"}`, time.Hour))).To(Succeed())
			Expect(driver.PutEntry(ctx, NewTestEntry("abc123", study.KindSummary, `{"text":"two"}`, 2*time.Hour))).To(Succeed())

			got, err := driver.GetEntry(ctx, "abc123", study.KindSummary)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(got.Payload)).To(Equal(`{"text":"two"}`))
			Expect(got.ExpiresAt).To(BeTemporally("==", Epoch.Add(2*time.Hour)))
		})

		It("keeps kinds of the same fingerprint independent", func() {
			Expect(driver.PutEntry(ctx, NewTestEntry("abc123", study.KindSummary, `{"text":"s"}`, time.Hour))).To(Succeed())
			Expect(driver.PutEntry(ctx, NewTestEntry("abc123", study.KindQuiz, `{"questions":[]}`, time.Hour))).To(Succeed())
			Expect(driver.PutEntry(ctx, NewTestEntry("other", study.KindQuiz, `{"questions":[]}`, time.Hour))).To(Succeed())

			entries, err := driver.ListEntries(ctx, "abc123")
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Kind).To(Equal(study.KindQuiz))
			Expect(entries[1].Kind).To(Equal(study.KindSummary))
		})

		It("deletes an entry and reports whether it existed", func() {
			Expect(driver.PutEntry(ctx, NewTestEntry("abc123", study.KindSlides, `{"slides":[]}`, time.Hour))).To(Succeed())

			removed, err := driver.DeleteEntry(ctx, "abc123", study.KindSlides)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())

			removed, err = driver.DeleteEntry(ctx, "abc123", study.KindSlides)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())

			_, err = driver.GetEntry(ctx, "abc123", study.KindSlides)
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("deletes only entries expired at or before now", func() {
			Expect(driver.PutEntry(ctx, NewTestEntry("a", study.KindSummary, `{}`, time.Hour))).To(Succeed())
			Expect(driver.PutEntry(ctx, NewTestEntry("b", study.KindSummary, `{}`, 2*time.Hour))).To(Succeed())
			Expect(driver.PutEntry(ctx, NewTestEntry("c", study.KindSummary, `{}`, 3*time.Hour))).To(Succeed())

			removed, err := driver.DeleteExpiredEntries(ctx, Epoch.Add(2*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(2))

			_, err = driver.GetEntry(ctx, "c", study.KindSummary)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("cache metadata", func() {
		newMetadata := func(userID, fp string, accessed time.Duration) *study.CacheMetadata {
			return &study.CacheMetadata{
				UserID:          userID,
				Fingerprint:     fp,
				SourceTitle:     "Algorithms",
				RegisteredKinds: []study.Kind{study.KindQuiz, study.KindSummary},
				AccessCount:     1,
				SizeBytes:       42,
				LastAccessedAt:  Epoch.Add(accessed),
				CreatedAt:       Epoch,
				ExpiresAt:       Epoch.Add(7 * 24 * time.Hour),
			}
		}

		It("stores and retrieves a ledger row", func() {
			Expect(driver.PutMetadata(ctx, newMetadata("u1", "abc123", 0))).To(Succeed())

			got, err := driver.GetMetadata(ctx, "u1", "abc123")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.SourceTitle).To(Equal("Algorithms"))
			Expect(got.RegisteredKinds).To(Equal([]study.Kind{study.KindQuiz, study.KindSummary}))
			Expect(got.AccessCount).To(Equal(1))
			Expect(got.SizeBytes).To(Equal(int64(42)))
			Expect(got.ExpiresAt).To(BeTemporally("==", Epoch.Add(7*24*time.Hour)))
		})

		It("returns NotFoundError for a missing ledger row", func() {
			_, err := driver.GetMetadata(ctx, "u1", "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("upserts a ledger row", func() {
			m := newMetadata("u1", "abc123", 0)
			Expect(driver.PutMetadata(ctx, m)).To(Succeed())

			m.AccessCount = 5
			m.AddKind(study.KindFlashcards)
			Expect(driver.PutMetadata(ctx, m)).To(Succeed())

			got, err := driver.GetMetadata(ctx, "u1", "abc123")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.AccessCount).To(Equal(5))
			Expect(got.RegisteredKinds).To(ContainElement(study.KindFlashcards))

			all, err := driver.ListMetadata(ctx, storage.MetadataQuery{UserID: "u1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("lists rows filtered by user and fingerprint, most recently accessed first", func() {
			Expect(driver.PutMetadata(ctx, newMetadata("u1", "a", time.Minute))).To(Succeed())
			Expect(driver.PutMetadata(ctx, newMetadata("u1", "b", time.Hour))).To(Succeed())
			Expect(driver.PutMetadata(ctx, newMetadata("u2", "a", 0))).To(Succeed())

			rows, err := driver.ListMetadata(ctx, storage.MetadataQuery{UserID: "u1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].Fingerprint).To(Equal("b"))
			Expect(rows[1].Fingerprint).To(Equal("a"))

			rows, err = driver.ListMetadata(ctx, storage.MetadataQuery{Fingerprint: "a"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))

			rows, err = driver.ListMetadata(ctx, storage.MetadataQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))
		})

		It("deletes expired ledger rows", func() {
			fresh := newMetadata("u1", "fresh", 0)
			stale := newMetadata("u1", "stale", 0)
			stale.ExpiresAt = Epoch.Add(time.Hour)
			Expect(driver.PutMetadata(ctx, fresh)).To(Succeed())
			Expect(driver.PutMetadata(ctx, stale)).To(Succeed())

			removed, err := driver.DeleteExpiredMetadata(ctx, Epoch.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(1))

			_, err = driver.GetMetadata(ctx, "u1", "stale")
			Expect(storage.IsNotFound(err)).To(BeTrue())
			_, err = driver.GetMetadata(ctx, "u1", "fresh")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("assessment records", func() {
		It("appends and queries records newest first", func() {
			Expect(driver.AppendRecord(ctx, NewTestRecord("r1", "u1", "fp", Score(55), 0, "recursion"))).To(Succeed())
			Expect(driver.AppendRecord(ctx, NewTestRecord("r2", "u1", "fp", Score(75), time.Hour))).To(Succeed())
			Expect(driver.AppendRecord(ctx, NewTestRecord("r3", "u1", "other", nil, 2*time.Hour))).To(Succeed())
			Expect(driver.AppendRecord(ctx, NewTestRecord("r4", "u2", "fp", Score(90), 3*time.Hour))).To(Succeed())

			recs, err := driver.QueryRecords(ctx, storage.AssessmentQuery{UserID: "u1", Fingerprint: "fp"})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
			Expect(recs[0].ID).To(Equal("r2"))
			Expect(recs[1].ID).To(Equal("r1"))
			Expect(*recs[1].Score).To(BeNumerically("==", 55))
			Expect(recs[1].WeakTopics).To(Equal([]string{"recursion"}))
			Expect(recs[1].Answers).To(HaveLen(1))
			Expect(recs[1].Answers[0].Answer).To(Equal("A function calling itself"))

			global, err := driver.QueryRecords(ctx, storage.AssessmentQuery{UserID: "u1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(global).To(HaveLen(3))
			Expect(global[0].ID).To(Equal("r3"))
			Expect(global[0].Score).To(BeNil())
		})

		It("applies the limit after ordering", func() {
			for i, id := range []string{"r1", "r2", "r3"} {
				Expect(driver.AppendRecord(ctx, NewTestRecord(id, "u1", "fp", Score(50), time.Duration(i)*time.Minute))).To(Succeed())
			}

			recs, err := driver.QueryRecords(ctx, storage.AssessmentQuery{UserID: "u1", Fingerprint: "fp", Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(2))
			Expect(recs[0].ID).To(Equal("r3"))
			Expect(recs[1].ID).To(Equal("r2"))
		})

		It("returns records sharing a creation time in reverse insertion order", func() {
			for i, id := range []string{"m", "z", "a", "k"} {
				Expect(driver.AppendRecord(ctx, NewTestRecord(id, "u1", "fp", Score(float64(10*i)), 0))).To(Succeed())
				Expect(driver.AppendRecord(ctx, NewTestRecord(id+"-other", "u2", "fp", Score(50), 0))).To(Succeed())
			}

			recs, err := driver.QueryRecords(ctx, storage.AssessmentQuery{UserID: "u1", Fingerprint: "fp"})
			Expect(err).NotTo(HaveOccurred())
			ids := make([]string, len(recs))
			for i, rec := range recs {
				ids[i] = rec.ID
			}
			Expect(ids).To(Equal([]string{"k", "a", "z", "m"}))

			recs, err = driver.QueryRecords(ctx, storage.AssessmentQuery{UserID: "u1", Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].ID).To(Equal("k"))
		})

		It("rejects a duplicate record id", func() {
			Expect(driver.AppendRecord(ctx, NewTestRecord("r1", "u1", "fp", Score(50), 0))).To(Succeed())
			Expect(driver.AppendRecord(ctx, NewTestRecord("r1", "u1", "fp", Score(60), time.Minute))).NotTo(Succeed())
		})

		It("returns an empty result for an unknown user", func() {
			recs, err := driver.QueryRecords(ctx, storage.AssessmentQuery{UserID: "nobody"})
			Expect(err).NotTo(HaveOccurred())
			Expect(recs).To(BeEmpty())
		})
	})

	Describe("progress snapshots", func() {
		It("upserts and retrieves a snapshot", func() {
			s := &study.ProgressSnapshot{
				UserID:            "u1",
				Fingerprint:       "fp",
				OverallWeakTopics: []string{"recursion"},
				ImprovementAreas:  []string{"recursion"},
				TotalSessions:     2,
				AverageScore:      65,
				BestScore:         75,
				RecentTrend:       20,
				LastSessionAt:     Epoch.Add(time.Hour),
				UpdatedAt:         Epoch.Add(time.Hour),
			}
			Expect(driver.PutSnapshot(ctx, s)).To(Succeed())

			s.TotalSessions = 3
			s.OverallWeakTopics = []string{}
			Expect(driver.PutSnapshot(ctx, s)).To(Succeed())

			got, err := driver.GetSnapshot(ctx, "u1", "fp")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.TotalSessions).To(Equal(3))
			Expect(got.OverallWeakTopics).To(BeEmpty())
			Expect(got.ImprovementAreas).To(Equal([]string{"recursion"}))
			Expect(got.AverageScore).To(BeNumerically("==", 65))
			Expect(got.BestScore).To(BeNumerically("==", 75))
			Expect(got.RecentTrend).To(BeNumerically("==", 20))
			Expect(got.LastSessionAt).To(BeTemporally("==", Epoch.Add(time.Hour)))
		})

		It("returns NotFoundError for a missing snapshot", func() {
			_, err := driver.GetSnapshot(ctx, "u1", "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})
}
