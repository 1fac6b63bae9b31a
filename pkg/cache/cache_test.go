package cache_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/eduverse/pkg/cache"
	"github.com/papercomputeco/eduverse/pkg/storage/inmemory"
	"github.com/papercomputeco/eduverse/pkg/study"
	testutils "github.com/papercomputeco/eduverse/pkg/utils/test"
)

var _ = Describe("Store", func() {
	var (
		ctx    context.Context
		clock  *testutils.Clock
		driver *testutils.FailingDriver
		store  *cache.Store
		fp     string
	)

	newStore := func(mutate func(*cache.Config)) *cache.Store {
		cfg := cache.NewDefaultConfig(driver)
		cfg.Now = clock.Now
		if mutate != nil {
			mutate(&cfg)
		}
		s, err := cache.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	BeforeEach(func() {
		ctx = context.Background()
		clock = testutils.NewClock()
		driver = testutils.NewFailingDriver(inmemory.NewDriver())
		store = newStore(nil)
		fp = study.Source{Title: "Algorithms", Content: "Recursion is a function calling itself."}.Fingerprint()
	})

	Describe("New", func() {
		It("requires a driver when the durable tier is enabled", func() {
			_, err := cache.New(cache.Config{EnableDurable: true})
			Expect(err).To(HaveOccurred())
		})

		It("exposes no ledger without a durable tier", func() {
			s, err := cache.New(cache.Config{EnableLocal: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Ledger()).To(BeNil())
		})
	})

	Describe("Set and Get", func() {
		It("round-trips a payload", func() {
			payload := study.Summary{Text: "Recursion in one paragraph."}
			Expect(store.Set(ctx, fp, study.KindSummary, payload, "u1", "Algorithms")).To(Succeed())

			got, ok := store.Get(ctx, fp, study.KindSummary)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(payload))
			Expect(store.Has(ctx, fp, study.KindSummary)).To(BeTrue())
			Expect(store.Has(ctx, fp, study.KindQuiz)).To(BeFalse())
		})

		It("serves durable entries when the memory tier is disabled", func() {
			s := newStore(func(c *cache.Config) { c.EnableLocal = false })
			quiz := study.Quiz{Questions: []study.QuizQuestion{{
				ID:            1,
				Question:      "What is recursion?",
				Options:       []string{"A loop", "Self reference"},
				CorrectAnswer: "Self reference",
			}}}
			Expect(s.Set(ctx, fp, study.KindQuiz, quiz, "u1", "Algorithms")).To(Succeed())

			got, ok := s.Get(ctx, fp, study.KindQuiz)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(quiz))
			Expect(s.Stats().DurableHits).To(Equal(int64(1)))
		})

		It("acts on the memory tier alone when the durable tier is disabled", func() {
			s := newStore(func(c *cache.Config) { c.EnableDurable = false })
			Expect(s.Set(ctx, fp, study.KindSummary, study.Summary{Text: "x"}, "u1", "Algorithms")).To(Succeed())

			_, ok := s.Get(ctx, fp, study.KindSummary)
			Expect(ok).To(BeTrue())

			_, err := driver.GetEntry(ctx, fp, study.KindSummary)
			Expect(err).To(HaveOccurred())
		})

		It("rejects a payload of the wrong kind", func() {
			err := store.Set(ctx, fp, study.KindQuiz, study.Summary{Text: "x"}, "u1", "Algorithms")
			Expect(err).To(MatchError(study.ErrKindMismatch))
			Expect(store.Has(ctx, fp, study.KindQuiz)).To(BeFalse())
		})

		It("overwrites an existing entry", func() {
			Expect(store.Set(ctx, fp, study.KindSummary, study.Summary{Text: "old"}, "u1", "Algorithms")).To(Succeed())
			Expect(store.Set(ctx, fp, study.KindSummary, study.Summary{Text: "new"}, "u1", "Algorithms")).To(Succeed())

			got, ok := store.Get(ctx, fp, study.KindSummary)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(study.Summary{Text: "new"}))
		})
	})

	Describe("expiry", func() {
		It("misses once the durable TTL has passed", func() {
			Expect(store.Set(ctx, fp, study.KindSummary, study.Summary{Text: "x"}, "u1", "Algorithms")).To(Succeed())

			clock.Advance(cache.DefaultTTL)

			_, ok := store.Get(ctx, fp, study.KindSummary)
			Expect(ok).To(BeFalse())
		})

		It("refreshes the memory tier from the durable tier after the local TTL", func() {
			Expect(store.Set(ctx, fp, study.KindSummary, study.Summary{Text: "x"}, "u1", "Algorithms")).To(Succeed())

			_, ok := store.Get(ctx, fp, study.KindSummary)
			Expect(ok).To(BeTrue())
			Expect(store.Stats().LocalHits).To(Equal(int64(1)))

			clock.Advance(cache.DefaultLocalTTL + time.Minute)

			_, ok = store.Get(ctx, fp, study.KindSummary)
			Expect(ok).To(BeTrue())

			stats := store.Stats()
			Expect(stats.LocalMisses).To(Equal(int64(1)))
			Expect(stats.DurableHits).To(Equal(int64(1)))
		})

		It("drops memory entries past the durable expiry", func() {
			s := newStore(func(c *cache.Config) {
				c.EnableDurable = false
				c.TTL = time.Minute
			})
			Expect(s.Set(ctx, fp, study.KindSummary, study.Summary{Text: "x"}, "", "")).To(Succeed())

			clock.Advance(time.Minute)

			_, ok := s.Get(ctx, fp, study.KindSummary)
			Expect(ok).To(BeFalse())
			Expect(s.Stats().LocalEntries).To(Equal(0))
		})
	})

	Describe("memory tier bound", func() {
		It("evicts the least recently used entry", func() {
			s := newStore(func(c *cache.Config) {
				c.EnableDurable = false
				c.LocalSize = 2
			})

			Expect(s.Set(ctx, "a", study.KindSummary, study.Summary{Text: "a"}, "", "")).To(Succeed())
			Expect(s.Set(ctx, "b", study.KindSummary, study.Summary{Text: "b"}, "", "")).To(Succeed())
			_, _ = s.Get(ctx, "a", study.KindSummary)
			Expect(s.Set(ctx, "c", study.KindSummary, study.Summary{Text: "c"}, "", "")).To(Succeed())

			Expect(s.Has(ctx, "a", study.KindSummary)).To(BeTrue())
			Expect(s.Has(ctx, "b", study.KindSummary)).To(BeFalse())
			Expect(s.Has(ctx, "c", study.KindSummary)).To(BeTrue())
		})
	})

	Describe("Invalidate", func() {
		It("removes the entry from both tiers and the ledger", func() {
			Expect(store.Set(ctx, fp, study.KindSummary, study.Summary{Text: "x"}, "u1", "Algorithms")).To(Succeed())
			Expect(store.Set(ctx, fp, study.KindQuiz, study.Quiz{}, "u1", "Algorithms")).To(Succeed())

			store.Invalidate(ctx, fp, study.KindSummary)

			Expect(store.Has(ctx, fp, study.KindSummary)).To(BeFalse())
			Expect(store.Has(ctx, fp, study.KindQuiz)).To(BeTrue())

			m, err := driver.GetMetadata(ctx, "u1", fp)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.RegisteredKinds).To(Equal([]study.Kind{study.KindQuiz}))
		})
	})

	Describe("store failures", func() {
		It("treats read failures as misses", func() {
			s := newStore(func(c *cache.Config) { c.EnableLocal = false })
			Expect(s.Set(ctx, fp, study.KindSummary, study.Summary{Text: "x"}, "u1", "Algorithms")).To(Succeed())

			driver.FailReads.Store(true)

			_, ok := s.Get(ctx, fp, study.KindSummary)
			Expect(ok).To(BeFalse())
		})

		It("swallows write failures and still serves from memory", func() {
			driver.FailWrites.Store(true)

			Expect(store.Set(ctx, fp, study.KindSummary, study.Summary{Text: "x"}, "u1", "Algorithms")).To(Succeed())

			_, ok := store.Get(ctx, fp, study.KindSummary)
			Expect(ok).To(BeTrue())

			driver.FailWrites.Store(false)
			_, err := driver.GetEntry(ctx, fp, study.KindSummary)
			Expect(err).To(HaveOccurred())
		})

		It("keeps the entry when the ledger cannot be read", func() {
			s := newStore(func(c *cache.Config) { c.EnableLocal = false })
			driver.FailReads.Store(true)
			Expect(s.Set(ctx, fp, study.KindSummary, study.Summary{Text: "x"}, "u1", "Algorithms")).To(Succeed())
			driver.FailReads.Store(false)

			Expect(s.Has(ctx, fp, study.KindSummary)).To(BeTrue())
		})
	})

	Describe("Status and Suggestions", func() {
		It("reports which kinds are cached", func() {
			Expect(store.Set(ctx, fp, study.KindSummary, study.Summary{Text: "x"}, "u1", "Algorithms")).To(Succeed())
			Expect(store.Set(ctx, fp, study.KindSlides, study.Slides{}, "u1", "Algorithms")).To(Succeed())

			status := store.Status(ctx, fp)
			Expect(status).To(HaveLen(len(study.Kinds())))
			Expect(status[study.KindSummary]).To(BeTrue())
			Expect(status[study.KindSlides]).To(BeTrue())
			Expect(status[study.KindQuiz]).To(BeFalse())

			suggested, cached := store.Suggestions(ctx, fp)
			Expect(cached).To(Equal([]study.Kind{study.KindSummary, study.KindSlides}))
			Expect(suggested).To(Equal([]study.Kind{study.KindFlashcards, study.KindQuiz, study.KindDeepDive}))
		})

		It("suggests every material kind for an unknown source", func() {
			suggested, cached := store.Suggestions(ctx, "unknown")
			Expect(cached).To(BeEmpty())
			Expect(suggested).To(Equal(study.MaterialKinds()))
		})
	})
})
