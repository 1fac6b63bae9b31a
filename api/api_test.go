package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/eduverse/api"
	"github.com/papercomputeco/eduverse/pkg/cache"
	"github.com/papercomputeco/eduverse/pkg/generator"
	"github.com/papercomputeco/eduverse/pkg/learning"
	"github.com/papercomputeco/eduverse/pkg/logger"
	"github.com/papercomputeco/eduverse/pkg/planner"
	"github.com/papercomputeco/eduverse/pkg/progress"
	"github.com/papercomputeco/eduverse/pkg/study"
	testutils "github.com/papercomputeco/eduverse/pkg/utils/test"
)

var _ = Describe("Server", func() {
	var (
		ctx     context.Context
		harness *testutils.LearningHarness
		server  *api.Server
		source  study.Source
	)

	BeforeEach(func() {
		ctx = context.Background()
		source = study.Source{Title: "Algorithms", Content: "Recursion is a function calling itself."}

		var err error
		harness, err = testutils.NewLearningHarness()
		Expect(err).NotTo(HaveOccurred())

		server, err = api.NewServer(api.Config{ListenAddr: ":0"}, harness.Service, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	do := func(method, target string, body any) (int, []byte) {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(data)
		}

		req := httptest.NewRequest(method, target, reader)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := server.App().Test(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, data
	}

	decode := func(data []byte, v any) {
		ExpectWithOffset(1, json.Unmarshal(data, v)).To(Succeed())
	}

	progressPath := func(userID, suffix string) string {
		return "/progress/" + userID + "/" + source.Fingerprint() + suffix
	}

	It("requires a learning service", func() {
		_, err := api.NewServer(api.Config{}, nil, nil)
		Expect(err).To(MatchError(ContainSubstring("learning service is required")))
	})

	It("answers ping", func() {
		status, body := do(http.MethodGet, "/ping", nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(string(body)).To(Equal(`"pong"`))
	})

	Describe("POST /content", func() {
		request := func(kind string) api.ContentRequest {
			return api.ContentRequest{UserID: "u1", Title: source.Title, Content: source.Content, Kind: kind}
		}

		It("generates once and serves the cached copy afterwards", func() {
			status, body := do(http.MethodPost, "/content", request("summary"))
			Expect(status).To(Equal(http.StatusOK))

			var resp struct {
				Fingerprint string        `json:"fingerprint"`
				Kind        study.Kind    `json:"kind"`
				Payload     study.Summary `json:"payload"`
			}
			decode(body, &resp)
			Expect(resp.Fingerprint).To(Equal(source.Fingerprint()))
			Expect(resp.Kind).To(Equal(study.KindSummary))
			Expect(resp.Payload).To(Equal(testutils.SamplePayload(study.KindSummary)))

			status, _ = do(http.MethodPost, "/content", request("summary"))
			Expect(status).To(Equal(http.StatusOK))
			Expect(harness.Generator.Count()).To(Equal(1))
		})

		It("accepts display names for kinds", func() {
			status, _ := do(http.MethodPost, "/content", request("Deep Dive"))
			Expect(status).To(Equal(http.StatusOK))
			Expect(harness.Generator.Calls()[0].Kind).To(Equal(study.KindDeepDive))
		})

		It("returns the plan with assessment material", func() {
			status, body := do(http.MethodPost, "/content", request("quiz"))
			Expect(status).To(Equal(http.StatusOK))

			var resp struct {
				Strategy *planner.Strategy `json:"strategy"`
			}
			decode(body, &resp)
			Expect(resp.Strategy).NotTo(BeNil())
			Expect(resp.Strategy.Mode).To(Equal(planner.ModeStandard))
		})

		It("rejects unknown kinds", func() {
			status, body := do(http.MethodPost, "/content", request("podcast"))
			Expect(status).To(Equal(http.StatusBadRequest))

			var resp api.ErrorResponse
			decode(body, &resp)
			Expect(resp.Error).To(ContainSubstring("podcast"))
		})

		It("requires a user and content", func() {
			req := request("summary")
			req.UserID = ""
			status, _ := do(http.MethodPost, "/content", req)
			Expect(status).To(Equal(http.StatusBadRequest))

			req = request("summary")
			req.Content = ""
			status, _ = do(http.MethodPost, "/content", req)
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("maps generation failures to bad gateway", func() {
			harness.Generator.Err = &generator.GenerationError{Kind: study.KindSummary, Err: errors.New("quota exceeded")}

			status, _ := do(http.MethodPost, "/content", request("summary"))
			Expect(status).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("GET /content/status", func() {
		It("lists cached kinds and suggestions", func() {
			do(http.MethodPost, "/content", api.ContentRequest{UserID: "u1", Title: source.Title, Content: source.Content, Kind: "flashcards"})

			q := url.Values{"title": {source.Title}, "content": {source.Content}}
			status, body := do(http.MethodGet, "/content/status?"+q.Encode(), nil)
			Expect(status).To(Equal(http.StatusOK))

			var resp struct {
				Fingerprint string       `json:"fingerprint"`
				Cached      []study.Kind `json:"cached"`
				Suggested   []study.Kind `json:"suggested"`
			}
			decode(body, &resp)
			Expect(resp.Fingerprint).To(Equal(source.Fingerprint()))
			Expect(resp.Cached).To(ContainElement(study.KindFlashcards))
			Expect(resp.Suggested).NotTo(ContainElement(study.KindFlashcards))
		})

		It("requires content", func() {
			status, _ := do(http.MethodGet, "/content/status?title=x", nil)
			Expect(status).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("assessments and progress", func() {
		assessment := func(score float64, topics ...string) api.AssessmentRequest {
			return api.AssessmentRequest{
				UserID:  "u1",
				Title:   source.Title,
				Content: source.Content,
				Assessment: learning.Assessment{
					Kind:       study.AssessmentQuiz,
					Questions:  []string{"What is recursion?"},
					Answers:    []study.Answer{{Question: "What is recursion?", Answer: "Self reference."}},
					Score:      testutils.Score(score),
					WeakTopics: topics,
				},
			}
		}

		It("records assessments and reports progress", func() {
			status, body := do(http.MethodPost, "/assessments", assessment(55, "base cases"))
			Expect(status).To(Equal(http.StatusCreated))
			harness.Clock.Advance(1)

			status, body = do(http.MethodPost, "/assessments", assessment(75))
			Expect(status).To(Equal(http.StatusCreated))

			var created api.AssessmentResponse
			decode(body, &created)
			Expect(created.Fingerprint).To(Equal(source.Fingerprint()))
			Expect(created.Snapshot).NotTo(BeNil())
			Expect(created.Snapshot.TotalSessions).To(Equal(2))

			status, body = do(http.MethodGet, progressPath("u1", ""), nil)
			Expect(status).To(Equal(http.StatusOK))

			var snapshot study.ProgressSnapshot
			decode(body, &snapshot)
			Expect(snapshot.AverageScore).To(BeNumerically("~", 65, 0.001))
			Expect(snapshot.BestScore).To(BeNumerically("~", 75, 0.001))
			Expect(snapshot.ImprovementAreas).To(ConsistOf("base cases"))

			status, body = do(http.MethodGet, "/assessments?user_id=u1&fingerprint="+source.Fingerprint(), nil)
			Expect(status).To(Equal(http.StatusOK))

			var records []study.AssessmentRecord
			decode(body, &records)
			Expect(records).To(HaveLen(2))
			Expect(*records[0].Score).To(BeNumerically("~", 75, 0.001))
		})

		It("rejects invalid assessments with the failing fields", func() {
			req := assessment(140)
			status, body := do(http.MethodPost, "/assessments", req)
			Expect(status).To(Equal(http.StatusBadRequest))

			var resp api.ErrorResponse
			decode(body, &resp)
			Expect(resp.Error).To(Equal(progress.ErrValidation.Error()))
			Expect(resp.Fields).NotTo(BeEmpty())

			status, _ = do(http.MethodGet, progressPath("u1", ""), nil)
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("requires a user to list assessments", func() {
			status, _ := do(http.MethodGet, "/assessments", nil)
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("returns not found before any assessment", func() {
			status, _ := do(http.MethodGet, progressPath("nobody", ""), nil)
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("returns recommendations and statistics", func() {
			do(http.MethodPost, "/assessments", assessment(40, "graphs"))

			status, body := do(http.MethodGet, progressPath("u1", "/recommendations"), nil)
			Expect(status).To(Equal(http.StatusOK))
			var recs struct {
				Recommendations []string `json:"recommendations"`
			}
			decode(body, &recs)
			Expect(recs.Recommendations).NotTo(BeEmpty())

			status, body = do(http.MethodGet, progressPath("u1", "/statistics"), nil)
			Expect(status).To(Equal(http.StatusOK))
			var stats progress.Statistics
			decode(body, &stats)
			Expect(stats.TotalTests).To(Equal(1))
		})

		It("plans targeted retakes from persistent weak topics", func() {
			_, err := harness.Record(ctx, "u1", source, 50, "arrays")
			Expect(err).NotTo(HaveOccurred())
			_, err = harness.Record(ctx, "u1", source, 60, "arrays")
			Expect(err).NotTo(HaveOccurred())

			status, body := do(http.MethodGet, "/plan/u1/"+source.Fingerprint()+"?retake=true", nil)
			Expect(status).To(Equal(http.StatusOK))
			var strategy planner.Strategy
			decode(body, &strategy)
			Expect(strategy.Mode).To(Equal(planner.ModeTargeted))
			Expect(strategy.WeakTopics).To(Equal([]string{"arrays"}))

			status, body = do(http.MethodGet, "/plan/u1/"+source.Fingerprint(), nil)
			Expect(status).To(Equal(http.StatusOK))
			decode(body, &strategy)
			Expect(strategy.Mode).To(Equal(planner.ModeStandard))
		})
	})

	Describe("cache maintenance", func() {
		It("reports per-user cache statistics", func() {
			do(http.MethodPost, "/content", api.ContentRequest{UserID: "u1", Title: source.Title, Content: source.Content, Kind: "summary"})

			status, body := do(http.MethodGet, "/cache/stats/u1", nil)
			Expect(status).To(Equal(http.StatusOK))

			var stats cache.Statistics
			decode(body, &stats)
			Expect(stats.TotalItems).To(Equal(1))
		})

		It("sweeps expired entries", func() {
			do(http.MethodPost, "/content", api.ContentRequest{UserID: "u1", Title: source.Title, Content: source.Content, Kind: "summary"})
			harness.Clock.Advance(cache.DefaultTTL + 1)

			status, body := do(http.MethodPost, "/cache/sweep", nil)
			Expect(status).To(Equal(http.StatusOK))

			var resp struct {
				Removed int `json:"removed"`
			}
			decode(body, &resp)
			Expect(resp.Removed).To(BeNumerically(">", 0))
		})
	})
})
