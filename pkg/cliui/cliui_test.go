package cliui_test

import (
	"bytes"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/eduverse/pkg/cliui"
	"github.com/papercomputeco/eduverse/pkg/study"
)

var _ = Describe("Step", func() {
	It("reports success and returns nil", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "Sweeping cache", func() error { return nil })).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Sweeping cache"))
		Expect(buf.String()).To(ContainSubstring(cliui.SuccessMark))
	})

	It("returns the step error", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "Connecting", func() error { return errors.New("refused") })
		Expect(err).To(MatchError("refused"))
		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
	})

	It("prints a single line when the writer is not a terminal", func() {
		var buf bytes.Buffer
		Expect(cliui.Step(&buf, "Sweeping cache", func() error {
			time.Sleep(200 * time.Millisecond)
			return nil
		})).To(Succeed())
		Expect(buf.String()).NotTo(ContainSubstring("\r"))
		Expect(strings.Count(buf.String(), "\n")).To(Equal(1))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds under a second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})

	It("uses minutes and seconds past a minute", func() {
		Expect(cliui.FormatDuration(95*time.Second + 400*time.Millisecond)).To(Equal("1m35s"))
	})
})

var _ = Describe("ProgressMarkdown", func() {
	It("renders the snapshot table and lists", func() {
		md := cliui.ProgressMarkdown("Algorithms", &study.ProgressSnapshot{
			TotalSessions:     2,
			AverageScore:      65,
			BestScore:         75,
			RecentTrend:       20,
			OverallWeakTopics: []string{"graphs"},
			ImprovementAreas:  []string{"recursion"},
		}, []string{"Keep practicing"})

		Expect(md).To(HavePrefix("# Algorithms"))
		Expect(md).To(ContainSubstring("| 2 | 65.0 | 75.0 | +20.0 |"))
		Expect(md).To(ContainSubstring("- graphs"))
		Expect(md).To(ContainSubstring("- recursion"))
		Expect(md).To(ContainSubstring("- Keep practicing"))
	})

	It("notes a missing snapshot", func() {
		md := cliui.ProgressMarkdown("", nil, nil)
		Expect(md).To(HavePrefix("# Progress"))
		Expect(md).To(ContainSubstring("No assessments recorded yet"))
	})
})

var _ = Describe("TrendMark", func() {
	It("shows the direction of the trend", func() {
		Expect(cliui.TrendMark(10)).To(ContainSubstring("↑"))
		Expect(cliui.TrendMark(-10)).To(ContainSubstring("↓"))
		Expect(cliui.TrendMark(1)).To(ContainSubstring("→"))
	})
})
