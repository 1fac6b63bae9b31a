package cliui

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/eduverse/pkg/study"
)

// trendFlat is the band within which a trend is shown as steady.
const trendFlat = 5.0

// TrendMark renders a score trend as a colored arrow and signed value.
func TrendMark(trend float64) string {
	switch {
	case trend > trendFlat:
		return upStyle.Render(fmt.Sprintf("↑ %+.1f", trend))
	case trend < -trendFlat:
		return downStyle.Render(fmt.Sprintf("↓ %+.1f", trend))
	default:
		return StepStyle.Render(fmt.Sprintf("→ %+.1f", trend))
	}
}

// ProgressMarkdown renders a progress snapshot and study advice as markdown.
// A nil snapshot renders a short note instead of the table.
func ProgressMarkdown(title string, s *study.ProgressSnapshot, recommendations []string) string {
	var b strings.Builder

	if title == "" {
		title = "Progress"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	if s == nil {
		b.WriteString("_No assessments recorded yet._\n")
	} else {
		b.WriteString("| Sessions | Average | Best | Recent trend |\n")
		b.WriteString("|---|---|---|---|\n")
		fmt.Fprintf(&b, "| %d | %.1f | %.1f | %+.1f |\n\n",
			s.TotalSessions, s.AverageScore, s.BestScore, s.RecentTrend)

		writeList(&b, "Weak topics", s.OverallWeakTopics)
		writeList(&b, "Improved since last session", s.ImprovementAreas)

		if !s.LastSessionAt.IsZero() {
			fmt.Fprintf(&b, "Last session: %s\n\n", s.LastSessionAt.Format("2006-01-02 15:04 MST"))
		}
	}

	writeList(&b, "Recommendations", recommendations)

	return b.String()
}

func writeList(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
