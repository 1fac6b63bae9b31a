package gemini

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/eduverse/pkg/planner"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// shapes describes the JSON document expected back for each kind.
var shapes = map[study.Kind]string{
	study.KindSummary:             `{"text": string}`,
	study.KindDeepDive:            `{"text": string}`,
	study.KindFlashcards:          `{"cards": [{"id": number, "question": string, "answer": string, "tag": string}]}`,
	study.KindQuiz:                `{"questions": [{"id": number, "question": string, "options": [string], "correct_answer": string, "explanation": string}]}`,
	study.KindSlides:              `{"slides": [{"title": string, "content": [string]}]}`,
	study.KindVerbalTestQuestions: `{"questions": [string]}`,
}

var tasks = map[study.Kind]string{
	study.KindSummary:             "Write a concise summary of the material.",
	study.KindDeepDive:            "Write an in-depth explanation of the material covering every key concept.",
	study.KindFlashcards:          "Create flashcards covering the key facts and definitions.",
	study.KindQuiz:                "Create %d multiple choice questions that test understanding of the material.",
	study.KindSlides:              "Create a slide deck presenting the material.",
	study.KindVerbalTestQuestions: "Create %d open-ended questions for a verbal test on the material.",
}

func hasQuestions(kind study.Kind) bool {
	return kind == study.KindQuiz || kind == study.KindVerbalTestQuestions
}

func buildPrompt(kind study.Kind, source study.Source, strategy planner.Strategy) string {
	var b strings.Builder

	task := tasks[kind]
	if hasQuestions(kind) {
		task = fmt.Sprintf(task, strategy.QuestionCount)
	}
	b.WriteString(task)
	b.WriteString("\n")

	if hasQuestions(kind) {
		if strategy.IsTargeted() && len(strategy.WeakTopics) > 0 {
			fmt.Fprintf(&b, "The student previously struggled with: %s. Focus the questions on these areas.\n",
				strings.Join(strategy.WeakTopics, ", "))
		}
		switch strategy.Difficulty {
		case planner.DifficultyHarder:
			b.WriteString("Make the questions more challenging and analytical.\n")
		case planner.DifficultyEasier:
			b.WriteString("Make the questions more straightforward and accessible.\n")
		}
		if strategy.IncludeReview {
			b.WriteString("Include a few review questions on material the student already knows.\n")
		}
	}

	fmt.Fprintf(&b, "Respond with JSON only, shaped as %s\n\n", shapes[kind])
	fmt.Fprintf(&b, "Title: %s\n\n%s\n", source.Title, source.Content)

	return b.String()
}
