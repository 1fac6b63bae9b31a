// Package study holds the data model shared by the cache, progress and planner
// packages: content kinds, the typed payload union, cache rows and assessment
// records.
package study

import (
	"fmt"
	"strings"
)

// Kind is the category of a generated study artifact.
type Kind string

const (
	KindSummary             Kind = "summary"
	KindFlashcards          Kind = "flashcards"
	KindQuiz                Kind = "quiz"
	KindDeepDive            Kind = "deep_dive"
	KindSlides              Kind = "slides"
	KindVerbalTestQuestions Kind = "verbal_test_questions"
)

// Kinds lists every cacheable kind in display order.
func Kinds() []Kind {
	return []Kind{
		KindSummary,
		KindFlashcards,
		KindQuiz,
		KindDeepDive,
		KindSlides,
		KindVerbalTestQuestions,
	}
}

// MaterialKinds lists the kinds a learner generates directly from a source.
// Verbal test questions are produced only while taking an assessment.
func MaterialKinds() []Kind {
	return []Kind{
		KindSummary,
		KindFlashcards,
		KindQuiz,
		KindDeepDive,
		KindSlides,
	}
}

// displayNames maps the labels shown by the study UI to their kinds.
var displayNames = map[string]Kind{
	"summary":    KindSummary,
	"flashcards": KindFlashcards,
	"quiz":       KindQuiz,
	"deep dive":  KindDeepDive,
	"ppt mode":   KindSlides,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// IsAssessment reports whether k is material a learner is tested with.
func (k Kind) IsAssessment() bool {
	return k == KindQuiz || k == KindVerbalTestQuestions
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts either the canonical kind name or a UI display name
// ("Deep Dive", "PPT Mode").
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	if k.Valid() {
		return k, nil
	}

	if named, ok := displayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return named, nil
	}

	return "", fmt.Errorf("unknown content kind: %q", s)
}

// AssessmentKind is the category of a completed assessment.
type AssessmentKind string

const (
	AssessmentQuiz               AssessmentKind = "quiz"
	AssessmentVerbalTest         AssessmentKind = "verbal_test"
	AssessmentTargetedQuiz       AssessmentKind = "targeted_quiz"
	AssessmentTargetedVerbalTest AssessmentKind = "targeted_verbal_test"
)

// Targeted returns the retake variant of an assessment kind.
func (k AssessmentKind) Targeted() AssessmentKind {
	switch k {
	case AssessmentQuiz:
		return AssessmentTargetedQuiz
	case AssessmentVerbalTest:
		return AssessmentTargetedVerbalTest
	default:
		return k
	}
}
