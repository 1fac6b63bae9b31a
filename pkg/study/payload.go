package study

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrKindMismatch is returned when a payload is decoded or stored under a kind
// other than its own.
var ErrKindMismatch = errors.New("payload kind mismatch")

// Payload is generated study content. Each concrete variant belongs to exactly
// one Kind.
type Payload interface {
	Kind() Kind
}

// Summary is a prose summary of a source.
type Summary struct {
	Text string `json:"text"`
}

func (Summary) Kind() Kind { return KindSummary }

// DeepDive is a long-form explanation of a source.
type DeepDive struct {
	Text string `json:"text"`
}

func (DeepDive) Kind() Kind { return KindDeepDive }

// Flashcard is a single question/answer card.
type Flashcard struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Tag      string `json:"tag,omitempty"`
}

// Flashcards is a deck of flashcards.
type Flashcards struct {
	Cards []Flashcard `json:"cards"`
}

func (Flashcards) Kind() Kind { return KindFlashcards }

// QuizQuestion is a multiple choice question.
type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Quiz is a set of multiple choice questions.
type Quiz struct {
	Questions []QuizQuestion `json:"questions"`
}

func (Quiz) Kind() Kind { return KindQuiz }

// Slide is one slide of a presentation.
type Slide struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
}

// Slides is a slide deck.
type Slides struct {
	Slides []Slide `json:"slides"`
}

func (Slides) Kind() Kind { return KindSlides }

// VerbalTestQuestions are open-ended questions for a spoken assessment.
type VerbalTestQuestions struct {
	Questions []string `json:"questions"`
}

func (VerbalTestQuestions) Kind() Kind { return KindVerbalTestQuestions }

// EncodePayload serializes a payload for storage.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, errors.New("cannot encode nil payload")
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", p.Kind(), err)
	}

	return data, nil
}

// DecodePayload deserializes stored bytes into the concrete variant for kind.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)

	switch kind {
	case KindSummary:
		var v Summary
		err = json.Unmarshal(data, &v)
		p = v
	case KindDeepDive:
		var v DeepDive
		err = json.Unmarshal(data, &v)
		p = v
	case KindFlashcards:
		var v Flashcards
		err = json.Unmarshal(data, &v)
		p = v
	case KindQuiz:
		var v Quiz
		err = json.Unmarshal(data, &v)
		p = v
	case KindSlides:
		var v Slides
		err = json.Unmarshal(data, &v)
		p = v
	case KindVerbalTestQuestions:
		var v VerbalTestQuestions
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrKindMismatch, kind)
	}

	if err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", kind, err)
	}

	return p, nil
}

// CheckKind returns ErrKindMismatch when p does not belong to kind.
func CheckKind(kind Kind, p Payload) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload for %s", ErrKindMismatch, kind)
	}
	if p.Kind() != kind {
		return fmt.Errorf("%w: %s payload stored as %s", ErrKindMismatch, p.Kind(), kind)
	}
	return nil
}
