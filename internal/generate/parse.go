package generate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QuizQuestion is one structured quiz question.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Choices       []string `json:"choices"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// valid reports whether the question has the required shape: a question
// text, exactly four choices, and a correct answer that is one of them.
func (q QuizQuestion) valid() bool {
	if q.Question == "" || len(q.Choices) != 4 {
		return false
	}
	for _, c := range q.Choices {
		if c == q.CorrectAnswer {
			return true
		}
	}
	return false
}

// ParseNotes treats the whole response as opaque text, trimmed of
// surrounding whitespace.
func ParseNotes(raw string) string {
	return strings.TrimSpace(raw)
}

// ParseFlashcards splits the response into its non-blank lines. Each line is
// a raw flashcard fragment; Q:/A: pairing happens downstream (see PairCards).
func ParseFlashcards(raw string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// ParseQuiz parses the response as either one quiz question object or an
// array of them, after stripping any surrounding markdown code fences.
// Questions without the required shape are dropped.
func ParseQuiz(raw string) ([]QuizQuestion, error) {
	cleaned := strings.TrimSpace(stripCodeFences(raw))
	if cleaned == "" {
		return nil, fmt.Errorf("empty quiz response")
	}

	var questions []QuizQuestion
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		var single QuizQuestion
		if err := json.Unmarshal([]byte(cleaned), &single); err != nil {
			return nil, fmt.Errorf("quiz response is not valid JSON: %w", err)
		}
		questions = []QuizQuestion{single}
	}

	kept := questions[:0]
	for _, q := range questions {
		if q.valid() {
			kept = append(kept, q)
		}
	}
	return kept, nil
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	return strings.ReplaceAll(s, "```", "")
}

// Card is one assembled flashcard.
type Card struct {
	Question string
	Answer   string
}

// PairCards applies the presentation-layer assembly rule to raw flashcard
// lines: a line starting with "Q:" paired with the immediately following
// line starting with "A:" forms one card. Unpaired or malformed lines are
// dropped.
func PairCards(lines []string) []Card {
	var cards []Card
	for i := 0; i+1 < len(lines); i++ {
		q := strings.TrimSpace(lines[i])
		a := strings.TrimSpace(lines[i+1])
		if strings.HasPrefix(q, "Q:") && strings.HasPrefix(a, "A:") {
			cards = append(cards, Card{
				Question: strings.TrimSpace(strings.TrimPrefix(q, "Q:")),
				Answer:   strings.TrimSpace(strings.TrimPrefix(a, "A:")),
			})
			i++
		}
	}
	return cards
}
