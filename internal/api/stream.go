package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vincentnw/studypal/internal/generate"
	"github.com/vincentnw/studypal/internal/pipeline"
)

// streamSink writes pipeline events to the response as newline-delimited
// JSON over chunked transfer, flushing after every event so the client sees
// progress as it happens. Headers are written lazily on the first event,
// which lets earlier failures still produce a proper error status.
type streamSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	begun   bool
}

func newStreamSink(w http.ResponseWriter) *streamSink {
	flusher, _ := w.(http.Flusher)
	return &streamSink{w: w, flusher: flusher}
}

func (s *streamSink) started() bool {
	return s.begun
}

func (s *streamSink) begin() {
	if s.begun {
		return
	}
	s.w.Header().Set("Content-Type", "application/x-ndjson")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.begun = true
}

// Progress emits {"progress": pct}.
func (s *streamSink) Progress(pct int) error {
	return s.writeEvent(map[string]int{"progress": pct})
}

// Result emits the terminal artifact event, keyed by task:
// {"notes": ...}, {"flashcards": [...]} or {"quizzes": [...]}.
func (s *streamSink) Result(artifact pipeline.Artifact) error {
	switch artifact.Task {
	case generate.TaskNotes:
		return s.writeEvent(map[string]string{"notes": artifact.Notes})
	case generate.TaskFlashcards:
		if artifact.Flashcards == nil {
			artifact.Flashcards = []string{}
		}
		return s.writeEvent(map[string][]string{"flashcards": artifact.Flashcards})
	case generate.TaskQuiz:
		if artifact.Quizzes == nil {
			artifact.Quizzes = []generate.QuizQuestion{}
		}
		return s.writeEvent(map[string][]generate.QuizQuestion{"quizzes": artifact.Quizzes})
	default:
		return fmt.Errorf("unknown artifact task %q", artifact.Task)
	}
}

func (s *streamSink) writeEvent(event any) error {
	s.begin()
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := s.w.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
