package pipeline

import "fmt"

// Phase names the pipeline stage an error came from, so the transport layer
// can decide how to surface it.
type Phase string

const (
	PhaseExtract  Phase = "extract"
	PhaseEmbed    Phase = "embed"
	PhaseUpsert   Phase = "upsert"
	PhaseQuery    Phase = "query"
	PhaseGenerate Phase = "generate"
)

// PhaseError wraps a fatal error with the phase that produced it.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
