// Package generate invokes the generative model with task-specific prompts
// and parses its responses into study artifacts.
package generate

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Task selects which kind of study artifact to produce.
type Task string

const (
	TaskNotes      Task = "notes"
	TaskFlashcards Task = "flashcards"
	TaskQuiz       Task = "quiz"
)

const (
	// maxOutputTokens bounds each per-chunk model response.
	maxOutputTokens = 2000
	// temperature is fixed at the maximum-randomness setting; repeated runs
	// on identical input may yield different output.
	temperature = 1.0
)

// Generator produces raw model output for one enriched context.
type Generator interface {
	Generate(ctx context.Context, task Task, enrichedContext string) (string, error)
}

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
type OpenAIGenerator struct {
	llm *openai.LLM
}

var _ Generator = (*OpenAIGenerator)(nil)

// NewOpenAI creates a generator against an OpenAI-compatible API.
// baseURL may be empty to use the service default.
func NewOpenAI(baseURL, apiKey, model string) (*OpenAIGenerator, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing chat model: %w", err)
	}
	return &OpenAIGenerator{llm: llm}, nil
}

// Generate sends the enriched context with the task's instruction pairing
// and returns the raw model response.
func (g *OpenAIGenerator) Generate(ctx context.Context, task Task, enrichedContext string) (string, error) {
	system, user, err := prompts(task, enrichedContext)
	if err != nil {
		return "", err
	}

	resp, err := g.llm.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, system),
			llms.TextParts(llms.ChatMessageTypeHuman, user),
		},
		llms.WithMaxTokens(maxOutputTokens),
		llms.WithTemperature(temperature),
	)
	if err != nil {
		return "", fmt.Errorf("generating %s: %w", task, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generating %s: model returned no choices", task)
	}
	return resp.Choices[0].Content, nil
}

func prompts(task Task, enrichedContext string) (system, user string, err error) {
	switch task {
	case TaskNotes:
		system = "You are a helpful assistant tasked with summarizing educational material to create useful study notes. Your job is to break down the content into digestible pieces, highlighting key points, important concepts, definitions, and takeaways."
		user = fmt.Sprintf("Here is a text I need study notes from:\n%s\nPlease summarize the key points, concepts, and takeaways from this text in the form of concise study notes.", enrichedContext)
	case TaskFlashcards:
		system = "You are a helpful assistant tasked with creating flashcards from educational material. Each flashcard should have a question and an answer, focusing on key concepts, definitions, and important takeaways. Write each question on its own line starting with \"Q:\" and each answer on the following line starting with \"A:\"."
		user = fmt.Sprintf("Here is a text I need flashcards from:\n%s\nPlease generate flashcards from this text. Each flashcard should have a question and an answer.", enrichedContext)
	case TaskQuiz:
		system = "You are a helpful assistant tasked with creating quiz questions. Respond ONLY in JSON format."
		user = fmt.Sprintf("Here is a text I need quiz questions from:\n%s\nGenerate quiz questions in the following JSON format without any explanation:\n{ \"question\": \"Question text\", \"choices\": [\"Choice A\", \"Choice B\", \"Choice C\", \"Choice D\"], \"correctAnswer\": \"Correct Answer\" }", enrichedContext)
	default:
		return "", "", fmt.Errorf("unknown task %q", task)
	}
	return system, user, nil
}
