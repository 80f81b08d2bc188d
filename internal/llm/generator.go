// Package llm provides text generation clients for the research assistant.
//
// The package defines the Generator abstraction used by the assistant
// agents (question answering, future-work synthesis, summarization) and
// ships providers for a local Ollama server and the hosted OpenAI and
// Anthropic APIs.
//
// Example usage:
//
//	gen, err := llm.NewGenerator(llm.FactoryConfig{Provider: "ollama"})
//	answer, err := gen.Generate(ctx, llm.Request{
//		System: "You are a precise research assistant.",
//		Prompt: "Summarize the abstract below...",
//	})
package llm

import (
	"context"
)

// Request holds the input for a single generation call.
type Request struct {
	// System is the system instruction framing the task. Optional.
	System string

	// Prompt is the user prompt. Required.
	Prompt string
}

// Generator produces text completions from a language model.
type Generator interface {
	// Generate returns the model's completion for the request. Transient
	// provider errors (429, 5xx, network failures) are retried before
	// reporting failure.
	Generate(ctx context.Context, req Request) (string, error)

	// Provider returns the name of the LLM provider (e.g. "ollama").
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}
