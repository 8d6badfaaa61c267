// Package llm turns a retrieved document and a query into a natural-language
// answer using a chat model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxContentChars caps how much of a matched document is placed in
// the prompt. Stored content can be megabytes; chat models cannot take that.
const DefaultMaxContentChars = 16000

// ErrGeneration is returned when the model call fails or returns nothing.
var ErrGeneration = errors.New("answer generation failed")

// CallFunc sends a single user prompt to a chat model and returns the reply.
type CallFunc func(ctx context.Context, prompt string) (string, error)

// Generator produces an answer to query grounded in content.
type Generator interface {
	Generate(ctx context.Context, content, query string) (string, error)
}

// PromptGenerator is a Generator that formats a prompt and hands it to a
// CallFunc.
type PromptGenerator struct {
	call            CallFunc
	maxContentChars int
}

// NewPromptGenerator wraps call. maxContentChars <= 0 uses
// DefaultMaxContentChars.
func NewPromptGenerator(call CallFunc, maxContentChars int) *PromptGenerator {
	if maxContentChars <= 0 {
		maxContentChars = DefaultMaxContentChars
	}
	return &PromptGenerator{call: call, maxContentChars: maxContentChars}
}

// Generate builds the prompt and calls the model.
func (g *PromptGenerator) Generate(ctx context.Context, content, query string) (string, error) {
	answer, err := g.call(ctx, BuildPrompt(content, query, g.maxContentChars))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: empty answer", ErrGeneration)
	}
	return answer, nil
}

// BuildPrompt formats the document and question for the model. Content longer
// than maxChars runes is cut and marked as truncated.
func BuildPrompt(content, query string, maxChars int) string {
	truncated := false
	if maxChars > 0 {
		runes := []rune(content)
		if len(runes) > maxChars {
			content = string(runes[:maxChars])
			truncated = true
		}
	}

	var b strings.Builder
	b.WriteString("Answer the question using only the document below. ")
	b.WriteString("If the document does not contain the answer, say so.\n\n")
	b.WriteString("<document>\n")
	b.WriteString(content)
	if truncated {
		b.WriteString("\n[document truncated]")
	}
	b.WriteString("\n</document>\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}
