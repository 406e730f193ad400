package question

import (
	"context"
	"fmt"

	"github.com/tbxark/civicdesk/types"
)

// LocalGenerator asks the first missing field's declared question.
type LocalGenerator struct{}

func (LocalGenerator) NextQuestion(ctx context.Context, req *types.ToolRequest) (string, error) {
	if len(req.MissingFields) == 0 {
		return ClosingMessage, nil
	}
	return req.MissingFields[0].Question, nil
}

// FailbackGenerator returns the first successful answer of its generators.
type FailbackGenerator struct {
	generators []Generator
}

func NewFailbackGenerator(generators ...Generator) *FailbackGenerator {
	return &FailbackGenerator{generators: generators}
}

func (g *FailbackGenerator) NextQuestion(ctx context.Context, req *types.ToolRequest) (string, error) {
	lastErr := ErrCapability
	for _, generator := range g.generators {
		q, err := generator.NextQuestion(ctx, req)
		if err == nil {
			return q, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("all question generators failed: %w", lastErr)
}
