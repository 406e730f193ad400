package question

import (
	"context"
	"errors"

	"github.com/tbxark/civicdesk/types"
)

// MaxQuestionLength bounds generated questions; longer output is replaced by the
// deterministic question.
const MaxQuestionLength = 150

// ClosingMessage is returned once every field has a value.
const ClosingMessage = "Thank you, I have everything I need."

// ErrCapability reports that a generator could not produce a usable question.
var ErrCapability = errors.New("question generator unavailable")

type Generator interface {
	NextQuestion(ctx context.Context, req *types.ToolRequest) (string, error)
}
