package question

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tbxark/civicdesk/types"
)

const DefaultTimeout = 10 * time.Second

// Guarded runs Primary under Timeout and replaces unusable output with the
// LocalGenerator question. It never returns an error.
type Guarded struct {
	Primary Generator
	Timeout time.Duration
}

func NewGuarded(primary Generator, timeout time.Duration) *Guarded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guarded{Primary: primary, Timeout: timeout}
}

func (g *Guarded) NextQuestion(ctx context.Context, req *types.ToolRequest) (string, error) {
	fallback, _ := LocalGenerator{}.NextQuestion(ctx, req)
	if g.Primary == nil {
		return fallback, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()
	q, err := g.Primary.NextQuestion(ctx, req)
	if err == nil {
		err = Check(q, len(req.MissingFields) > 0)
	}
	if err != nil {
		slog.Warn("question generator fallback", "kind", req.Kind, "error", err)
		return fallback, nil
	}
	return strings.TrimSpace(q), nil
}

// Check rejects empty or overlong output, and output without a question mark
// while fields are still missing.
func Check(q string, fieldsRemain bool) error {
	q = strings.TrimSpace(q)
	switch {
	case q == "":
		return fmt.Errorf("%w: empty question", ErrCapability)
	case utf8.RuneCountInString(q) > MaxQuestionLength:
		return fmt.Errorf("%w: question longer than %d characters", ErrCapability, MaxQuestionLength)
	case fieldsRemain && !strings.Contains(q, "?"):
		return fmt.Errorf("%w: output is not a question", ErrCapability)
	}
	return nil
}
