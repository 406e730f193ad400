package intake

import (
	"context"

	"github.com/tbxark/civicdesk/record"
	"github.com/tbxark/civicdesk/registry"
	"github.com/tbxark/civicdesk/session"
)

// Turn is one inbound chat message.
type Turn struct {
	SessionID   string
	SubmitterID string
	Message     string
}

type ReplyType string

const (
	ReplyQuestion     ReplyType = "question"
	ReplyConfirmation ReplyType = "confirmation"
	ReplyComplete     ReplyType = "complete"
	ReplyError        ReplyType = "error"
)

type Reply struct {
	Text       string               `json:"response"`
	Type       ReplyType            `json:"type"`
	State      *session.State       `json:"state"`
	Submission *CommittedSubmission `json:"submission,omitempty"`
}

// Submission is a confirmed record handed to persistence.
type Submission struct {
	Kind        registry.Kind
	Values      map[string]any
	SubmitterID string
	// Summary is the confirmation text the citizen accepted.
	Summary string
}

type CommittedSubmission struct {
	ID     string         `json:"id"`
	Kind   registry.Kind  `json:"kind"`
	Values map[string]any `json:"values"`
}

// Persistence stores a submission atomically and returns its identifier.
type Persistence interface {
	SaveSubmission(ctx context.Context, sub Submission) (string, error)
}

// Summarizer drafts the confirmation text of a complete record.
type Summarizer interface {
	Summarize(ctx context.Context, r record.Record) (string, error)
}

// Extractor pulls field values out of free text.
type Extractor interface {
	Extract(ctx context.Context, kind registry.Kind, message string) (map[string]any, error)
}

type PersistenceFunc func(ctx context.Context, sub Submission) (string, error)

func (f PersistenceFunc) SaveSubmission(ctx context.Context, sub Submission) (string, error) {
	return f(ctx, sub)
}
