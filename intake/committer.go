package intake

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/tbxark/civicdesk/record"
	"github.com/tbxark/civicdesk/registry"
	"github.com/tbxark/civicdesk/session"
)

const DefaultCommitTimeout = 10 * time.Second

var ErrIncomplete = errors.New("record is incomplete")

// CommitError wraps any failure to persist a confirmed submission.
type CommitError struct {
	Kind registry.Kind
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s: %v", e.Kind, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

type Committer struct {
	persistence Persistence
	timeout     time.Duration
}

func NewCommitter(persistence Persistence, timeout time.Duration) *Committer {
	if timeout <= 0 {
		timeout = DefaultCommitTimeout
	}
	return &Committer{persistence: persistence, timeout: timeout}
}

// Commit persists the record of a confirming state. The state is not modified.
func (c *Committer) Commit(ctx context.Context, state *session.State) (*CommittedSubmission, error) {
	if state.Record == nil || !record.Complete(*state.Record) {
		return nil, &CommitError{Kind: state.Kind, Err: ErrIncomplete}
	}
	values := maps.Clone(state.Record.Values)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	id, err := c.persistence.SaveSubmission(ctx, Submission{
		Kind:        state.Kind,
		Values:      values,
		SubmitterID: state.SubmitterID,
		Summary:     state.Summary,
	})
	if err != nil {
		return nil, &CommitError{Kind: state.Kind, Err: err}
	}
	if id == "" {
		return nil, &CommitError{Kind: state.Kind, Err: errors.New("persistence returned an empty id")}
	}
	return &CommittedSubmission{ID: id, Kind: state.Kind, Values: values}, nil
}
