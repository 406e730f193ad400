package session

import (
	"time"

	"github.com/tbxark/civicdesk/record"
	"github.com/tbxark/civicdesk/registry"
	"github.com/tbxark/civicdesk/types"
)

// State is the conversation progress of one session.
type State struct {
	Kind                 registry.Kind  `json:"kind,omitempty"`
	Record               *record.Record `json:"record,omitempty"`
	AwaitingConfirmation bool           `json:"awaiting_confirmation"`
	SubmitterID          string         `json:"submitter_id,omitempty"`
	LastQuestion         string         `json:"last_question,omitempty"`
	// Summary is the confirmation text shown to the citizen, kept so a retried
	// confirm commits exactly what was shown.
	Summary   string    `json:"summary,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *State) Stage() types.Stage {
	switch {
	case s == nil || s.Kind == "":
		return types.StageSelectingKind
	case s.AwaitingConfirmation:
		return types.StageConfirming
	default:
		return types.StageCollectingField
	}
}

// Reset clears everything, returning the session to kind selection.
func (s *State) Reset() {
	*s = State{UpdatedAt: s.UpdatedAt}
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.Record != nil {
		r := s.Record.Clone()
		out.Record = &r
	}
	return &out
}
