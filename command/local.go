package command

import (
	"slices"
	"strings"

	"github.com/tbxark/civicdesk/types"
)

// LocalCommandParser matches whole messages against keyword lists, ignoring case
// and surrounding whitespace. AffirmKeywords confirm only while a summary is
// awaiting confirmation; everywhere else they are ordinary answers.
type LocalCommandParser struct {
	RestartKeywords []string
	ConfirmKeywords []string
	AffirmKeywords  []string
	EditKeywords    []string
}

func NewLocalCommandParser() *LocalCommandParser {
	return &LocalCommandParser{
		RestartKeywords: []string{"restart", "reset", "start over"},
		ConfirmKeywords: []string{"confirm"},
		AffirmKeywords:  []string{"yes"},
		EditKeywords:    []string{"edit"},
	}
}

func (p *LocalCommandParser) ParseCommand(stage types.Stage, input string) Command {
	normalized := strings.ToLower(strings.TrimSpace(input))
	switch {
	case slices.Contains(p.RestartKeywords, normalized):
		return Restart
	case slices.Contains(p.ConfirmKeywords, normalized):
		return Confirm
	case stage == types.StageConfirming && slices.Contains(p.AffirmKeywords, normalized):
		return Confirm
	case slices.Contains(p.EditKeywords, normalized):
		return Edit
	default:
		return None
	}
}
