package command

import (
	"testing"

	"github.com/tbxark/civicdesk/types"
)

func TestLocalCommandParser(t *testing.T) {
	p := NewLocalCommandParser()
	cases := []struct {
		stage types.Stage
		input string
		want  Command
	}{
		{types.StageConfirming, "confirm", Confirm},
		{types.StageConfirming, "  CONFIRM ", Confirm},
		{types.StageConfirming, "Yes", Confirm},
		{types.StageConfirming, "edit", Edit},
		{types.StageConfirming, "Edit", Edit},
		{types.StageConfirming, "restart", Restart},
		{types.StageCollectingField, "Start Over", Restart},
		{types.StageCollectingField, "reset", Restart},
		{types.StageCollectingField, "confirm", Confirm},
		{types.StageCollectingField, "edit", Edit},
		{types.StageCollectingField, "Yes", None},
		{types.StageCollectingField, "cancel", None},
		{types.StageSelectingKind, "yes", None},
		{types.StageConfirming, "confirm please", None},
		{types.StageConfirming, "I want to edit", None},
		{types.StageSelectingKind, "Birth Certificate", None},
		{types.StageSelectingKind, "", None},
	}
	for _, c := range cases {
		if got := p.ParseCommand(c.stage, c.input); got != c.want {
			t.Errorf("ParseCommand(%s, %q) = %q, want %q", c.stage, c.input, got, c.want)
		}
	}
}
