package command

import "github.com/tbxark/civicdesk/types"

type Command string

const (
	Restart Command = "restart"
	Confirm Command = "confirm"
	Edit    Command = "edit"
	None    Command = "none"
)

// Parser maps a message to a command. The stage decides which words count, so
// a field answer such as "yes" is not mistaken for a confirmation.
type Parser interface {
	ParseCommand(stage types.Stage, input string) Command
}
