package types

import "github.com/tbxark/civicdesk/registry"

type Stage string

const (
	StageSelectingKind   Stage = "selecting_kind"
	StageCollectingField Stage = "collecting_field"
	StageConfirming      Stage = "confirming"
)

type MessagePair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ToolRequest is the prompt input shared by the model-backed components.
type ToolRequest struct {
	Kind          registry.Kind
	Stage         Stage
	Values        map[string]any
	Schema        string
	MessagePair   MessagePair
	MissingFields []registry.FieldSpec
}
