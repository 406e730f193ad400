package intake

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/civicdesk/registry"
	"github.com/tbxark/civicdesk/structured"
	"github.com/tbxark/civicdesk/types"
)

const (
	extractToolName        = "record_fields"
	extractToolDescription = "Record the field values the citizen stated explicitly."
)

const extractSystemPrompt = `You extract structured data for a government service application.
Read the citizen's message and record only the values they stated explicitly.
Do not guess or create placeholder data. Leave out every field the message does not mention.
Dates use the YYYY-MM-DD format. Numbers are plain numbers without currency symbols.

Call the '` + extractToolName + `' tool with the result.`

// ToolBasedExtractor fills fields from the opening message through a forced
// tool call whose parameters are the kind's record schema.
type ToolBasedExtractor struct {
	chatModel model.ToolCallingChatModel
}

func NewToolBasedExtractor(chatModel model.ToolCallingChatModel) *ToolBasedExtractor {
	return &ToolBasedExtractor{chatModel: chatModel}
}

func (x *ToolBasedExtractor) Extract(ctx context.Context, kind registry.Kind, message string) (map[string]any, error) {
	params := registry.JSONSchema(kind)
	params.Required = nil
	chain := structured.NewSchemaChain[string, map[string]any](
		x.chatModel,
		func(ctx context.Context, input string) ([]*schema.Message, error) {
			prompt, err := types.FormatToolRequest(&types.ToolRequest{
				Kind:          kind,
				Stage:         types.StageSelectingKind,
				MessagePair:   types.MessagePair{Answer: input},
				MissingFields: registry.Fields(kind),
			})
			if err != nil {
				return nil, fmt.Errorf("convert to prompt message failed: %w", err)
			}
			return []*schema.Message{
				schema.SystemMessage(extractSystemPrompt),
				schema.UserMessage(prompt),
			}, nil
		},
		extractToolName,
		extractToolDescription,
		params,
	)
	values, err := chain.Invoke(ctx, message)
	if err != nil {
		return nil, err
	}
	if values == nil {
		return map[string]any{}, nil
	}
	return *values, nil
}
