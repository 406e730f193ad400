package question

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/civicdesk/structured"
	"github.com/tbxark/civicdesk/types"
)

const (
	askQuestionToolName        = "ask_next_question"
	askQuestionToolDescription = "Ask the citizen for the next missing piece of information."
)

// DefaultSystemPrompt is used by ToolBasedGenerator. It may contain a single
// "%s" placeholder for the language.
const DefaultSystemPrompt = `You are helping a citizen with a government service application.
Below are the fields of information still missing. Ask for the first missing field in a conversational way.
For subsequent questions, ask directly without repeating phrases.
Keep each question concise, a single sentence ending with a question mark, and under 150 characters.
Do not greet the user and do not say "Hi".
If no fields are missing, thank the user.
Reply in %s.

Call the '` + askQuestionToolName + `' tool with the result.`

type askQuestionArgs struct {
	Question string `json:"question" jsonschema:"required,description=The next question to ask the citizen"`
}

type generatorOptions struct {
	lang         string
	systemPrompt string
}

type GeneratorOption func(*generatorOptions)

func WithLang(lang string) GeneratorOption {
	return func(o *generatorOptions) {
		o.lang = lang
	}
}

func WithSystemPrompt(systemPrompt string) GeneratorOption {
	return func(o *generatorOptions) {
		o.systemPrompt = systemPrompt
	}
}

// ToolBasedGenerator asks a tool calling chat model for the next question.
type ToolBasedGenerator struct {
	chain *structured.Chain[*types.ToolRequest, askQuestionArgs]
}

func NewToolBasedGenerator(chatModel model.ToolCallingChatModel, opts ...GeneratorOption) (*ToolBasedGenerator, error) {
	options := generatorOptions{lang: "English", systemPrompt: DefaultSystemPrompt}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	systemPrompt := formatSystemPrompt(options.systemPrompt, options.lang)
	chain, err := structured.NewChain[*types.ToolRequest, askQuestionArgs](
		chatModel,
		func(ctx context.Context, req *types.ToolRequest) ([]*schema.Message, error) {
			message, err := types.FormatToolRequest(req)
			if err != nil {
				return nil, fmt.Errorf("convert to prompt message failed: %w", err)
			}
			return []*schema.Message{
				schema.SystemMessage(systemPrompt),
				schema.UserMessage(message),
			}, nil
		},
		askQuestionToolName,
		askQuestionToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedGenerator{chain: chain}, nil
}

func (g *ToolBasedGenerator) NextQuestion(ctx context.Context, req *types.ToolRequest) (string, error) {
	result, err := g.chain.Invoke(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCapability, err)
	}
	if result == nil || result.Question == "" {
		return "", fmt.Errorf("%w: empty question returned by %s", ErrCapability, askQuestionToolName)
	}
	return result.Question, nil
}
