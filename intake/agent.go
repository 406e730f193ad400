package intake

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
)

var _ adk.Agent = (*Agent)(nil)

type sessionKeyContext struct{}

const defaultSessionKey = "default"

// WithSessionKey routes agent runs on ctx to the given session.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyContext{}, key)
}

func SessionKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(sessionKeyContext{}).(string)
	return key, ok && key != ""
}

// Agent exposes an Engine as an adk agent. Each run handles the last input
// message as one turn of the session named in the context.
type Agent struct {
	name        string
	description string
	engine      *Engine
}

func NewAgent(name, description string, engine *Engine) *Agent {
	return &Agent{name: name, description: description, engine: engine}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			if e := recover(); e != nil {
				gen.Send(&adk.AgentEvent{Err: fmt.Errorf("recover from panic: %v", e)})
			}
			gen.Close()
		}()
		if len(input.Messages) == 0 {
			gen.Send(&adk.AgentEvent{Err: fmt.Errorf("no messages in input")})
			return
		}
		key, ok := SessionKeyFromContext(ctx)
		if !ok {
			key = defaultSessionKey
		}
		reply, err := a.engine.Handle(ctx, Turn{
			SessionID:   key,
			SubmitterID: key,
			Message:     input.Messages[len(input.Messages)-1].Content,
		})
		if err != nil {
			gen.Send(&adk.AgentEvent{Err: fmt.Errorf("intake turn failed: %w", err)})
			return
		}
		gen.Send(&adk.AgentEvent{
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					IsStreaming: false,
					Message:     schema.AssistantMessage(reply.Text, nil),
					Role:        schema.Assistant,
				},
			},
		})
	}()
	return iter
}
