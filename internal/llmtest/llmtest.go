// Package llmtest provides chat models for tests: a scripted fake and the live
// OpenAI-compatible model gated on CIVICDESK_RUN_LIVE_TESTS.
package llmtest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var ErrScriptExhausted = errors.New("fake chat model has no more responses")

var _ model.ToolCallingChatModel = (*FakeChatModel)(nil)

// FakeChatModel replays scripted responses in order and records every prompt.
type FakeChatModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	errs      []error
	calls     [][]*schema.Message
	tools     []*schema.ToolInfo
	// Block makes Generate wait for ctx cancellation.
	Block bool
}

func NewFakeChatModel(responses ...*schema.Message) *FakeChatModel {
	return &FakeChatModel{responses: responses}
}

// FailWith queues an error returned by the next Generate call instead of a response.
func (m *FakeChatModel) FailWith(err error) *FakeChatModel {
	m.mu.Lock()
	m.errs = append(m.errs, err)
	m.mu.Unlock()
	return m
}

func (m *FakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls = append(m.calls, input)
	block := m.Block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	if len(m.responses) == 0 {
		return nil, ErrScriptExhausted
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *FakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *FakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	m.tools = tools
	m.mu.Unlock()
	return m, nil
}

// Calls returns the prompts received so far.
func (m *FakeChatModel) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]*schema.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// ToolCall builds an assistant message calling tool with args encoded as JSON.
func ToolCall(tool string, args any) *schema.Message {
	b, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       "call_1",
			Function: schema.FunctionCall{Name: tool, Arguments: string(b)},
		}},
	}
}

func Text(content string) *schema.Message {
	return schema.AssistantMessage(content, nil)
}

type Config struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Config
	if err := json.Unmarshal(file, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// InitChatModel returns the live model configured in CIVICDESK_LLM_CONFIG
// (default ../config.json) or skips the test.
func InitChatModel(t *testing.T) *openai.ChatModel {
	t.Helper()
	if os.Getenv("CIVICDESK_RUN_LIVE_TESTS") != "1" {
		t.Skip("set CIVICDESK_RUN_LIVE_TESTS=1 to run live LLM tests")
		return nil
	}
	path := os.Getenv("CIVICDESK_LLM_CONFIG")
	if path == "" {
		path = "../config.json"
	}
	conf, err := loadConfig(path)
	if err != nil {
		t.Skipf("failed to load config: %v", err)
		return nil
	}
	if conf.APIKey == "" {
		t.Skip("config api_key is empty")
		return nil
	}
	chatModel, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		APIKey:  conf.APIKey,
		Model:   conf.Model,
		BaseURL: conf.BaseURL,
	})
	if err != nil {
		t.Fatalf("failed to init chat model: %v", err)
		return nil
	}
	return chatModel
}
