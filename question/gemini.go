package question

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tbxark/civicdesk/types"
	"google.golang.org/api/option"
)

// GeminiGenerator asks a Gemini model for the next question as plain text.
type GeminiGenerator struct {
	APIKey       string
	Model        string
	SystemPrompt string
}

func NewGeminiGenerator(apiKey, model string, opts ...GeneratorOption) *GeminiGenerator {
	options := generatorOptions{lang: "English", systemPrompt: DefaultSystemPrompt}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	prompt := formatSystemPrompt(options.systemPrompt, options.lang)
	// Gemini answers in text; the tool instruction does not apply.
	prompt = strings.Replace(prompt, "\n\nCall the '"+askQuestionToolName+"' tool with the result.", "", 1)
	return &GeminiGenerator{
		APIKey:       strings.TrimSpace(apiKey),
		Model:        strings.TrimSpace(model),
		SystemPrompt: prompt,
	}
}

func (g *GeminiGenerator) NextQuestion(ctx context.Context, req *types.ToolRequest) (string, error) {
	if g.APIKey == "" {
		return "", fmt.Errorf("%w: %w", ErrCapability, errors.New("GEMINI_API_KEY is empty"))
	}
	message, err := types.FormatToolRequest(req)
	if err != nil {
		return "", fmt.Errorf("convert to prompt message failed: %w", err)
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCapability, err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(g.Model)
	temperature := float32(0.3)
	m.GenerationConfig = genai.GenerationConfig{Temperature: &temperature}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(g.SystemPrompt)}}

	resp, err := m.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCapability, err)
	}
	text := strings.TrimSpace(firstText(resp))
	if text == "" {
		return "", fmt.Errorf("%w: empty gemini response", ErrCapability)
	}
	return text, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}
