package complaint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/civicdesk/record"
	"github.com/tbxark/civicdesk/registry"
)

// KindPrompt is shown until the citizen starts the complaint flow.
const KindPrompt = "I didn't understand that. Please start with 'hi' to begin the process."

const DefaultTimeout = 20 * time.Second

const letterPrompt = `Based on the following information, generate a formal complaint letter paragraph.
Make it professional, clear, and concise. Reply with the paragraph only, without greeting, title or signature.`

// Letter holds the parts of a complaint letter.
type Letter struct {
	Name             string
	Phone            string
	ShortDescription string
	Paragraph        string
}

func (l Letter) String() string {
	return fmt.Sprintf("Name: %s\nPhone: %s\n\nTitle: Complaint Regarding %s\n\nRespected Sir/Madam,\n\n%s\n\nThank you.",
		l.Name, l.Phone, l.ShortDescription, l.Paragraph)
}

// LetterWriter drafts formal complaint letters. Without a chat model, or when
// the model fails, the paragraph is assembled from the citizen's own answers.
type LetterWriter struct {
	chatModel model.BaseChatModel
	timeout   time.Duration
}

func NewLetterWriter(chatModel model.BaseChatModel, timeout time.Duration) *LetterWriter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LetterWriter{chatModel: chatModel, timeout: timeout}
}

// Summarize implements the intake summarizer for complaint records.
func (w *LetterWriter) Summarize(ctx context.Context, r record.Record) (string, error) {
	if r.Kind != registry.Complaint {
		return "", fmt.Errorf("%w: %s is not a complaint", registry.ErrUnknownKind, r.Kind)
	}
	return w.Draft(ctx, r).String(), nil
}

func (w *LetterWriter) Draft(ctx context.Context, r record.Record) Letter {
	letter := Letter{
		Name:             text(r, "name"),
		Phone:            text(r, "phone"),
		ShortDescription: text(r, "short_description"),
	}
	letter.Paragraph = w.paragraph(ctx, r, letter)
	return letter
}

func (w *LetterWriter) paragraph(ctx context.Context, r record.Record, letter Letter) string {
	fallback := fallbackParagraph(r, letter.ShortDescription)
	if w.chatModel == nil {
		return fallback
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	resp, err := w.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(letterPrompt),
		schema.UserMessage(letterContext(r, letter)),
	})
	if err != nil {
		slog.Warn("complaint letter generation failed", "error", err)
		return fallback
	}
	paragraph := strings.TrimSpace(resp.Content)
	if paragraph == "" {
		return fallback
	}
	return paragraph
}

func letterContext(r record.Record, letter Letter) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "User's Name: %s\n", letter.Name)
	fmt.Fprintf(&sb, "User's Phone: %s\n", letter.Phone)
	fmt.Fprintf(&sb, "Short Description of the Issue: %s\n", letter.ShortDescription)
	sb.WriteString("Details Provided by the User:\n")
	for _, d := range details(r) {
		fmt.Fprintf(&sb, "- %s\n", d)
	}
	return sb.String()
}

func fallbackParagraph(r record.Record, shortDescription string) string {
	parts := append([]string{fmt.Sprintf("I am writing to report an issue regarding %s.", shortDescription)}, details(r)...)
	return strings.Join(parts, " ")
}

func details(r record.Record) []string {
	var out []string
	for _, name := range []string{"detail_1", "detail_2", "detail_3"} {
		if v := text(r, name); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func text(r record.Record, field string) string {
	v, ok := r.Get(field)
	if !ok {
		return ""
	}
	return record.FormatValue(v)
}
