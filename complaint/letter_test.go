package complaint

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbxark/civicdesk/internal/llmtest"
	"github.com/tbxark/civicdesk/record"
	"github.com/tbxark/civicdesk/registry"
)

func complaintRecord() record.Record {
	r, _ := record.Prefill(record.New(registry.Complaint), map[string]any{
		"short_description": "broken street light",
		"detail_1":          "Two weeks ago",
		"detail_2":          "I called the ward office.",
		"detail_3":          "The road is dark at night.",
		"name":              "Ravi",
		"phone":             "9847012345",
	})
	return r
}

func TestLetterWriterUsesModel(t *testing.T) {
	fake := llmtest.NewFakeChatModel(llmtest.Text("  The street light near my house has not worked for two weeks.  "))
	w := NewLetterWriter(fake, time.Second)
	got, err := w.Summarize(context.Background(), complaintRecord())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := "Name: Ravi\nPhone: 9847012345\n\nTitle: Complaint Regarding broken street light\n\nRespected Sir/Madam,\n\nThe street light near my house has not worked for two weeks.\n\nThank you."
	if got != want {
		t.Fatalf("letter =\n%s\nwant\n%s", got, want)
	}
	prompt := fake.Calls()[0][1].Content
	if !strings.Contains(prompt, "- I called the ward office.") {
		t.Fatalf("prompt missing details:\n%s", prompt)
	}
}

func TestLetterWriterFallback(t *testing.T) {
	fake := llmtest.NewFakeChatModel().FailWith(errors.New("rate limited"))
	w := NewLetterWriter(fake, time.Second)
	letter := w.Draft(context.Background(), complaintRecord())
	want := "I am writing to report an issue regarding broken street light. Two weeks ago I called the ward office. The road is dark at night."
	if letter.Paragraph != want {
		t.Fatalf("paragraph = %q", letter.Paragraph)
	}

	letter = NewLetterWriter(nil, 0).Draft(context.Background(), complaintRecord())
	if letter.Paragraph != want {
		t.Fatalf("nil model paragraph = %q", letter.Paragraph)
	}
}

func TestLetterWriterRejectsCertificates(t *testing.T) {
	w := NewLetterWriter(nil, 0)
	if _, err := w.Summarize(context.Background(), record.New(registry.BirthCertificate)); err == nil {
		t.Fatal("expected error for a certificate record")
	}
}
