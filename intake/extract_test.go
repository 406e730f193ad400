package intake

import (
	"context"
	"strings"
	"testing"

	"github.com/tbxark/civicdesk/internal/llmtest"
	"github.com/tbxark/civicdesk/question"
	"github.com/tbxark/civicdesk/registry"
)

func TestToolBasedExtractor(t *testing.T) {
	fake := llmtest.NewFakeChatModel(llmtest.ToolCall(extractToolName, map[string]any{
		"name":          "Ravi Kumar",
		"annual_income": 250000,
	}))
	x := NewToolBasedExtractor(fake)
	values, err := x.Extract(context.Background(), registry.IncomeCertificate, "Income certificate for Ravi Kumar, I earn 250000 a year")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if values["name"] != "Ravi Kumar" || values["annual_income"] != 250000.0 {
		t.Fatalf("values = %#v", values)
	}
	calls := fake.Calls()
	if len(calls) != 1 || !strings.Contains(calls[0][1].Content, "I earn 250000") {
		t.Fatalf("prompt = %v", calls)
	}
}

// TestLiveCertificateConversation runs a short conversation against a real model.
func TestLiveCertificateConversation(t *testing.T) {
	chatModel := llmtest.InitChatModel(t)
	if chatModel == nil {
		return
	}
	gen, err := question.NewToolBasedGenerator(chatModel)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{},
		WithGenerator(gen),
		WithExtractor(NewToolBasedExtractor(chatModel), 0),
	)

	reply := send(t, e, "live", "I need a Birth Certificate for Asha Menon, born 1990-05-17 in Kochi")
	t.Logf("reply: %s", reply.Text)
	if reply.State.Kind != registry.BirthCertificate {
		t.Fatalf("kind = %q", reply.State.Kind)
	}
	if v, _ := reply.State.Record.Get("date_of_birth"); v != "1990-05-17" {
		t.Errorf("date_of_birth = %v", v)
	}
	for _, answer := range []string{"Vijay Menon", "Lakshmi Menon"} {
		reply = send(t, e, "live", answer)
		t.Logf("reply: %s", reply.Text)
	}
}
