package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/civicdesk/question"
	"github.com/tbxark/civicdesk/record"
	"github.com/tbxark/civicdesk/registry"
	"github.com/tbxark/civicdesk/session"
	"github.com/tbxark/civicdesk/types"
)

type memoryPersistence struct {
	mu       sync.Mutex
	saved    []Submission
	failures int
}

func (p *memoryPersistence) SaveSubmission(ctx context.Context, sub Submission) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return "", errors.New("database is locked")
	}
	p.saved = append(p.saved, sub)
	return fmt.Sprint(len(p.saved)), nil
}

func (p *memoryPersistence) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saved)
}

func newTestEngine(t *testing.T, kinds []registry.Kind, p Persistence, opts ...Option) *Engine {
	t.Helper()
	store, _ := session.NewMemoryStore("test", 0)
	opts = append([]Option{WithGenerator(question.LocalGenerator{})}, opts...)
	engine, err := NewEngine(kinds, store, p, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func send(t *testing.T, e *Engine, sessionID, message string) *Reply {
	t.Helper()
	reply, err := e.Handle(context.Background(), Turn{SessionID: sessionID, SubmitterID: "user-1", Message: message})
	if err != nil {
		t.Fatalf("Handle(%q): %v", message, err)
	}
	return reply
}

var birthAnswers = []string{"Asha Menon", "1990-05-17", "Kochi", "Vijay Menon", "Lakshmi Menon"}

func TestBirthCertificateHappyPath(t *testing.T) {
	p := &memoryPersistence{}
	e := newTestEngine(t, registry.CertificateKinds, p)
	fields := registry.Fields(registry.BirthCertificate)

	reply := send(t, e, "s1", "Birth Certificate")
	if reply.State.Stage() != types.StageCollectingField {
		t.Fatalf("stage = %s", reply.State.Stage())
	}
	if !strings.Contains(reply.Text, fields[0].Question) {
		t.Fatalf("first reply does not ask for full_name: %q", reply.Text)
	}

	for i, answer := range birthAnswers {
		reply = send(t, e, "s1", answer)
		if i < len(birthAnswers)-1 {
			if reply.Type != ReplyQuestion || reply.Text != fields[i+1].Question {
				t.Fatalf("turn %d reply = %q", i+2, reply.Text)
			}
		}
	}
	if reply.Type != ReplyConfirmation || reply.State.Stage() != types.StageConfirming {
		t.Fatalf("expected confirmation, got %s %q", reply.Type, reply.Text)
	}
	for _, answer := range birthAnswers {
		if !strings.Contains(reply.Text, answer) {
			t.Errorf("summary is missing %q:\n%s", answer, reply.Text)
		}
	}

	reply = send(t, e, "s1", "Confirm")
	if reply.Type != ReplyComplete || !strings.Contains(reply.Text, "application ID is: 1") {
		t.Fatalf("commit reply = %q", reply.Text)
	}
	if reply.State.Stage() != types.StageSelectingKind || reply.State.Record != nil {
		t.Fatalf("state not cleared: %+v", reply.State)
	}
	if p.count() != 1 {
		t.Fatalf("saved %d submissions", p.count())
	}
	sub := p.saved[0]
	if sub.Kind != registry.BirthCertificate || sub.SubmitterID != "user-1" || sub.Values["date_of_birth"] != "1990-05-17" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if reply.Submission == nil || reply.Submission.ID != "1" {
		t.Fatalf("submission = %+v", reply.Submission)
	}
}

func TestInvalidDateIsReasked(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{})
	send(t, e, "s1", "birth certificate")
	send(t, e, "s1", "Asha Menon")

	reply := send(t, e, "s1", "17th of May")
	if reply.Type != ReplyError {
		t.Fatalf("type = %s", reply.Type)
	}
	if !strings.Contains(reply.Text, "YYYY-MM-DD") || !strings.HasSuffix(reply.Text, "What is the date of birth (YYYY-MM-DD)?") {
		t.Fatalf("reply = %q", reply.Text)
	}
	if _, ok := reply.State.Record.Get("date_of_birth"); ok {
		t.Fatal("rejected value was stored")
	}

	reply = send(t, e, "s1", "1990-05-17")
	if reply.Text != "Where was the person born?" {
		t.Fatalf("did not advance after a valid date: %q", reply.Text)
	}
}

func TestConfirmOutsideConfirmingDoesNotCommit(t *testing.T) {
	p := &memoryPersistence{}
	e := newTestEngine(t, registry.CertificateKinds, p)

	reply := send(t, e, "s1", "confirm")
	if reply.State.Stage() != types.StageSelectingKind || !strings.Contains(reply.Text, "- Income Certificate") {
		t.Fatalf("selecting reply = %q", reply.Text)
	}

	send(t, e, "s1", "Death Certificate")
	for _, msg := range []string{"confirm", "edit"} {
		reply = send(t, e, "s1", msg)
		if reply.Text != "What is the name of the deceased?" {
			t.Fatalf("%s re-prompt = %q", msg, reply.Text)
		}
		if len(reply.State.Record.Values) != 0 {
			t.Fatalf("%s wrote a field: %v", msg, reply.State.Record.Values)
		}
	}
	if p.count() != 0 {
		t.Fatal("premature commit")
	}
}

func fillBirth(t *testing.T, e *Engine, id string) *Reply {
	t.Helper()
	send(t, e, id, "Birth Certificate")
	var reply *Reply
	for _, answer := range birthAnswers {
		reply = send(t, e, id, answer)
	}
	return reply
}

func TestEditClearsRecordKeepsKind(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{})
	fillBirth(t, e, "s1")

	reply := send(t, e, "s1", "EDIT")
	if reply.State.Stage() != types.StageCollectingField || reply.State.Kind != registry.BirthCertificate {
		t.Fatalf("state after edit = %+v", reply.State)
	}
	if len(record.Missing(*reply.State.Record)) != 5 {
		t.Fatal("edit must clear the record")
	}
	if reply.Text != registry.Fields(registry.BirthCertificate)[0].Question {
		t.Fatalf("edit reply = %q", reply.Text)
	}
}

func TestOtherInputWhileConfirmingReshowsSummary(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{})
	summary := fillBirth(t, e, "s1").Text

	reply := send(t, e, "s1", "what happens next?")
	if reply.Type != ReplyConfirmation || reply.Text != summary {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestCommitFailureKeepsState(t *testing.T) {
	p := &memoryPersistence{failures: 1}
	e := newTestEngine(t, registry.CertificateKinds, p)
	fillBirth(t, e, "s1")

	reply := send(t, e, "s1", "confirm")
	if reply.Type != ReplyError || reply.Text != commitFailedMessage {
		t.Fatalf("failure reply = %q", reply.Text)
	}
	if reply.State.Stage() != types.StageConfirming {
		t.Fatalf("stage after failure = %s", reply.State.Stage())
	}

	reply = send(t, e, "s1", "confirm")
	if reply.Type != ReplyComplete {
		t.Fatalf("retry reply = %q", reply.Text)
	}
	if p.count() != 1 {
		t.Fatalf("saved %d submissions", p.count())
	}
}

func TestRestartFromAnyStage(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{})
	send(t, e, "s1", "Land Certificate")
	send(t, e, "s1", "12 Beach Road")
	reply := send(t, e, "s1", "Start over")
	if reply.State.Stage() != types.StageSelectingKind || reply.State.Kind != "" {
		t.Fatalf("restart left %+v", reply.State)
	}

	fillBirth(t, e, "s1")
	reply = send(t, e, "s1", "reset")
	if reply.State.Stage() != types.StageSelectingKind {
		t.Fatalf("reset from confirming left %s", reply.State.Stage())
	}
}

func TestUnrecognizedKindKeepsPrompting(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{})
	for _, msg := range []string{"hi", "passport", "I need a certificate", ""} {
		reply := send(t, e, "s1", msg)
		if reply.State.Stage() != types.StageSelectingKind || reply.Text != DefaultKindPrompt(registry.CertificateKinds) {
			t.Fatalf("%q -> %q", msg, reply.Text)
		}
	}
}

func TestConcurrentAnswersSameSession(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{})
	send(t, e, "s1", "Land Certificate")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Handle(context.Background(), Turn{SessionID: "s1", Message: "1200"}); err != nil {
				t.Errorf("Handle: %v", err)
			}
		}()
	}
	wg.Wait()

	state, err := e.Session(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if state.Stage() != types.StageConfirming {
		t.Fatalf("lost updates: stage %s, values %v", state.Stage(), state.Record.Values)
	}
	if len(state.Record.Values) != 5 {
		t.Fatalf("values = %v", state.Record.Values)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{})
	send(t, e, "a", "Income Certificate")
	reply := send(t, e, "b", "Ravi")
	if reply.State.Stage() != types.StageSelectingKind {
		t.Fatal("session b picked up session a's kind")
	}
}

type stubExtractor struct {
	values map[string]any
	err    error
}

func (s stubExtractor) Extract(ctx context.Context, kind registry.Kind, message string) (map[string]any, error) {
	return s.values, s.err
}

func TestExtractorPrefillsOnSelection(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{}, WithExtractor(stubExtractor{values: map[string]any{
		"full_name":     "Asha Menon",
		"date_of_birth": "not a date",
	}}, time.Second))

	reply := send(t, e, "s1", "Birth certificate for Asha Menon")
	if v, _ := reply.State.Record.Get("full_name"); v != "Asha Menon" {
		t.Fatalf("full_name = %v", v)
	}
	if !strings.HasSuffix(reply.Text, "What is the date of birth (YYYY-MM-DD)?") {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestExtractorFillingEverythingGoesToConfirmation(t *testing.T) {
	values := map[string]any{}
	for i, f := range registry.Fields(registry.BirthCertificate) {
		values[f.Name] = birthAnswers[i]
	}
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{}, WithExtractor(stubExtractor{values: values}, time.Second))

	reply := send(t, e, "s1", "Birth Certificate please")
	if reply.Type != ReplyConfirmation || reply.State.Stage() != types.StageConfirming {
		t.Fatalf("reply = %s %q", reply.Type, reply.Text)
	}
	if !strings.Contains(reply.Text, question.ClosingMessage) {
		t.Fatalf("closing message missing: %q", reply.Text)
	}
}

func TestExtractorFailureIsIgnored(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{}, WithExtractor(stubExtractor{err: errors.New("timeout")}, time.Second))
	reply := send(t, e, "s1", "Income Certificate")
	if reply.State.Stage() != types.StageCollectingField || len(reply.State.Record.Values) != 0 {
		t.Fatalf("state = %+v", reply.State)
	}
}

type failingGenerator struct{}

func (failingGenerator) NextQuestion(ctx context.Context, req *types.ToolRequest) (string, error) {
	return "", question.ErrCapability
}

func TestGeneratorFailureFallsBack(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{}, WithGenerator(failingGenerator{}))
	reply := send(t, e, "s1", "Income Certificate")
	if !strings.HasSuffix(reply.Text, "What is the name of the applicant?") {
		t.Fatalf("reply = %q", reply.Text)
	}
}

type stubSummarizer struct{ draft string }

func (s stubSummarizer) Summarize(ctx context.Context, r record.Record) (string, error) {
	return s.draft, nil
}

func TestComplaintFlowWithSummarizer(t *testing.T) {
	p := &memoryPersistence{}
	e := newTestEngine(t, registry.ComplaintKinds, p,
		WithSummarizer(registry.Complaint, stubSummarizer{draft: "Respected Sir/Madam, the street light is broken."}),
		WithKindPrompt("Please start with 'hi' to begin the process."),
	)

	reply := send(t, e, "c1", "street light")
	if reply.Text != "Please start with 'hi' to begin the process." {
		t.Fatalf("reply = %q", reply.Text)
	}
	reply = send(t, e, "c1", "Hi")
	if !strings.HasPrefix(reply.Text, "I'll help you file a complaint.") {
		t.Fatalf("reply = %q", reply.Text)
	}
	for _, answer := range []string{"Street light broken", "Last week", "Called the office", "No", "Ravi"} {
		send(t, e, "c1", answer)
	}
	reply = send(t, e, "c1", "not a phone")
	if reply.Type != ReplyError {
		t.Fatalf("phone accepted: %q", reply.Text)
	}
	reply = send(t, e, "c1", "+91 98470 12345")
	if reply.Type != ReplyConfirmation || !strings.HasPrefix(reply.Text, "Respected Sir/Madam") {
		t.Fatalf("confirmation = %q", reply.Text)
	}
	reply = send(t, e, "c1", "yes")
	if reply.Type != ReplyComplete || !strings.Contains(reply.Text, "complaint has been submitted successfully with ID 1") {
		t.Fatalf("complete = %q", reply.Text)
	}
	if p.saved[0].Summary != "Respected Sir/Madam, the street light is broken." {
		t.Fatalf("summary = %q", p.saved[0].Summary)
	}
}

type failingStore struct{ session.Store }

func (failingStore) GetOrCreate(ctx context.Context, id string) (*session.State, error) {
	return nil, errors.New("connection refused")
}

func TestStoreFailureIsReturned(t *testing.T) {
	e, err := NewEngine(registry.CertificateKinds, failingStore{}, &memoryPersistence{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := e.Handle(context.Background(), Turn{SessionID: "s1", Message: "hi"}); err == nil {
		t.Fatal("expected store error")
	}
}

func TestNewEngineRejectsUnknownKind(t *testing.T) {
	store, _ := session.NewMemoryStore("test", 0)
	if _, err := NewEngine([]registry.Kind{"Passport"}, store, &memoryPersistence{}); !errors.Is(err, registry.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestCommitterErrors(t *testing.T) {
	c := NewCommitter(PersistenceFunc(func(ctx context.Context, sub Submission) (string, error) {
		return "", context.DeadlineExceeded
	}), time.Second)
	r := record.New(registry.DeathCertificate)
	_, err := c.Commit(context.Background(), &session.State{Kind: registry.DeathCertificate, Record: &r})
	var commitErr *CommitError
	if !errors.As(err, &commitErr) || !errors.Is(err, ErrIncomplete) {
		t.Fatalf("incomplete record: %v", err)
	}

	r, _ = record.Prefill(r, map[string]any{"name": "A", "date_of_death": "2024-01-02", "place_of_death": "B", "cause_of_death": "C"})
	_, err = c.Commit(context.Background(), &session.State{Kind: registry.DeathCertificate, Record: &r})
	if !errors.As(err, &commitErr) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("persistence failure: %v", err)
	}
}

func TestAgentRun(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{})
	agent := NewAgent("CertificateDesk", "Collects certificate applications", e)
	ctx := WithSessionKey(context.Background(), "agent-session")

	iter := agent.Run(ctx, &adk.AgentInput{Messages: []adk.Message{schema.UserMessage("Death Certificate")}})
	event, ok := iter.Next()
	if !ok {
		t.Fatal("no event")
	}
	if event.Err != nil {
		t.Fatalf("event error: %v", event.Err)
	}
	msg, err := event.Output.MessageOutput.GetMessage()
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if !strings.Contains(msg.Content, "What is the name of the deceased?") {
		t.Fatalf("content = %q", msg.Content)
	}
	state, _ := e.Session(context.Background(), "agent-session")
	if state.Kind != registry.DeathCertificate {
		t.Fatalf("agent did not use the context session: %+v", state)
	}
}

func TestYesAndCancelAreFieldAnswersWhileCollecting(t *testing.T) {
	p := &memoryPersistence{}
	e := newTestEngine(t, registry.ComplaintKinds, p)

	send(t, e, "c1", "hi")
	send(t, e, "c1", "Street light broken")
	send(t, e, "c1", "Last week")
	reply := send(t, e, "c1", "Yes")
	if v, _ := reply.State.Record.Get("detail_2"); v != "Yes" {
		t.Fatalf("detail_2 = %v, reply %q", v, reply.Text)
	}
	reply = send(t, e, "c1", "Cancel")
	if reply.State.Stage() != types.StageCollectingField {
		t.Fatalf("stage after cancel answer = %s", reply.State.Stage())
	}
	if v, _ := reply.State.Record.Get("detail_3"); v != "Cancel" {
		t.Fatalf("detail_3 = %v", v)
	}
	send(t, e, "c1", "Ravi")
	reply = send(t, e, "c1", "9847012345")
	if reply.Type != ReplyConfirmation {
		t.Fatalf("reply = %q", reply.Text)
	}
	reply = send(t, e, "c1", "yes")
	if reply.Type != ReplyComplete || p.count() != 1 {
		t.Fatalf("yes did not confirm: %q", reply.Text)
	}
}

func TestWithCommitTimeoutIgnoresNonPositive(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{}, WithCommitTimeout(0))
	if e.committer.timeout != DefaultCommitTimeout {
		t.Fatalf("timeout = %v", e.committer.timeout)
	}
	fillBirth(t, e, "s1")
	if reply := send(t, e, "s1", "confirm"); reply.Type != ReplyComplete {
		t.Fatalf("commit with zero timeout option failed: %q", reply.Text)
	}

	e = newTestEngine(t, registry.CertificateKinds, &memoryPersistence{}, WithCommitTimeout(time.Second))
	if e.committer.timeout != time.Second {
		t.Fatalf("timeout = %v", e.committer.timeout)
	}
}

type failingMutex struct{}

func (failingMutex) Acquire(ctx context.Context, key string) (func(), error) {
	return nil, errors.New("lease unavailable")
}

func TestMutexFailureIsReturned(t *testing.T) {
	e := newTestEngine(t, registry.CertificateKinds, &memoryPersistence{}, WithMutex(failingMutex{}))
	if _, err := e.Handle(context.Background(), Turn{SessionID: "s1", Message: "Birth Certificate"}); err == nil {
		t.Fatal("expected lock error")
	}
	if _, err := e.Session(context.Background(), "s1"); err == nil {
		t.Fatal("expected lock error from Session")
	}
}
