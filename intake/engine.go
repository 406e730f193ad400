package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tbxark/civicdesk/command"
	"github.com/tbxark/civicdesk/question"
	"github.com/tbxark/civicdesk/record"
	"github.com/tbxark/civicdesk/registry"
	"github.com/tbxark/civicdesk/session"
	"github.com/tbxark/civicdesk/types"
)

const DefaultExtractTimeout = 15 * time.Second

// Engine drives the intake conversation of one or more submission kinds.
type Engine struct {
	kinds          []registry.Kind
	kindPrompt     string
	store          session.Store
	mutex          session.Mutex
	generator      question.Generator
	parser         command.Parser
	committer      *Committer
	extractor      Extractor
	extractTimeout time.Duration
	summarizers    map[registry.Kind]Summarizer
}

type Option func(*Engine)

// WithGenerator sets the question generator. It is wrapped in question.Guarded
// unless it already is one.
func WithGenerator(g question.Generator) Option {
	return func(e *Engine) {
		e.generator = g
	}
}

func WithCommandParser(p command.Parser) Option {
	return func(e *Engine) {
		e.parser = p
	}
}

func WithExtractor(x Extractor, timeout time.Duration) Option {
	return func(e *Engine) {
		e.extractor = x
		if timeout > 0 {
			e.extractTimeout = timeout
		}
	}
}

func WithSummarizer(kind registry.Kind, s Summarizer) Option {
	return func(e *Engine) {
		e.summarizers[kind] = s
	}
}

func WithKindPrompt(prompt string) Option {
	return func(e *Engine) {
		e.kindPrompt = prompt
	}
}

// WithCommitTimeout bounds each commit. A non-positive timeout keeps
// DefaultCommitTimeout.
func WithCommitTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.committer.timeout = timeout
		}
	}
}

// WithMutex replaces the in-process session lock, e.g. with a
// session.RedisLease when several replicas share one session store.
func WithMutex(m session.Mutex) Option {
	return func(e *Engine) {
		if m != nil {
			e.mutex = m
		}
	}
}

func NewEngine(kinds []registry.Kind, store session.Store, persistence Persistence, opts ...Option) (*Engine, error) {
	if len(kinds) == 0 {
		return nil, errors.New("intake: no submission kinds")
	}
	for _, k := range kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("intake: %w: %q", registry.ErrUnknownKind, string(k))
		}
	}
	if store == nil || persistence == nil {
		return nil, errors.New("intake: store and persistence are required")
	}
	e := &Engine{
		kinds:          kinds,
		kindPrompt:     DefaultKindPrompt(kinds),
		store:          store,
		mutex:          session.NewLocker(),
		parser:         command.NewLocalCommandParser(),
		committer:      NewCommitter(persistence, DefaultCommitTimeout),
		extractTimeout: DefaultExtractTimeout,
		summarizers:    map[registry.Kind]Summarizer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if _, ok := e.generator.(*question.Guarded); !ok {
		e.generator = question.NewGuarded(e.generator, question.DefaultTimeout)
	}
	return e, nil
}

func (e *Engine) Kinds() []registry.Kind {
	return append([]registry.Kind(nil), e.kinds...)
}

// Handle runs one turn. Calls for the same session are serialized; an error is
// returned only when the session store fails.
func (e *Engine) Handle(ctx context.Context, turn Turn) (*Reply, error) {
	unlock, err := e.mutex.Acquire(ctx, turn.SessionID)
	if err != nil {
		return nil, fmt.Errorf("lock session %q: %w", turn.SessionID, err)
	}
	defer unlock()

	state, err := e.store.GetOrCreate(ctx, turn.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", turn.SessionID, err)
	}
	if turn.SubmitterID != "" {
		state.SubmitterID = turn.SubmitterID
	}

	from := state.Stage()
	reply := e.transition(ctx, state, turn.Message)
	slog.Debug("intake transition", "session", turn.SessionID, "from", from, "to", state.Stage(), "reply", reply.Type)

	if state.Stage() == types.StageSelectingKind {
		err = e.store.Delete(ctx, turn.SessionID)
	} else {
		err = e.store.Save(ctx, turn.SessionID, state)
	}
	if err != nil {
		return nil, fmt.Errorf("save session %q: %w", turn.SessionID, err)
	}
	reply.State = state.Clone()
	return reply, nil
}

// Session returns the stored state of id without changing it.
func (e *Engine) Session(ctx context.Context, id string) (*session.State, error) {
	unlock, err := e.mutex.Acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock session %q: %w", id, err)
	}
	defer unlock()
	return e.store.GetOrCreate(ctx, id)
}

func (e *Engine) transition(ctx context.Context, state *session.State, message string) *Reply {
	cmd := e.parser.ParseCommand(state.Stage(), message)
	if cmd == command.Restart {
		state.Reset()
		return &Reply{Text: e.kindPrompt, Type: ReplyQuestion}
	}
	switch state.Stage() {
	case types.StageConfirming:
		return e.handleConfirming(ctx, state, cmd)
	case types.StageCollectingField:
		return e.handleCollecting(ctx, state, cmd, message)
	default:
		return e.handleSelecting(ctx, state, message)
	}
}

func (e *Engine) handleSelecting(ctx context.Context, state *session.State, message string) *Reply {
	kind, ok := registry.Detect(message, e.kinds)
	if !ok {
		return &Reply{Text: e.kindPrompt, Type: ReplyQuestion}
	}
	r := record.New(kind)
	if e.extractor != nil {
		r = e.prefill(ctx, r, message)
	}
	state.Kind = kind
	state.Record = &r
	state.AwaitingConfirmation = false
	state.Summary = ""

	if record.Complete(r) {
		closing, _ := e.generator.NextQuestion(ctx, e.toolRequest(state, message))
		reply := e.enterConfirmation(ctx, state)
		reply.Text = introMessage(kind) + " " + closing + "\n\n" + reply.Text
		state.LastQuestion = reply.Text
		return reply
	}
	q := e.ask(ctx, state, message)
	return &Reply{Text: introMessage(kind) + " " + q, Type: ReplyQuestion}
}

func (e *Engine) prefill(ctx context.Context, r record.Record, message string) record.Record {
	ctx, cancel := context.WithTimeout(ctx, e.extractTimeout)
	defer cancel()
	values, err := e.extractor.Extract(ctx, r.Kind, message)
	if err != nil {
		slog.Warn("field extraction failed", "kind", r.Kind, "error", err)
		return r
	}
	next, accepted := record.Prefill(r, values)
	slog.Debug("prefilled fields", "kind", r.Kind, "fields", accepted)
	return next
}

func (e *Engine) handleCollecting(ctx context.Context, state *session.State, cmd command.Command, message string) *Reply {
	if state.Record == nil {
		r := record.New(state.Kind)
		state.Record = &r
	}
	missing := record.Missing(*state.Record)
	if len(missing) == 0 {
		return e.enterConfirmation(ctx, state)
	}
	field := missing[0]
	if state.LastQuestion == "" {
		state.LastQuestion = field.Question
	}
	if cmd == command.Confirm || cmd == command.Edit {
		return &Reply{Text: state.LastQuestion, Type: ReplyQuestion}
	}

	next, err := record.ApplyValue(*state.Record, field.Name, message)
	if err != nil {
		reason := "please check the value"
		var verr *registry.ValidationError
		if errors.As(err, &verr) {
			reason = verr.Reason
		}
		slog.Debug("answer rejected", "kind", state.Kind, "field", field.Name, "error", err)
		return &Reply{Text: rejectedMessage(reason, state.LastQuestion), Type: ReplyError}
	}
	state.Record = &next
	if record.Complete(next) {
		return e.enterConfirmation(ctx, state)
	}
	return &Reply{Text: e.ask(ctx, state, message), Type: ReplyQuestion}
}

func (e *Engine) handleConfirming(ctx context.Context, state *session.State, cmd command.Command) *Reply {
	switch cmd {
	case command.Confirm:
		sub, err := e.committer.Commit(ctx, state)
		if err != nil {
			slog.Error("commit failed", "kind", state.Kind, "submitter", state.SubmitterID, "error", err)
			return &Reply{Text: commitFailedMessage, Type: ReplyError}
		}
		slog.Info("submission committed", "kind", sub.Kind, "id", sub.ID, "submitter", state.SubmitterID)
		state.Reset()
		return &Reply{Text: completeMessage(sub), Type: ReplyComplete, Submission: sub}
	case command.Edit:
		r := record.New(state.Kind)
		state.Record = &r
		state.AwaitingConfirmation = false
		state.Summary = ""
		return &Reply{Text: e.ask(ctx, state, ""), Type: ReplyQuestion}
	default:
		return &Reply{Text: state.LastQuestion, Type: ReplyConfirmation}
	}
}

func (e *Engine) enterConfirmation(ctx context.Context, state *session.State) *Reply {
	summary := record.Summary(*state.Record)
	drafted := false
	if s, ok := e.summarizers[state.Kind]; ok {
		draft, err := s.Summarize(ctx, *state.Record)
		if err != nil {
			slog.Warn("summarizer failed", "kind", state.Kind, "error", err)
		} else if draft != "" {
			summary, drafted = draft, true
		}
	}
	text := confirmationMessage(state.Kind, summary, drafted)
	state.Summary = summary
	state.AwaitingConfirmation = true
	state.LastQuestion = text
	return &Reply{Text: text, Type: ReplyConfirmation}
}

func (e *Engine) ask(ctx context.Context, state *session.State, answer string) string {
	q, err := e.generator.NextQuestion(ctx, e.toolRequest(state, answer))
	if err != nil || q == "" {
		q, _ = question.LocalGenerator{}.NextQuestion(ctx, e.toolRequest(state, answer))
	}
	state.LastQuestion = q
	return q
}

func (e *Engine) toolRequest(state *session.State, answer string) *types.ToolRequest {
	req := &types.ToolRequest{
		Kind:        state.Kind,
		Stage:       state.Stage(),
		MessagePair: types.MessagePair{Question: state.LastQuestion, Answer: answer},
	}
	if state.Record != nil {
		req.Values = state.Record.Values
		req.MissingFields = record.Missing(*state.Record)
	}
	if state.Kind != "" {
		if s, err := registry.JSONSchemaString(state.Kind); err == nil {
			req.Schema = s
		}
	}
	return req
}
