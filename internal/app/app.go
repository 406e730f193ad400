// Package app wires configuration into the stores, engines and services shared
// by the civicdesk binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/redis/go-redis/v9"

	"github.com/tbxark/civicdesk/certificate"
	"github.com/tbxark/civicdesk/complaint"
	"github.com/tbxark/civicdesk/config"
	"github.com/tbxark/civicdesk/intake"
	"github.com/tbxark/civicdesk/objectstore"
	"github.com/tbxark/civicdesk/question"
	"github.com/tbxark/civicdesk/registry"
	"github.com/tbxark/civicdesk/session"
	"github.com/tbxark/civicdesk/store"
)

const sweepInterval = time.Minute

type App struct {
	Config       *config.Config
	DB           *store.DB
	Certificates *intake.Engine
	Complaints   *intake.Engine
	Objects      objectstore.Store
	Documents    *certificate.Service
	// Files is set when objects live on the local disk.
	Files *objectstore.FileStore

	closers []func() error
}

// Build opens every dependency named by conf. Background work started here
// stops when ctx is done.
func Build(ctx context.Context, conf *config.Config) (*App, error) {
	a := &App{Config: conf}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	conf := a.Config

	db, err := store.Open(ctx, store.Dialect(conf.Database.Driver), conf.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	certs, complaints, err := a.sessions(ctx)
	if err != nil {
		return err
	}

	opts, letters, err := a.llmOptions(ctx)
	if err != nil {
		return err
	}
	certOpts := append([]intake.Option{intake.WithMutex(certs.mutex)}, opts...)
	a.Certificates, err = intake.NewEngine(registry.CertificateKinds, certs.store, db, certOpts...)
	if err != nil {
		return err
	}
	complaintOpts := append([]intake.Option{
		intake.WithMutex(complaints.mutex),
		intake.WithKindPrompt(complaint.KindPrompt),
		intake.WithSummarizer(registry.Complaint, letters),
	}, opts...)
	a.Complaints, err = intake.NewEngine(registry.ComplaintKinds, complaints.store, db, complaintOpts...)
	if err != nil {
		return err
	}

	a.Objects, err = objectstore.New(ctx, conf.Storage.Config)
	if err != nil {
		return fmt.Errorf("open object store: %w", err)
	}
	if c, ok := a.Objects.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
	if fs, ok := a.Objects.(*objectstore.FileStore); ok {
		a.Files = fs
	}
	a.Documents = certificate.NewService(db, a.Objects, nil, conf.Storage.URLTTL.Std())

	slog.Info("civicdesk ready",
		"database", conf.Database.Driver,
		"sessions", conf.Session.Backend,
		"llm", conf.LLM.Provider,
		"storage", conf.Storage.Backend,
	)
	return nil
}

// flowSessions is the session backing of one engine. A nil mutex keeps the
// engine's in-process locker.
type flowSessions struct {
	store session.Store
	mutex session.Mutex
}

func (a *App) sessions(ctx context.Context) (certs, complaints flowSessions, err error) {
	conf := a.Config.Session
	ttl := conf.TTL.Std()
	switch conf.Backend {
	case config.SessionRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return certs, complaints, fmt.Errorf("redis ping: %w", err)
		}
		certs = flowSessions{
			store: session.NewRedisStore(client, "certificate", ttl),
			mutex: session.NewRedisLease(client, "certificate", session.DefaultLeaseTTL),
		}
		complaints = flowSessions{
			store: session.NewRedisStore(client, "complaint", ttl),
			mutex: session.NewRedisLease(client, "complaint", session.DefaultLeaseTTL),
		}
		return certs, complaints, nil
	default:
		certStore, certCache := session.NewMemoryStore("certificate", ttl)
		complaintStore, complaintCache := session.NewMemoryStore("complaint", ttl)
		if ttl > 0 {
			go certCache.RunSweeper(ctx, sweepInterval)
			go complaintCache.RunSweeper(ctx, sweepInterval)
		}
		return flowSessions{store: certStore}, flowSessions{store: complaintStore}, nil
	}
}

// llmOptions builds the engine options of the configured provider and the
// complaint letter writer. The local provider asks the fixed field questions.
func (a *App) llmOptions(ctx context.Context) ([]intake.Option, *complaint.LetterWriter, error) {
	conf := a.Config.LLM
	timeout := conf.Timeout.Std()
	switch conf.Provider {
	case config.ProviderOpenAI:
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  conf.APIKey,
			Model:   conf.Model,
			BaseURL: conf.BaseURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create chat model: %w", err)
		}
		gen, err := question.NewToolBasedGenerator(cm, question.WithLang(conf.Lang))
		if err != nil {
			return nil, nil, err
		}
		return []intake.Option{
			intake.WithGenerator(question.NewGuarded(gen, timeout)),
			intake.WithExtractor(intake.NewToolBasedExtractor(cm), timeout),
		}, complaint.NewLetterWriter(cm, timeout), nil
	case config.ProviderGemini:
		gen := question.NewGeminiGenerator(conf.APIKey, conf.Model, question.WithLang(conf.Lang))
		return []intake.Option{
			intake.WithGenerator(question.NewGuarded(gen, timeout)),
		}, complaint.NewLetterWriter(nil, timeout), nil
	default:
		return nil, complaint.NewLetterWriter(nil, timeout), nil
	}
}

// Close releases everything Build opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
