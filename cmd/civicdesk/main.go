package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tbxark/civicdesk/auth"
	"github.com/tbxark/civicdesk/config"
	"github.com/tbxark/civicdesk/internal/app"
	"github.com/tbxark/civicdesk/server"
)

func main() {
	path := flag.String("config", "", "path to a JSON or YAML config file")
	flag.Parse()
	conf, err := config.Load(*path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := startApp(conf); err != nil {
		log.Fatalf("start app: %v", err)
	}
}

func startApp(conf *config.Config) error {
	level, _ := conf.Level()
	slog.SetLogLoggerLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if conf.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (CIVICDESK_JWT_SECRET) is required")
	}
	issuer, err := auth.NewIssuer(conf.Auth.JWTSecret, conf.Auth.TokenTTL.Std())
	if err != nil {
		return err
	}

	a, err := app.Build(ctx, conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("close app", "error", err)
		}
	}()

	srv := server.New(server.Config{
		DB:              a.DB,
		Certificates:    a.Certificates,
		Complaints:      a.Complaints,
		Issuer:          issuer,
		Documents:       a.Documents,
		Files:           a.Files,
		StaffInviteCode: conf.Auth.StaffInviteCode,
		RateLimit:       conf.Server.RateLimit,
		RateBurst:       conf.Server.RateBurst,
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              conf.Server.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("civicdesk listening", "addr", conf.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
