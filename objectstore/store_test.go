package objectstore

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestFileStorePutGet(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "", "secret")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	if err := s.Put(ctx, "certificates/a.pdf", []byte("pdf"), "application/pdf"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "certificates/a.pdf")
	if err != nil || string(got) != "pdf" {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if _, err := s.Get(ctx, "certificates/missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, "../escape", []byte("x"), ""); err == nil {
		t.Fatal("expected key outside the store to be rejected")
	}
}

func TestFileStoreSignedURL(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "http://localhost:8080/files", "secret")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	raw, err := s.SignedURL(context.Background(), "certificates/a.pdf", time.Hour)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if !strings.HasPrefix(raw, "http://localhost:8080/files/certificates/a.pdf?") {
		t.Fatalf("unexpected url %s", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	expires, sig := u.Query().Get("expires"), u.Query().Get("signature")
	if !s.Verify("certificates/a.pdf", expires, sig) {
		t.Fatal("signature should verify")
	}
	if s.Verify("certificates/b.pdf", expires, sig) {
		t.Fatal("signature must be bound to the key")
	}
	now = now.Add(2 * time.Hour)
	if s.Verify("certificates/a.pdf", expires, sig) {
		t.Fatal("expired signature should not verify")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	for _, b := range []Backend{BackendGCS, BackendS3} {
		if _, err := New(context.Background(), Config{Backend: b}); err == nil {
			t.Errorf("%s: expected missing bucket error", b)
		}
	}
	if _, err := New(context.Background(), Config{Backend: "ftp"}); err == nil {
		t.Error("expected unsupported backend error")
	}
	s, err := New(context.Background(), Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New local: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("expected *FileStore, got %T", s)
	}
}
