package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPassword(t *testing.T) {
	h, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckPassword(h, "s3cret"); err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if err := CheckPassword(h, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatal("empty password should be rejected")
	}
}

func TestIssuerRoundTrip(t *testing.T) {
	iss, err := NewIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	tok, err := iss.Issue("anu", "staff")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p, err := iss.Validate(tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.UserID != "anu" || p.Role != "staff" {
		t.Fatalf("principal = %+v", p)
	}

	other, _ := NewIssuer("other", time.Hour)
	if _, err := other.Validate(tok); err == nil {
		t.Fatal("token signed with another secret must fail")
	}

	iss.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := iss.Validate(tok); err == nil {
		t.Fatal("expired token must fail")
	}
}

func TestRequire(t *testing.T) {
	iss, _ := NewIssuer("secret", time.Hour)
	userTok, _ := iss.Issue("anu", "user")
	staffTok, _ := iss.Issue("officer", "staff")

	var seen *Principal
	h := iss.Require("staff")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + userTok, http.StatusForbidden},
		{"staff", "Bearer " + staffTok, http.StatusNoContent},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/applications", nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != c.want {
			t.Errorf("%s: status = %d, want %d", c.name, rec.Code, c.want)
		}
	}
	if seen == nil || seen.UserID != "officer" {
		t.Fatalf("principal not injected: %+v", seen)
	}
}

func TestOptional(t *testing.T) {
	iss, _ := NewIssuer("secret", time.Hour)
	tok, _ := iss.Issue("anu", "user")

	var seen *Principal
	h := iss.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/certificate/chat", nil))
	if rec.Code != http.StatusOK || seen != nil {
		t.Fatalf("anonymous request: status %d, principal %+v", rec.Code, seen)
	}

	req := httptest.NewRequest(http.MethodPost, "/certificate/chat", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == nil || seen.UserID != "anu" {
		t.Fatalf("principal = %+v", seen)
	}

	req = httptest.NewRequest(http.MethodPost, "/certificate/chat", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", rec.Code)
	}
}
