package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tbxark/civicdesk/auth"
	"github.com/tbxark/civicdesk/certificate"
	"github.com/tbxark/civicdesk/intake"
	"github.com/tbxark/civicdesk/objectstore"
	"github.com/tbxark/civicdesk/store"
)

const maxBodyBytes = 1 << 20

// Config holds the dependencies of a Server. Files is only set for the local
// object store, whose signed URLs are served by this process.
type Config struct {
	DB           *store.DB
	Certificates *intake.Engine
	Complaints   *intake.Engine
	Issuer       *auth.Issuer
	Documents    *certificate.Service
	Files        *objectstore.FileStore
	// StaffInviteCode must accompany self-registration of staff accounts.
	// Empty disables staff registration.
	StaffInviteCode string
	RateLimit       float64
	RateBurst       int
}

// Server is the HTTP API of civicdesk.
type Server struct {
	cfg     Config
	limiter *rateLimiter
	mux     *http.ServeMux
	handler http.Handler
}

func New(cfg Config) *Server {
	s := &Server{
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RateLimit, cfg.RateBurst),
		mux:     http.NewServeMux(),
	}
	s.routes()
	s.handler = requestID(logRequests(recoverPanics(s.mux)))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close stops background work.
func (s *Server) Close() {
	s.limiter.stop()
}

func (s *Server) routes() {
	staff := s.cfg.Issuer.Require(string(store.RoleStaff))
	user := s.cfg.Issuer.Require()
	chat := func(h http.HandlerFunc) http.Handler {
		return s.limiter.middleware(s.cfg.Issuer.Optional(h))
	}

	// Health
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// Accounts
	s.mux.HandleFunc("POST /login/register", s.handleRegister)
	s.mux.HandleFunc("POST /login/login", s.handleLogin)

	// Conversations
	s.mux.Handle("POST /certificate/chat", chat(s.handleChat(s.cfg.Certificates)))
	s.mux.Handle("GET /certificate/sessions/{id}", user(http.HandlerFunc(s.handleSession)))
	s.mux.Handle("POST /certificate/save", user(http.HandlerFunc(s.handleSaveCertificate)))
	s.mux.Handle("POST /complaint/chat", chat(s.handleChat(s.cfg.Complaints)))

	// Staff
	s.mux.Handle("GET /applications", staff(http.HandlerFunc(s.handleListApplications)))
	s.mux.Handle("POST /applications/{id}/status", staff(http.HandlerFunc(s.handleUpdateStatus)))
	s.mux.Handle("POST /applications/{id}/remarks", staff(http.HandlerFunc(s.handleUpdateRemarks)))
	s.mux.Handle("POST /applications/{id}/pdf", staff(http.HandlerFunc(s.handleIssuePDF)))
	s.mux.Handle("GET /complaints", staff(http.HandlerFunc(s.handleListComplaints)))

	// Citizens
	s.mux.Handle("GET /applications/{id}/pdf", user(http.HandlerFunc(s.handleGetPDF)))
	s.mux.Handle("GET /users/{id}/applications", user(http.HandlerFunc(s.handleUserApplications)))
	s.mux.Handle("GET /users/{id}/complaints", user(http.HandlerFunc(s.handleUserComplaints)))

	// Signed downloads from the local object store
	if s.cfg.Files != nil {
		s.mux.HandleFunc("GET /files/{key...}", s.handleFile)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.cfg.DB.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "db": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "civicdesk",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Missing or invalid JSON body")
		return false
	}
	return true
}

// writeStoreError maps repository errors to responses.
func writeStoreError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// canAccess lets staff see everything and citizens see their own records.
func canAccess(r *http.Request, userID string) bool {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		return false
	}
	return p.Role == string(store.RoleStaff) || p.UserID == userID
}
