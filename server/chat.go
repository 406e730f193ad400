package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tbxark/civicdesk/auth"
	"github.com/tbxark/civicdesk/intake"
	"github.com/tbxark/civicdesk/record"
	"github.com/tbxark/civicdesk/registry"
	"github.com/tbxark/civicdesk/store"
)

const unavailableMessage = "The service is temporarily unavailable, please try again."

type chatRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Response       string                      `json:"response"`
	Type           intake.ReplyType            `json:"type"`
	Kind           registry.Kind               `json:"certificate_type,omitempty"`
	CurrentDetails map[string]any              `json:"current_details"`
	Submission     *intake.CommittedSubmission `json:"submission,omitempty"`
}

// anonymousPrefix namespaces sessions of callers without a token. Their keys
// can never equal a user id, so anonymous turns cannot reach a user's session.
const anonymousPrefix = "anon:"

// handleChat runs one conversation turn. An authenticated caller always talks
// in its own session, keyed by its user id, and is the submitter. Anonymous
// callers get a session under anonymousPrefix and submit under that key.
func (s *Server) handleChat(engine *intake.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if p, ok := auth.PrincipalFrom(r.Context()); ok {
			if req.SessionID != "" && req.SessionID != p.UserID {
				writeError(w, http.StatusForbidden, "not your session")
				return
			}
			req.SessionID, req.UserID = p.UserID, p.UserID
		} else {
			id := req.SessionID
			if id == "" {
				id = req.UserID
			}
			if id == "" {
				writeError(w, http.StatusBadRequest, "session_id or user_id is required")
				return
			}
			req.SessionID = anonymousPrefix + strings.TrimPrefix(id, anonymousPrefix)
			req.UserID = req.SessionID
		}

		reply, err := engine.Handle(r.Context(), intake.Turn{
			SessionID:   req.SessionID,
			SubmitterID: req.UserID,
			Message:     req.Message,
		})
		if err != nil {
			slog.Error("chat turn failed", "request_id", requestIDFrom(r.Context()), "session", req.SessionID, "error", err)
			writeError(w, http.StatusServiceUnavailable, unavailableMessage)
			return
		}
		resp := chatResponse{
			Response:   reply.Text,
			Type:       reply.Type,
			Submission: reply.Submission,
		}
		if reply.State != nil {
			resp.Kind = reply.State.Kind
			if reply.State.Record != nil {
				resp.CurrentDetails = reply.State.Record.Values
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !canAccess(r, id) {
		writeError(w, http.StatusForbidden, "not your session")
		return
	}
	state, err := s.cfg.Certificates.Session(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, unavailableMessage)
		return
	}
	if state.Kind == "" {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	var details map[string]any
	if state.Record != nil {
		details = state.Record.Values
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"certificate_type": state.Kind,
		"stage":            state.Stage(),
		"details":          details,
	})
}

type saveCertificateRequest struct {
	Kind   string         `json:"certificate_type"`
	UserID string         `json:"user_id"`
	Data   map[string]any `json:"data"`
}

// handleSaveCertificate stores a complete application submitted as structured
// data, bypassing the conversation.
func (s *Server) handleSaveCertificate(w http.ResponseWriter, r *http.Request) {
	var req saveCertificateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, err := registry.Lookup(req.Kind)
	if err != nil || !kind.IsCertificate() {
		writeError(w, http.StatusBadRequest, "Invalid certificate type")
		return
	}
	if p, ok := auth.PrincipalFrom(r.Context()); ok && p.Role != string(store.RoleStaff) {
		req.UserID = p.UserID
	}

	normalized := make(map[string]any, len(req.Data))
	for k, v := range req.Data {
		normalized[strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), " ", "_")] = v
	}
	rec, _ := record.Prefill(record.New(kind), normalized)
	if missing := record.Missing(rec); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, f := range missing {
			names = append(names, f.Name)
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Missing or invalid fields: %s", strings.Join(names, ", ")))
		return
	}

	id, err := s.cfg.DB.SaveSubmission(r.Context(), intake.Submission{
		Kind:        kind,
		Values:      rec.Values,
		SubmitterID: req.UserID,
	})
	if err != nil {
		slog.Error("save certificate failed", "request_id", requestIDFrom(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message":        "Certificate saved successfully",
		"application_id": id,
	})
}
