package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tbxark/civicdesk/certificate"
	"github.com/tbxark/civicdesk/objectstore"
	"github.com/tbxark/civicdesk/registry"
	"github.com/tbxark/civicdesk/store"
)

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	var f store.ApplicationFilter
	if v := r.URL.Query().Get("certificate_type"); v != "" {
		kind, err := registry.Lookup(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid certificate type")
			return
		}
		f.Kind = kind
	}
	if v := r.URL.Query().Get("status"); v != "" {
		f.Status = store.Status(v)
	}
	apps, err := s.cfg.DB.ListApplications(r.Context(), f)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": nonNil(apps)})
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := store.ParseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Certificate ID is required")
		return 0, false
	}
	return id, true
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Action string `json:"action"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := store.StatusForAction(req.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid action. Use 'approve' or 'reject'.")
		return
	}
	if err := s.cfg.DB.UpdateStatus(r.Context(), id, status); err != nil {
		writeStoreError(w, err, "Application not found")
		return
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Certificate %s successfully.", strings.ToUpper(action[:1])+action[1:]),
		"status":  string(status),
	})
}

func (s *Server) handleUpdateRemarks(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Remarks string `json:"remarks"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	remarks := strings.TrimSpace(req.Remarks)
	if remarks == "" {
		writeError(w, http.StatusBadRequest, "Remarks are required")
		return
	}
	if err := s.cfg.DB.UpdateRemarks(r.Context(), id, remarks); err != nil {
		writeStoreError(w, err, "Application not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Remarks updated successfully"})
}

func (s *Server) handleIssuePDF(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	issued, err := s.cfg.Documents.Issue(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Application not found")
	case errors.Is(err, certificate.ErrNotApproved):
		writeError(w, http.StatusConflict, "Only approved applications can be issued")
	case err != nil:
		slog.Error("issue certificate failed", "request_id", requestIDFrom(r.Context()), "application_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate PDF")
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"message":      "PDF generated and uploaded successfully",
			"pdf_path":     issued.Key,
			"download_url": issued.URL,
			"expires_at":   issued.ExpiresAt,
		})
	}
}

// handleGetPDF returns a signed URL with ?return_url=true, the document bytes
// otherwise.
func (s *Server) handleGetPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	app, err := s.cfg.DB.GetApplication(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "PDF not found")
		return
	}
	if !canAccess(r, app.UserID) {
		writeError(w, http.StatusForbidden, "not your application")
		return
	}
	if returnURL, _ := strconv.ParseBool(r.URL.Query().Get("return_url")); returnURL {
		issued, err := s.cfg.Documents.URL(r.Context(), app)
		if errors.Is(err, certificate.ErrNoPDF) {
			writeError(w, http.StatusNotFound, "PDF not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to retrieve PDF")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"download_url": issued.URL, "expires_at": issued.ExpiresAt})
		return
	}

	name, data, err := s.cfg.Documents.Download(r.Context(), app)
	switch {
	case errors.Is(err, certificate.ErrNoPDF), errors.Is(err, objectstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "PDF not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to retrieve PDF")
	default:
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		_, _ = w.Write(data)
	}
}

func (s *Server) handleUserApplications(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !canAccess(r, userID) {
		writeError(w, http.StatusForbidden, "not your history")
		return
	}
	apps, err := s.cfg.DB.ListApplicationsByUser(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": nonNil(apps)})
}

func (s *Server) handleUserComplaints(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !canAccess(r, userID) {
		writeError(w, http.StatusForbidden, "not your history")
		return
	}
	list, err := s.cfg.DB.ListComplaintsByUser(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": nonNil(list)})
}

func (s *Server) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	list, err := s.cfg.DB.ListComplaints(r.Context())
	if err != nil {
		writeStoreError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": nonNil(list)})
}

// handleFile serves objects of the local store behind a signed URL.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	q := r.URL.Query()
	if !s.cfg.Files.Verify(key, q.Get("expires"), q.Get("signature")) {
		writeError(w, http.StatusForbidden, "invalid or expired link")
		return
	}
	data, err := s.cfg.Files.Get(r.Context(), key)
	if errors.Is(err, objectstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(data)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
