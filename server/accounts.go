package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tbxark/civicdesk/auth"
	"github.com/tbxark/civicdesk/store"
)

type registerRequest struct {
	UserID     string `json:"user_id"`
	Password   string `json:"password"`
	Email      string `json:"email"`
	Mobile     string `json:"mobile"`
	Role       string `json:"role"`
	InviteCode string `json:"invite_code"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Email = strings.TrimSpace(req.Email)
	req.Mobile = strings.TrimSpace(req.Mobile)
	if req.UserID == "" || req.Password == "" || req.Email == "" || req.Mobile == "" {
		writeError(w, http.StatusBadRequest, "Missing data")
		return
	}

	role := store.RoleUser
	switch store.Role(req.Role) {
	case "", store.RoleUser:
	case store.RoleStaff:
		if s.cfg.StaffInviteCode == "" || req.InviteCode != s.cfg.StaffInviteCode {
			writeError(w, http.StatusForbidden, "Staff registration requires a valid invite code")
			return
		}
		role = store.RoleStaff
	default:
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	err = s.cfg.DB.CreateUser(r.Context(), &store.User{
		UserID:       req.UserID,
		PasswordHash: hash,
		Email:        req.Email,
		Mobile:       req.Mobile,
		Role:         role,
	})
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusConflict, "User ID, Mobile number, or Email already exists")
		return
	}
	if err != nil {
		slog.Error("register failed", "request_id", requestIDFrom(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

type loginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing data")
		return
	}
	u, err := s.cfg.DB.GetUser(r.Context(), req.UserID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if u == nil || auth.CheckPassword(u.PasswordHash, req.Password) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token, err := s.cfg.Issuer.Issue(u.UserID, string(u.Role))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Login successful",
		"user_id": u.UserID,
		"role":    string(u.Role),
		"token":   token,
	})
}
