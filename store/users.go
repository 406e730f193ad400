package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
)

type User struct {
	UserID       string    `json:"user_id"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUser inserts u. A taken user id, email or mobile number is ErrDuplicate.
func (d *DB) CreateUser(ctx context.Context, u *User) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	var exists int
	err := d.queryRow(ctx, `SELECT 1 FROM users WHERE user_id = ? OR mobile = ? OR email = ?`, u.UserID, u.Mobile, u.Email).Scan(&exists)
	if err == nil {
		return ErrDuplicate
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("check user: %w", err)
	}

	_, err = d.exec(ctx, `INSERT INTO users (user_id, password_hash, email, mobile, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.UserID, u.PasswordHash, u.Email, u.Mobile, string(u.Role), u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (d *DB) GetUser(ctx context.Context, userID string) (*User, error) {
	var (
		u    User
		role string
	)
	err := d.queryRow(ctx, `SELECT user_id, password_hash, email, mobile, role, created_at FROM users WHERE user_id = ?`, userID).
		Scan(&u.UserID, &u.PasswordHash, &u.Email, &u.Mobile, &role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}
