package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tbxark/civicdesk/registry"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// StatusForAction maps the staff actions "approve" and "reject".
func StatusForAction(action string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "approve":
		return StatusApproved, nil
	case "reject":
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unknown action %q", action)
	}
}

type Application struct {
	ID        int64          `json:"application_id"`
	UserID    string         `json:"user_id"`
	Kind      registry.Kind  `json:"certificate_type"`
	Status    Status         `json:"status"`
	Data      map[string]any `json:"application_data"`
	PDFPath   string         `json:"pdf_path,omitempty"`
	Remarks   string         `json:"remarks,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ApplicationFilter narrows ListApplications; empty fields match everything.
type ApplicationFilter struct {
	Kind   registry.Kind
	Status Status
}

const applicationColumns = `application_id, user_id, certificate_type, status, application_data, pdf_path, remarks, created_at`

func (d *DB) CreateApplication(ctx context.Context, userID string, kind registry.Kind, data map[string]any) (int64, error) {
	js, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("encode application data: %w", err)
	}
	var id int64
	err = d.queryRow(ctx, `INSERT INTO applications (user_id, certificate_type, status, application_data, created_at) VALUES (?, ?, ?, ?, ?) RETURNING application_id`,
		userID, string(kind), string(StatusPending), string(js), time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert application: %w", err)
	}
	return id, nil
}

func (d *DB) GetApplication(ctx context.Context, id int64) (*Application, error) {
	row := d.queryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE application_id = ?`, id)
	return scanApplication(row)
}

func (d *DB) ListApplications(ctx context.Context, f ApplicationFilter) ([]*Application, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "certificate_type = ?")
		args = append(args, string(f.Kind))
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	q := `SELECT ` + applicationColumns + ` FROM applications`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY application_id`
	return d.listApplications(ctx, q, args...)
}

func (d *DB) ListApplicationsByUser(ctx context.Context, userID string) ([]*Application, error) {
	return d.listApplications(ctx, `SELECT `+applicationColumns+` FROM applications WHERE user_id = ? ORDER BY application_id`, userID)
}

func (d *DB) UpdateStatus(ctx context.Context, id int64, status Status) error {
	return expectOne(d.exec(ctx, `UPDATE applications SET status = ? WHERE application_id = ?`, string(status), id))
}

func (d *DB) UpdateRemarks(ctx context.Context, id int64, remarks string) error {
	return expectOne(d.exec(ctx, `UPDATE applications SET remarks = ? WHERE application_id = ?`, remarks, id))
}

func (d *DB) SetPDFPath(ctx context.Context, id int64, path string) error {
	return expectOne(d.exec(ctx, `UPDATE applications SET pdf_path = ? WHERE application_id = ?`, path, id))
}

func (d *DB) listApplications(ctx context.Context, q string, args ...any) ([]*Application, error) {
	rows, err := d.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var apps []*Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(s scanner) (*Application, error) {
	var (
		app    Application
		kind   string
		status string
		data   string
	)
	if err := s.Scan(&app.ID, &app.UserID, &kind, &status, &data, &app.PDFPath, &app.Remarks, &app.CreatedAt); err != nil {
		return nil, err
	}
	app.Kind = registry.Kind(kind)
	app.Status = Status(status)
	if err := json.Unmarshal([]byte(data), &app.Data); err != nil {
		return nil, fmt.Errorf("decode application %d: %w", app.ID, err)
	}
	return &app, nil
}

// FormatID renders a numeric id the way it is shown to citizens.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID parses an id from a path or form value.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

var _ scanner = (*sql.Row)(nil)
