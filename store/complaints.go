package store

import (
	"context"
	"fmt"
	"time"
)

type Complaint struct {
	ID               int64     `json:"id"`
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	ShortDescription string    `json:"short_description"`
	FullComplaint    string    `json:"full_complaint"`
	CreatedAt        time.Time `json:"created_at"`
}

const complaintColumns = `id, user_id, name, phone, short_description, full_complaint, created_at`

func (d *DB) CreateComplaint(ctx context.Context, c *Complaint) (int64, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	err := d.queryRow(ctx, `INSERT INTO complaints (user_id, name, phone, short_description, full_complaint, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		c.UserID, c.Name, c.Phone, c.ShortDescription, c.FullComplaint, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return 0, fmt.Errorf("insert complaint: %w", err)
	}
	return c.ID, nil
}

func (d *DB) ListComplaints(ctx context.Context) ([]*Complaint, error) {
	return d.listComplaints(ctx, `SELECT `+complaintColumns+` FROM complaints ORDER BY id`)
}

func (d *DB) ListComplaintsByUser(ctx context.Context, userID string) ([]*Complaint, error) {
	return d.listComplaints(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE user_id = ? ORDER BY id`, userID)
}

func (d *DB) listComplaints(ctx context.Context, q string, args ...any) ([]*Complaint, error) {
	rows, err := d.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Complaint
	for rows.Next() {
		var c Complaint
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.ShortDescription, &c.FullComplaint, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
