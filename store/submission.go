package store

import (
	"context"
	"fmt"

	"github.com/tbxark/civicdesk/intake"
	"github.com/tbxark/civicdesk/record"
	"github.com/tbxark/civicdesk/registry"
)

var _ intake.Persistence = (*DB)(nil)

// SaveSubmission stores certificate kinds as applications and complaints in the
// complaints table.
func (d *DB) SaveSubmission(ctx context.Context, sub intake.Submission) (string, error) {
	if sub.Kind == registry.Complaint {
		r := record.Record{Kind: sub.Kind, Values: sub.Values}
		text := func(field string) string {
			v, _ := r.Get(field)
			if v == nil {
				return ""
			}
			return record.FormatValue(v)
		}
		full := sub.Summary
		if full == "" {
			full = record.Summary(r)
		}
		id, err := d.CreateComplaint(ctx, &Complaint{
			UserID:           sub.SubmitterID,
			Name:             text("name"),
			Phone:            text("phone"),
			ShortDescription: text("short_description"),
			FullComplaint:    full,
		})
		if err != nil {
			return "", err
		}
		return FormatID(id), nil
	}
	if !sub.Kind.IsCertificate() {
		return "", fmt.Errorf("%w: %q", registry.ErrUnknownKind, string(sub.Kind))
	}
	id, err := d.CreateApplication(ctx, sub.SubmitterID, sub.Kind, sub.Values)
	if err != nil {
		return "", err
	}
	return FormatID(id), nil
}
