package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultListLimit is used when ListDispatches is called without a limit.
	DefaultListLimit = 50
	// MaxListLimit caps a single page of history.
	MaxListLimit = 500
)

// Dispatch is one delivered outreach email.
type Dispatch struct {
	ID          uuid.UUID `json:"id"`
	Recipient   string    `json:"recipient"`
	Subject     string    `json:"subject"`
	CompanyName string    `json:"company_name"`
	JobPosition string    `json:"job_position"`
	Kind        string    `json:"kind"`
	SentAt      time.Time `json:"sent_at"`
}

// RecordDispatch stores a delivered email and fills in its ID and SentAt.
func (db *DB) RecordDispatch(ctx context.Context, d *Dispatch) error {
	if d.Kind == "" {
		d.Kind = "email"
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO outreach_log (recipient, subject, company_name, job_position, kind)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, sent_at`,
		normalizeRecipient(d.Recipient), d.Subject, d.CompanyName, d.JobPosition, d.Kind,
	).Scan(&d.ID, &d.SentAt)
	if err != nil {
		return fmt.Errorf("failed to record dispatch: %w", err)
	}
	return nil
}

// ListDispatches returns the most recent dispatches first.
func (db *DB) ListDispatches(ctx context.Context, limit int) ([]Dispatch, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, recipient, subject, company_name, job_position, kind, sent_at
		 FROM outreach_log
		 ORDER BY sent_at DESC
		 LIMIT $1`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatches: %w", err)
	}
	defer rows.Close()

	dispatches := []Dispatch{}
	for rows.Next() {
		var d Dispatch
		if err := rows.Scan(&d.ID, &d.Recipient, &d.Subject, &d.CompanyName,
			&d.JobPosition, &d.Kind, &d.SentAt); err != nil {
			return nil, err
		}
		dispatches = append(dispatches, d)
	}
	return dispatches, rows.Err()
}

// HasContacted reports whether an email was already sent to recipient.
// Addresses are compared case-insensitively.
func (db *DB) HasContacted(ctx context.Context, recipient string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM outreach_log WHERE lower(recipient) = $1)`,
		normalizeRecipient(recipient),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check outreach history: %w", err)
	}
	return exists, nil
}

func normalizeRecipient(recipient string) string {
	return strings.ToLower(strings.TrimSpace(recipient))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
