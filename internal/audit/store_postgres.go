package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "carelink/pkg/domain"
)

// PostgresStore appends to the audit_log table. The table carries no UPDATE
// or DELETE path in this codebase; retention is an operational concern.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO audit_log (id, request_id, sitter_id, reviewer_id, outcome, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID.String(), entry.RequestID.String(), entry.SitterID.String(),
		entry.ReviewerID.String(), string(entry.Outcome), entry.Reason, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySitter(ctx context.Context, sitterID id.UserID) ([]Entry, error) {
	query := `
		SELECT id, request_id, sitter_id, reviewer_id, outcome, reason, created_at
		FROM audit_log
		WHERE sitter_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, sitterID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			entryID    string
			requestID  string
			sitter     string
			reviewerID string
			outcome    string
		)
		if err := rows.Scan(&entryID, &requestID, &sitter, &reviewerID, &outcome, &e.Reason, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if e.ID, err = uuid.Parse(entryID); err != nil {
			return nil, fmt.Errorf("stored entry id: %w", err)
		}
		if e.RequestID, err = id.ParseRequestID(requestID); err != nil {
			return nil, fmt.Errorf("stored request id: %w", err)
		}
		if e.SitterID, err = id.ParseUserID(sitter); err != nil {
			return nil, fmt.Errorf("stored sitter id: %w", err)
		}
		if e.ReviewerID, err = id.ParseUserID(reviewerID); err != nil {
			return nil, fmt.Errorf("stored reviewer id: %w", err)
		}
		e.Outcome = Outcome(outcome)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
