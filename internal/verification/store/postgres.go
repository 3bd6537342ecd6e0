package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"carelink/internal/verification"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// Postgres layout:
//
//	verification_requests(id, sitter_id, sequence, status, primary_document,
//	    secondary_documents, submitted_at, reviewed_at, reviewed_by,
//	    rejection_reason, version)
//	    UNIQUE (sitter_id, sequence)
//	    UNIQUE (sitter_id) WHERE status = 'pending'   -- single-pending rule
//
//	babysitter_profiles(sitter_id, status, rejection_reason, primary_document,
//	    secondary_documents, bio, hourly_rate, availability, updated_at, version)
//
// The partial unique index makes CreateIfNonePending a single INSERT: a
// concurrent second submission loses on the index, not on a read-then-write
// race.

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

type PostgresRequestStore struct {
	db *sql.DB
}

func NewPostgresRequestStore(db *sql.DB) *PostgresRequestStore {
	return &PostgresRequestStore{db: db}
}

const requestColumns = `id, sitter_id, sequence, status, primary_document,
	secondary_documents, submitted_at, reviewed_at, reviewed_by,
	rejection_reason, version`

func scanRequest(row interface{ Scan(...any) error }) (*verification.Request, error) {
	var (
		r          verification.Request
		rid        string
		sitterID   string
		status     string
		secondary  pq.StringArray
		reviewedAt sql.NullTime
		reviewedBy sql.NullString
		sequence   int64
	)
	err := row.Scan(&rid, &sitterID, &sequence, &status, &r.Documents.Primary,
		&secondary, &r.SubmittedAt, &reviewedAt, &reviewedBy, &r.RejectionReason, &r.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan request: %w", err)
	}
	if r.ID, err = id.ParseRequestID(rid); err != nil {
		return nil, fmt.Errorf("stored request id: %w", err)
	}
	if r.SitterID, err = id.ParseUserID(sitterID); err != nil {
		return nil, fmt.Errorf("stored sitter id: %w", err)
	}
	r.Sequence = uint64(sequence)
	r.Status = verification.Status(status)
	r.Documents.Secondary = []string(secondary)
	if reviewedAt.Valid {
		at := reviewedAt.Time
		r.ReviewedAt = &at
	}
	if reviewedBy.Valid {
		by, err := id.ParseUserID(reviewedBy.String)
		if err != nil {
			return nil, fmt.Errorf("stored reviewer id: %w", err)
		}
		r.ReviewedBy = &by
	}
	return &r, nil
}

func (s *PostgresRequestStore) CreateIfNonePending(ctx context.Context, req *verification.Request) error {
	// Sequence is computed in the same statement. Two racing submissions
	// for one sitter both compute the same next sequence, but only one can
	// hold the pending slot, so the loser fails on the partial index.
	query := `
		INSERT INTO verification_requests (` + requestColumns + `)
		SELECT $1, $2,
			COALESCE((SELECT MAX(sequence) FROM verification_requests WHERE sitter_id = $2), 0) + 1,
			$3, $4, $5, $6, NULL, NULL, '', 1
		RETURNING sequence
	`
	var sequence int64
	err := s.db.QueryRowContext(ctx, query,
		req.ID.String(), req.SitterID.String(), string(req.Status),
		req.Documents.Primary, pq.Array(req.Documents.Secondary), req.SubmittedAt,
	).Scan(&sequence)
	if isUniqueViolation(err) {
		return sentinel.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	req.Sequence = uint64(sequence)
	req.Version = 1
	return nil
}

func (s *PostgresRequestStore) FindByID(ctx context.Context, requestID id.RequestID) (*verification.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM verification_requests WHERE id = $1`
	return scanRequest(s.db.QueryRowContext(ctx, query, requestID.String()))
}

func (s *PostgresRequestStore) FindActiveBySitter(ctx context.Context, sitterID id.UserID) (*verification.Request, error) {
	query := `
		SELECT ` + requestColumns + ` FROM verification_requests
		WHERE sitter_id = $1 ORDER BY sequence DESC LIMIT 1
	`
	return scanRequest(s.db.QueryRowContext(ctx, query, sitterID.String()))
}

func (s *PostgresRequestStore) ListBySitter(ctx context.Context, sitterID id.UserID) ([]*verification.Request, error) {
	query := `
		SELECT ` + requestColumns + ` FROM verification_requests
		WHERE sitter_id = $1 ORDER BY sequence ASC
	`
	rows, err := s.db.QueryContext(ctx, query, sitterID.String())
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []*verification.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *PostgresRequestStore) Execute(ctx context.Context, requestID id.RequestID, validate func(*verification.Request) error, mutate func(*verification.Request)) (*verification.Request, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + requestColumns + ` FROM verification_requests WHERE id = $1 FOR UPDATE`
	req, err := scanRequest(tx.QueryRowContext(ctx, query, requestID.String()))
	if err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	mutate(req)
	req.Version++

	var (
		reviewedAt sql.NullTime
		reviewedBy sql.NullString
	)
	if req.ReviewedAt != nil {
		reviewedAt = sql.NullTime{Time: *req.ReviewedAt, Valid: true}
	}
	if req.ReviewedBy != nil {
		reviewedBy = sql.NullString{String: req.ReviewedBy.String(), Valid: true}
	}
	update := `
		UPDATE verification_requests SET
			status = $2, reviewed_at = $3, reviewed_by = $4,
			rejection_reason = $5, version = $6
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, update,
		req.ID.String(), string(req.Status), reviewedAt, reviewedBy,
		req.RejectionReason, req.Version,
	); err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return req, nil
}

func (s *PostgresRequestStore) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verification_requests WHERE status = 'pending'`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return count, nil
}

type PostgresProfileStore struct {
	db *sql.DB
}

func NewPostgresProfileStore(db *sql.DB) *PostgresProfileStore {
	return &PostgresProfileStore{db: db}
}

const profileColumns = `sitter_id, status, rejection_reason, primary_document,
	secondary_documents, bio, hourly_rate, availability, updated_at, version`

func scanProfile(row interface{ Scan(...any) error }) (*verification.Profile, error) {
	var (
		p         verification.Profile
		sitterID  string
		status    string
		secondary pq.StringArray
		rate      sql.NullFloat64
	)
	err := row.Scan(&sitterID, &status, &p.RejectionReason, &p.Documents.Primary,
		&secondary, &p.Bio, &rate, &p.Availability, &p.UpdatedAt, &p.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	if p.SitterID, err = id.ParseUserID(sitterID); err != nil {
		return nil, fmt.Errorf("stored sitter id: %w", err)
	}
	p.Status = verification.Status(status)
	p.Documents.Secondary = []string(secondary)
	if rate.Valid {
		p.HourlyRate = &rate.Float64
	}
	return &p, nil
}

func (s *PostgresProfileStore) Upsert(ctx context.Context, profile *verification.Profile) error {
	query := `
		INSERT INTO babysitter_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
		ON CONFLICT (sitter_id) DO UPDATE SET
			status = EXCLUDED.status,
			rejection_reason = EXCLUDED.rejection_reason,
			primary_document = EXCLUDED.primary_document,
			secondary_documents = EXCLUDED.secondary_documents,
			bio = EXCLUDED.bio,
			hourly_rate = EXCLUDED.hourly_rate,
			availability = EXCLUDED.availability,
			updated_at = EXCLUDED.updated_at,
			version = babysitter_profiles.version + 1
		RETURNING version
	`
	var rate sql.NullFloat64
	if profile.HourlyRate != nil {
		rate = sql.NullFloat64{Float64: *profile.HourlyRate, Valid: true}
	}
	err := s.db.QueryRowContext(ctx, query,
		profile.SitterID.String(), string(profile.Status), profile.RejectionReason,
		profile.Documents.Primary, pq.Array(profile.Documents.Secondary),
		profile.Bio, rate, profile.Availability, profile.UpdatedAt,
	).Scan(&profile.Version)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *PostgresProfileStore) FindBySitter(ctx context.Context, sitterID id.UserID) (*verification.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM babysitter_profiles WHERE sitter_id = $1`
	return scanProfile(s.db.QueryRowContext(ctx, query, sitterID.String()))
}

func (s *PostgresProfileStore) Execute(ctx context.Context, sitterID id.UserID, validate func(*verification.Profile) error, mutate func(*verification.Profile)) (*verification.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Seed an empty projection so the row exists to lock.
	seed := `
		INSERT INTO babysitter_profiles (sitter_id, status, rejection_reason,
			primary_document, secondary_documents, bio, hourly_rate,
			availability, updated_at, version)
		VALUES ($1, $2, '', '', '{}', '', NULL, '', NOW(), 0)
		ON CONFLICT (sitter_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, seed, sitterID.String(), string(verification.StatusNone)); err != nil {
		return nil, fmt.Errorf("seed profile: %w", err)
	}

	query := `SELECT ` + profileColumns + ` FROM babysitter_profiles WHERE sitter_id = $1 FOR UPDATE`
	profile, err := scanProfile(tx.QueryRowContext(ctx, query, sitterID.String()))
	if err != nil {
		return nil, err
	}
	if err := validate(profile); err != nil {
		return nil, err
	}
	mutate(profile)
	profile.Version++

	var rate sql.NullFloat64
	if profile.HourlyRate != nil {
		rate = sql.NullFloat64{Float64: *profile.HourlyRate, Valid: true}
	}
	update := `
		UPDATE babysitter_profiles SET
			status = $2, rejection_reason = $3, primary_document = $4,
			secondary_documents = $5, bio = $6, hourly_rate = $7,
			availability = $8, updated_at = $9, version = $10
		WHERE sitter_id = $1
	`
	if _, err := tx.ExecContext(ctx, update,
		profile.SitterID.String(), string(profile.Status), profile.RejectionReason,
		profile.Documents.Primary, pq.Array(profile.Documents.Secondary),
		profile.Bio, rate, profile.Availability, profile.UpdatedAt, profile.Version,
	); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return profile, nil
}
