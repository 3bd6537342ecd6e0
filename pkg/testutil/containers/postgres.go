//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema is the full relational layout. The partial unique index on
// verification_requests is what enforces the single-pending rule.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	number TEXT UNIQUE,
	role TEXT NOT NULL,
	email TEXT NOT NULL,
	display_name TEXT NOT NULL,
	phone_number TEXT NOT NULL DEFAULT '',
	preferred_language TEXT NOT NULL DEFAULT 'en',
	theme TEXT NOT NULL DEFAULT 'auto',
	bio TEXT NOT NULL DEFAULT '',
	hourly_rate DOUBLE PRECISION,
	address TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	version BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS children (
	id UUID PRIMARY KEY,
	parent_id UUID NOT NULL,
	sitter_id UUID,
	name TEXT NOT NULL,
	age INTEGER,
	child_number TEXT NOT NULL UNIQUE,
	parent_number TEXT NOT NULL,
	sitter_number TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	version BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS child_instructions (
	child_id UUID PRIMARY KEY REFERENCES children (id) ON DELETE CASCADE,
	parent_id UUID NOT NULL,
	feeding_schedule TEXT NOT NULL DEFAULT '',
	nap_schedule TEXT NOT NULL DEFAULT '',
	medication TEXT NOT NULL DEFAULT '',
	allergies TEXT NOT NULL DEFAULT '',
	emergency_contacts JSONB,
	special_instructions TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS number_counters (
	namespace TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS verification_requests (
	id UUID PRIMARY KEY,
	sitter_id UUID NOT NULL,
	sequence BIGINT NOT NULL,
	status TEXT NOT NULL,
	primary_document TEXT NOT NULL,
	secondary_documents TEXT[] NOT NULL DEFAULT '{}',
	submitted_at TIMESTAMPTZ NOT NULL,
	reviewed_at TIMESTAMPTZ,
	reviewed_by UUID,
	rejection_reason TEXT NOT NULL DEFAULT '',
	version BIGINT NOT NULL,
	UNIQUE (sitter_id, sequence)
);
CREATE UNIQUE INDEX IF NOT EXISTS verification_requests_pending
	ON verification_requests (sitter_id) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS babysitter_profiles (
	sitter_id UUID PRIMARY KEY,
	status TEXT NOT NULL,
	rejection_reason TEXT NOT NULL DEFAULT '',
	primary_document TEXT NOT NULL DEFAULT '',
	secondary_documents TEXT[] NOT NULL DEFAULT '{}',
	bio TEXT NOT NULL DEFAULT '',
	hourly_rate DOUBLE PRECISION,
	availability TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL,
	version BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_log (
	id UUID PRIMARY KEY,
	request_id UUID NOT NULL,
	sitter_id UUID NOT NULL,
	reviewer_id UUID NOT NULL,
	outcome TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("carelink"),
		tcpostgres.WithUsername("carelink"),
		tcpostgres.WithPassword("carelink"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})

	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// Truncate clears all tables between tests.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		TRUNCATE users, children, child_instructions, number_counters,
			verification_requests, babysitter_profiles, audit_log
	`)
	return err
}
