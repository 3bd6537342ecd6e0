package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"carelink/internal/identity"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// Postgres stores back the canonical records. Optimistic concurrency rides on
// a version column: updates are conditioned on the version read by the caller
// and bump it on commit.

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = `id, number, role, email, display_name, phone_number,
	preferred_language, theme, bio, hourly_rate, address, city, country,
	created_at, updated_at, version`

func scanUser(row interface{ Scan(...any) error }) (*identity.User, error) {
	var (
		u      identity.User
		uid    string
		number sql.NullString
		role   string
		rate   sql.NullFloat64
	)
	err := row.Scan(&uid, &number, &role, &u.Email, &u.DisplayName, &u.PhoneNumber,
		&u.PreferredLanguage, &u.Theme, &u.Bio, &rate, &u.Address, &u.City, &u.Country,
		&u.CreatedAt, &u.UpdatedAt, &u.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if u.ID, err = id.ParseUserID(uid); err != nil {
		return nil, fmt.Errorf("stored user id: %w", err)
	}
	u.Role = id.Role(role)
	if number.Valid {
		u.Number = id.ReadableNumber(number.String)
	}
	if rate.Valid {
		u.HourlyRate = &rate.Float64
	}
	return &u, nil
}

func (s *PostgresUserStore) Create(ctx context.Context, user *identity.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID.String(), nullableNumber(user.Number), user.Role.String(), user.Email,
		user.DisplayName, user.PhoneNumber, user.PreferredLanguage, user.Theme, user.Bio,
		nullableRate(user.HourlyRate), user.Address, user.City, user.Country,
		user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.Version = 1
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, userID id.UserID) (*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, userID.String()))
}

func (s *PostgresUserStore) List(ctx context.Context, filter UserFilter) ([]*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if filter.Role != nil {
		query += ` WHERE role = $1`
		args = append(args, filter.Role.String())
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresUserStore) Update(ctx context.Context, user *identity.User) error {
	query := `
		UPDATE users SET
			number = $3, email = $4, display_name = $5, phone_number = $6,
			preferred_language = $7, theme = $8, bio = $9, hourly_rate = $10,
			address = $11, city = $12, country = $13, updated_at = $14,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := s.db.ExecContext(ctx, query,
		user.ID.String(), user.Version, nullableNumber(user.Number), user.Email,
		user.DisplayName, user.PhoneNumber, user.PreferredLanguage, user.Theme, user.Bio,
		nullableRate(user.HourlyRate), user.Address, user.City, user.Country, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return s.checkVersioned(ctx, res, `SELECT 1 FROM users WHERE id = $1`, user.ID.String(), func() { user.Version++ })
}

func (s *PostgresUserStore) Execute(ctx context.Context, userID id.UserID, validate func(*identity.User) error, mutate func(*identity.User)) (*identity.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	user, err := scanUser(tx.QueryRowContext(ctx, query, userID.String()))
	if err != nil {
		return nil, err
	}
	if err := validate(user); err != nil {
		return nil, err
	}
	mutate(user)
	user.Version++

	update := `
		UPDATE users SET
			number = $2, email = $3, display_name = $4, phone_number = $5,
			preferred_language = $6, theme = $7, bio = $8, hourly_rate = $9,
			address = $10, city = $11, country = $12, updated_at = $13, version = $14
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, update,
		user.ID.String(), nullableNumber(user.Number), user.Email, user.DisplayName,
		user.PhoneNumber, user.PreferredLanguage, user.Theme, user.Bio,
		nullableRate(user.HourlyRate), user.Address, user.City, user.Country,
		user.UpdatedAt, user.Version,
	); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) CountByRole(ctx context.Context) (map[id.Role]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	defer rows.Close()

	counts := make(map[id.Role]int)
	for rows.Next() {
		var (
			role string
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[id.Role(role)] = n
	}
	return counts, rows.Err()
}

// checkVersioned resolves a zero-row conditional update into NotFound or
// VersionConflict, and applies onSuccess otherwise.
func (s *PostgresUserStore) checkVersioned(ctx context.Context, res sql.Result, probe string, key string, onSuccess func()) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		onSuccess()
		return nil
	}
	var one int
	err = s.db.QueryRowContext(ctx, probe, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("probe row: %w", err)
	}
	return sentinel.ErrVersionConflict
}

func nullableNumber(n id.ReadableNumber) sql.NullString {
	if n.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: n.String(), Valid: true}
}

func nullableRate(r *float64) sql.NullFloat64 {
	if r == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *r, Valid: true}
}

type PostgresChildStore struct {
	db *sql.DB
}

func NewPostgresChildStore(db *sql.DB) *PostgresChildStore {
	return &PostgresChildStore{db: db}
}

const childColumns = `id, parent_id, sitter_id, name, age, child_number,
	parent_number, sitter_number, created_at, updated_at, version`

func scanChild(row interface{ Scan(...any) error }) (*identity.Child, error) {
	var (
		c            identity.Child
		cid          string
		pid          string
		sitterID     sql.NullString
		age          sql.NullInt64
		sitterNumber sql.NullString
	)
	err := row.Scan(&cid, &pid, &sitterID, &c.Name, &age, &c.ChildNumber,
		&c.ParentNumber, &sitterNumber, &c.CreatedAt, &c.UpdatedAt, &c.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan child: %w", err)
	}
	if c.ID, err = id.ParseChildID(cid); err != nil {
		return nil, fmt.Errorf("stored child id: %w", err)
	}
	if c.ParentID, err = id.ParseUserID(pid); err != nil {
		return nil, fmt.Errorf("stored parent id: %w", err)
	}
	if sitterID.Valid {
		sid, err := id.ParseUserID(sitterID.String)
		if err != nil {
			return nil, fmt.Errorf("stored sitter id: %w", err)
		}
		c.SitterID = &sid
	}
	if age.Valid {
		a := int(age.Int64)
		c.Age = &a
	}
	if sitterNumber.Valid {
		c.SitterNumber = id.ReadableNumber(sitterNumber.String)
	}
	return &c, nil
}

func (s *PostgresChildStore) Create(ctx context.Context, child *identity.Child) error {
	query := `
		INSERT INTO children (` + childColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
	`
	var sitterID sql.NullString
	if child.SitterID != nil {
		sitterID = sql.NullString{String: child.SitterID.String(), Valid: true}
	}
	var age sql.NullInt64
	if child.Age != nil {
		age = sql.NullInt64{Int64: int64(*child.Age), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		child.ID.String(), child.ParentID.String(), sitterID, child.Name, age,
		child.ChildNumber.String(), child.ParentNumber.String(),
		nullableNumber(child.SitterNumber), child.CreatedAt, child.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert child: %w", err)
	}
	child.Version = 1
	return nil
}

func (s *PostgresChildStore) FindByID(ctx context.Context, childID id.ChildID) (*identity.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE id = $1`
	return scanChild(s.db.QueryRowContext(ctx, query, childID.String()))
}

func (s *PostgresChildStore) ListByParent(ctx context.Context, parentID id.UserID) ([]*identity.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE parent_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, parentID.String())
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []*identity.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

func (s *PostgresChildStore) Update(ctx context.Context, child *identity.Child) error {
	query := `
		UPDATE children SET
			sitter_id = $3, name = $4, age = $5, parent_number = $6,
			sitter_number = $7, updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $2
	`
	var sitterID sql.NullString
	if child.SitterID != nil {
		sitterID = sql.NullString{String: child.SitterID.String(), Valid: true}
	}
	var age sql.NullInt64
	if child.Age != nil {
		age = sql.NullInt64{Int64: int64(*child.Age), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, query,
		child.ID.String(), child.Version, sitterID, child.Name, age,
		child.ParentNumber.String(), nullableNumber(child.SitterNumber), child.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update child: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		child.Version++
		return nil
	}
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM children WHERE id = $1`, child.ID.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("probe child: %w", err)
	}
	return sentinel.ErrVersionConflict
}

// Delete removes the child; the care sheet goes with it through the foreign
// key cascade.
func (s *PostgresChildStore) Delete(ctx context.Context, childID id.ChildID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM children WHERE id = $1`, childID.String())
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresChildStore) UpsertInstructions(ctx context.Context, instr *identity.Instructions) error {
	contacts, err := json.Marshal(instr.EmergencyContacts)
	if err != nil {
		return fmt.Errorf("marshal emergency contacts: %w", err)
	}
	query := `
		INSERT INTO child_instructions (child_id, parent_id, feeding_schedule,
			nap_schedule, medication, allergies, emergency_contacts,
			special_instructions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (child_id) DO UPDATE SET
			feeding_schedule = EXCLUDED.feeding_schedule,
			nap_schedule = EXCLUDED.nap_schedule,
			medication = EXCLUDED.medication,
			allergies = EXCLUDED.allergies,
			emergency_contacts = EXCLUDED.emergency_contacts,
			special_instructions = EXCLUDED.special_instructions,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`
	err = s.db.QueryRowContext(ctx, query,
		instr.ChildID.String(), instr.ParentID.String(), instr.FeedingSchedule,
		instr.NapSchedule, instr.Medication, instr.Allergies, contacts,
		instr.SpecialInstructions, instr.UpdatedAt,
	).Scan(&instr.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert instructions: %w", err)
	}
	return nil
}

func (s *PostgresChildStore) FindInstructions(ctx context.Context, childID id.ChildID) (*identity.Instructions, error) {
	query := `
		SELECT child_id, parent_id, feeding_schedule, nap_schedule, medication,
			allergies, emergency_contacts, special_instructions, created_at, updated_at
		FROM child_instructions WHERE child_id = $1
	`
	var (
		instr    identity.Instructions
		cid      string
		pid      string
		contacts []byte
	)
	err := s.db.QueryRowContext(ctx, query, childID.String()).Scan(
		&cid, &pid, &instr.FeedingSchedule, &instr.NapSchedule, &instr.Medication,
		&instr.Allergies, &contacts, &instr.SpecialInstructions,
		&instr.CreatedAt, &instr.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find instructions: %w", err)
	}
	if instr.ChildID, err = id.ParseChildID(cid); err != nil {
		return nil, fmt.Errorf("stored child id: %w", err)
	}
	if instr.ParentID, err = id.ParseUserID(pid); err != nil {
		return nil, fmt.Errorf("stored parent id: %w", err)
	}
	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &instr.EmergencyContacts); err != nil {
			return nil, fmt.Errorf("stored emergency contacts: %w", err)
		}
	}
	return &instr, nil
}
