package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"leadagent/internal/logger"
	"leadagent/internal/model"
)

// Supported SQL drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know yet
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

const leadColumns = `id, agency_id, user_id, post_id, full_name, email, phone, preferred_area,
	budget, urgency, tier, intent_score, notes, status, created_at, updated_at`

const interactionColumns = `id, lead_id, channel, direction, message, created_at`

const propertyColumns = `id, agency_id, title, area, price, created_at`

// SQLStore handles lead persistence on Postgres or SQLite. Queries are
// written with ? placeholders and rebound for the active driver.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	log    *logger.Logger
}

// SQLOptions configures the connection pool
type SQLOptions struct {
	MaxConnections     int
	MaxIdleConnections int
}

// NewSQLStore connects to the database behind dsn
func NewSQLStore(driver, dsn string, opts SQLOptions, log *logger.Logger) (*SQLStore, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported SQL driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// one writer; an in-memory database also lives only as long as its connection
		db.SetMaxOpenConns(1)
	} else {
		if opts.MaxConnections > 0 {
			db.SetMaxOpenConns(opts.MaxConnections)
		}
		if opts.MaxIdleConnections > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConnections)
		}
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(2 * time.Minute)
	}

	return NewSQLStoreFromDB(db, log), nil
}

// NewSQLStoreFromDB wraps an existing connection
func NewSQLStoreFromDB(db *sqlx.DB, log *logger.Logger) *SQLStore {
	return &SQLStore{
		db:     db,
		driver: db.DriverName(),
		log:    log.With("repository", "SQLStore", "driver", db.DriverName()),
	}
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks connectivity
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the tables when they do not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	pk := "BIGSERIAL PRIMARY KEY"
	if s.driver == DriverSQLite {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS leads (
			id %s,
			agency_id BIGINT,
			user_id BIGINT,
			post_id BIGINT,
			full_name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			preferred_area TEXT,
			budget BIGINT,
			urgency TEXT NOT NULL DEFAULT 'medium',
			tier TEXT NOT NULL DEFAULT 'C',
			intent_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			notes TEXT,
			status TEXT NOT NULL DEFAULT 'new',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`, pk),
		`CREATE INDEX IF NOT EXISTS idx_leads_phone ON leads (phone)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_email ON leads (email)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_agency ON leads (agency_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS lead_interactions (
			id %s,
			lead_id BIGINT NOT NULL REFERENCES leads (id) ON DELETE CASCADE,
			channel TEXT NOT NULL,
			direction TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`, pk),
		`CREATE INDEX IF NOT EXISTS idx_lead_interactions_lead ON lead_interactions (lead_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS properties (
			id %s,
			agency_id BIGINT,
			title TEXT,
			area TEXT NOT NULL DEFAULT '',
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`, pk),
		`CREATE INDEX IF NOT EXISTS idx_properties_agency ON properties (agency_id)`,
	}
	if s.driver == DriverSQLite {
		stmts = append([]string{`PRAGMA foreign_keys = ON`}, stmts...)
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	s.log.Info("schema ready")
	return nil
}

// FindOne returns the most recently updated lead matching the filter
func (s *SQLStore) FindOne(ctx context.Context, f LeadFilter) (*model.Lead, error) {
	if f.IsEmpty() {
		return nil, nil
	}

	where := []string{}
	args := []interface{}{}
	switch {
	case f.UserID != nil:
		where = append(where, "user_id = ?")
		args = append(args, *f.UserID)
	case f.Phone != nil:
		where = append(where, "phone = ?")
		args = append(args, *f.Phone)
	default:
		where = append(where, "LOWER(email) = LOWER(?)")
		args = append(args, *f.Email)
	}
	if f.AgencyID != nil {
		where = append(where, "agency_id = ?")
		args = append(args, *f.AgencyID)
	}

	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY updated_at DESC, id DESC LIMIT 1`,
		leadColumns, strings.Join(where, " AND "))

	var lead model.Lead
	if err := s.db.GetContext(ctx, &lead, s.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find lead: %w", err)
	}
	return &lead, nil
}

// Insert creates a lead and returns it with its id and timestamps
func (s *SQLStore) Insert(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	now := time.Now().UTC()
	lead.CreatedAt, lead.UpdatedAt = now, now

	query := s.db.Rebind(`
		INSERT INTO leads (agency_id, user_id, post_id, full_name, email, phone, preferred_area,
			budget, urgency, tier, intent_score, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowxContext(ctx, query,
		lead.AgencyID, lead.UserID, lead.PostID, lead.FullName, lead.Email, lead.Phone, lead.PreferredArea,
		lead.Budget, lead.Urgency, lead.Tier, lead.IntentScore, lead.Notes, lead.Status,
		lead.CreatedAt, lead.UpdatedAt,
	).Scan(&lead.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert lead: %w", err)
	}
	return &lead, nil
}

// Update writes the non-nil fields of patch and returns the stored row
func (s *SQLStore) Update(ctx context.Context, id int64, patch model.LeadPatch) (*model.Lead, error) {
	sets, args := patchAssignments(patch)
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = ?`, strings.Join(sets, ", "))
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update lead %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	lead, err := s.Get(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrNotFound
	}
	return lead, nil
}

// patchAssignments lists "column = ?" pairs for the supplied fields
func patchAssignments(p model.LeadPatch) ([]string, []interface{}) {
	var sets []string
	var args []interface{}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if p.AgencyID != nil {
		add("agency_id", *p.AgencyID)
	}
	if p.UserID != nil {
		add("user_id", *p.UserID)
	}
	if p.PostID != nil {
		add("post_id", *p.PostID)
	}
	if p.FullName != nil {
		add("full_name", *p.FullName)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Phone != nil {
		add("phone", *p.Phone)
	}
	if p.PreferredArea != nil {
		add("preferred_area", *p.PreferredArea)
	}
	if p.Budget != nil {
		add("budget", *p.Budget)
	}
	if p.Urgency != nil {
		add("urgency", string(*p.Urgency))
	}
	if p.Tier != nil {
		add("tier", string(*p.Tier))
	}
	if p.IntentScore != nil {
		add("intent_score", *p.IntentScore)
	}
	if p.Notes != nil {
		add("notes", *p.Notes)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	return sets, args
}

// Get retrieves a single lead, optionally scoped to an agency
func (s *SQLStore) Get(ctx context.Context, id int64, agencyID *int64) (*model.Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE id = ?`, leadColumns)
	args := []interface{}{id}
	if agencyID != nil {
		query += " AND agency_id = ?"
		args = append(args, *agencyID)
	}

	var lead model.Lead
	if err := s.db.GetContext(ctx, &lead, s.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &lead, nil
}

// List returns leads, most recently created first
func (s *SQLStore) List(ctx context.Context, f ListFilter) ([]model.Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads`, leadColumns)
	args := []interface{}{}
	if f.AgencyID != nil {
		query += " WHERE agency_id = ?"
		args = append(args, *f.AgencyID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.limit(), f.offset())

	leads := []model.Lead{}
	if err := s.db.SelectContext(ctx, &leads, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// Delete removes a lead and its interactions
func (s *SQLStore) Delete(ctx context.Context, id int64, agencyID *int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	query := `DELETE FROM leads WHERE id = ?`
	args := []interface{}{id}
	if agencyID != nil {
		query += " AND agency_id = ?"
		args = append(args, *agencyID)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM lead_interactions WHERE lead_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete interactions: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Append logs one interaction
func (s *SQLStore) Append(ctx context.Context, it model.Interaction) (*model.Interaction, error) {
	it.CreatedAt = time.Now().UTC()
	query := s.db.Rebind(`
		INSERT INTO lead_interactions (lead_id, channel, direction, message, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`)

	err := s.db.QueryRowxContext(ctx, query, it.LeadID, it.Channel, it.Direction, it.Message, it.CreatedAt).Scan(&it.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to log interaction: %w", err)
	}
	return &it, nil
}

// ListByLead returns the interactions of a lead, newest first
func (s *SQLStore) ListByLead(ctx context.Context, leadID int64) ([]model.Interaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM lead_interactions WHERE lead_id = ? ORDER BY created_at DESC, id DESC`, interactionColumns)

	items := []model.Interaction{}
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), leadID); err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return items, nil
}

// ListProperties returns the catalog, scoped to an agency when given
func (s *SQLStore) ListProperties(ctx context.Context, agencyID *int64) ([]model.Property, error) {
	query := fmt.Sprintf(`SELECT %s FROM properties`, propertyColumns)
	args := []interface{}{}
	if agencyID != nil {
		query += " WHERE agency_id = ?"
		args = append(args, *agencyID)
	}
	query += " ORDER BY id"

	props := []model.Property{}
	if err := s.db.SelectContext(ctx, &props, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return props, nil
}

// GetProperty retrieves a single property
func (s *SQLStore) GetProperty(ctx context.Context, id int64) (*model.Property, error) {
	query := fmt.Sprintf(`SELECT %s FROM properties WHERE id = ?`, propertyColumns)

	var p model.Property
	if err := s.db.GetContext(ctx, &p, s.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &p, nil
}

// SeedProperties inserts catalog entries in one transaction. Entries with an
// id keep it. A populated catalog is left untouched, so seeding on every boot
// is safe.
func (s *SQLStore) SeedProperties(ctx context.Context, props []model.Property) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM properties`); err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	if existing > 0 {
		s.log.Info("catalog already populated, seed skipped", "properties", existing)
		return 0, nil
	}

	now := time.Now().UTC()
	inserted := 0
	seededIDs := false
	for _, p := range props {
		var res sql.Result
		var err error
		if p.ID > 0 {
			res, err = tx.ExecContext(ctx, tx.Rebind(
				`INSERT INTO properties (id, agency_id, title, area, price, created_at) VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO NOTHING`),
				p.ID, p.AgencyID, p.Title, p.Area, p.Price, now)
			seededIDs = true
		} else {
			res, err = tx.ExecContext(ctx, tx.Rebind(
				`INSERT INTO properties (agency_id, title, area, price, created_at) VALUES (?, ?, ?, ?, ?)`),
				p.AgencyID, p.Title, p.Area, p.Price, now)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to seed property %d: %w", p.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	// explicit ids do not advance the postgres sequence
	if seededIDs && s.driver == DriverPostgres {
		if _, err := tx.ExecContext(ctx,
			`SELECT setval(pg_get_serial_sequence('properties', 'id'), (SELECT MAX(id) FROM properties))`); err != nil {
			return 0, fmt.Errorf("failed to advance property sequence: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return inserted, nil
}
