package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	"github.com/openfroyo/sitefroyo/pkg/engine"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrParameterNotFound is returned when deleting a parameter that is not set.
var ErrParameterNotFound = errors.New("parameter not found")

// SQLiteStore keeps site parameters and status history in a local SQLite
// database. It backs the "local" backend and implements
// engine.ParameterStore.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	prefix string

	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
}

// Config holds SQLite store configuration
type Config struct {
	Path string

	// ParameterPrefix is prepended to parameter names returned by
	// GetParameters, mirroring the remote parameter store layout.
	ParameterPrefix string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	if cfg.ParameterPrefix == "" {
		cfg.ParameterPrefix = engine.DefaultParameterPrefix
	}

	// Every connection to :memory: is a separate database.
	if cfg.Path == MemoryPath {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{
		path:            cfg.Path,
		prefix:          cfg.ParameterPrefix,
		maxOpenConns:    cfg.MaxOpenConns,
		maxIdleConns:    cfg.MaxIdleConns,
		connMaxLifetime: cfg.ConnMaxLifetime,
	}, nil
}

// Init opens the database connection and enables WAL mode for file
// databases.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := s.path
	if s.path != MemoryPath {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", s.path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxIdleConns)
	db.SetConnMaxLifetime(s.connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// PutParameter creates or replaces a site parameter.
func (s *SQLiteStore) PutParameter(ctx context.Context, siteID, name, value string) error {
	if err := validateParameterKey(siteID, name); err != nil {
		return err
	}

	query := `
		INSERT INTO parameters (site_id, name, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (site_id, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, siteID, name, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to put parameter %s: %w", name, err)
	}

	return nil
}

// GetParameters returns every parameter of siteID, named by full path
// (prefix/siteID/name) like the remote parameter store. An unknown site
// yields an empty list.
func (s *SQLiteStore) GetParameters(ctx context.Context, siteID string) ([]engine.Parameter, error) {
	stored, err := s.ListParameters(ctx, siteID)
	if err != nil {
		return nil, err
	}

	base := engine.SiteParameterPath(s.prefix, siteID)
	params := make([]engine.Parameter, 0, len(stored))
	for _, p := range stored {
		params = append(params, engine.Parameter{Param: base + p.Name, Value: p.Value})
	}

	return params, nil
}

// ListParameters returns the stored parameters of siteID ordered by name.
func (s *SQLiteStore) ListParameters(ctx context.Context, siteID string) ([]*StoredParameter, error) {
	query := `
		SELECT site_id, name, value, updated_at
		FROM parameters
		WHERE site_id = ?
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list parameters: %w", err)
	}
	defer rows.Close()

	var params []*StoredParameter
	for rows.Next() {
		var p StoredParameter
		if err := rows.Scan(&p.SiteID, &p.Name, &p.Value, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		params = append(params, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parameters: %w", err)
	}

	return params, nil
}

// DeleteParameter removes a site parameter.
func (s *SQLiteStore) DeleteParameter(ctx context.Context, siteID, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM parameters WHERE site_id = ? AND name = ?`, siteID, name)
	if err != nil {
		return fmt.Errorf("failed to delete parameter %s: %w", name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: %s/%s", ErrParameterNotFound, siteID, name)
	}

	return nil
}

func validateParameterKey(siteID, name string) error {
	if siteID == "" {
		return fmt.Errorf("site id is required")
	}
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid parameter name %q", name)
	}
	return nil
}

// RecordStatus appends an evaluation to the site's status history and
// returns the stored record. History is write-only from the engine's point
// of view: evaluations never read it.
func (s *SQLiteStore) RecordStatus(ctx context.Context, eval *engine.Evaluation) (*StatusRecord, error) {
	if eval == nil {
		return nil, fmt.Errorf("evaluation is required")
	}

	record := &StatusRecord{
		ID:          eval.ID,
		SiteID:      eval.SiteID,
		Domain:      eval.Domain,
		Command:     eval.Command,
		Status:      eval.Result.Status,
		Message:     eval.Result.Message,
		TrueFacts:   eval.TrueFacts(),
		Facts:       eval.Facts,
		EvaluatedAt: eval.EvaluatedAt.UTC(),
		Duration:    eval.Duration,
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.EvaluatedAt.IsZero() {
		record.EvaluatedAt = time.Now().UTC()
	}
	if record.Facts == nil {
		record.Facts = map[string]bool{}
	}

	facts, err := json.Marshal(record.Facts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal facts: %w", err)
	}

	query := `
		INSERT INTO status_history (id, site_id, domain, command, status, message, true_facts, facts, evaluated_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.SiteID,
		record.Domain,
		string(record.Command),
		string(record.Status),
		record.Message,
		record.TrueFacts,
		string(facts),
		record.EvaluatedAt,
		record.Duration.Milliseconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record status: %w", err)
	}

	return record, nil
}

// ListStatusHistory returns the most recent history entries of siteID,
// newest first. A limit of zero or less returns every entry.
func (s *SQLiteStore) ListStatusHistory(ctx context.Context, siteID string, limit int) ([]*StatusRecord, error) {
	query := `
		SELECT id, site_id, domain, command, status, message, true_facts, facts, evaluated_at, duration_ms
		FROM status_history
		WHERE site_id = ?
		ORDER BY evaluated_at DESC, rowid DESC
	`
	args := []interface{}{siteID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var records []*StatusRecord
	for rows.Next() {
		var (
			r          StatusRecord
			command    string
			status     string
			facts      string
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.SiteID, &r.Domain, &command, &status, &r.Message, &r.TrueFacts, &facts, &r.EvaluatedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("failed to scan status record: %w", err)
		}
		if err := json.Unmarshal([]byte(facts), &r.Facts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal facts of %s: %w", r.ID, err)
		}
		r.Command = engine.Command(command)
		r.Status = engine.Status(status)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status history: %w", err)
	}

	return records, nil
}

// LatestStatus returns the newest history entry of siteID, or nil if the
// site has none.
func (s *SQLiteStore) LatestStatus(ctx context.Context, siteID string) (*StatusRecord, error) {
	records, err := s.ListStatusHistory(ctx, siteID, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// PruneStatusHistory deletes entries of siteID older than before and
// returns how many were removed.
func (s *SQLiteStore) PruneStatusHistory(ctx context.Context, siteID string, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM status_history WHERE site_id = ? AND evaluated_at < ?`,
		siteID, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune status history: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

// HealthCheck verifies database connectivity
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
