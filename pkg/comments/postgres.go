package comments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/foliolabs/folio/pkg/logging"
)

// StoreConfig configures the Postgres comment store.
type StoreConfig struct {
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int32         `json:"max_connections"`
	ConnectTimeout   time.Duration `json:"connect_timeout"`
	MigrationsPath   string        `json:"migrations_path"`
}

// Store persists comments in Postgres behind a pgx connection pool.
type Store struct {
	pool      *pgxpool.Pool
	cfg       StoreConfig
	moderator *Moderator
	logger    *logging.Logger
}

// NewStore connects to Postgres and verifies the connection. Call
// MigrateToLatest before serving traffic.
func NewStore(ctx context.Context, cfg StoreConfig, moderator *Moderator, logger *logging.Logger) (*Store, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("comment store connection string is required")
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 10
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "file://migrations"
	}
	if moderator == nil {
		moderator = NewModerator(DefaultModerationConfig())
	}
	if logger == nil {
		logger = logging.New(nil)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConnections
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{
		pool:      pool,
		cfg:       cfg,
		moderator: moderator,
		logger:    logger.WithComponent("comments"),
	}, nil
}

// MigrateToLatest applies pending schema migrations.
func (s *Store) MigrateToLatest() error {
	db, err := sql.Open("postgres", s.cfg.ConnectionString)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(s.cfg.MigrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Create triages and persists a submitted comment, returning the
// stored record with its assigned id and status.
func (s *Store) Create(ctx context.Context, c *Comment) (*Comment, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	stored := *c
	stored.ID = newID()
	stored.Status = s.moderator.Triage(c)
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO comments (id, slug, author, email, body, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		stored.ID, stored.Slug, stored.Author, stored.Email, stored.Body,
		stored.Status, stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	if stored.Status == StatusSpam {
		s.logger.Infof("comment %s on %s triaged as spam", stored.ID, stored.Slug)
	}
	return &stored, nil
}

// ListApproved returns approved comments for a post, oldest first.
func (s *Store) ListApproved(ctx context.Context, slug string, limit, offset int) ([]Comment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, slug, author, email, body, status, created_at, updated_at
		FROM comments
		WHERE slug = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3 OFFSET $4`,
		slug, StatusApproved, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	return scanComments(rows)
}

// ListByStatus returns comments in a moderation state across all
// posts, newest first. For the admin queue.
func (s *Store) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]Comment, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("unknown comment status %q", status)
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, slug, author, email, body, status, created_at, updated_at
		FROM comments
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		status, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing comments by status: %w", err)
	}
	return scanComments(rows)
}

// Get fetches a single comment by id.
func (s *Store) Get(ctx context.Context, id string) (*Comment, error) {
	var c Comment
	err := s.pool.QueryRow(ctx, `
		SELECT id, slug, author, email, body, status, created_at, updated_at
		FROM comments WHERE id = $1`, id,
	).Scan(&c.ID, &c.Slug, &c.Author, &c.Email, &c.Body, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("comment not found: %s", id)
		}
		return nil, fmt.Errorf("fetching comment: %w", err)
	}
	return &c, nil
}

// SetStatus moves a comment to a new moderation state.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	if !ValidStatus(status) {
		return fmt.Errorf("unknown comment status %q", status)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE comments SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating comment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment not found: %s", id)
	}
	return nil
}

// Delete removes a comment permanently.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment not found: %s", id)
	}
	return nil
}

// Count returns the number of approved comments on a post.
func (s *Store) Count(ctx context.Context, slug string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM comments WHERE slug = $1 AND status = $2`,
		slug, StatusApproved,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting comments: %w", err)
	}
	return n, nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func scanComments(rows pgx.Rows) ([]Comment, error) {
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.Slug, &c.Author, &c.Email, &c.Body, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading comment rows: %w", err)
	}
	return out, nil
}
