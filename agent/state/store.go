package state

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

// Store is the persistence contract used by the orchestrator.
type Store interface {
	Load(ctx context.Context, threadID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, threadID string) error
}

type PostgresConfig struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
	PoolTimeout  time.Duration `envconfig:"POOL_TIMEOUT" split_words:"true" default:"5s"`
}

// sessionRow is the bun model backing agent_sessions. The transcript is kept
// as a single JSON blob: a checkpoint is always written whole, never row by
// row, so partial turns cannot leak into the durable copy.
type sessionRow struct {
	bun.BaseModel `bun:"table:agent_sessions,alias:s"`

	ThreadID   string    `bun:"thread_id,pk"`
	Transcript []byte    `bun:"transcript,notnull"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

// BunStore persists sessions in a pooled relational store via bun.
type BunStore struct {
	db          *bun.DB
	poolTimeout time.Duration
}

// NewPostgresStore opens a bounded pgdriver pool and returns a store on it.
func NewPostgresStore(cfg PostgresConfig) (*BunStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	return NewBunStore(bun.NewDB(sqldb, pgdialect.New()), cfg.PoolTimeout), nil
}

// NewBunStore wraps an existing bun.DB. Tests pass a SQLite-backed DB here.
func NewBunStore(db *bun.DB, poolTimeout time.Duration) *BunStore {
	if poolTimeout <= 0 {
		poolTimeout = 5 * time.Second
	}
	return &BunStore{db: db, poolTimeout: poolTimeout}
}

func (s *BunStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*sessionRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create agent_sessions: %w", err)
	}
	return nil
}

func (s *BunStore) Load(ctx context.Context, threadID string) (*Session, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, ErrInvalidThread
	}

	ctx, cancel := context.WithTimeout(ctx, s.poolTimeout)
	defer cancel()

	row := new(sessionRow)
	err := s.db.NewSelect().
		Model(row).
		Where("thread_id = ?", threadID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, classifyPoolError(err)
	}

	var sess Session
	if err := json.Unmarshal(row.Transcript, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", threadID, err)
	}
	sess.ThreadID = row.ThreadID
	sess.UpdatedAt = row.UpdatedAt

	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return &sess, nil
}

func (s *BunStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	if err := sess.Validate(); err != nil {
		return err
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.ThreadID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.poolTimeout)
	defer cancel()

	row := &sessionRow{
		ThreadID:   sess.ThreadID,
		Transcript: payload,
		UpdatedAt:  sess.UpdatedAt.UTC(),
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (thread_id) DO UPDATE").
		Set("transcript = EXCLUDED.transcript").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return classifyPoolError(err)
	}
	return nil
}

func (s *BunStore) Delete(ctx context.Context, threadID string) error {
	if strings.TrimSpace(threadID) == "" {
		return ErrInvalidThread
	}

	ctx, cancel := context.WithTimeout(ctx, s.poolTimeout)
	defer cancel()

	_, err := s.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("thread_id = ?", threadID).
		Exec(ctx)
	if err != nil {
		return classifyPoolError(err)
	}
	return nil
}

// Stats exposes pool counters for the guard's reconciliation log.
func (s *BunStore) Stats() sql.DBStats {
	return s.db.DB.Stats()
}

// Ping drives the pool's own invalid-connection discard.
func (s *BunStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// classifyPoolError maps checkout timeouts and dead-connection failures onto
// ErrPoolExhausted so the orchestrator can degrade the turn instead of
// surfacing a driver error.
func classifyPoolError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", contractx.ErrPoolExhausted, err)
	}
	return err
}
