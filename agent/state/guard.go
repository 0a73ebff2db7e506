package state

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

// Reconciler is implemented by stores that can health-check their pool.
// BunStore satisfies it; fakes in tests may skip it.
type Reconciler interface {
	Ping(ctx context.Context) error
	Stats() sql.DBStats
}

// Guard wraps every Store operation with pool-exhaustion handling. On
// ErrPoolExhausted it reconciles the pool once and returns the error to the
// caller; it never retries the failed operation within the same turn, so
// session state is left exactly as it was.
type Guard struct {
	store            Store
	reconcileTimeout time.Duration
}

func NewGuard(store Store) *Guard {
	return &Guard{
		store:            store,
		reconcileTimeout: 3 * time.Second,
	}
}

func (g *Guard) Load(ctx context.Context, threadID string) (*Session, error) {
	sess, err := g.store.Load(ctx, threadID)
	if err != nil {
		return nil, g.handle(err)
	}
	return sess, nil
}

func (g *Guard) Save(ctx context.Context, sess *Session) error {
	return g.handle(g.store.Save(ctx, sess))
}

func (g *Guard) Delete(ctx context.Context, threadID string) error {
	return g.handle(g.store.Delete(ctx, threadID))
}

func (g *Guard) handle(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, contractx.ErrPoolExhausted) {
		g.reconcile()
	}
	return err
}

// reconcile pings the pool so the driver discards broken connections. Runs on
// a fresh context: the request context that hit the timeout is already dead.
func (g *Guard) reconcile() {
	rec, ok := g.store.(Reconciler)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.reconcileTimeout)
	defer cancel()

	if err := rec.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("session pool reconciliation failed")
		return
	}

	stats := rec.Stats()
	log.Warn().
		Int("open", stats.OpenConnections).
		Int("in_use", stats.InUse).
		Int64("wait_count", stats.WaitCount).
		Dur("wait_duration", stats.WaitDuration).
		Msg("session pool reconciled after exhaustion")
}
