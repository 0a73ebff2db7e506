package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

type flakyStore struct {
	loadErr   error
	loadCalls int
	saveCalls int
	pings     int
}

func (f *flakyStore) Load(ctx context.Context, threadID string) (*Session, error) {
	f.loadCalls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return NewSession(threadID, time.Now()), nil
}

func (f *flakyStore) Save(ctx context.Context, s *Session) error {
	f.saveCalls++
	return nil
}

func (f *flakyStore) Delete(ctx context.Context, threadID string) error {
	return nil
}

func (f *flakyStore) Ping(ctx context.Context) error {
	f.pings++
	return nil
}

func (f *flakyStore) Stats() sql.DBStats {
	return sql.DBStats{}
}

func TestGuardPassesThroughOnSuccess(t *testing.T) {
	t.Parallel()

	inner := &flakyStore{}
	g := NewGuard(inner)

	sess, err := g.Load(context.Background(), "thread-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sess == nil {
		t.Fatal("expected session")
	}
	if err := g.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if inner.pings != 0 {
		t.Fatalf("reconcile must not run on success, got %d pings", inner.pings)
	}
}

func TestGuardReconcilesOnPoolExhaustion(t *testing.T) {
	t.Parallel()

	inner := &flakyStore{
		loadErr: fmt.Errorf("%w: checkout timed out", contractx.ErrPoolExhausted),
	}
	g := NewGuard(inner)

	_, err := g.Load(context.Background(), "thread-1")
	if !errors.Is(err, contractx.ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
	if inner.pings != 1 {
		t.Fatalf("expected one reconciliation ping, got %d", inner.pings)
	}
	if inner.loadCalls != 1 {
		t.Fatalf("guard must not retry the failed load, got %d calls", inner.loadCalls)
	}
}

func TestGuardIgnoresUnrelatedErrors(t *testing.T) {
	t.Parallel()

	inner := &flakyStore{loadErr: errors.New("syntax error")}
	g := NewGuard(inner)

	if _, err := g.Load(context.Background(), "thread-1"); err == nil {
		t.Fatal("expected error to propagate")
	}
	if inner.pings != 0 {
		t.Fatalf("reconcile must only run on pool exhaustion, got %d pings", inner.pings)
	}
}
