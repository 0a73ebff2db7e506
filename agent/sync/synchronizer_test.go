package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

type fakeCatalog struct {
	mu          stdsync.Mutex
	fingerprint string
	fpErr       error
	products    []contractx.Product
	prodErr     error
	prodCalls   int
}

func (f *fakeCatalog) Fingerprint(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fpErr != nil {
		return "", f.fpErr
	}
	return f.fingerprint, nil
}

func (f *fakeCatalog) Products(ctx context.Context) ([]contractx.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prodCalls++
	if f.prodErr != nil {
		return nil, f.prodErr
	}
	return append([]contractx.Product(nil), f.products...), nil
}

func (f *fakeCatalog) set(fingerprint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fingerprint = fingerprint
}

func (f *fakeCatalog) productCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prodCalls
}

type fakeIndex struct {
	mu        stdsync.Mutex
	dropErr   error
	insertErr error
	drops     []string
	inserts   map[string][]contractx.Document
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{inserts: make(map[string][]contractx.Document)}
}

func (f *fakeIndex) Exists(ctx context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.inserts[name]
	return ok, nil
}

func (f *fakeIndex) Drop(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dropErr != nil {
		return f.dropErr
	}
	f.drops = append(f.drops, name)
	delete(f.inserts, name)
	return nil
}

func (f *fakeIndex) BulkInsert(ctx context.Context, name string, docs []contractx.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserts[name] = append([]contractx.Document(nil), docs...)
	return nil
}

func (f *fakeIndex) MatchTop(ctx context.Context, name string, query string, limit int) ([]contractx.Document, error) {
	return nil, nil
}

func (f *fakeIndex) dropCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.drops)
}

func TestEnsureFreshRebuildsOnFirstCall(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{
		fingerprint: "v1",
		products: []contractx.Product{
			{ID: "1", Name: "Capuccino", Price: 12.5, Stock: 5},
		},
	}
	index := newFakeIndex()
	s := New(catalog, index)

	rebuilt, err := s.EnsureFresh(context.Background(), "stock")
	if err != nil {
		t.Fatalf("EnsureFresh() error = %v", err)
	}
	if !rebuilt {
		t.Fatal("expected rebuild on first call")
	}
	if got := len(index.inserts["stock"]); got != 1 {
		t.Fatalf("expected 1 document inserted, got %d", got)
	}
}

func TestEnsureFreshIsIdempotent(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{fingerprint: "v1"}
	index := newFakeIndex()
	s := New(catalog, index)

	for i := 0; i < 3; i++ {
		if _, err := s.EnsureFresh(context.Background(), "stock"); err != nil {
			t.Fatalf("EnsureFresh() call %d error = %v", i, err)
		}
	}

	if got := index.dropCount(); got != 1 {
		t.Fatalf("expected exactly one rebuild, got %d drops", got)
	}
	if got := catalog.productCalls(); got != 1 {
		t.Fatalf("expected catalog read once, got %d", got)
	}
}

func TestEnsureFreshRebuildsOnMarkerChange(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{fingerprint: "v1"}
	index := newFakeIndex()
	s := New(catalog, index)

	if _, err := s.EnsureFresh(context.Background(), "stock"); err != nil {
		t.Fatalf("first EnsureFresh() error = %v", err)
	}

	catalog.set("v2")
	rebuilt, err := s.EnsureFresh(context.Background(), "stock")
	if err != nil {
		t.Fatalf("second EnsureFresh() error = %v", err)
	}
	if !rebuilt {
		t.Fatal("expected rebuild after marker change")
	}
	if got := index.dropCount(); got != 2 {
		t.Fatalf("expected two rebuilds, got %d drops", got)
	}
}

func TestEnsureFreshFailureKeepsMarkerUnset(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{fingerprint: "v1"}
	index := newFakeIndex()
	index.insertErr = errors.New("disk full")
	s := New(catalog, index)

	_, err := s.EnsureFresh(context.Background(), "stock")
	if !errors.Is(err, contractx.ErrSyncFailed) {
		t.Fatalf("expected ErrSyncFailed, got %v", err)
	}

	// The failed attempt must not record the marker: the next call retries
	// the full rebuild and succeeds.
	index.insertErr = nil
	rebuilt, err := s.EnsureFresh(context.Background(), "stock")
	if err != nil {
		t.Fatalf("retry EnsureFresh() error = %v", err)
	}
	if !rebuilt {
		t.Fatal("expected retry to rebuild")
	}
}

func TestEnsureFreshWrapsFingerprintError(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{fpErr: errors.New("stat failed")}
	s := New(catalog, newFakeIndex())

	_, err := s.EnsureFresh(context.Background(), "stock")
	if !errors.Is(err, contractx.ErrSyncFailed) {
		t.Fatalf("expected ErrSyncFailed, got %v", err)
	}
}

func TestInvalidateForcesRebuild(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{fingerprint: "v1"}
	index := newFakeIndex()
	s := New(catalog, index)

	if _, err := s.EnsureFresh(context.Background(), "stock"); err != nil {
		t.Fatalf("EnsureFresh() error = %v", err)
	}

	s.Invalidate("stock")
	rebuilt, err := s.EnsureFresh(context.Background(), "stock")
	if err != nil {
		t.Fatalf("EnsureFresh() after Invalidate error = %v", err)
	}
	if !rebuilt {
		t.Fatal("expected rebuild after invalidation")
	}
}

func TestEnsureFreshTracksIndexesIndependently(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{fingerprint: "v1"}
	index := newFakeIndex()
	s := New(catalog, index)

	if _, err := s.EnsureFresh(context.Background(), "stock"); err != nil {
		t.Fatalf("EnsureFresh(stock) error = %v", err)
	}

	rebuilt, err := s.EnsureFresh(context.Background(), "stock_backup")
	if err != nil {
		t.Fatalf("EnsureFresh(stock_backup) error = %v", err)
	}
	if !rebuilt {
		t.Fatal("expected independent marker per index name")
	}
}

func TestEnsureFreshConcurrentCallsRebuildOnce(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{fingerprint: "v1"}
	index := newFakeIndex()
	s := New(catalog, index)

	var wg stdsync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.EnsureFresh(context.Background(), "stock"); err != nil {
				t.Errorf("EnsureFresh() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := index.dropCount(); got != 1 {
		t.Fatalf("expected one rebuild across concurrent callers, got %d", got)
	}
}
