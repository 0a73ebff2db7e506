// Package sync keeps search index collections consistent with the mutable
// catalog without unnecessary rebuilds. It is last-writer-wins cache
// invalidation, not a transaction log.
package sync

import (
	"context"
	"fmt"
	stdsync "sync"

	"github.com/rs/zerolog/log"

	catalogx "github.com/esencia-cafe/storefront-agent/agent/catalog"
	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

// Synchronizer owns the per-index SyncState explicitly; there is no hidden
// process-global marker. One Synchronizer per catalog/index pair.
type Synchronizer struct {
	catalog contractx.Catalog
	index   contractx.SearchIndex

	mu      stdsync.Mutex
	markers map[string]string
	locks   map[string]*stdsync.Mutex
}

func New(catalog contractx.Catalog, index contractx.SearchIndex) *Synchronizer {
	return &Synchronizer{
		catalog: catalog,
		index:   index,
		markers: make(map[string]string),
		locks:   make(map[string]*stdsync.Mutex),
	}
}

// EnsureFresh compares the catalog's current mutation marker with the one
// recorded for indexName and rebuilds the collection on mismatch. Unchanged
// marker: no side effects. Any rebuild failure leaves the marker untouched so
// the next call retries the full rebuild.
func (s *Synchronizer) EnsureFresh(ctx context.Context, indexName string) (bool, error) {
	// Serialize per index name: concurrent drop/insert for the same
	// collection would race into an empty or duplicated index.
	lock := s.lockFor(indexName)
	lock.Lock()
	defer lock.Unlock()

	marker, err := s.catalog.Fingerprint(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: read mutation marker: %v", contractx.ErrSyncFailed, err)
	}

	if s.recordedMarker(indexName) == marker {
		return false, nil
	}

	if err := s.rebuild(ctx, indexName); err != nil {
		return false, err
	}

	s.setMarker(indexName, marker)
	log.Info().Str("index", indexName).Str("marker", marker).Msg("search index rebuilt")
	return true, nil
}

// Invalidate forgets the recorded marker so the next EnsureFresh rebuilds
// even if the fingerprint comparison would miss the change. Used by the
// catalog file watcher.
func (s *Synchronizer) Invalidate(indexName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, indexName)
}

func (s *Synchronizer) rebuild(ctx context.Context, indexName string) error {
	if err := s.index.Drop(ctx, indexName); err != nil {
		return fmt.Errorf("%w: drop %s: %v", contractx.ErrSyncFailed, indexName, err)
	}

	products, err := s.catalog.Products(ctx)
	if err != nil {
		return fmt.Errorf("%w: read catalog: %v", contractx.ErrSyncFailed, err)
	}

	docs := make([]contractx.Document, 0, len(products))
	for _, p := range products {
		docs = append(docs, catalogx.RenderDocument(p))
	}

	if err := s.index.BulkInsert(ctx, indexName, docs); err != nil {
		return fmt.Errorf("%w: insert into %s: %v", contractx.ErrSyncFailed, indexName, err)
	}
	return nil
}

// lockFor never evicts; index names come from configuration, so the map stays
// as small as the set of collections in use.
func (s *Synchronizer) lockFor(indexName string) *stdsync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[indexName]
	if !ok {
		lock = new(stdsync.Mutex)
		s.locks[indexName] = lock
	}
	return lock
}

func (s *Synchronizer) recordedMarker(indexName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[indexName]
}

func (s *Synchronizer) setMarker(indexName, marker string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[indexName] = marker
}
