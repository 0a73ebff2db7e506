package contract

import "context"

// Catalog reads the product source of truth and reports its mutation marker.
type Catalog interface {
	Fingerprint(ctx context.Context) (string, error)
	Products(ctx context.Context) ([]Product, error)
}

// SearchIndex stores per-product documents under named collections and
// answers capped nearest-text-match queries.
type SearchIndex interface {
	Exists(ctx context.Context, name string) (bool, error)
	Drop(ctx context.Context, name string) error
	BulkInsert(ctx context.Context, name string, docs []Document) error
	MatchTop(ctx context.Context, name string, query string, limit int) ([]Document, error)
}

// Freshener is the pre-query freshness check exposed by the index
// synchronizer. Rebuilt reports whether a rebuild actually happened.
type Freshener interface {
	EnsureFresh(ctx context.Context, indexName string) (rebuilt bool, err error)
}

// OrderExtractor turns a free-text customer message into order lines. A
// malformed model reply yields an empty slice, never an error the caller has
// to handle conversationally.
type OrderExtractor interface {
	Extract(ctx context.Context, message string) ([]OrderItem, error)
}

// ClientDirectory resolves delivery contact info for a thread.
type ClientDirectory interface {
	Lookup(ctx context.Context, threadID string) (ClientRecord, error)
}
