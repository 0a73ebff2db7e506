package tool

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

// searchStock answers stock per product name. Each lookup runs the freshness
// check first; the fast path is a marker comparison, so per-name checks stay
// cheap. An unmatched name yields stock 0; "not found" and "no stock" are
// deliberately the same answer for the customer-facing reply.
func (r *Registry) searchStock(ctx context.Context, names []string) ([]contractx.StockEntry, error) {
	entries := make([]contractx.StockEntry, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if _, err := r.fresh.EnsureFresh(ctx, r.stockIndexName); err != nil {
			// Stale data beats no answer; the next check retries the rebuild.
			log.Warn().Err(err).Str("index", r.stockIndexName).Msg("freshness check failed, querying as-is")
		}

		docs, err := r.index.MatchTop(ctx, r.stockIndexName, name, 1)
		if err != nil {
			return nil, err
		}

		stock := 0
		if len(docs) > 0 {
			stock = docs[0].Stock
		}
		entries = append(entries, contractx.StockEntry{Name: name, Stock: stock})
	}
	return entries, nil
}
