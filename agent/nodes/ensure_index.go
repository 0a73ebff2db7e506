package assistantnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

// EnsureIndex runs the pre-turn freshness check. A failed rebuild does not
// abort the turn: the assistant answers from the stale index and the next
// invocation retries, which beats refusing every customer while the catalog
// file is mid-rewrite.
func EnsureIndex(ctx context.Context, in *GraphState, fresh contractx.Freshener, indexName string) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	rebuilt, err := fresh.EnsureFresh(ctx, indexName)
	if err != nil {
		log.Warn().Err(err).Str("index", indexName).Msg("index freshness check failed, continuing with stale index")
		return in, nil
	}

	in.Rebuilt = rebuilt
	if rebuilt {
		log.Debug().Str("index", indexName).Msg("index rebuilt before reasoning")
	}
	return in, nil
}
