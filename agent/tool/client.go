package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

func (r *Registry) getClientData(ctx context.Context, threadID string) (contractx.ClientRecord, error) {
	if strings.TrimSpace(threadID) == "" {
		return contractx.ClientRecord{}, fmt.Errorf("thread id is required")
	}
	return r.clients.Lookup(ctx, threadID)
}

// PlaceholderDirectory always answers with the fixed pickup-counter record.
// TODO: replace with the real client-record lookup once the client service
// exposes delivery profiles.
type PlaceholderDirectory struct{}

func (PlaceholderDirectory) Lookup(ctx context.Context, threadID string) (contractx.ClientRecord, error) {
	return contractx.ClientRecord{
		Address: "Av. Los Proceres 123, Surco",
		Phone:   "987 654 321",
	}, nil
}
