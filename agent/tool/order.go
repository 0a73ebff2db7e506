package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

// getOrder delegates to the extraction model. An empty slice is a valid
// answer: the extractor swallows malformed model output, so the conversation
// keeps going even when extraction finds nothing.
func (r *Registry) getOrder(ctx context.Context, message string) ([]contractx.OrderItem, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is required")
	}
	items, err := r.extractor.Extract(ctx, message)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []contractx.OrderItem{}
	}
	return items, nil
}
