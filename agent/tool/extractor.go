package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

// ModelExtractor asks a chat model to pull order lines out of free text.
// The model's reply is parsed strictly; anything that does not decode into
// the expected JSON shape becomes an empty order, never an error; a failed
// extraction must not sink the conversation.
type ModelExtractor struct {
	client *openaisdk.Client
	model  string
	prompt string
}

func NewModelExtractor(client *openaisdk.Client, model string, prompt string) (*ModelExtractor, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: extraction client is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: extraction model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: extraction prompt is required", contractx.ErrValidation)
	}
	return &ModelExtractor{client: client, model: model, prompt: prompt}, nil
}

func (e *ModelExtractor) Extract(ctx context.Context, message string) ([]contractx.OrderItem, error) {
	resp, err := e.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(e.model),
		Temperature: openaisdk.Float(0),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(e.prompt),
			openaisdk.UserMessage(message),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: order extraction: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return []contractx.OrderItem{}, nil
	}

	items, err := ParseOrderItems(resp.Choices[0].Message.Content)
	if err != nil {
		log.Warn().Err(err).Msg("order extraction returned malformed output")
		return []contractx.OrderItem{}, nil
	}
	return items, nil
}

// ParseOrderItems decodes the model's structured-output channel. It tolerates
// fenced code blocks and surrounding prose but refuses anything that is not
// a JSON array of {product_name, quantity} with positive quantities.
func ParseOrderItems(raw string) ([]contractx.OrderItem, error) {
	payload := extractJSONArray(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON array in model output")
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()

	var items []contractx.OrderItem
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}

	for i, item := range items {
		if strings.TrimSpace(item.ProductName) == "" {
			return nil, fmt.Errorf("order item %d has no product name", i)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("order item %d has non-positive quantity %d", i, item.Quantity)
		}
	}
	return items, nil
}

func extractJSONArray(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
