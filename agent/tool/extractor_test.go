package tool

import (
	"strings"
	"testing"
)

func TestParseOrderItems(t *testing.T) {
	t.Parallel()

	items, err := ParseOrderItems(`[{"product_name": "Capuccino", "quantity": 2}, {"product_name": "Latte", "quantity": 1}]`)
	if err != nil {
		t.Fatalf("ParseOrderItems() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ProductName != "Capuccino" || items[0].Quantity != 2 {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
}

func TestParseOrderItemsEmptyArray(t *testing.T) {
	t.Parallel()

	items, err := ParseOrderItems(`[]`)
	if err != nil {
		t.Fatalf("ParseOrderItems() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestParseOrderItemsToleratesFencesAndProse(t *testing.T) {
	t.Parallel()

	raw := "Claro, aquí está el pedido:\n```json\n[{\"product_name\": \"Capuccino\", \"quantity\": 3}]\n```\n"
	items, err := ParseOrderItems(raw)
	if err != nil {
		t.Fatalf("ParseOrderItems() error = %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestParseOrderItemsRejectsMalformedOutput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"no array", "no hay pedido"},
		{"not json", "[esto no es json]"},
		{"object instead of array", `{"product_name": "Latte", "quantity": 1}`},
		{"unknown field", `[{"product_name": "Latte", "quantity": 1, "price": 11}]`},
		{"zero quantity", `[{"product_name": "Latte", "quantity": 0}]`},
		{"negative quantity", `[{"product_name": "Latte", "quantity": -2}]`},
		{"empty product name", `[{"product_name": "  ", "quantity": 1}]`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseOrderItems(tc.raw); err == nil {
				t.Fatalf("expected parse error for %q", tc.raw)
			}
		})
	}
}

func TestExtractJSONArrayBounds(t *testing.T) {
	t.Parallel()

	if got := extractJSONArray("prefix [1, 2] suffix"); got != "[1, 2]" {
		t.Fatalf("unexpected extraction: %q", got)
	}
	if got := extractJSONArray("] inverted ["); got != "" {
		t.Fatalf("expected empty extraction, got %q", got)
	}
	if !strings.HasPrefix(extractJSONArray(`[{"a": "[nested]"}]`), "[{") {
		t.Fatal("expected outermost array to be extracted")
	}
}
