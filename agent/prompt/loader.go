package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/assistant.txt
	assistantRaw string

	//go:embed template/get_order.txt
	getOrderRaw string
)

// PromptSet holds loaded prompt content. The assistant prompt is persona and
// conversational policy, treated as configuration rather than code.
type PromptSet struct {
	Assistant string
	GetOrder  string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to call
// concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Assistant: strings.TrimSpace(assistantRaw),
		GetOrder:  strings.TrimSpace(getOrderRaw),
	}
}
