package contract

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one transcript entry. Assistant messages may carry tool calls;
// tool messages carry the result for the call identified by ToolCallID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// ToolCall is a model-issued request to invoke a named capability.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult is the outcome of dispatching one ToolCall. A non-empty Error is
// reported back into the conversation so the model can recover; it never
// aborts the turn.
type ToolResult struct {
	ID     string `json:"id,omitempty"`
	Tool   string `json:"tool"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Product is one catalog row. The catalog file is the source of truth; the
// search index holds a derived copy.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Stock       int     `json:"stock"`
}

// Document is the denormalized per-product entry stored in the search index.
// Name is the searchable text; the rest is retrievable metadata.
type Document struct {
	Name     string  `json:"name"`
	Content  string  `json:"content"`
	Stock    int     `json:"stock"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// OrderItem is one line of an extracted order. Transient: it only lives as a
// tool-result payload inside a session transcript.
type OrderItem struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// StockEntry is one search_stock answer. Stock 0 covers both "agotado" and
// "producto desconocido"; callers cannot tell them apart.
type StockEntry struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// ClientRecord holds delivery contact info for a thread.
type ClientRecord struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
}
