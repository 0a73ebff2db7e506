package assistantnode

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
	statex "github.com/esencia-cafe/storefront-agent/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidThread  = errors.New("thread id is empty")
	ErrEmptyReply     = errors.New("assistant produced an empty reply")
)

// ToolRunner is what the reasoning loop needs from the tool registry.
type ToolRunner interface {
	Infos() []*schema.ToolInfo
	DispatchAll(ctx context.Context, calls []contractx.ToolCall) []contractx.ToolResult
}

type GraphInput struct {
	ThreadID string
	Text     string
}

type GraphOutput struct {
	Reply string
}

// GraphState is the per-turn working copy threaded through the pipeline.
// Nothing here is durable until SaveSession succeeds.
type GraphState struct {
	ThreadID string
	Text     string
	Now      time.Time

	Session *statex.Session
	Rebuilt bool
	Reply   string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	threadID := strings.TrimSpace(in.ThreadID)
	if threadID == "" {
		return nil, ErrInvalidThread
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		ThreadID: threadID,
		Text:     text,
		Now:      nowFn().UTC(),
	}, nil
}
