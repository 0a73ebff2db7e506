package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNilSession      = errors.New("session is nil")
	ErrInvalidThread   = errors.New("thread id is empty")
)

// Session is the durable conversation checkpoint for one thread. The store
// owns the durable copy; the orchestrator works on a transient copy per
// request and persists it only after a fully successful turn.
type Session struct {
	ThreadID  string              `json:"thread_id"`
	Messages  []contractx.Message `json:"messages,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func NewSession(threadID string, now time.Time) *Session {
	return &Session{
		ThreadID:  strings.TrimSpace(threadID),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) AppendUser(text string, now time.Time) {
	s.Messages = append(s.Messages, contractx.Message{
		Role:      contractx.RoleUser,
		Content:   text,
		CreatedAt: now.UTC(),
	})
}

// AppendAssistant records a reasoning-round output. Tool calls, if any, are
// kept inline so the transcript doubles as the tool-call trace.
func (s *Session) AppendAssistant(content string, calls []contractx.ToolCall, now time.Time) {
	s.Messages = append(s.Messages, contractx.Message{
		Role:      contractx.RoleAssistant,
		Content:   content,
		ToolCalls: calls,
		CreatedAt: now.UTC(),
	})
}

func (s *Session) AppendToolResult(res contractx.ToolResult, payload string, now time.Time) {
	s.Messages = append(s.Messages, contractx.Message{
		Role:       contractx.RoleTool,
		Content:    payload,
		ToolCallID: res.ID,
		ToolName:   res.Tool,
		CreatedAt:  now.UTC(),
	})
}

// LastAssistantReply returns the content of the most recent assistant message
// that is a plain answer (no pending tool calls).
func (s *Session) LastAssistantReply() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Role == contractx.RoleAssistant && len(m.ToolCalls) == 0 {
			return m.Content, true
		}
	}
	return "", false
}

// Clone returns a deep copy so a turn can mutate freely and discard on error.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := &Session{
		ThreadID:  s.ThreadID,
		UpdatedAt: s.UpdatedAt,
	}
	if len(s.Messages) > 0 {
		cp.Messages = make([]contractx.Message, len(s.Messages))
		copy(cp.Messages, s.Messages)
		for i := range cp.Messages {
			if len(s.Messages[i].ToolCalls) > 0 {
				cp.Messages[i].ToolCalls = append([]contractx.ToolCall(nil), s.Messages[i].ToolCalls...)
			}
		}
	}
	return cp
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.ThreadID) == "" {
		return ErrInvalidThread
	}
	for i, m := range s.Messages {
		switch m.Role {
		case contractx.RoleSystem, contractx.RoleUser, contractx.RoleAssistant, contractx.RoleTool:
		default:
			return fmt.Errorf("message %d has unknown role %q", i, m.Role)
		}
		if m.Role == contractx.RoleTool && strings.TrimSpace(m.ToolName) == "" {
			return fmt.Errorf("tool message %d is missing the tool name", i)
		}
	}
	return nil
}
