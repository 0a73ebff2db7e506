package assistantnode

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
)

const DefaultMaxRounds = 8

// Reason drives the turn's state machine: MODEL_REASONING, then
// TOOL_DISPATCH and back, until the model answers in plain text or the round
// bound trips. All tool calls of one round run in parallel and their results
// are appended in call order before the next round.
func Reason(
	ctx context.Context,
	in *GraphState,
	chatModel einomodel.BaseChatModel,
	tools ToolRunner,
	systemPrompt string,
	maxRounds int,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	history := toSchemaMessages(systemPrompt, in.Session.Messages)

	for round := 1; round <= maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out, err := chatModel.Generate(ctx, history)
		if err != nil {
			return nil, fmt.Errorf("%w: reasoning round %d: %v", contractx.ErrModelInvoke, round, err)
		}
		if out == nil {
			return nil, fmt.Errorf("%w: reasoning round %d returned nil message", contractx.ErrModelInvoke, round)
		}

		if len(out.ToolCalls) == 0 {
			reply := strings.TrimSpace(out.Content)
			if reply == "" {
				return nil, fmt.Errorf("%w: model returned neither answer nor tool calls", contractx.ErrModelInvoke)
			}
			in.Session.AppendAssistant(reply, nil, in.Now)
			in.Reply = reply
			return in, nil
		}

		calls := toContractCalls(out.ToolCalls)
		// Generated IDs must also land on the history copy: the tool messages
		// below reference them, and the provider never saw a blank ID.
		for i := range calls {
			out.ToolCalls[i].ID = calls[i].ID
		}
		in.Session.AppendAssistant(out.Content, calls, in.Now)
		history = append(history, out)

		log.Debug().Int("round", round).Int("tool_calls", len(calls)).Msg("dispatching tool calls")
		results := tools.DispatchAll(ctx, calls)

		for _, res := range results {
			payload := renderToolPayload(res)
			in.Session.AppendToolResult(res, payload, in.Now)
			history = append(history, &schema.Message{
				Role:       schema.Tool,
				Content:    payload,
				ToolCallID: res.ID,
			})
		}
	}

	return nil, fmt.Errorf("%w: no final answer after %d rounds", contractx.ErrReasoningExceeded, maxRounds)
}

func toSchemaMessages(systemPrompt string, msgs []contractx.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		out = append(out, schema.SystemMessage(systemPrompt))
	}

	for _, m := range msgs {
		switch m.Role {
		case contractx.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case contractx.RoleAssistant:
			out = append(out, &schema.Message{
				Role:      schema.Assistant,
				Content:   m.Content,
				ToolCalls: toSchemaCalls(m.ToolCalls),
			})
		case contractx.RoleTool:
			out = append(out, &schema.Message{
				Role:       schema.Tool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		case contractx.RoleSystem:
			// The system prompt is injected fresh each turn; persisted system
			// entries are skipped rather than duplicated.
		}
	}
	return out
}

func toSchemaCalls(calls []contractx.ToolCall) []schema.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]schema.ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, schema.ToolCall{
			ID:   c.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      c.Name,
				Arguments: string(c.Arguments),
			},
		})
	}
	return out
}

func toContractCalls(calls []schema.ToolCall) []contractx.ToolCall {
	out := make([]contractx.ToolCall, 0, len(calls))
	for _, c := range calls {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			id = uuid.NewString()
		}
		out = append(out, contractx.ToolCall{
			ID:        id,
			Name:      strings.TrimSpace(c.Function.Name),
			Arguments: json.RawMessage(c.Function.Arguments),
		})
	}
	return out
}

// renderToolPayload turns a ToolResult into the transcript/tool-message body
// the model reads on the next round.
func renderToolPayload(res contractx.ToolResult) string {
	if res.Error != "" {
		return "ERROR: " + res.Error
	}
	payload, err := json.Marshal(res.Result)
	if err != nil {
		return fmt.Sprintf("ERROR: encode result for tool=%s: %v", res.Tool, err)
	}
	return string(payload)
}
