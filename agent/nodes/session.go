package assistantnode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
	statex "github.com/esencia-cafe/storefront-agent/agent/state"
)

// LoadOrCreateSession fetches the thread's checkpoint, creating a fresh
// session on the first message, and appends the inbound user message to the
// working copy.
func LoadOrCreateSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := store.Load(ctx, in.ThreadID)
	switch {
	case err == nil:
	case errors.Is(err, statex.ErrSessionNotFound):
		sess = statex.NewSession(in.ThreadID, in.Now)
	default:
		return nil, err
	}

	sess.AppendUser(in.Text, in.Now)
	in.Session = sess
	return in, nil
}

// SaveSession persists the turn's full outcome. It only runs after the
// reasoning loop has produced a final answer, so a failed turn never leaves a
// partial transcript behind.
func SaveSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, err
	}
	return in, nil
}
