package contract

import "errors"

var (
	// ErrSyncFailed: index rebuild failed; the marker is untouched, so the
	// next freshness check retries the full rebuild.
	ErrSyncFailed = errors.New("index synchronization failed")

	// ErrSchema: tool arguments do not match the declared schema, or the tool
	// itself is undeclared. Non-fatal, reported into the transcript.
	ErrSchema = errors.New("tool arguments violate schema")

	// ErrToolExecution: a declared tool failed internally. Non-fatal,
	// reported into the transcript with the tool name.
	ErrToolExecution = errors.New("tool execution failed")

	// ErrReasoningExceeded: the reasoning loop hit its round bound without a
	// final answer. Fatal to the turn; the caller replies with a fallback.
	ErrReasoningExceeded = errors.New("reasoning round limit exceeded")

	// ErrPoolExhausted: the session store pool timed out. Fatal to the turn;
	// session state was not mutated, so the next turn retries normally.
	ErrPoolExhausted = errors.New("session store pool exhausted")

	ErrValidation  = errors.New("validation failed")
	ErrModelInvoke = errors.New("model invoke failed")
)
