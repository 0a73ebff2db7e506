// Package assistant is the agent orchestration core: one HandleMessage call
// is one conversational turn for one thread.
package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/esencia-cafe/storefront-agent/agent/contract"
	nodex "github.com/esencia-cafe/storefront-agent/agent/nodes"
	statex "github.com/esencia-cafe/storefront-agent/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidThread  = nodex.ErrInvalidThread
)

const defaultFallbackReply = "Ups, hubo un problema 😕"

type Config struct {
	SystemPrompt   string
	StockIndexName string
	MaxRounds      int
	FallbackReply  string
}

// Assistant runs the per-turn pipeline. Turns for different threads run
// concurrently; turns for the same thread are serialized so the transcript
// cannot interleave.
type Assistant struct {
	store statex.Store
	fresh contractx.Freshener
	tools nodex.ToolRunner
	model einomodel.ToolCallingChatModel

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	systemPrompt   string
	stockIndexName string
	maxRounds      int
	fallbackReply  string

	mu          sync.Mutex
	threadLocks map[string]*sync.Mutex

	now func() time.Time
}

func New(
	store statex.Store,
	chatModel einomodel.ToolCallingChatModel,
	tools nodex.ToolRunner,
	fresh contractx.Freshener,
	cfg Config,
) (*Assistant, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if tools == nil {
		return nil, errors.New("tool registry is required")
	}
	if fresh == nil {
		return nil, errors.New("index synchronizer is required")
	}

	bound, err := chatModel.WithTools(tools.Infos())
	if err != nil {
		return nil, err
	}

	stockIndexName := strings.TrimSpace(cfg.StockIndexName)
	if stockIndexName == "" {
		stockIndexName = "stock"
	}
	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = nodex.DefaultMaxRounds
	}
	fallbackReply := strings.TrimSpace(cfg.FallbackReply)
	if fallbackReply == "" {
		fallbackReply = defaultFallbackReply
	}

	a := &Assistant{
		store:          store,
		fresh:          fresh,
		tools:          tools,
		model:          bound,
		systemPrompt:   strings.TrimSpace(cfg.SystemPrompt),
		stockIndexName: stockIndexName,
		maxRounds:      maxRounds,
		fallbackReply:  fallbackReply,
		threadLocks:    make(map[string]*sync.Mutex),
		now:            time.Now,
	}

	graphRunner, err := a.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	a.graphRunner = graphRunner

	return a, nil
}

// HandleMessage runs one turn and returns the assistant's reply. Turn-fatal
// failures (pool exhaustion, a reasoning loop that never converges) degrade
// to an apologetic fallback: the session was not mutated, so the next user
// turn starts clean.
func (a *Assistant) HandleMessage(ctx context.Context, threadID string, text string) (string, error) {
	lock := a.lockFor(strings.TrimSpace(threadID))
	lock.Lock()
	defer lock.Unlock()

	out, err := a.graphRunner.Invoke(ctx, nodex.GraphInput{
		ThreadID: threadID,
		Text:     text,
	})
	if err != nil {
		if errors.Is(err, contractx.ErrPoolExhausted) || errors.Is(err, contractx.ErrReasoningExceeded) {
			log.Error().Err(err).Str("thread_id", threadID).Msg("turn degraded to fallback reply")
			return a.fallbackReply, nil
		}
		return "", err
	}
	return out.Reply, nil
}

// lockFor never evicts: the map grows with the set of thread ids this process
// has served, a few dozen bytes per conversation.
func (a *Assistant) lockFor(threadID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.threadLocks[threadID]
	if !ok {
		lock = new(sync.Mutex)
		a.threadLocks[threadID] = lock
	}
	return lock
}
