package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	assistantx "github.com/esencia-cafe/storefront-agent/agent/agents/assistant"
	catalogx "github.com/esencia-cafe/storefront-agent/agent/catalog"
	indexx "github.com/esencia-cafe/storefront-agent/agent/index"
	llmx "github.com/esencia-cafe/storefront-agent/agent/llm"
	promptx "github.com/esencia-cafe/storefront-agent/agent/prompt"
	statex "github.com/esencia-cafe/storefront-agent/agent/state"
	syncx "github.com/esencia-cafe/storefront-agent/agent/sync"
	toolx "github.com/esencia-cafe/storefront-agent/agent/tool"
	configx "github.com/esencia-cafe/storefront-agent/pkg/config"
	_ "github.com/esencia-cafe/storefront-agent/pkg/logger/autoload"
	openrouterx "github.com/esencia-cafe/storefront-agent/pkg/openrouter"
)

type ServerConfig struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverCfg := configx.MustNew[ServerConfig]("SERVER")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	pgCfg := configx.MustNew[statex.PostgresConfig]("POSTGRES")
	catalogCfg := configx.MustNew[catalogx.Config]("CATALOG")
	indexCfg := configx.MustNew[indexx.Config]("INDEX")
	toolCfg := configx.MustNew[toolx.Config]("TOOL")

	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm configuration")
	}

	store, err := statex.NewPostgresStore(*pgCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open session store")
	}
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate session store")
	}
	sessions := statex.NewGuard(store)

	catalog, err := catalogx.NewCSVCatalog(catalogCfg.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open catalog")
	}

	searchIndex, err := indexx.Open(indexCfg.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open search index")
	}
	defer searchIndex.Close()

	synchronizer := syncx.New(catalog, searchIndex)

	watcher, err := catalogx.NewWatcher(catalog.Path(), func() {
		synchronizer.Invalidate(toolCfg.StockIndexName)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to watch catalog file")
	}
	defer watcher.Stop()

	prompts := promptx.LoadPromptSet()

	extractorClient := openrouterx.NewClient(llmCfg.OpenRouterFor(llmx.RoleExtractor))
	extractor, err := toolx.NewModelExtractor(extractorClient, llmCfg.ModelFor(llmx.RoleExtractor), prompts.GetOrder)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build order extractor")
	}

	registry, err := toolx.NewRegistry(*toolCfg, extractor, synchronizer, searchIndex, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build tool registry")
	}

	assistantModelCfg := llmCfg.OpenRouterFor(llmx.RoleAssistant)
	chatModel, err := assistantModelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build chat model")
	}

	agent, err := assistantx.New(sessions, chatModel, registry, synchronizer, assistantx.Config{
		SystemPrompt:   prompts.Assistant,
		StockIndexName: toolCfg.StockIndexName,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build assistant")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /client/agent", handleAgentMessage(agent))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:         serverCfg.Addr,
		Handler:      mux,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", serverCfg.Addr).Msg("storefront agent listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func handleAgentMessage(agent *assistantx.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threadID := r.URL.Query().Get("idagente")
		message := r.URL.Query().Get("msg")

		reply, err := agent.HandleMessage(r.Context(), threadID, message)
		if err != nil {
			if errors.Is(err, assistantx.ErrInvalidThread) || errors.Is(err, assistantx.ErrInvalidMessage) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			log.Error().Err(err).Str("thread_id", threadID).Msg("turn failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
