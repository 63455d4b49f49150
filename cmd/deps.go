package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/YalmanchiliTejas/Product-manager/internal/cache"
	"github.com/YalmanchiliTejas/Product-manager/internal/evidence"
	"github.com/YalmanchiliTejas/Product-manager/internal/llm"
	"github.com/YalmanchiliTejas/Product-manager/internal/memory"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
	"github.com/YalmanchiliTejas/Product-manager/internal/orchestrator"
	"github.com/YalmanchiliTejas/Product-manager/internal/react"
	"github.com/YalmanchiliTejas/Product-manager/internal/session"
	"github.com/YalmanchiliTejas/Product-manager/internal/store"
	"github.com/YalmanchiliTejas/Product-manager/internal/tickets"
	"github.com/YalmanchiliTejas/Product-manager/internal/tools"
)

// app bundles the wired dependency graph for one command invocation.
type app struct {
	cache    *cache.Service
	memory   *memory.Hooks
	sessions *session.Manager
	orch     *orchestrator.Orchestrator
}

// apiKey resolves the Anthropic API key from config or environment.
func apiKey() string {
	key := viper.GetString("anthropic.api_key")
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	return key
}

// newProviders creates the reasoning providers from config. The native
// provider carries extended thinking and prompt caching; the basic provider
// is the fallback strategy.
func newProviders() (native, fallback llm.Provider, err error) {
	key := apiKey()
	if key == "" {
		return nil, nil, fmt.Errorf("no API key configured: set anthropic.api_key or ANTHROPIC_API_KEY")
	}
	model := viper.GetString("anthropic.model")
	fastModel := viper.GetString("anthropic.fast_model")
	timeout := time.Duration(viper.GetInt("anthropic.timeout_seconds")) * time.Second

	return llm.NewNativeClient(key, model, fastModel, timeout),
		llm.NewBasicClient(key, fastModel, timeout), nil
}

// buildApp wires the full dependency graph. docs seed the evidence chunk
// store; pass nil when sessions will arrive with their own documents (the
// evidence store tool then reports itself unavailable).
func buildApp(docs []models.SourceDocument) (*app, error) {
	native, fallback, err := newProviders()
	if err != nil {
		return nil, err
	}

	// Persistence is best-effort: without a database everything still works
	// in-process, it just isn't resumable or remembered across sessions.
	s, err := getStore()
	if err != nil {
		ui.Warning("running without persistence: %v", err)
		s = nil
	}

	var backing cache.Backing
	if s != nil {
		backing = store.NewCacheBacking(s)
	}
	cacheService := cache.New(backing)

	var memStore memory.Store
	if s != nil {
		memStore = s
	}
	hooks := memory.NewHooks(memStore, native)

	var evStore evidence.Store
	if len(docs) > 0 {
		evStore = evidence.NewChunkStore(docs)
	}
	registry := tools.NewRegistry(evidence.NewKeywordIndex(), evStore, hooks)

	engine := react.New(native, fallback, registry, cacheService)
	gen := tickets.NewGenerator(native, cacheService)
	orch := orchestrator.New(native, engine, gen, hooks)
	sessions := session.NewManager(s, cacheService, hooks)

	return &app{
		cache:    cacheService,
		memory:   hooks,
		sessions: sessions,
		orch:     orch,
	}, nil
}
