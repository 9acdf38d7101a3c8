package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mohammad-safakhou/askweb/config"
	"github.com/mohammad-safakhou/askweb/internal/agent"
	"github.com/mohammad-safakhou/askweb/internal/telemetry"
	"github.com/mohammad-safakhou/askweb/provider"
	"github.com/mohammad-safakhou/askweb/session"
	"github.com/mohammad-safakhou/askweb/session/inmemory"
	redis_session "github.com/mohammad-safakhou/askweb/session/redis"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch"
	"github.com/mohammad-safakhou/askweb/tools/web_search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the dependencies shared by serve and ask.
type app struct {
	cfg      *config.Config
	pipeline *agent.Pipeline
	registry *prometheus.Registry
	shutdown []func(context.Context) error
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	return config.Load(config.Options{
		ConfigPath:      flags.configPath,
		EnvFile:         flags.envFile,
		EnvFileRequired: flags.envFile != ".env",
	})
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry, version)
	if err != nil {
		return nil, err
	}
	a.shutdown = append(a.shutdown, shutdownTracing)

	searcher, err := newSearcher(cfg)
	if err != nil {
		return nil, err
	}
	llm, err := newLLM(cfg)
	if err != nil {
		return nil, err
	}

	a.pipeline = agent.NewPipeline(searcher, llm, agent.Options{
		MaxResults:  cfg.Search.MaxResults,
		TopK:        cfg.Rerank.TopK,
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		Budget:      cfg.Pipeline.Budget,
		RetryDelay:  cfg.Pipeline.RetryDelay,
		CriticMode:  agent.CriticMode(cfg.Critic.Mode),
		Reranker:    agent.NewReranker(cfg.Rerank.Strategy),
		Logger:      log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags),
		Metrics:     telemetry.NewMetrics(a.registry),
	})
	return a, nil
}

func newSearcher(cfg *config.Config) (web_search.WebSearcher, error) {
	key, _ := cfg.Search.APIKey()
	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), web_search.Options{
		APIKey:  key,
		BaseURL: cfg.Search.BaseURL,
		Timeout: cfg.Search.Timeout,
		Depth:   cfg.Search.TavilyDepth,
	})
	if err != nil {
		return nil, err
	}
	if !cfg.Search.FetchMissingContent {
		return searcher, nil
	}
	fetcher, err := web_fetch.NewWebFetcher(web_fetch.HTTPFetcherType, cfg.Search.FetchTimeout, 0)
	if err != nil {
		return nil, err
	}
	return web_search.WithContentBackfill(searcher, fetcher, log.New(log.Writer(), "[FETCH] ", log.LstdFlags)), nil
}

func newLLM(cfg *config.Config) (provider.Provider, error) {
	key, _ := cfg.LLM.APIKey()
	llm, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), provider.Options{
		APIKey:      key,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if cfg.General.Debug {
		llm = provider.WithLogging(llm, log.New(os.Stderr, "[LLM] ", log.LstdFlags))
	}
	return llm, nil
}

func (a *app) newSessionStore(ctx context.Context) (session.Store, error) {
	switch session.StoreType(a.cfg.Session.Store) {
	case session.RedisStore:
		r := a.cfg.Storage.Redis
		client, err := redis_session.Conn(ctx, r.Addr(), r.Password, r.DB, r.Timeout)
		if err != nil {
			return nil, err
		}
		a.shutdown = append(a.shutdown, func(context.Context) error { return client.Close() })
		return redis_session.NewRedisSessionStore(client), nil
	case session.InMemoryStore:
		return inmemory.NewInMemorySessionStore(), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", a.cfg.Session.Store)
	}
}

func (a *app) Close(ctx context.Context) {
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}
