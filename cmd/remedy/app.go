package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/remedy/config"
	"github.com/mohammad-safakhou/remedy/internal/agent/core"
	"github.com/mohammad-safakhou/remedy/internal/agent/telemetry"
	"github.com/mohammad-safakhou/remedy/internal/helpers"
	"github.com/mohammad-safakhou/remedy/internal/lexicon"
	"github.com/mohammad-safakhou/remedy/internal/logging"
	"github.com/mohammad-safakhou/remedy/news"
	"github.com/mohammad-safakhou/remedy/provider"
	"github.com/mohammad-safakhou/remedy/repository"
	"github.com/mohammad-safakhou/remedy/tools/web_fetch"
	"github.com/mohammad-safakhou/remedy/tools/web_search"
)

// app is everything a command needs, built once from config.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	registry     *prometheus.Registry
	telemetry    *telemetry.Telemetry
	orchestrator *core.Orchestrator
	// feeds is nil without a search key.
	feeds        *news.Retriever
	cache        repository.ReportCache
}

func loadApp(ctx context.Context, cfgPath string, withCache bool) (*app, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.General.LogLevel, cfg.General.Development)
	if err != nil {
		return nil, err
	}
	a, err := buildApp(ctx, cfg, logger, withCache)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, withCache bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	if cfg.Telemetry.Metrics {
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		tel, err := telemetry.New(a.registry)
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		a.telemetry = tel
	}

	lex := lexicon.Default()
	if cfg.Research.LexiconFile != "" {
		doc, err := os.ReadFile(cfg.Research.LexiconFile)
		if err != nil {
			return nil, fmt.Errorf("read lexicon: %w", err)
		}
		if lex, err = lexicon.Parse(doc); err != nil {
			return nil, fmt.Errorf("parse lexicon: %w", err)
		}
	}

	orch, feeds, err := buildOrchestrator(cfg, lex, logger, a.telemetry)
	if err != nil {
		return nil, err
	}
	a.orchestrator = orch
	a.feeds = feeds

	if withCache {
		cache, err := repository.NewReportCache(ctx, repository.Options{
			Backend:       repository.Backend(cfg.Cache.Backend),
			RedisAddr:     cfg.Cache.Redis.Addr,
			RedisPassword: cfg.Cache.Redis.Password,
			RedisDB:       cfg.Cache.Redis.DB,
			DialTimeout:   cfg.Cache.Redis.DialTimeout,
			Logger:        logger,
		})
		if err != nil {
			return nil, fmt.Errorf("report cache: %w", err)
		}
		a.cache = cache
	}
	return a, nil
}

func buildOrchestrator(cfg *config.Config, lex *lexicon.Lexicon, logger *zap.Logger, tel *telemetry.Telemetry) (*core.Orchestrator, *news.Retriever, error) {
	opts := []core.OrchestratorOption{core.WithLogger(logger), core.WithTelemetry(tel)}
	if cfg.MissingAPIKey() {
		// Offline requests still work; online ones are refused upstream.
		return core.NewOrchestrator(nil, nil, opts...), nil, nil
	}
	httpc := core.NewHTTPClient(cfg.You.Timeout, cfg.You.Retries, 0)

	searchURL := cfg.Research.SearchURL
	if searchURL == "" && cfg.Research.SearchProvider == string(web_search.YouProvider) {
		searchURL = cfg.You.SearchURL
	}
	search, err := web_search.NewSearchProvider(web_search.Provider(cfg.Research.SearchProvider), cfg.Research.SearchAPIKey, searchURL, httpc)
	if err != nil {
		return nil, nil, err
	}

	extractor, err := web_fetch.NewContentExtractor(web_fetch.FetcherType(cfg.Research.Extractor), web_fetch.Options{
		APIKey:   cfg.You.APIKey,
		BaseURL:  cfg.You.ContentsURL,
		HTTP:     httpc,
		Timeout:  cfg.Research.ExtractTimeout,
		MaxChars: cfg.Research.MarkdownChars,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if policy := cfg.Research.ReadPolicy; !policy.Empty() {
		extractor = web_fetch.WithSkip(extractor, policy.Skips)
	}

	gatherer := core.NewGatherer(search, extractor, core.GathererConfig{
		ResultsPerQuery:   cfg.Research.ResultsPerQuery,
		Freshness:         cfg.Research.Freshness,
		CrawlMode:         cfg.Research.CrawlMode,
		MaxAuthorityReads: cfg.Research.MaxAuthorityReads,
		MaxOtherReads:     cfg.Research.MaxOtherReads,
		MaxDeepReads:      cfg.Research.MaxDeepReads,
		MarkdownChars:     cfg.Research.MarkdownChars,
		BlockChars:        cfg.Research.BlockChars,
	}, core.WithGathererLogger(logger), core.WithGathererTelemetry(tel), core.WithLexicon(lex))

	var reasoner core.Reasoner
	rc := cfg.Research.Reasoning
	if rc.Enabled {
		baseURL := rc.BaseURL
		if baseURL == "" && rc.Provider == string(provider.You) {
			baseURL = cfg.You.AgentsURL
		}
		reasoner, err = provider.NewReasoner(provider.Client(rc.Provider), provider.Options{
			APIKey:  rc.APIKey,
			BaseURL: baseURL,
			Model:   rc.Model,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("reasoner: %w", err)
		}
	}
	synth := core.NewSynthesizer(reasoner, core.SynthesisConfig{
		Timeout:              rc.Timeout,
		MaxSteps:             rc.MaxSteps,
		Verbosity:            rc.Verbosity,
		SearchEffort:         rc.SearchEffort,
		ReportVerbosity:      rc.ReportVerbosity,
		SnippetEvidenceCount: cfg.Research.SnippetEvidence,
		Readability: helpers.ReadabilityThresholds{
			MinLength:     cfg.Readability.MinLength,
			MaxLength:     cfg.Readability.MaxLength,
			MinWords:      cfg.Readability.MinWords,
			MinAlphaRatio: cfg.Readability.MinAlphaRatio,
		},
	}, core.WithSynthesizerLogger(logger), core.WithSynthesizerTelemetry(tel), core.WithSynthesizerLexicon(lex))

	feeds := news.NewRetriever(search, news.WithLogger(logger.Named("news")), news.WithReasoner(reasoner))
	return core.NewOrchestrator(gatherer, synth, opts...), feeds, nil
}
