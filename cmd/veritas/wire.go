package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bryanwahyu/veritas/internal/application"
	appanalysis "github.com/bryanwahyu/veritas/internal/application/analysis"
	appevidence "github.com/bryanwahyu/veritas/internal/application/evidence"
	"github.com/bryanwahyu/veritas/internal/config"
	domain "github.com/bryanwahyu/veritas/internal/domain/analysis"
	"github.com/bryanwahyu/veritas/internal/domain/archive"
	"github.com/bryanwahyu/veritas/internal/infra/ai/openai"
	"github.com/bryanwahyu/veritas/internal/infra/ai/prompt"
	mysqlp "github.com/bryanwahyu/veritas/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/veritas/internal/infra/db/postgres"
	"github.com/bryanwahyu/veritas/internal/infra/scraper/firecrawl"
	"github.com/bryanwahyu/veritas/internal/infra/storage"
	"github.com/bryanwahyu/veritas/internal/logger"
	"github.com/bryanwahyu/veritas/internal/middleware"
)

// app is everything the commands need, built once from config.
type app struct {
	service  *appanalysis.Service
	archive  archive.Repository
	checkers map[string]middleware.HealthChecker
	db       *sql.DB
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// ready fails while a credential needed for URL analysis is missing.
func (a *app) ready() error {
	if a.service.Reasoner == nil {
		return errors.New("openai api key is not configured")
	}
	if a.service.Acquirer == nil {
		return errors.New("firecrawl api key is not configured")
	}
	return nil
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	clock := application.SystemClock{}
	a := &app{checkers: map[string]middleware.HealthChecker{}}

	svc := &appanalysis.Service{
		Prompts: prompt.NewBuilder(),
		Normalizer: domain.Normalizer{
			Scores:          domain.NewScoreNormalizer(cfg.Scoring.Granularity, cfg.Scoring.Default),
			Names:           domain.NewNameResolver(cfg.Names.MaxLength, cfg.Names.BannedPhrases),
			StandardVerdict: cfg.Scoring.StandardVerdict,
		},
		Clock:              clock,
		MaxContentChars:    cfg.Analysis.MaxContentChars,
		ScreenshotFallback: cfg.Analysis.ScreenshotFallback,
	}
	a.service = svc

	// nil interfaces, not typed nils, when a credential is absent
	if cfg.OpenAI.APIKey != "" {
		svc.Reasoner = openai.NewClient(openai.Config{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Models:       cfg.OpenAI.Models,
			SearchModels: cfg.OpenAI.SearchModels,
			RetryDelay:   cfg.OpenAI.RetryDelay,
			Clock:        clock,
		})
	} else {
		logger.Log.Warn("[config] OPENAI_API_KEY is not set, analysis is disabled")
	}
	if cfg.Firecrawl.APIKey != "" {
		scraper := firecrawl.NewClient(firecrawl.Config{
			APIKey:   cfg.Firecrawl.APIKey,
			BaseURL:  cfg.Firecrawl.BaseURL,
			Version:  cfg.Firecrawl.Version,
			Timeout:  cfg.Firecrawl.Timeout,
			RetryMax: cfg.Firecrawl.RetryMax,
		})
		acq := appevidence.DefaultConfig()
		acq.MaxAttempts = cfg.Acquisition.MaxAttempts
		acq.Backoff = cfg.Acquisition.Backoff
		acq.MinContentLength = cfg.Acquisition.MinContentLength
		if len(cfg.Acquisition.BlockPhrases) > 0 {
			acq.BlockPhrases = cfg.Acquisition.BlockPhrases
		}
		if len(cfg.Acquisition.HostileDomains) > 0 {
			acq.HostileDomains = cfg.Acquisition.HostileDomains
		}
		acq.CacheTTL = cfg.Acquisition.CacheTTL
		acq.Mobile = cfg.Acquisition.Mobile
		acq.WaitFor = cfg.Acquisition.WaitFor
		svc.Acquirer = appevidence.NewAcquirer(scraper, clock, acq)
	} else {
		logger.Log.Warn("[config] FIRECRAWL_API_KEY is not set, URL analysis is disabled")
	}

	if cfg.Minio.Enabled {
		store, err := storage.New(ctx, storage.Config{
			Endpoint:   cfg.Minio.Endpoint,
			Region:     cfg.Minio.Region,
			Bucket:     cfg.Minio.BucketName,
			AccessKey:  cfg.Minio.AccessKey,
			SecretKey:  cfg.Minio.SecretKey,
			UseSSL:     cfg.Minio.UseSSL,
			PublicBase: cfg.Minio.PublicBase,
		})
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		svc.Images = store
	}

	switch cfg.Archive.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		repo := mysqlp.NewArchiveRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("mysql schema: %w", err)
		}
		a.db, a.archive = db, repo
	case "postgres":
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		repo := postgresp.NewArchiveRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		a.db, a.archive = db, repo
	}
	if a.archive != nil {
		svc.Archive = a.archive
		a.checkers["archive"] = &middleware.DatabaseHealthChecker{DB: a.db}
	}
	return a, nil
}
