package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/bethelevents/assessor/internal/api"
	"github.com/bethelevents/assessor/internal/catalog"
	"github.com/bethelevents/assessor/internal/config"
	dbstore "github.com/bethelevents/assessor/internal/db"
	"github.com/bethelevents/assessor/internal/llm"
	"github.com/bethelevents/assessor/internal/middleware"
	"github.com/bethelevents/assessor/internal/policy"
	"github.com/bethelevents/assessor/internal/services"
	"github.com/bethelevents/assessor/internal/telemetry"
)

// app holds every wired component. close releases the store and flushes telemetry.
type app struct {
	cfg       *config.Config
	viper     *viper.Viper
	level     *slog.LevelVar
	store     api.Store
	telemetry telemetry.Client
	forms     *services.FormService
	responses *services.ResponseService
	auth      *middleware.Authenticator
	closers   []io.Closer
}

func newApp(ctx context.Context, cfgFile string, logOut io.Writer) (*app, error) {
	cfg, v, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	level := config.SetupLogger(logOut, cfg.Log.Level, cfg.Log.Format)
	config.Watch(v, level)

	fs := afero.NewOsFs()
	bank, err := catalog.LoadFile(fs, cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	engine, err := policy.LoadEngine(ctx, fs, cfg.Policy.Path)
	if err != nil {
		return nil, fmt.Errorf("load visibility policy: %w", err)
	}

	a := &app{cfg: cfg, viper: v, level: level, auth: middleware.NewAuthenticator(cfg.Auth.JWTSecret)}

	a.telemetry, err = telemetry.New(telemetry.Config{
		APIKey:   cfg.Telemetry.PostHogKey,
		Endpoint: cfg.Telemetry.Endpoint,
		Version:  version,
	})
	if err != nil {
		slog.Warn("telemetry disabled", "error", err)
		a.telemetry = telemetry.NewNoopClient()
	}
	a.closers = append(a.closers, a.telemetry)

	store, closer, err := openStore(ctx, fs, cfg.DB)
	if err != nil {
		_ = a.close()
		return nil, err
	}
	a.store = store
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	gen := newTextGenerator(ctx, cfg.LLM)
	a.forms = services.NewFormService(store, services.FormOptions{
		TTL:             cfg.Forms.TTL,
		ShortCodeLength: cfg.Forms.ShortCodeLength,
	}, a.telemetry)
	insight := services.NewInsightSynthesizer(gen, cfg.LLM.Timeout, a.telemetry)
	a.responses = services.NewResponseService(store, a.forms, bank, insight, services.NewPresenter(bank, engine), a.telemetry)

	slog.Debug("app wired", "db_driver", cfg.DB.Driver, "llm_provider", cfg.LLM.Provider,
		"catalog_version", bank.Version(), "questions", len(bank.Questions()))
	return a, nil
}

func openStore(ctx context.Context, fs afero.Fs, cfg config.DB) (api.Store, io.Closer, error) {
	switch cfg.Driver {
	case "memory":
		slog.Warn("using in-memory store; data is lost on restart")
		return api.NewMemoryStore(), nil, nil
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		s, err := dbstore.Open(ctx, cfg.Path, fs, cfg.MigrationsDir)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
}

// newTextGenerator returns nil when generation is disabled or misconfigured;
// narratives then degrade to empty fields instead of failing submissions.
func newTextGenerator(ctx context.Context, cfg config.LLM) services.TextGenerator {
	provider, err := llm.ValidateProvider(cfg.Provider)
	if err != nil {
		slog.Warn("narrative generation disabled", "error", err)
		return nil
	}
	gen, err := llm.New(ctx, llm.Config{
		Provider:    provider,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		slog.Warn("narrative generation disabled", "provider", provider, "error", err)
		return nil
	}
	if gen == nil {
		slog.Info("narrative generation disabled", "provider", provider)
		return nil
	}
	return gen
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
