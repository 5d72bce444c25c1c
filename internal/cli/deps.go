package cli

import (
	"fmt"

	"github.com/asteroid-belt/stash/internal/api"
	"github.com/asteroid-belt/stash/internal/archive"
	"github.com/asteroid-belt/stash/internal/auth"
	"github.com/asteroid-belt/stash/internal/canonical"
	"github.com/asteroid-belt/stash/internal/config"
	"github.com/asteroid-belt/stash/internal/db"
	"github.com/asteroid-belt/stash/internal/syncer"
)

// app bundles the wired-up collaborators a command needs. Built per
// invocation; Close releases the database.
type app struct {
	cfg      *config.Config
	database *db.DB
	canon    *canonical.Canonicalizer
	cache    *archive.Manager
	engine   *syncer.Engine
}

// openApp loads config and wires the store, API client, archive cache,
// and sync engine together.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	paths := config.GetPaths(cfg)
	database, err := db.New(db.DefaultConfig(paths.Database))
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	tokens := auth.StaticProvider{Token: cfg.API.Token}
	client := api.NewClient(api.ClientConfig{
		BaseURL:           cfg.API.BaseURL,
		RequestsPerMinute: cfg.API.RequestsPerMinute,
	}, tokens, nil)

	cache, err := archive.NewManager(database, archive.Config{
		Dir:     cfg.Archive.Dir,
		QuotaMB: cfg.Archive.QuotaMB,
	}, tokens)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("initialize archive cache: %w", err)
	}

	engine := syncer.New(database, client, cache, telemetryClient, syncer.Config{
		PageSize:   cfg.Sync.PageSize,
		ModelHints: cfg.Sync.ModelHints,
	})

	return &app{
		cfg:      cfg,
		database: database,
		canon:    canonical.New(cfg.Canonical.SessionAllowlist...),
		cache:    cache,
		engine:   engine,
	}, nil
}

func (a *app) Close() {
	_ = a.database.Close()
}
