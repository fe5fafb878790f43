package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glefebvre/iptvcore/internal/config"
	"github.com/glefebvre/iptvcore/internal/database"
	"github.com/glefebvre/iptvcore/internal/fetcher"
	"github.com/glefebvre/iptvcore/internal/kv"
	"github.com/glefebvre/iptvcore/internal/library"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/glefebvre/iptvcore/internal/parser"
	"github.com/glefebvre/iptvcore/internal/playlist"
	"github.com/glefebvre/iptvcore/internal/splitter"
	"github.com/glefebvre/iptvcore/internal/store"
	"gorm.io/gorm"
)

// app holds the wired components shared by every command
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *gorm.DB
	kv      kv.Store
	library *library.Library
}

// newApp opens storage and wires the library from cfg
func newApp(cfg *config.Config) (*app, error) {
	log := logger.AppLogger()

	db, err := database.Open(cfg.Storage, cfg.GetDatabaseLogLevel(), logger.DatabaseLogger())
	if err != nil {
		// The legacy tier takes over when the durable tier cannot be opened
		log.WithFields(map[string]interface{}{
			"driver": cfg.Storage.Driver,
		}).Error("durable storage unavailable, using legacy tier only", err)
		db = nil
	}

	if cfg.Legacy.Backend == kv.BackendBolt {
		if err := os.MkdirAll(filepath.Dir(cfg.Legacy.BoltPath), 0o755); err != nil {
			database.Close(db)
			return nil, fmt.Errorf("failed to create legacy storage directory: %w", err)
		}
	}

	// The legacy collection and the split records share one quota
	kvStore, err := kv.Open(kv.Config{
		Backend:    cfg.Legacy.Backend,
		BoltPath:   cfg.Legacy.BoltPath,
		RedisURL:   cfg.Legacy.RedisURL,
		OpTimeout:  time.Duration(cfg.Legacy.OpTimeoutSeconds) * time.Second,
		QuotaBytes: cfg.Legacy.QuotaBytes,
	})
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to open legacy storage: %w", err)
	}

	f := fetcher.NewClient(cfg.Fetch, log)
	fallback := store.NewFallback(
		store.NewPrimaryStore(db, log),
		store.NewLegacyStore(kvStore, log),
		log,
	)
	svc := playlist.NewService(fallback, f, parser.NewParser(log), log)
	lib := library.New(svc, splitter.New(kvStore, cfg.Splitter.MaxChannels, log), f, log)
	if err := lib.SetExportFilters(cfg.Filter); err != nil {
		kvStore.Close()
		database.Close(db)
		return nil, fmt.Errorf("invalid export filters: %w", err)
	}

	return &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		kv:      kvStore,
		library: lib,
	}, nil
}

// close releases the key/value store and the database
func (a *app) close() error {
	return errors.Join(a.kv.Close(), database.Close(a.db))
}
