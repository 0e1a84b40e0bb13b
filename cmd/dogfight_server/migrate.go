package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/OCAP2/dogfight/internal/cache"
	"github.com/OCAP2/dogfight/internal/config"
	"github.com/OCAP2/dogfight/internal/logging"
	"github.com/OCAP2/dogfight/internal/storage"
	sqlitestorage "github.com/OCAP2/dogfight/internal/storage/sqlite"
)

var errMigrateToSQLite = errors.New("migrate needs a non-sqlite storage type")

// migrate replays the SQLite dumps in dir into the configured backend. An
// empty dir means the directory the SQLite backend dumps to.
func migrate(dir string) error {
	sm := logging.NewSlogManager()
	sm.Setup(logging.Options{Level: config.GetString("logLevel")})
	log := sm.Logger()

	cfg := config.GetStorageConfig()
	if cfg.Type == "sqlite" {
		return errMigrateToSQLite
	}
	if dir == "" {
		dir = filepath.Dir(storage.DumpPath(cfg, time.Time{}))
	}

	backend, err := storage.NewBackend(cfg, storage.Dependencies{
		EntityCache: cache.NewEntityCache(),
		HitCache:    cache.NewHitCache(),
		Logger:      log,
		DBConfig:    config.GetDBConfig(),
		ServerURL:   config.GetAPIConfig().ServerURL,
		StartedAt:   time.Now(),
	})
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("init %s storage: %w", cfg.Type, err)
	}

	migrated, err := sqlitestorage.MigrateBackups(dir, backend, log)
	closeErr := backend.Close()
	if err != nil {
		return errors.Join(err, closeErr)
	}
	log.Info("Migration finished", "dir", dir, "files", len(migrated), "storage", cfg.Type)
	return closeErr
}
