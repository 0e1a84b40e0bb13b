package storage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/dogfight/internal/cache"
	"github.com/OCAP2/dogfight/internal/config"
	"github.com/OCAP2/dogfight/internal/storage/memory"
	"github.com/OCAP2/dogfight/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/dogfight/internal/storage/sqlite"
	wsstorage "github.com/OCAP2/dogfight/internal/storage/websocket"
)

// Dependencies are handed to whichever backend NewBackend builds.
type Dependencies struct {
	EntityCache *cache.EntityCache
	HitCache    *cache.HitCache
	Logger      *slog.Logger
	DBConfig    config.DBConfig
	ServerURL   string    // recording server, used when no websocket URL is set
	StartedAt   time.Time // names the SQLite dump when no path is set
}

// NewBackend creates a storage backend based on configuration. An empty
// type selects the memory backend.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.EntityCache == nil {
		deps.EntityCache = cache.NewEntityCache()
	}
	if deps.HitCache == nil {
		deps.HitCache = cache.NewHitCache()
	}

	switch cfg.Type {
	case "", "memory":
		return memory.New(cfg.Memory), nil

	case "postgres":
		return postgres.New(postgres.Dependencies{
			DBConfig:    deps.DBConfig,
			EntityCache: deps.EntityCache,
			HitCache:    deps.HitCache,
			Logger:      deps.Logger.With("backend", "postgres"),
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     DumpPath(cfg, deps.StartedAt),
		}, deps.EntityCache, deps.HitCache, deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case "websocket":
		url := cfg.Websocket.URL
		if url == "" {
			url = HTTPToWS(deps.ServerURL) + "/api"
		}
		return wsstorage.New(wsstorage.Config{URL: url, Secret: cfg.Websocket.Secret}, deps.Logger), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// DumpPath is where the SQLite backend writes its dumps: the configured
// path, or a timestamped file in the recordings directory.
func DumpPath(cfg config.StorageConfig, startedAt time.Time) string {
	if cfg.SQLite.DumpPath != "" {
		return cfg.SQLite.DumpPath
	}
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	return filepath.Join(cfg.Memory.OutputDir, fmt.Sprintf("dogfight_%s.db", startedAt.Format("20060102_150405")))
}

// HTTPToWS converts an HTTP(S) URL to a WebSocket URL.
func HTTPToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
