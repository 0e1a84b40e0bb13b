// Package sqlitestorage records into an in-memory SQLite database and dumps
// it to disk with VACUUM INTO. Writes go through the postgres backend's
// queues; only the connection and the dump loop are SQLite specific.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OCAP2/dogfight/internal/cache"
	"github.com/OCAP2/dogfight/internal/database"
	"github.com/OCAP2/dogfight/internal/storage/postgres"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // target of VACUUM INTO
}

// Backend wraps the queued GORM writer with SQLite specific behavior.
type Backend struct {
	*postgres.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// New creates a SQLite backend over a fresh in-memory database.
func New(cfg Config, entityCache *cache.EntityCache, hitCache *cache.HitCache, logger *slog.Logger) (*Backend, error) {
	db, err := database.OpenSQLite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// The in-memory database lives as long as one connection does.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", "sqlite")

	return &Backend{
		Backend: postgres.New(postgres.Dependencies{
			DB:          db,
			EntityCache: entityCache,
			HitCache:    hitCache,
			Logger:      logger,
		}),
		db:       db,
		cfg:      cfg,
		log:      logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the in-memory schema and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// EndMatch flushes the match and writes a dump straight away so the disk
// copy holds the finished match.
func (b *Backend) EndMatch() error {
	if err := b.Backend.EndMatch(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	return b.Dump()
}

// Dump writes a point-in-time copy of the database to DumpPath.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", b.cfg.DumpPath, "took", time.Since(start))
	return nil
}

// Close stops the dump goroutine, flushes the writer and takes a last dump.
func (b *Backend) Close() error {
	var err error
	b.once.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
		err = b.Backend.Close()
		if err == nil && b.cfg.DumpPath != "" {
			err = b.Dump()
		}
	})
	return err
}

func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
