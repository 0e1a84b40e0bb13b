// Package postgres implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine. It works on any
// GORM dialect; the sqlite backend reuses it on an in-memory database.
package postgres

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/dogfight/internal/cache"
	"github.com/OCAP2/dogfight/internal/config"
	"github.com/OCAP2/dogfight/internal/database"
	"github.com/OCAP2/dogfight/internal/model"
	"github.com/OCAP2/dogfight/internal/model/convert"
	"github.com/OCAP2/dogfight/internal/queue"
	"github.com/OCAP2/dogfight/pkg/core"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultFlushInterval is how often queued rows are written.
const DefaultFlushInterval = 2 * time.Second

// maxPendingStates caps the state rows held while the database is
// unreachable; the oldest go first.
const maxPendingStates = 1 << 19

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB // opened from DBConfig when nil
	DBConfig      config.DBConfig
	EntityCache   *cache.EntityCache
	HitCache      *cache.HitCache
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Aircraft         *queue.Queue[model.Aircraft]
	AircraftStates   *queue.Queue[model.AircraftState]
	FiredEvents      *queue.Queue[model.FiredEvent]
	HitEvents        *queue.Queue[model.HitEvent]
	KillEvents       *queue.Queue[model.KillEvent]
	ProjectileEvents *queue.Queue[model.ProjectileEvent]
	LockEvents       *queue.Queue[model.LockEvent]
	AuthorityEvents  *queue.Queue[model.AuthorityEvent]
	GeneralEvents    *queue.Queue[model.GeneralEvent]
}

func newQueues() *queues {
	return &queues{
		Aircraft:         queue.New[model.Aircraft](),
		AircraftStates:   queue.NewBounded[model.AircraftState](maxPendingStates),
		FiredEvents:      queue.New[model.FiredEvent](),
		HitEvents:        queue.New[model.HitEvent](),
		KillEvents:       queue.New[model.KillEvent](),
		ProjectileEvents: queue.New[model.ProjectileEvent](),
		LockEvents:       queue.New[model.LockEvent](),
		AuthorityEvents:  queue.New[model.AuthorityEvent](),
		GeneralEvents:    queue.New[model.GeneralEvent](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	matchID  atomic.Uint64
	lastDur  atomic.Int64
	stopChan chan struct{}
	done     chan struct{}
	flushMu  sync.Mutex
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.EntityCache == nil {
		deps.EntityCache = cache.NewEntityCache()
	}
	if deps.HitCache == nil {
		deps.HitCache = cache.NewHitCache()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// Init runs schema migration and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.deps.DBConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// DB exposes the connection for backends layered on top of this one.
func (b *Backend) DB() *gorm.DB { return b.deps.DB }

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	<-b.done
	return nil
}

// StartMatch inserts the match row synchronously so queued rows can be
// stamped with its ID.
func (b *Backend) StartMatch(match *core.Match) error {
	b.deps.EntityCache.Reset()
	b.deps.HitCache.Reset()

	if b.deps.DB == nil {
		return nil
	}

	row := convert.CoreToMatch(*match)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new match: %w", err)
	}
	match.ID = row.ID
	b.matchID.Store(uint64(row.ID))
	b.deps.Logger.Info("Match started", "matchId", row.ID, "session", match.SessionID)
	return nil
}

// SetMatchID points the writer at an existing match (used by replay).
func (b *Backend) SetMatchID(id uint) {
	b.matchID.Store(uint64(id))
}

// MatchID is the row ID of the current match, 0 before StartMatch.
func (b *Backend) MatchID() uint {
	return uint(b.matchID.Load())
}

// EndMatch drains every queue and stamps the match end time.
func (b *Backend) EndMatch() error {
	if b.deps.DB == nil {
		return nil
	}
	b.flush()

	id := b.MatchID()
	if id == 0 {
		return nil
	}
	now := time.Now()
	if err := b.deps.DB.Model(&model.Match{}).Where("id = ?", id).Update("end_time", now).Error; err != nil {
		return fmt.Errorf("failed to close match %d: %w", id, err)
	}
	return nil
}

// AddAircraft queues the aircraft row. A second registration of the same ID
// overwrites the first.
func (b *Backend) AddAircraft(a *core.Aircraft) error {
	b.queues.Aircraft.Push(convert.CoreToAircraft(*a))
	return nil
}

func (b *Backend) RecordAircraftState(s *core.AircraftState) error {
	b.queues.AircraftStates.Push(convert.CoreToAircraftState(*s))
	return nil
}

func (b *Backend) RecordFiredEvent(e *core.FiredEvent) error {
	b.queues.FiredEvents.Push(convert.CoreToFiredEvent(*e))
	return nil
}

func (b *Backend) RecordHitEvent(e *core.HitEvent) error {
	b.queues.HitEvents.Push(convert.CoreToHitEvent(*e))
	return nil
}

func (b *Backend) RecordKillEvent(e *core.KillEvent) error {
	b.queues.KillEvents.Push(convert.CoreToKillEvent(*e))
	return nil
}

func (b *Backend) RecordProjectileEvent(e *core.ProjectileEvent) error {
	b.queues.ProjectileEvents.Push(convert.CoreToProjectileEvent(*e))
	return nil
}

func (b *Backend) RecordLockEvent(e *core.LockEvent) error {
	b.queues.LockEvents.Push(convert.CoreToLockEvent(*e))
	return nil
}

func (b *Backend) RecordAuthorityEvent(e *core.AuthorityEvent) error {
	b.queues.AuthorityEvents.Push(convert.CoreToAuthorityEvent(*e))
	return nil
}

func (b *Backend) RecordGeneralEvent(e *core.GeneralEvent) error {
	b.queues.GeneralEvents.Push(convert.CoreToGeneralEvent(*e))
	return nil
}

// RecordServerPerformance inserts a performance sample immediately.
func (b *Backend) RecordServerPerformance(p *core.ServerPerformance) error {
	id := b.MatchID()
	if b.deps.DB == nil || id == 0 {
		return nil
	}
	row := convert.CoreToServerPerformance(*p)
	row.MatchID = id
	return b.deps.DB.Create(&row).Error
}

// LastWriteDuration is how long the last flush took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastDur.Load())
}

// Pending is the number of rows waiting for the writer.
func (b *Backend) Pending() int {
	q := b.queues
	return q.Aircraft.Len() + q.AircraftStates.Len() + q.FiredEvents.Len() + q.HitEvents.Len() +
		q.KillEvents.Len() + q.ProjectileEvents.Len() + q.LockEvents.Len() + q.AuthorityEvents.Len() +
		q.GeneralEvents.Len()
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches go back on the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T), onSuccess func([]T)) {
	items := q.Drain()
	if len(items) == 0 {
		return
	}

	tx := db.Begin()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error writing batch", "table", name, "rows", len(items), "error", err)
		tx.Rollback()
		q.Requeue(items)
		return
	}

	tx.Commit()
	if onSuccess != nil {
		onSuccess(items)
	}
}

// stamp returns a prepare func that sets the match ID on every row.
func stamp[T any](set func(*T)) func([]T) {
	return func(items []T) {
		for i := range items {
			set(&items[i])
		}
	}
}

// flush drains every queue once, in foreign key order.
func (b *Backend) flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	matchID := uint(b.matchID.Load())
	if matchID == 0 {
		return
	}
	db := b.deps.DB
	log := b.deps.Logger
	start := time.Now()
	defer func() { b.lastDur.Store(int64(time.Since(start))) }()

	writeQueue(db.Clauses(clause.OnConflict{UpdateAll: true}), b.queues.Aircraft, "aircraft", log,
		stamp(func(a *model.Aircraft) { a.MatchID = matchID }), nil)

	writeQueue(db, b.queues.AircraftStates, "aircraft states", log,
		stamp(func(s *model.AircraftState) { s.MatchID = matchID }), nil)
	writeQueue(db, b.queues.FiredEvents, "fired events", log,
		stamp(func(e *model.FiredEvent) { e.MatchID = matchID }), nil)
	writeQueue(db, b.queues.HitEvents, "hit events", log,
		stamp(func(e *model.HitEvent) { e.MatchID = matchID }),
		func(items []model.HitEvent) {
			for _, hit := range items {
				if hit.ProjectileID != 0 && hit.ID != 0 {
					b.deps.HitCache.Set(hit.ProjectileID, hit.ID)
				}
			}
		})
	writeQueue(db, b.queues.KillEvents, "kill events", log,
		stamp(func(e *model.KillEvent) { e.MatchID = matchID }), nil)
	writeQueue(db, b.queues.ProjectileEvents, "projectile events", log,
		stamp(func(e *model.ProjectileEvent) {
			e.MatchID = matchID
			if hitRow, ok := b.deps.HitCache.Get(e.ProjectileID); ok {
				e.HitDetails = withHitRow(e.HitDetails, hitRow)
			}
		}),
		func(items []model.ProjectileEvent) {
			for _, e := range items {
				b.deps.HitCache.Delete(e.ProjectileID)
			}
		})
	writeQueue(db, b.queues.LockEvents, "lock events", log,
		stamp(func(e *model.LockEvent) { e.MatchID = matchID }), nil)
	writeQueue(db, b.queues.AuthorityEvents, "authority events", log,
		stamp(func(e *model.AuthorityEvent) { e.MatchID = matchID }), nil)
	writeQueue(db, b.queues.GeneralEvents, "general events", log,
		stamp(func(e *model.GeneralEvent) { e.MatchID = matchID }), nil)
}

// withHitRow adds the hit row ID to a projectile's hit details.
func withHitRow(details datatypes.JSON, hitRow uint) datatypes.JSON {
	m := map[string]any{}
	if len(details) > 0 {
		_ = json.Unmarshal(details, &m)
	}
	m["hitEventId"] = hitRow
	data, err := json.Marshal(m)
	if err != nil {
		return details
	}
	return datatypes.JSON(data)
}

// writerLoop periodically drains queues into the DB until Close.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.flush()
			return
		case <-ticker.C:
			b.flush()
		}
	}
}
