package sqlitestorage

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/OCAP2/dogfight/internal/database"
	"github.com/OCAP2/dogfight/internal/model"
	"github.com/OCAP2/dogfight/internal/model/convert"
	"github.com/OCAP2/dogfight/pkg/core"

	"gorm.io/gorm"
)

// Target receives replayed matches. Every storage backend satisfies it.
type Target interface {
	StartMatch(match *core.Match) error
	EndMatch() error
	AddAircraft(a *core.Aircraft) error
	RecordAircraftState(s *core.AircraftState) error
	RecordFiredEvent(e *core.FiredEvent) error
	RecordHitEvent(e *core.HitEvent) error
	RecordKillEvent(e *core.KillEvent) error
	RecordProjectileEvent(e *core.ProjectileEvent) error
	RecordLockEvent(e *core.LockEvent) error
	RecordAuthorityEvent(e *core.AuthorityEvent) error
	RecordGeneralEvent(e *core.GeneralEvent) error
}

const replayBatch = 2000

// MigrateBackups replays every .db dump in dir into dst and renames each
// replayed file to <name>.migrated. It stops at the first file that fails.
func MigrateBackups(dir string, dst Target, log *slog.Logger) ([]string, error) {
	if log == nil {
		log = slog.Default()
	}
	paths, err := database.GetBackupDBPaths(dir)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	var migrated []string
	for _, path := range paths {
		n, err := ReplayFile(path, dst)
		if err != nil {
			return migrated, fmt.Errorf("replay %s: %w", path, err)
		}
		if err := os.Rename(path, path+".migrated"); err != nil {
			return migrated, fmt.Errorf("rename %s: %w", path, err)
		}
		log.Info("Migrated backup", "path", path, "matches", n)
		migrated = append(migrated, path)
	}
	return migrated, nil
}

// ReplayFile opens a SQLite dump and feeds each match it holds into dst,
// one StartMatch/EndMatch pair per match. Returns the number of matches.
func ReplayFile(path string, dst Target) (int, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return 0, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return 0, err
	}
	defer sqlDB.Close()

	var matches []model.Match
	if err := db.Order("id").Find(&matches).Error; err != nil {
		return 0, fmt.Errorf("read matches: %w", err)
	}
	for _, m := range matches {
		if err := replayMatch(db, m, dst); err != nil {
			return 0, fmt.Errorf("match %d: %w", m.ID, err)
		}
	}
	return len(matches), nil
}

func replayMatch(db *gorm.DB, m model.Match, dst Target) error {
	match := convert.MatchToCore(m)
	match.ID = 0
	if err := dst.StartMatch(&match); err != nil {
		return err
	}

	scope := db.Where("match_id = ?", m.ID)

	if err := each(scope, "object_id", convert.AircraftToCore, dst.AddAircraft); err != nil {
		return fmt.Errorf("aircraft: %w", err)
	}
	if err := each(scope, "tick, id", convert.AircraftStateToCore, dst.RecordAircraftState); err != nil {
		return fmt.Errorf("aircraft states: %w", err)
	}
	if err := each(scope, "tick, id", convert.FiredEventToCore, dst.RecordFiredEvent); err != nil {
		return fmt.Errorf("fired events: %w", err)
	}
	// Row IDs are reassigned by the destination.
	if err := each(scope, "tick, id", func(e model.HitEvent) core.HitEvent {
		hit := convert.HitEventToCore(e)
		hit.ID = 0
		return hit
	}, dst.RecordHitEvent); err != nil {
		return fmt.Errorf("hit events: %w", err)
	}
	if err := each(scope, "tick, id", func(e model.KillEvent) core.KillEvent {
		kill := convert.KillEventToCore(e)
		kill.ID = 0
		return kill
	}, dst.RecordKillEvent); err != nil {
		return fmt.Errorf("kill events: %w", err)
	}
	if err := each(scope, "launch_tick, id", convert.ProjectileEventToCore, dst.RecordProjectileEvent); err != nil {
		return fmt.Errorf("projectile events: %w", err)
	}
	if err := each(scope, "tick, id", convert.LockEventToCore, dst.RecordLockEvent); err != nil {
		return fmt.Errorf("lock events: %w", err)
	}
	if err := each(scope, "tick, id", convert.AuthorityEventToCore, dst.RecordAuthorityEvent); err != nil {
		return fmt.Errorf("authority events: %w", err)
	}
	if err := each(scope, "tick, id", func(e model.GeneralEvent) core.GeneralEvent {
		ev := convert.GeneralEventToCore(e)
		ev.ID = 0
		return ev
	}, dst.RecordGeneralEvent); err != nil {
		return fmt.Errorf("general events: %w", err)
	}

	return dst.EndMatch()
}

// each pages through rows of type M, converts them and hands them to
// record. A record error aborts the walk.
func each[M any, C any](scope *gorm.DB, order string, conv func(M) C, record func(*C) error) error {
	for offset := 0; ; offset += replayBatch {
		var rows []M
		err := scope.Session(&gorm.Session{}).Model(new(M)).Order(order).
			Limit(replayBatch).Offset(offset).Find(&rows).Error
		if err != nil {
			return err
		}
		for _, row := range rows {
			c := conv(row)
			if err := record(&c); err != nil {
				return err
			}
		}
		if len(rows) < replayBatch {
			return nil
		}
	}
}
