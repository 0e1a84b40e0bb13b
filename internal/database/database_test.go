package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/internal/model"
)

func TestOpenSQLite_MemoryDatabasesAreIsolated(t *testing.T) {
	a, err := OpenSQLite("")
	require.NoError(t, err)
	b, err := OpenSQLite("")
	require.NoError(t, err)

	require.NoError(t, Migrate(a))

	assert.True(t, a.Migrator().HasTable(&model.Match{}))
	assert.False(t, b.Migrator().HasTable(&model.Match{}))
}

func TestManager_ConnectSQLiteAndSetup(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.ConnectSQLite(filepath.Join(t.TempDir(), "live.db")))
	defer m.Close()

	require.NoError(t, m.Setup())
	assert.True(t, m.DB.Migrator().HasTable(&model.ServerPerformance{}))
}

func TestManager_SetupWithoutConnection(t *testing.T) {
	m := NewManager(zerolog.Nop())

	assert.Error(t, m.Setup())
	assert.NoError(t, m.Close())
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.Create(&model.Match{SessionID: "dump"}).Error)

	path := filepath.Join(t.TempDir(), "backups", "match.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))
	// A second dump replaces the first.
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	disk, err := OpenSQLite(path)
	require.NoError(t, err)
	var count int64
	disk.Model(&model.Match{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := OpenSQLite("")
	require.NoError(t, err)

	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestGetBackupDBPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.db", "a.db", "notes.txt", "c.db.migrated"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.db"), 0o755))

	paths, err := GetBackupDBPaths(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")}, paths)
}
