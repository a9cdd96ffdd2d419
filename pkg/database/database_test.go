package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/novel-engine/config"
)

func TestSqliteDSN(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
		path string
	}{
		{"./data/novels.db", "./data/novels.db?_busy_timeout=5000&_foreign_keys=on", "./data/novels.db"},
		{"file:x.db?cache=shared", "file:x.db?cache=shared&_busy_timeout=5000&_foreign_keys=on", "x.db"},
		{":memory:", ":memory:?_busy_timeout=5000&_foreign_keys=on", ":memory:"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sqliteDSN(tt.dsn))
		assert.Equal(t, tt.path, sqlitePath(tt.dsn))
	}
}

func TestInitDBKeepsExistingParams(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Database: config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + filepath.Join(dir, "nested", "novels.db") + "?cache=shared",
		MaxIdleConns: 1,
		LogLevel:     "silent",
	}}
	db, err := InitDB(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
	require.NoError(t, Migrate(db))
}
