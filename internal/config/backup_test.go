package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupUserConfig_NoConfigReturnsEmptyPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	backupPath, err := BackupUserConfig()
	require.NoError(t, err)
	assert.Empty(t, backupPath)
}

func TestBackupUserConfig_CopiesExistingConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath := UserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
	content := "db_url = \"/tmp/bkmr.db\"\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	backupPath, err := BackupUserConfig()
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)
	assert.True(t, filepath.IsAbs(backupPath))

	got, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestBackupUserConfig_KeepsOnlyMaxBackups(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath := UserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
	require.NoError(t, os.WriteFile(configPath, []byte("db_url = \"/tmp/bkmr.db\"\n"), 0o644))

	for i := 0; i < MaxBackups+2; i++ {
		_, err := BackupUserConfig()
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), MaxBackups)
}

func TestListUserConfigBackups_NewestFirst(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath := UserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
	require.NoError(t, os.WriteFile(configPath, []byte("db_url = \"/tmp/a.db\"\n"), 0o644))

	first, err := BackupUserConfig()
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 10)

	require.NoError(t, os.WriteFile(configPath, []byte("db_url = \"/tmp/b.db\"\n"), 0o644))
	second, err := BackupUserConfig()
	require.NoError(t, err)

	backups, err := ListUserConfigBackups()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(backups), 2)
	assert.Equal(t, second, backups[0])
	assert.Contains(t, backups, first)
}

func TestRestoreUserConfig_WritesBackupContentBack(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	configPath := UserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
	original := "db_url = \"/tmp/original.db\"\n"
	require.NoError(t, os.WriteFile(configPath, []byte(original), 0o644))

	backupPath, err := BackupUserConfig()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(configPath, []byte("db_url = \"/tmp/changed.db\"\n"), 0o644))

	require.NoError(t, RestoreUserConfig(backupPath))

	restored, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, original, string(restored))
}

func TestRestoreUserConfig_MissingBackupIsError(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	err := RestoreUserConfig(filepath.Join(t.TempDir(), "nonexistent.bak"))
	require.Error(t, err)
}
