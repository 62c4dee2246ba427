package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	f := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(f, []byte(body), 0o644))
	return f
}

func TestLoadConfig_Defaults(t *testing.T) {
	f := writeConfig(t, "storage:\n  type: s3\n  bucket-name: notes\nbackup:\n  folder-name: \"\"\n")

	cfg, realpath, err := LoadConfig(f)
	require.NoError(t, err)
	assert.Equal(t, f, realpath)

	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "notes", cfg.Storage.BucketName)
	assert.Equal(t, ":9100", cfg.Server.HttpPort)
	// 空值由第二次 defaults.Set 补齐
	assert.Equal(t, "备份", cfg.Backup.FolderName)
	assert.Equal(t, "images", cfg.Upload.KeyPrefix)
	assert.True(t, cfg.Vault.Watch)
	assert.Equal(t, int64(64<<20), cfg.GetMaxUploadSize())
	assert.Equal(t, 120*time.Second, cfg.GetContextTimeout())
	assert.Equal(t, 365*24*time.Hour, cfg.GetTokenExpiry())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, _, err = LoadConfig(writeConfig(t, "server: [broken"))
	assert.Error(t, err)
}

func TestAppConfig_UploadConfig(t *testing.T) {
	cfg, _, err := LoadConfig(writeConfig(t, "upload:\n  expires: 7d\n  rate-limit: 1MB\n"))
	require.NoError(t, err)

	up, err := cfg.GetUploadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, up.Expires)
	assert.Equal(t, int64(1<<20), up.RateLimit)

	cfg.Upload.Expires = "soon"
	_, err = cfg.GetUploadConfig()
	assert.Error(t, err)
}

func TestAppConfig_ReconcilerDebounce(t *testing.T) {
	cfg, _, err := LoadConfig(writeConfig(t, "backup:\n  debounce: 500ms\n"))
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.GetReconcilerConfig().Debounce)

	cfg.Backup.Debounce = "nonsense"
	assert.Equal(t, service.DefaultRefreshDebounce, cfg.GetReconcilerConfig().Debounce)
}

func TestAppConfig_StorageClientConfig(t *testing.T) {
	cfg, _, err := LoadConfig(writeConfig(t, "storage:\n  type: r2\n  account-id: acc\n  access-key-id: id\n"))
	require.NoError(t, err)

	sc, err := cfg.StorageClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "r2", sc.Type)
	assert.Equal(t, "acc", sc.AccountID)
	assert.Equal(t, "id", sc.AccessKeyID)
}

func TestAppConfig_SaveRoundTrip(t *testing.T) {
	cfg, _, err := LoadConfig(writeConfig(t, "security:\n  auth-token-key: k\n"))
	require.NoError(t, err)
	cfg.Storage.BucketName = "saved"
	require.NoError(t, cfg.Save())

	again, _, err := LoadConfig(cfg.File)
	require.NoError(t, err)
	assert.Equal(t, "saved", again.Storage.BucketName)
	assert.Equal(t, "k", again.Security.AuthTokenKey)
}
