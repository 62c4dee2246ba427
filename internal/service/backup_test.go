package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/haierkeys/fast-note-image-uploader/internal/dao"
	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupManager_Paths(t *testing.T) {
	env := newTestEnv(t)
	bm := env.backup

	assert.Equal(t, "notes/备份/Trip", bm.FolderFor("notes/Trip.md"))
	assert.Equal(t, "notes/备份/Trip/Trip-backup.md", bm.ShadowPath("notes/Trip.md"))
	assert.Equal(t, "备份/Top", bm.FolderFor("Top.md"))

	custom := NewBackupManager(env.vault, nil, BackupConfig{Root: "/archive/"}, nil, nil)
	assert.Equal(t, "archive/Trip", custom.FolderFor("notes/Trip.md"))
	assert.True(t, custom.IsBackupPath("archive/Trip/Trip-backup.md"))
	assert.False(t, custom.IsBackupPath("notes/Trip.md"))

	assert.True(t, bm.IsBackupPath("notes/备份/Trip/Trip-backup.md"))
	assert.False(t, bm.IsBackupPath("notes/备份.md"))
}

func TestBackupImage_DedupSuffix(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.backup.BackupImage(ctx, pngBytes, "notes/n.md", "cat.png")
	require.NoError(t, err)
	second, err := env.backup.BackupImage(ctx, []byte("other"), "notes/n.md", "cat.png")
	require.NoError(t, err)
	third, err := env.backup.BackupImage(ctx, []byte("third"), "notes/n.md", "cat.png")
	require.NoError(t, err)

	assert.Equal(t, "cat.png", first)
	assert.Equal(t, "cat(1).png", second)
	assert.Equal(t, "cat(2).png", third)
	assert.Equal(t, string(pngBytes), env.read(t, "notes/备份/n/cat.png"))
	assert.Equal(t, "other", env.read(t, "notes/备份/n/cat(1).png"))
}

func TestBackupImage_FolderAlreadyExists(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "备份/n/keep.txt", []byte("x"))

	name, err := env.backup.BackupImage(context.Background(), pngBytes, "n.md", "dir/sub/cat.png")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", name)
	assert.True(t, env.exists("备份/n/cat.png"))
	assert.True(t, env.backup.HasBackupFolder(context.Background(), "n.md"))
	assert.False(t, env.backup.HasBackupFolder(context.Background(), "other.md"))
}

func TestBackupNote_FirstPassExactAndQueryless(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.backup.BackupImage(ctx, pngBytes, "n.md", "my photo.png")
	require.NoError(t, err)

	url := "https://bucket.example.com/img/1700000000000-my-photo.png?Expires=1&Signature=a"
	text := "a ![my photo.png](" + url + ")\n" +
		"b ![again](https://bucket.example.com/img/1700000000000-my-photo.png?Expires=2&Signature=b)\n"
	uploaded := []domain.UploadedImage{{URL: url, BackupName: "my photo.png"}}

	require.NoError(t, env.backup.BackupNote(ctx, "n.md", &text, uploaded))

	shadow := env.read(t, "备份/n/n-backup.md")
	assert.Equal(t, "a ![my photo.png](my%20photo.png)\nb ![again](my%20photo.png)\n", shadow)
}

func TestBackupNote_SecondPassByDerivedName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "备份/n/dog.jpg", pngBytes)
	env.write(t, "备份/n/bird.webp", pngBytes)
	env.write(t, "n.md", []byte(
		"![d](https://b.example.com/img/1700000000000-dog.jpg?x=1)\n"+
			"![b](https://b.example.com/img/1700000000001-bird.png?x=1)\n"+
			"![u](https://b.example.com/img/1700000000002-unknown.png)\n"))

	require.NoError(t, env.backup.BackupNote(ctx, "n.md", nil, nil))

	shadow := env.read(t, "备份/n/n-backup.md")
	assert.Contains(t, shadow, "![d](dog.jpg)")
	assert.Contains(t, shadow, "![b](bird.webp)", "name-minus-extension match")
	assert.Contains(t, shadow, "![u](https://b.example.com/img/1700000000002-unknown.png)")
	assert.Contains(t, env.read(t, "n.md"), "https://b.example.com/img/1700000000000-dog.jpg", "live note untouched")
}

func TestBackupNote_LedgerMatchWins(t *testing.T) {
	db, err := dao.NewDBEngine(dao.DatabaseConfig{Path: filepath.Join(t.TempDir(), "ledger.db"), AutoMigrate: true})
	require.NoError(t, err)
	d := dao.New(db, nil)
	t.Cleanup(func() { _ = d.Close() })
	ledger := dao.NewUploadRecordRepository(d)

	env := newTestEnvWith(t, ledger, BackupConfig{}, 0)
	ctx := context.Background()
	env.write(t, "备份/n/cat.png", pngBytes)
	env.write(t, "备份/n/cat(1).png", pngBytes)
	require.NoError(t, ledger.Save(ctx, &domain.UploadRecord{
		StorageKey: "img/1700000000000-cat.png",
		BaseURL:    "https://b.example.com/img/1700000000000-cat.png",
		NotePath:   "n.md",
		BackupName: "cat(1).png",
	}))

	text := "![c](https://b.example.com/img/1700000000000-cat.png?sig=1)"
	require.NoError(t, env.backup.BackupNote(ctx, "n.md", &text, nil))
	assert.Equal(t, "![c](cat(1).png)", env.read(t, "备份/n/n-backup.md"))
}

func TestBackupNote_MissingNote(t *testing.T) {
	env := newTestEnv(t)
	err := env.backup.BackupNote(context.Background(), "missing.md", nil, nil)
	require.Error(t, err)
	assert.False(t, env.exists("备份/missing/missing-backup.md"))
}

func TestRefreshBackup_ConcurrentRequestsSerialize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.write(t, "n.md", []byte("v0"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, env.reconciler.RefreshBackup(ctx, "n.md"))
		}()
	}
	wg.Wait()
	assert.Equal(t, "v0", env.read(t, "备份/n/n-backup.md"))

	var inFlight, maxInFlight atomic.Int32
	texts := make([]string, 8)
	for i := range texts {
		texts[i] = fmt.Sprintf("v%d %s", i, strings.Repeat(strconv.Itoa(i), 64*1024))
	}
	for i := range texts {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			err := env.reconciler.locks.Execute(ctx, "n.md", func() error {
				n := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					m := maxInFlight.Load()
					if n <= m || maxInFlight.CompareAndSwap(m, n) {
						break
					}
				}
				return env.backup.BackupNote(ctx, "n.md", &text, nil)
			})
			assert.NoError(t, err)
		}(texts[i])
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Contains(t, texts, env.read(t, "备份/n/n-backup.md"), "shadow is one complete revision")
}
