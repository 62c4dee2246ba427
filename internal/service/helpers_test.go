package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	"github.com/haierkeys/fast-note-image-uploader/internal/vault"
	"github.com/haierkeys/fast-note-image-uploader/pkg/workerpool"
	"github.com/haierkeys/fast-note-image-uploader/pkg/writequeue"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

// fakeStorage in-memory storage client; failNames makes PutObject fail for keys ending in any of them,
// onPut runs before each successful put
type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	failNames []string
	onPut     func(key string)
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *fakeStorage) PutObject(ctx context.Context, key string, body io.Reader, contentType string) error {
	for _, n := range s.failNames {
		if strings.HasSuffix(key, n) {
			return errors.New("simulated network error")
		}
	}
	if s.onPut != nil {
		s.onPut(key)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *fakeStorage) SignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://bucket.example.com/" + key + "?Expires=" + expires.String() + "&Signature=abc", nil
}

func (s *fakeStorage) ListObjects(ctx context.Context, prefix, marker string, maxKeys int) (*domain.ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := &domain.ListResult{}
	for k, v := range s.objects {
		if strings.HasPrefix(k, prefix) && k > marker {
			res.Items = append(res.Items, domain.ObjectItem{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(res.Items, func(i, j int) bool { return res.Items[i].Key < res.Items[j].Key })
	return res, nil
}

func (s *fakeStorage) DeleteObject(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) DeleteObjects(ctx context.Context, keys []string) (*domain.DeleteResult, error) {
	res := &domain.DeleteResult{}
	for _, k := range keys {
		_ = s.DeleteObject(ctx, k)
		res.Deleted = append(res.Deleted, k)
	}
	return res, nil
}

func (s *fakeStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// recordingNotifier keeps every notice
type recordingNotifier struct {
	mu      sync.Mutex
	notices []domain.Notice
}

func (n *recordingNotifier) Notify(notice domain.Notice) {
	n.mu.Lock()
	n.notices = append(n.notices, notice)
	n.mu.Unlock()
}

func (n *recordingNotifier) codes() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []int
	for _, x := range n.notices {
		out = append(out, x.Code)
	}
	return out
}

func (n *recordingNotifier) find(c int) (domain.Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, x := range n.notices {
		if x.Code == c {
			return x, true
		}
	}
	return domain.Notice{}, false
}

type testEnv struct {
	root       string
	vault      *vault.LocalVault
	storage    *fakeStorage
	uploader   *Uploader
	backup     *BackupManager
	notifier   *recordingNotifier
	reconciler *Reconciler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil, BackupConfig{}, 50*time.Millisecond)
}

func newTestEnvWith(t *testing.T, ledger domain.UploadRecordRepository, bcfg BackupConfig, debounce time.Duration) *testEnv {
	t.Helper()
	root := t.TempDir()
	v, err := vault.NewLocalVault(root)
	require.NoError(t, err)

	st := newFakeStorage()
	up := NewUploader(UploadConfig{KeyPrefix: "img"}, func() (domain.StorageClient, error) { return st, nil }, nil, nil)
	bm := NewBackupManager(v, ledger, bcfg, nil, nil)
	notifier := &recordingNotifier{}

	locks := writequeue.New(nil, nil)
	pool := workerpool.New(nil, nil)
	rc := NewReconciler(ReconcilerDeps{
		Vault:    v,
		Resolver: NewResolver(v, nil, nil),
		Uploader: up,
		Backup:   bm,
		Ledger:   ledger,
		Locks:    locks,
		Pool:     pool,
		Notifier: notifier,
	}, ReconcilerConfig{Debounce: debounce})

	t.Cleanup(func() {
		rc.Shutdown()
		bm.Cleanup()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
		_ = locks.Shutdown(ctx)
	})

	return &testEnv{root: root, vault: v, storage: st, uploader: up, backup: bm, notifier: notifier, reconciler: rc}
}

func (e *testEnv) write(t *testing.T, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(e.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func (e *testEnv) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func (e *testEnv) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(e.root, filepath.FromSlash(rel)))
	return err == nil
}
