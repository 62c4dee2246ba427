package local_fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T) *LocalFS {
	t.Helper()
	fs, err := NewClient(&Config{SavePath: t.TempDir(), PublicBaseURL: "http://127.0.0.1:9100/"})
	require.NoError(t, err)
	return fs
}

func TestPutObjectAndList(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)

	require.NoError(t, fs.PutObject(ctx, "img/1-a.png", strings.NewReader("aaa"), "image/png"))
	require.NoError(t, fs.PutObject(ctx, "img/2-b.png", strings.NewReader("bb"), "image/png"))
	require.NoError(t, fs.PutObject(ctx, "other/c.png", strings.NewReader("c"), "image/png"))

	data, err := os.ReadFile(filepath.Join(fs.Config.SavePath, "img", "1-a.png"))
	require.NoError(t, err)
	assert.Equal(t, "aaa", string(data))

	res, err := fs.ListObjects(ctx, "img/", "", 1)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "img/1-a.png", res.Items[0].Key)
	assert.True(t, res.IsTruncated)

	res, err = fs.ListObjects(ctx, "img/", res.NextMarker, 10)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "img/2-b.png", res.Items[0].Key)
	assert.Equal(t, int64(2), res.Items[0].Size)
	assert.False(t, res.IsTruncated)
}

func TestSignedURL(t *testing.T) {
	fs := newTestFS(t)

	u, err := fs.SignedURL(context.Background(), "img/1-my photo.png", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://127.0.0.1:9100/files/img/1-my%20photo.png?Expires="), u)
}

func TestDeleteObjects(t *testing.T) {
	ctx := context.Background()
	fs := newTestFS(t)
	require.NoError(t, fs.PutObject(ctx, "a.png", strings.NewReader("a"), ""))

	res, err := fs.DeleteObjects(ctx, []string{"a.png", "missing.png"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.png", "missing.png"}, res.Deleted)

	list, err := fs.ListObjects(ctx, "", "", 0)
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestFilePath_RejectsEscape(t *testing.T) {
	fs := newTestFS(t)
	p, err := fs.FilePath("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, fs.Config.SavePath))

	_, err = fs.FilePath("/")
	assert.Error(t, err)
}
