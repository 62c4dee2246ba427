package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	apperrors "github.com/haierkeys/fast-note-image-uploader/pkg/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeUploader(prefix string) (*Uploader, *fakeStorage) {
	st := newFakeStorage()
	return NewUploader(UploadConfig{KeyPrefix: prefix}, func() (domain.StorageClient, error) { return st, nil }, nil, nil), st
}

func TestUploader_KeyForNameWithSpaces(t *testing.T) {
	up, st := newFakeUploader("/img/")
	fixed := time.UnixMilli(1700000000123)
	up.now = func() time.Time { return fixed }

	res, err := up.Upload(context.Background(), pngBytes, "my photo.png")
	require.NoError(t, err)

	assert.Equal(t, "img/1700000000123-my-photo.png", res.StorageKey)
	assert.Equal(t, "1700000000123-my-photo.png", res.UploadedAtFileName)
	assert.True(t, strings.HasSuffix(res.StorageKey, "my-photo.png"))
	assert.NotContains(t, res.StorageKey, " ")
	assert.Equal(t, []string{res.StorageKey}, st.keys())
	assert.Equal(t, "image/png", st.types[res.StorageKey])
}

func TestUploader_SignedURLInline(t *testing.T) {
	up, _ := newFakeUploader("")
	res, err := up.Upload(context.Background(), pngBytes, "cat.png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.SignedURL, "https://bucket.example.com/"))
	assert.Contains(t, res.SignedURL, "Expires="+DefaultLinkExpires.String())
	assert.Contains(t, res.SignedURL, "&response-content-disposition=inline")
	assert.NotContains(t, res.StorageKey, "/")
}

func TestWithInlineDisposition(t *testing.T) {
	assert.Equal(t, "https://x/a.png?response-content-disposition=inline", withInlineDisposition("https://x/a.png"))
	assert.Equal(t, "https://x/a.png?s=1&response-content-disposition=inline", withInlineDisposition("https://x/a.png?s=1"))
	already := "https://x/a.png?response-content-disposition=inline&s=1"
	assert.Equal(t, already, withInlineDisposition(already))
}

func TestUploader_MonotonicKeysWithinSameMillisecond(t *testing.T) {
	up, _ := newFakeUploader("img")
	fixed := time.UnixMilli(1700000000000)
	up.now = func() time.Time { return fixed }

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		res, err := up.Upload(context.Background(), pngBytes, "cat.png")
		require.NoError(t, err)
		assert.False(t, seen[res.StorageKey], res.StorageKey)
		seen[res.StorageKey] = true
	}
	assert.True(t, seen["img/1700000000004-cat.png"])
}

func TestUploader_ConfigurationError(t *testing.T) {
	calls := 0
	up := NewUploader(UploadConfig{}, func() (domain.StorageClient, error) {
		calls++
		return nil, errors.New("missing AccessKeyID")
	}, nil, nil)

	err := up.CheckConfig()
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))

	_, err = up.Upload(context.Background(), pngBytes, "cat.png")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))
	assert.Equal(t, 1, calls, "factory result is cached")

	nilFactory := NewUploader(UploadConfig{}, nil, nil, nil)
	assert.True(t, apperrors.IsKind(nilFactory.CheckConfig(), apperrors.KindConfiguration))
}

func TestUploader_UploadError(t *testing.T) {
	up, st := newFakeUploader("img")
	st.failNames = []string{"cat.png"}

	_, err := up.Upload(context.Background(), pngBytes, "cat.png")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpload))
	assert.Contains(t, err.Error(), "simulated network error")
}

func TestUploader_ContentTypeSniffed(t *testing.T) {
	up, st := newFakeUploader("")
	res, err := up.Upload(context.Background(), pngBytes, "clipboard")
	require.NoError(t, err)
	assert.Equal(t, "image/png", st.types[res.StorageKey])
}

func TestUploader_RateLimited(t *testing.T) {
	st := newFakeStorage()
	up := NewUploader(UploadConfig{RateLimit: 1 << 20}, func() (domain.StorageClient, error) { return st, nil }, nil, nil)
	res, err := up.Upload(context.Background(), pngBytes, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, st.objects[res.StorageKey])
}

func TestProperty_ObjectNameHasNoWhitespace(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	keyPattern := regexp.MustCompile(`^(\d+)-(\S+)$`)

	properties.Property("object name is {millis}-{name without whitespace}{ext}", prop.ForAll(
		func(millis int64, words []string, ext string) bool {
			name := strings.Join(words, " \t ") + ext
			got := ObjectName(millis, name)
			m := keyPattern.FindStringSubmatch(got)
			if m == nil {
				t.Logf("unexpected object name %q for %q", got, name)
				return false
			}
			return m[1] == strconv.FormatInt(millis, 10) && strings.HasSuffix(got, ext)
		},
		gen.Int64Range(1, 1<<42),
		gen.SliceOfN(3, gen.AlphaString()),
		gen.OneConstOf(".png", ".jpg", ".webp", ""),
	))

	properties.TestingRun(t)
}
