package service

import (
	"context"
	"testing"

	"github.com/haierkeys/fast-note-image-uploader/internal/domain"
	apperrors "github.com/haierkeys/fast-note-image-uploader/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Strategies(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "notes/n.md", []byte("x"))
	env.write(t, "notes/local.png", pngBytes)
	env.write(t, "assets/cat.png", pngBytes)
	env.write(t, "deep/a/b/dog.jpg", pngBytes)
	env.write(t, "assets/my photo.png", pngBytes)
	env.write(t, "assets/readme.txt", []byte("not an image"))

	r := NewResolver(env.vault, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		ref      string
		wantPath string
		strategy string
	}{
		{"exact vault path", "assets/cat.png", "assets/cat.png", "exactPath"},
		{"note relative", "local.png", "notes/local.png", "noteRelative"},
		{"note relative dot", "./local.png", "notes/local.png", "noteRelative"},
		{"parent relative", "../assets/cat.png", "assets/cat.png", "noteRelative"},
		{"vault root", "/assets/cat.png", "assets/cat.png", "vaultRoot"},
		{"basename only", "dog.jpg", "deep/a/b/dog.jpg", "basenameScan"},
		{"basename with wrong folder", "wrong/dir/dog.jpg", "deep/a/b/dog.jpg", "basenameScan"},
		{"percent encoded", "assets/my%20photo.png", "assets/my photo.png", "exactPath"},
		{"angle brackets", "<assets/my photo.png>", "assets/my photo.png", "exactPath"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, strategy, err := r.ResolvePath(ctx, tt.ref, "notes/n.md")
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, f.Path)
			assert.Equal(t, tt.strategy, strategy)
		})
	}
}

func TestResolver_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "assets/readme.txt", []byte("x"))
	r := NewResolver(env.vault, nil, nil)

	for _, ref := range []string{"missing.png", "assets/readme.txt", "readme.txt"} {
		_, _, err := r.ResolvePath(context.Background(), ref, "n.md")
		require.Error(t, err, ref)
		assert.True(t, apperrors.IsKind(err, apperrors.KindResolution), ref)
	}
}

func TestResolver_Resolve(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "cat.png", pngBytes)
	r := NewResolver(env.vault, nil, nil)

	ref := domain.ImageReference{RawMatch: "![[cat.png]]", PathOrURL: "cat.png", Syntax: domain.SyntaxEmbedBracket}
	got, err := r.Resolve(context.Background(), ref, "n.md")
	require.NoError(t, err)
	assert.Equal(t, "cat.png", got.FileName)
	assert.Equal(t, ref, got.Reference)
}

type countingStrategy struct {
	calls *int
}

func (countingStrategy) Name() string { return "counting" }

func (s countingStrategy) TryResolve(req *ResolveRequest) (domain.File, bool) {
	*s.calls++
	return domain.File{}, false
}

func TestResolver_ChainOrderAndListingShared(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "x/cat.png", pngBytes)

	calls := 0
	r := NewResolver(env.vault, nil, nil, countingStrategy{&calls}, basenameScan{}, countingStrategy{&calls})
	f, strategy, err := r.ResolvePath(context.Background(), "cat.png", "n.md")
	require.NoError(t, err)
	assert.Equal(t, "x/cat.png", f.Path)
	assert.Equal(t, "basenameScan", strategy)
	assert.Equal(t, 1, calls, "strategies after the first hit must not run")
}
