package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsImageFile(t *testing.T) {
	cases := map[string]bool{
		"a.png":        true,
		"A.PNG":        true,
		"b.Jpeg":       true,
		"c.jpg":        true,
		"d.gif":        true,
		"e.svg":        true,
		"f.webp":       true,
		"g.bmp":        false,
		"notes.md":     false,
		"noext":        false,
		"dir/pic.webp": true,
	}
	for name, want := range cases {
		assert.Equal(t, want, IsImageFile(name), name)
	}
}

func TestImageExtByContentType(t *testing.T) {
	assert.Equal(t, ".png", ImageExtByContentType("image/png; charset=binary"))
	assert.Equal(t, "", ImageExtByContentType("text/plain"))
}
