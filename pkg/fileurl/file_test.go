package fileurl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "my-photo.png", SanitizeName("my photo.png"))
	assert.Equal(t, "a-b.png", SanitizeName("a \t b.png"))
	assert.Equal(t, "plain.png", SanitizeName("plain.png"))
}

func TestSameName_NFC(t *testing.T) {
	decomposed := "cafe\u0301.png"
	composed := "caf\u00e9.png"
	assert.True(t, SameName(decomposed, composed))
	assert.True(t, SameName("my photo.png", "my-photo.png"))
	assert.False(t, SameName("a.png", "b.png"))
}

func TestDedupName(t *testing.T) {
	assert.Equal(t, "cat.png", DedupName("cat.png", 0))
	assert.Equal(t, "cat(1).png", DedupName("cat.png", 1))
	assert.Equal(t, "cat(2).png", DedupName("cat.png", 2))
	assert.Equal(t, "noext(1)", DedupName("noext", 1))
}

func TestStripTimestampPrefix(t *testing.T) {
	assert.Equal(t, "cat.png", StripTimestampPrefix("1712345678901-cat.png"))
	assert.Equal(t, "12-cat.png", StripTimestampPrefix("12-cat.png"))
}

func TestNameFromURL(t *testing.T) {
	assert.Equal(t, "1712345678901-my-photo.png", NameFromURL("https://b.oss.example.com/1712345678901-my-photo.png?Expires=1&Signature=x"))
	assert.Equal(t, "a b.png", NameFromURL("https://h/dir/a%20b.png"))
	assert.Equal(t, "", NameFromURL("https://h/"))
}

func TestStripQuery(t *testing.T) {
	assert.Equal(t, "https://h/a.png", StripQuery("https://h/a.png?x=1"))
	assert.Equal(t, "https://h/a.png", StripQuery("https://h/a.png"))
}

func TestGetFileNameOrRandom(t *testing.T) {
	assert.Equal(t, "cat.png", GetFileNameOrRandom("cat.png", ".png"))
	name := GetFileNameOrRandom("image.png", ".png")
	assert.True(t, strings.HasPrefix(name, "Pasted-image-"))
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotEqual(t, name, GetFileNameOrRandom("", ".jpg"))
	assert.True(t, strings.HasSuffix(GetFileNameOrRandom("", ".jpg"), ".jpg"))
}
