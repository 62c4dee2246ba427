package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_GenerateAndParse(t *testing.T) {
	tm := NewTokenManager(TokenConfig{SecretKey: "secret", Expiry: time.Hour})
	require.True(t, tm.Enabled())

	token, err := tm.Generate("obsidian", "127.0.0.1")
	require.NoError(t, err)

	c, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "obsidian", c.Client)
	assert.Equal(t, "127.0.0.1", c.IP)
	assert.Equal(t, DefaultTokenIssuer, c.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.ExpiresAt.Time, 2*time.Second)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager(TokenConfig{SecretKey: "secret"})
	token, err := tm.Generate("cli", "")
	require.NoError(t, err)

	other := NewTokenManager(TokenConfig{SecretKey: "other"})
	assert.Error(t, other.Validate(token))
	assert.Error(t, tm.Validate(token+"tampered"))

	expired := NewTokenManager(TokenConfig{SecretKey: "secret", Expiry: -time.Minute})
	old, err := expired.Generate("cli", "")
	require.NoError(t, err)
	assert.Error(t, tm.Validate(old))
}

func TestTokenManager_DisabledWithoutKey(t *testing.T) {
	tm := NewTokenManager(TokenConfig{})
	assert.False(t, tm.Enabled())
	_, err := tm.Generate("cli", "")
	assert.Error(t, err)
}
