package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"365d":     365 * 24 * time.Hour,
		"7d":       7 * 24 * time.Hour,
		"31536000": 31536000 * time.Second,
		"3600":     time.Hour,
		"10s":      10 * time.Second,
		"2m":       2 * time.Minute,
		"1m30s":    90 * time.Second,
	}
	for in, want := range cases {
		d, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d, in)
	}

	_, err := ParseDuration("xd")
	assert.Error(t, err)
}
