package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"64MB", 64 << 20},
		{"512kb", 512 << 10},
		{"1GB", 1 << 30},
		{" 2 MB ", 2 << 20},
		{"1024B", 1024},
		{"1024", 1024},
		{"", 7},
		{"abc", 7},
		{"-1MB", 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSize(tt.in, 7), tt.in)
	}
}
