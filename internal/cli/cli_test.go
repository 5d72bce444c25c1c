package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err      string
		expected string
	}{
		{"load config: missing value", "config_error"},
		{"initialize database: locked", "database_error"},
		{"authentication required", "auth_error"},
		{"connection refused", "network_error"},
		{"link 'abc' not found", "not_found_error"},
		{"invalid url", "validation_error"},
		{"something odd", "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyError(errors.New(tt.err)))
		})
	}
}

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny("Connection Timeout", "timeout"))
	assert.True(t, containsAny("DATABASE locked", "database"))
	assert.False(t, containsAny("ok", "error", "fail"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatBytes(0))
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.0 KB", formatBytes(1024))
	assert.Equal(t, "1.5 MB", formatBytes(3*1024*1024/2))
	assert.Equal(t, "2.0 GB", formatBytes(2*1024*1024*1024))
}
