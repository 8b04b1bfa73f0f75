package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		prefix  string
		want    string
	}{
		{"basic path", "logs", "tankwars-server", filepath.Join("logs", "tankwars-server.20260212_213836.log")},
		{"relative path with dot", "./logs", "tankwars-server", filepath.Join(".", "logs", "tankwars-server.20260212_213836.log")},
		{"absolute path", filepath.Join("/var", "log", "tankwars"), "arena", filepath.Join("/var", "log", "tankwars", "arena.20260212_213836.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, tt.prefix, sessionStart))
		})
	}
}

func TestOpenLogFile_CreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "server.log")
	f, err := OpenLogFile(path)
	require.NoError(t, err)
	_, err = f.WriteString("line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}
