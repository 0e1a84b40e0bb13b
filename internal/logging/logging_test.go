package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{"relative", "logs", filepath.Join("logs", "dogfight_server.20260212_213836.log")},
		{"dotted", "./logs", filepath.Join(".", "logs", "dogfight_server.20260212_213836.log")},
		{"absolute", filepath.Join("/var", "log", "dogfight"), filepath.Join("/var", "log", "dogfight", "dogfight_server.20260212_213836.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "dogfight_server", start))
		})
	}
}
