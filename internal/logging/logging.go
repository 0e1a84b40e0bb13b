// Package logging builds the server's slog pipeline: a text sink, optional
// GELF and OTel sinks, and per-record session attributes.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath is <logsDir>/<name>.<start>.log.
func LogFilePath(logsDir, name string, start time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", name, start.Format("20060102_150405")))
}
