package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/OCAP2/dogfight/internal/storage/memory/export/v1"
	"github.com/OCAP2/dogfight/pkg/core"
)

// matchData snapshots the recorded collections for the builder. Callers hold
// b.mu.
func (b *Backend) matchData() *v1.MatchData {
	return &v1.MatchData{
		Match:            b.match,
		Origin:           b.origin,
		Aircraft:         b.aircraft,
		HitEvents:        b.hitEvents,
		KillEvents:       b.killEvents,
		LockEvents:       b.lockEvents,
		AuthorityEvents:  b.authorityEvents,
		GeneralEvents:    b.generalEvents,
		ProjectileEvents: b.projectileEvents,
	}
}

// exportJSON writes the match to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := v1.Build(b.matchData())

	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.match.Name)
	if name == "" {
		name = "match"
	}
	timestamp := b.match.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		_ = gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// GetExportedFilePath returns the path of the last export, empty before the
// first EndMatch of the current match.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata summarises the current match for upload.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.match == nil {
		return core.UploadMetadata{}
	}
	export := v1.Build(b.matchData())
	return core.UploadMetadata{
		MatchName: b.match.Name,
		WorldName: b.match.WorldName,
		Duration:  export.Duration,
		Tag:       b.match.Tag,
		Aircraft:  len(b.aircraft),
		SessionID: b.match.SessionID,
	}
}
