package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grumpified/researchwire/internal/domain"
	"github.com/grumpified/researchwire/internal/ports"
)

// RecordWriter persists one publication record per date as JSON.
type RecordWriter struct {
	dir string
}

var _ ports.PublicationStore = (*RecordWriter)(nil)

func NewRecordWriter(dir string) *RecordWriter {
	return &RecordWriter{dir: dir}
}

// WriteRecord writes the record to <dir>/<date>.json and returns the path.
// A second publication on the same date overwrites the earlier record.
func (w *RecordWriter) WriteRecord(record domain.PublicationRecord) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", w.dir, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal publication record: %w", err)
	}

	path := filepath.Join(w.dir, record.PublishedAt.Format("2006-01-02")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
