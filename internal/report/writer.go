package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/grumpified/researchwire/internal/domain"
	"github.com/grumpified/researchwire/internal/ports"
)

// Writer persists the two renderings into their configured directories.
type Writer struct {
	richDir    string
	minimalDir string
	logger     *slog.Logger
}

var _ ports.ReportWriter = (*Writer)(nil)

// NewWriter wires the output directories; both are created on demand.
func NewWriter(richDir, minimalDir string, logger *slog.Logger) *Writer {
	return &Writer{richDir: richDir, minimalDir: minimalDir, logger: logger}
}

// Write renders the report twice and writes both files. The rich rendering is
// written first; a failure there still leaves no partial minimal output.
func (w *Writer) Write(r domain.Report) (string, string, error) {
	richPath := filepath.Join(w.richDir, RichFilename(r))
	if err := writeFile(richPath, RenderRich(r)); err != nil {
		return "", "", fmt.Errorf("write rich report: %w", err)
	}

	minimalPath := filepath.Join(w.minimalDir, MinimalFilename(r))
	if err := writeFile(minimalPath, RenderMinimal(r)); err != nil {
		return "", "", fmt.Errorf("write minimal report: %w", err)
	}

	if w.logger != nil {
		w.logger.Info("report written", "rich", richPath, "minimal", minimalPath)
	}
	return richPath, minimalPath, nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
