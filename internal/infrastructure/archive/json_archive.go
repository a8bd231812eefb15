package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/ports"
)

// JSONArchive writes every daily run to daily_summaries_<date>.json.
type JSONArchive struct {
	dir string
}

var _ ports.RunArchive = (*JSONArchive)(nil)

// NewJSONArchive stores files under dir, creating it on first write.
func NewJSONArchive(dir string) *JSONArchive {
	return &JSONArchive{dir: dir}
}

// Path returns the file a run dated date is written to.
func (a *JSONArchive) Path(date string) string {
	return filepath.Join(a.dir, fmt.Sprintf("daily_summaries_%s.json", date))
}

// Write stores the run atomically; a rerun on the same day overwrites it.
func (a *JSONArchive) Write(ctx context.Context, run domain.DailyRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run.Date == "" {
		return errors.New("archive: run has no date")
	}
	if run.Errors == nil {
		run.Errors = []string{}
	}
	if run.Insights == nil {
		run.Insights = []domain.CuratedInsight{}
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	path := a.Path(run.Date)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp archive file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename archive file: %w", err)
	}
	return nil
}

// Read loads an archived run.
func (a *JSONArchive) Read(date string) (domain.DailyRun, error) {
	data, err := os.ReadFile(a.Path(date))
	if errors.Is(err, os.ErrNotExist) {
		return domain.DailyRun{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.DailyRun{}, fmt.Errorf("read archive file: %w", err)
	}
	var run domain.DailyRun
	if err := json.Unmarshal(data, &run); err != nil {
		return domain.DailyRun{}, fmt.Errorf("decode archive file: %w", err)
	}
	return run, nil
}
