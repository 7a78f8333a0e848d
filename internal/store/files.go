package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lrpsolve/internal/lrp"
)

// FileWriter writes result documents under Dir as
// Result_<HH_mm_ss>_<run-id>.sol and Validation_<HH_mm_ss>_<run-id>.val.
type FileWriter struct {
	Dir string
	Now func() time.Time
}

func (w FileWriter) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Write stores the document matching the result's mode and returns its path.
func (w FileWriter) Write(res *lrp.Result, runID string) (string, error) {
	if res.Validation {
		return w.write("Validation", ".val", runID, ValidationDocument(res))
	}
	return w.write("Result", ".sol", runID, SolutionDocument(res))
}

func (w FileWriter) write(prefix, ext, runID string, doc any) (string, error) {
	dir := w.Dir
	if dir == "" {
		dir = "output"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("write %s: %w", prefix, err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("write %s: %w", prefix, err)
	}
	name := fmt.Sprintf("%s_%s_%s%s", prefix, w.now().Format("15_04_05"), runID, ext)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", prefix, err)
	}
	return path, nil
}
