package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fahim22542/Testing-Projects/internal/filtertest"
)

// WriteJSON writes the full run report as indented JSON
func WriteJSON(path string, rep *filtertest.RunReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}
	return nil
}
