package smoke

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o640
)

// saveReport writes stats as YAML to path.
func saveReport(path string, stats *Stats) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
