package fsutil

import (
	"os"
	"path/filepath"
)

// GetConfigDir returns the per-user configuration directory for bulkget.
// On Linux: ~/.config/bulkget/
// On macOS: ~/Library/Application Support/bulkget/
// On Windows: %AppData%\bulkget\
func GetConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}
