package conf

import (
	"os"
	"path/filepath"
)

// defaultSessionPath returns the default location of the persisted session
// file. Falls back to the working directory when no home directory exists.
func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".archaeotools-session.json"
	}
	return filepath.Join(home, ".config", "archaeotools", "session.json")
}
