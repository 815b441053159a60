package util

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to path by first writing to a sibling ".tmp"
// file then renaming it into place, so a crash mid-write never leaves a
// truncated file behind. Grounded on the coder example's
// flushSessionToFile (internal/orchestrator/session_file.go), which uses the
// same tmp-then-rename sequence for session persistence.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
