package fileutils

import (
	"os"
	"path/filepath"
)

// IsWriteable reports whether path can be written to: the file exists
// with owner write permission, or it does not exist yet and its parent
// directory does. The config layer uses it to decide whether Save can
// persist anything.
func IsWriteable(path string) bool {
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().Perm()&0200 != 0
	}
	if !os.IsNotExist(err) {
		return false
	}

	// not created yet, the parent directory decides
	dirInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		return false
	}
	return dirInfo.IsDir() && dirInfo.Mode().Perm()&0200 != 0
}
