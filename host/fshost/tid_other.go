//go:build !unix

package fshost

import (
	"os"
	"path/filepath"
)

// fileTID falls back to the cleaned path where inodes are unavailable.
func fileTID(p string) (string, error) {
	if _, err := os.Stat(p); err != nil {
		return "", err
	}
	return filepath.Clean(p), nil
}
