//go:build unix

package fshost

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// fileTID identifies p by device and inode, which survive a rename.
func fileTID(p string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(p, &st); err != nil {
		return "", fmt.Errorf("fshost: stat %s: %w", p, err)
	}
	return fmt.Sprintf("%x-%x", uint64(st.Dev), uint64(st.Ino)), nil
}
