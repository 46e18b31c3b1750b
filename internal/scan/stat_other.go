//go:build !linux

package scan

import (
	"io/fs"
	"time"
)

// createdAt falls back to the modification time on platforms without a
// portable inode change time.
func createdAt(info fs.FileInfo) float64 {
	return unixSeconds(info.ModTime())
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
