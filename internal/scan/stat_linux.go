//go:build linux

package scan

import (
	"io/fs"
	"syscall"
	"time"
)

// createdAt returns the file's creation timestamp as fractional unix
// seconds. Linux filesystems expose no birth time through Stat_t, so the
// inode change time is used, matching what callers rely on: a stable
// per-file timestamp that predates content modifications made after the
// file appeared. Other platforms name the Stat_t timespec fields
// differently and fall back to the modification time.
func createdAt(info fs.FileInfo) float64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return unixSeconds(time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec))
	}
	return unixSeconds(info.ModTime())
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
