//go:build linux

package platform

import (
	"os"
	"syscall"
	"time"
)

// Atime returns the access time recorded in info.
func Atime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Atim.Sec, st.Atim.Nsec)
	}
	return info.ModTime()
}
