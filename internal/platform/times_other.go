//go:build !linux && !darwin

package platform

import (
	"os"
	"time"
)

// Atime falls back to the modification time on platforms where the
// stat access time is not portably reachable.
func Atime(info os.FileInfo) time.Time {
	return info.ModTime()
}
