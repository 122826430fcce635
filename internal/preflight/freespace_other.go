//go:build !linux && !darwin

package preflight

import "errors"

// FreeSpace is not supported on this platform; callers log and move on.
func FreeSpace(_ string) (uint64, error) {
	return 0, errors.New("free space query not supported on this platform")
}
