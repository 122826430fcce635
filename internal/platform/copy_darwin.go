//go:build darwin

package platform

import (
	"golang.org/x/sys/unix"
)

// CopyFile tries clonefile first (CoW whole-file copies on APFS), then
// falls back to read/write on macOS.
func CopyFile(params CopyParams) (CopyResult, error) {
	// clonefile requires the destination to not exist yet.
	err := unix.Clonefile(params.SrcPath, params.DstPath, 0)
	if err == nil {
		return CopyResult{BytesWritten: params.Size, Method: Clonefile}, nil
	}
	if !isFallbackCloneErr(err) {
		return CopyResult{}, err
	}

	dst, err := openDst(params)
	if err != nil {
		return CopyResult{}, err
	}
	defer dst.Close()

	preallocate(dst, params.Size)
	return copyReadWrite(dst, params)
}

func isFallbackCloneErr(err error) bool {
	switch err {
	case unix.ENOTSUP, unix.EXDEV, unix.EEXIST:
		return true
	}
	return false
}
