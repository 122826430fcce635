//go:build !linux && !darwin

package platform

// CopyFile falls back to read/write on platforms without a zero-copy
// syscall path.
func CopyFile(params CopyParams) (CopyResult, error) {
	dst, err := openDst(params)
	if err != nil {
		return CopyResult{}, err
	}
	defer dst.Close()

	preallocate(dst, params.Size)
	return copyReadWrite(dst, params)
}
