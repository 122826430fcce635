package platform

import "os"

// CopyMethod identifies which syscall/strategy was used for a copy.
type CopyMethod int

const (
	ReadWrite     CopyMethod = iota
	CopyFileRange            // Linux copy_file_range(2)
	Sendfile                 // Linux sendfile(2)
	Clonefile                // macOS clonefile(2)
)

func (m CopyMethod) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case CopyFileRange:
		return "copy_file_range"
	case Sendfile:
		return "sendfile"
	case Clonefile:
		return "clonefile"
	default:
		return "unknown"
	}
}

// CopyResult reports the outcome of a copy operation.
type CopyResult struct {
	BytesWritten int64
	Method       CopyMethod
}

// CopyParams describes one whole-file copy. The destination is created
// or truncated; Size is the source size at enumeration time and is used
// for preallocation only.
type CopyParams struct {
	DstPath string
	SrcPath string
	Size    int64
	Perm    os.FileMode
}

func openDst(params CopyParams) (*os.File, error) {
	return os.OpenFile(params.DstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, params.Perm)
}
