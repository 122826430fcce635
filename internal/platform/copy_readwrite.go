package platform

import (
	"io"
	"os"
	"sync"
)

const bufferSize = 1 << 20 // 1 MiB

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, bufferSize)
		return &b
	},
}

// copyReadWrite copies the whole source with a pooled buffer. It works
// on any platform and is the last rung of the fallback ladder.
func copyReadWrite(dst *os.File, params CopyParams) (CopyResult, error) {
	src, err := os.Open(params.SrcPath)
	if err != nil {
		return CopyResult{}, err
	}
	defer src.Close()

	// A previous strategy may have made partial progress; restart the
	// destination from the top.
	if _, err := dst.Seek(0, 0); err != nil {
		return CopyResult{}, err
	}

	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)

	n, err := io.CopyBuffer(dst, src, *bufp)
	return CopyResult{BytesWritten: n, Method: ReadWrite}, err
}
