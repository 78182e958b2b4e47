//go:build !unix

package ar

import (
	"errors"
	"io/fs"
	"os"
)

var errMmapUnsupported = errors.New("ar: memory mapping not supported on this platform")

// mapFile always fails on non-Unix systems so that loadStore falls back to reading the file.
func mapFile(f *os.File, size int64) ([]byte, func([]byte) error, error) {
	return nil, nil, errMmapUnsupported
}

// fileOwner returns zero UID/GID on non-Unix systems.
func fileOwner(info fs.FileInfo) (uid, gid int) {
	return 0, 0
}
