package ar

import (
	"fmt"
	"os"
)

// store owns the bytes of an opened archive file. Members borrow slices of it; once it is
// released every accessor reports ErrClosed instead of touching the memory.
type store struct {
	data    []byte
	mapped  bool
	release func([]byte) error
}

// loadStore maps the file at path into memory, or reads it fully when mapping is disabled or not
// supported on this platform.
func loadStore(path string, useMmap bool) (*store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ar: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("ar: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("ar: %s: not a regular file", path)
	}

	// Zero-length mappings are rejected by the kernel; an empty file is handled by the
	// signature check anyway.
	if useMmap && info.Size() > 0 {
		if data, release, err := mapFile(f, info.Size()); err == nil {
			return &store{data: data, mapped: true, release: release}, nil
		}
	}

	data := make([]byte, info.Size())
	if _, err := f.ReadAt(data, 0); err != nil {
		return nil, fmt.Errorf("ar: %w", err)
	}
	return &store{data: data}, nil
}

// bytes returns the archive contents, or ErrClosed once the store has been released.
func (s *store) bytes() ([]byte, error) {
	if s == nil || s.data == nil {
		return nil, ErrClosed
	}
	return s.data, nil
}

func (s *store) close() error {
	if s.data == nil {
		return ErrClosed
	}
	data := s.data
	s.data = nil
	if s.release != nil {
		return s.release(data)
	}
	return nil
}
