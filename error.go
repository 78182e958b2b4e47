package ar

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingGlobalHeader indicates that the archive file is invalid because its global
	// header is missing (i.e., because the file is shorter than 8 bytes).
	ErrMissingGlobalHeader = errors.New("ar: missing global header")

	// ErrInvalidGlobalHeader indicates that the archive file is invalid because its global
	// header is malformed (i.e., not the string "!<arch>\n").
	ErrInvalidGlobalHeader = errors.New("ar: invalid global header")

	// ErrClosed is returned when an archive, or a member read from it, is used after the archive
	// has been closed.
	ErrClosed = errors.New("ar: archive closed")
)

// StringTableError indicates a problem with the string table in archives that use the GNU or COFF
// variants of the file format.
type StringTableError struct {
	Err error
}

func (e *StringTableError) Error() string {
	return fmt.Sprintf("ar: string table: %s", e.Err)
}

func (e *StringTableError) Unwrap() error {
	return e.Err
}

// FileNameError indicates a problem with the file name in one of the archive's file headers.
type FileNameError struct {
	Name string
	Err  error
}

func (e *FileNameError) Error() string {
	return fmt.Sprintf("ar: archive member '%s': %s", e.Name, e.Err)
}

func (e *FileNameError) Unwrap() error {
	return e.Err
}

// FormatError indicates a malformed member header or a member whose data runs past the end of
// the archive. Offset is the position of the offending header in the archive file.
type FormatError struct {
	Offset int64
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("ar: malformed member at offset %d: %s", e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// MemberError is returned by WriteArchive when one of the new members could not be
// materialized. Index is the member's position in the input list.
type MemberError struct {
	Index int
	Name  string
	Err   error
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("ar: new member %d ('%s'): %s", e.Index, e.Name, e.Err)
}

func (e *MemberError) Unwrap() error {
	return e.Err
}
