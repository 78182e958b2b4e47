/*
Copyright (c) 2013 Blake Smith <blakesmith0@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package ar

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrWriteTooLong  = errors.New("ar: write too long")
	ErrWriteTooShort = errors.New("ar: previous member is missing data")
)

// Writer provides sequential writing of an ar archive.
// An ar archive is sequence of header file pairs
// Call WriteHeader to begin writing a new file, then call Write to supply the file's data
//
// Example:
// archive := ar.NewWriter(writer, ar.GNU)
// header := new(ar.Header)
// header.Name = "hello.o"
// header.Size = 15 // bytes
//
//	if err := archive.WriteHeader(header); err != nil {
//		return err
//	}
//
// io.Copy(archive, data)
type Writer struct {
	// w is the underlying io.Writer to which the archive file is written.
	w io.Writer

	// kind decides how member names that don't fit in the header are stored.
	kind Kind

	// closed is true if Close has been called on this Writer, or false if it has not.
	closed bool

	// wroteHeader is true if the archive header has been written to the underlying io.Writer, or
	// false if it has not yet.
	wroteHeader bool

	// nb is the number of bytes that have not yet been written (via Write) since the most
	// recent call to WriteHeader.
	nb int64

	// pad is true if the current member's data section has an odd length and must be followed by a
	// padding byte once it is complete.
	pad bool

	// longFilenames is a map representation of the archive's string table, which maps archive
	// members' file names that don't fit in the header to the byte offset of that file name within
	// the string table. It is only used by GNU and COFF Writers - BSD-style archives do not
	// contain a string table.
	longFilenames map[string]int
}

// NewWriter creates a new Writer that writes an ar archive of the given kind to an underlying
// io.Writer. It panics if kind is not GNU, BSD or COFF.
func NewWriter(w io.Writer, kind Kind) *Writer {
	if !kind.valid() {
		panic(fmt.Sprintf("ar: bad archive kind %d", kind))
	}
	return &Writer{
		w:             w,
		kind:          kind,
		longFilenames: map[string]int{},
	}
}

func (aw *Writer) numeric(b []byte, x int64) error {
	return aw.string(b, strconv.FormatInt(x, 10))
}

func (aw *Writer) octal(b []byte, x int64) error {
	return aw.string(b, strconv.FormatInt(x, 8))
}

func (aw *Writer) string(b []byte, str string) error {
	if len(str) > len(b) {
		return fmt.Errorf("header field %q exceeds %d bytes", str, len(b))
	}
	s := str
	for len(s) < len(b) {
		s = s + " "
	}
	copy(b, []byte(s))
	return nil
}

func (aw *Writer) write(p []byte) (int, error) {
	if aw.closed {
		return 0, errors.New("ar: write to closed writer")
	}
	if err := aw.writeHeader(); err != nil {
		return 0, err
	}
	return aw.w.Write(p)
}

// Close finishes writing the archive, ensuring that a valid archive header has been written even if
// the archive contains no files. It does not close the underlying io.Writer.
func (aw *Writer) Close() error {
	if aw.closed {
		return errors.New("ar: writer closed twice")
	}
	if err := aw.finishMember(); err != nil {
		return err
	}
	if err := aw.writeHeader(); err != nil {
		return err
	}
	aw.closed = true
	return nil
}

// Writes to the current entry in the ar archive
// Returns ErrWriteTooLong if more than header.Size
// bytes are written after a call to WriteHeader
func (aw *Writer) Write(b []byte) (n int, err error) {
	if int64(len(b)) > aw.nb {
		b = b[0:aw.nb]
		err = ErrWriteTooLong
	}
	n, werr := aw.write(b)
	aw.nb -= int64(n)
	if werr != nil {
		return n, werr
	}
	return
}

// finishMember writes the padding byte that aligns the next header to an even offset, once the
// current member's data is complete.
func (aw *Writer) finishMember() error {
	if aw.nb > 0 {
		return ErrWriteTooShort
	}
	if aw.pad {
		aw.pad = false
		if _, err := aw.write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return nil
}

// writeHeader writes the ar header to the underlying io.Writer. This must only happen once, and must
// be the first write operation on the io.Writer.
func (aw *Writer) writeHeader() error {
	if aw.wroteHeader {
		return nil
	}
	aw.wroteHeader = true
	_, err := aw.w.Write([]byte(GLOBAL_HEADER))
	if err != nil {
		return fmt.Errorf("ar: write archive header: %w", err)
	}
	return nil
}

// needsLongName reports whether name can't be stored directly in the 16-byte name field of a
// kind archive.
func needsLongName(kind Kind, name string) bool {
	if kind == BSD {
		// Names that would read back as a GNU name or a "#1/" reference are stored as long names
		// too.
		return len(name) > 16 || strings.Contains(name, " ") || strings.HasPrefix(name, "#1/") ||
			strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/")
	}
	// GNU and COFF append "/" to names stored in the header. Header names starting with "/" are
	// string table references and those starting with "#1/" are BSD long names.
	return len(name) > 15 || strings.HasPrefix(name, "/") || strings.HasPrefix(name, "#1/")
}

// checkName reports whether name can be stored in a kind archive and read back unchanged.
func checkName(kind Kind, name string) error {
	var reason string
	switch {
	case name == "":
		reason = "zero-length file name"
	case strings.ContainsAny(name, "\x00\n"):
		reason = "file name contains a NUL or newline"
	case kind == BSD && isSpecial(name):
		reason = "file name is reserved for symbol tables"
	default:
		return nil
	}
	return &FileNameError{Name: name, Err: errors.New(reason)}
}

// stringTable builds the data section of the "//" member for names, along with each long name's
// offset within it. It returns nil if none of the names need the table.
func stringTable(kind Kind, names []string) ([]byte, map[string]int) {
	var data []byte
	offsets := map[string]int{}
	if kind == BSD {
		return nil, offsets
	}
	for _, name := range names {
		if _, seen := offsets[name]; seen || !needsLongName(kind, name) {
			continue
		}
		offsets[name] = len(data)
		data = append(data, name...)
		if kind == COFF {
			data = append(data, 0)
		} else {
			data = append(data, '/', '\n')
		}
	}
	return data, offsets
}

// WriteStringTable writes the string table holding every name in filenames that doesn't fit in a
// member header. It must be called before the headers of those members are written. It does
// nothing for BSD archives, which store long names alongside each member's data.
func (aw *Writer) WriteStringTable(filenames []string) error {
	data, offsets := stringTable(aw.kind, filenames)
	if len(data) == 0 {
		return nil
	}
	if err := aw.writeSpecial(stringTableName, data); err != nil {
		return err
	}
	for name, off := range offsets {
		aw.longFilenames[name] = off
	}
	return nil
}

// writeSpecial writes a complete symbol table or string table member. Its name is stored verbatim.
func (aw *Writer) writeSpecial(name string, data []byte) error {
	if err := aw.writeMemberHeader(name, &Header{Size: int64(len(data))}, 0); err != nil {
		return err
	}
	_, err := aw.Write(data)
	return err
}

// bsdLongName returns the data prepended to a member's data section to hold a BSD long name.
func bsdLongName(name string) []byte {
	b := append([]byte(name), 0, 0) // seems to pad with at least two nulls
	if len(b)%2 != 0 {
		b = append(b, 0) // pad out to an even number
	}
	return b
}

// memberHeaderSize returns the number of bytes that precede the data section of a member called
// name in a kind archive.
func memberHeaderSize(kind Kind, name string) int64 {
	if kind == BSD && needsLongName(kind, name) {
		return HEADER_BYTE_SIZE + int64(len(bsdLongName(name)))
	}
	return HEADER_BYTE_SIZE
}

// Writes the header to the underlying writer and prepares
// to receive the file payload
func (aw *Writer) WriteHeader(hdr *Header) error {
	if err := checkName(aw.kind, hdr.Name); err != nil {
		return err
	}

	var bsdName []byte
	var field string
	switch {
	case aw.kind == BSD && needsLongName(aw.kind, hdr.Name):
		bsdName = bsdLongName(hdr.Name)
		field = "#1/" + strconv.Itoa(len(bsdName))
	case aw.kind == BSD:
		field = hdr.Name
	case needsLongName(aw.kind, hdr.Name):
		idx, present := aw.longFilenames[hdr.Name]
		if !present {
			return &FileNameError{Name: hdr.Name, Err: errors.New("long file name missing from string table")}
		}
		field = "/" + strconv.Itoa(idx)
	default:
		field = hdr.Name + "/"
	}

	if err := aw.writeMemberHeader(field, hdr, int64(len(bsdName))); err != nil {
		return err
	}
	if bsdName != nil {
		// BSD-style writes the name before the data section
		aw.nb += int64(len(bsdName))
		if _, err := aw.Write(bsdName); err != nil {
			return err
		}
	}
	return nil
}

// writeMemberHeader encodes a 60-byte header with the given name field. extra is the length of data
// that precedes the member's contents within its data section.
func (aw *Writer) writeMemberHeader(field string, hdr *Header, extra int64) error {
	if err := aw.finishMember(); err != nil {
		return err
	}
	size := hdr.Size + extra
	header := make([]byte, HEADER_BYTE_SIZE)
	s := slicer(header)

	var modTime int64
	if !hdr.ModTime.IsZero() {
		modTime = hdr.ModTime.Unix()
	}
	for _, err := range []error{
		aw.string(s.next(16), field),
		aw.numeric(s.next(12), modTime),
		aw.numeric(s.next(6), int64(hdr.Uid)),
		aw.numeric(s.next(6), int64(hdr.Gid)),
		aw.octal(s.next(8), hdr.Mode),
		aw.numeric(s.next(10), size),
		aw.string(s.next(2), fileMagic),
	} {
		if err != nil {
			return fmt.Errorf("ar: %s: %w", hdr.Name, err)
		}
	}

	if _, err := aw.write(header); err != nil {
		return err
	}
	aw.nb = hdr.Size
	aw.pad = size%2 == 1
	return nil
}
