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
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// record is one parsed member header together with the location of its data section. Parsing a
// record validates everything needed to step over it; resolving its name is left to Member.Name.
type record struct {
	// off is the offset of the 60-byte header within the archive.
	off int64

	// name is the raw name field with trailing spaces removed.
	name string

	// bsdName is the location of a BSD long file name ("#1/N") prepended to the data section, or
	// a zero-length range if the member doesn't have one.
	bsdNameOff, bsdNameLen int64

	modTime  int64
	uid, gid int64
	mode     int64

	// dataOff and size describe the member's payload, excluding any BSD long file name.
	dataOff, size int64

	// next is the offset of the following header, after the alignment padding.
	next int64
}

// trimField strips the trailing padding from a fixed-width header field. Some writers pad with
// NULs rather than spaces.
func trimField(b []byte) []byte {
	return bytes.TrimRight(b, " \x00")
}

func numeric(b []byte) int64 {
	n, _ := strconv.ParseInt(string(bytes.TrimLeft(trimField(b), " ")), 10, 64)
	return n
}

func octal(b []byte) int64 {
	n, _ := strconv.ParseInt(string(bytes.TrimLeft(trimField(b), " ")), 8, 64)
	return n
}

// readRecord parses the member header at off. Date, owner and mode fields are parsed leniently
// since nothing depends on them; the size field and the header terminator must be valid, and the
// data section must lie within buf.
func readRecord(buf []byte, off int64) (record, error) {
	if rest := int64(len(buf)) - off; rest < HEADER_BYTE_SIZE {
		return record{}, &FormatError{
			Offset: off,
			Err:    fmt.Errorf("short header; got %d bytes, want %d", rest, HEADER_BYTE_SIZE),
		}
	}

	s := slicer(buf[off : off+HEADER_BYTE_SIZE])
	rec := record{off: off}
	rec.name = strings.TrimRight(string(s.next(16)), " ")
	rec.modTime = numeric(s.next(12))
	rec.uid = numeric(s.next(6))
	rec.gid = numeric(s.next(6))
	rec.mode = octal(s.next(8))
	sizeField := string(bytes.TrimLeft(trimField(s.next(10)), " "))
	if magic := string(s.next(2)); magic != fileMagic {
		return record{}, &FormatError{Offset: off, Err: fmt.Errorf("bad terminator %q in member header", magic)}
	}
	size, err := strconv.ParseInt(sizeField, 10, 64)
	if err != nil || size < 0 {
		return record{}, &FormatError{Offset: off, Err: fmt.Errorf("invalid size field %q", sizeField)}
	}

	start := off + HEADER_BYTE_SIZE
	end := start + size
	if end > int64(len(buf)) || end < start {
		return record{}, &FormatError{
			Offset: off,
			Err:    fmt.Errorf("member size %d exceeds archive size %d", size, len(buf)),
		}
	}
	rec.dataOff, rec.size = start, size

	// A file name consisting of "#1/" followed by an integer indicates that this file has a long
	// name that is prepended to the file's data section. The integer is the length of the
	// prepended data.
	if strings.HasPrefix(rec.name, "#1/") {
		length, err := strconv.ParseInt(strings.TrimSpace(rec.name[3:]), 10, 64)
		if err != nil || length < 0 {
			return record{}, &FileNameError{Name: rec.name, Err: errors.New("invalid long file name length")}
		}
		if length > size {
			return record{}, &FileNameError{Name: rec.name, Err: errors.New("long file name exceeds member size")}
		}
		rec.bsdNameOff, rec.bsdNameLen = start, length
		rec.dataOff, rec.size = start+length, size-length
	}

	// Data sections are aligned to an even offset. Tolerate a missing pad byte at the very end
	// of the archive.
	rec.next = end + end%2
	if rec.next > int64(len(buf)) {
		rec.next = int64(len(buf))
	}
	return rec, nil
}

// resolveName returns the logical name of rec. The returned slice aliases buf or stringTable.
func resolveName(buf, stringTable []byte, kind Kind, rec record) ([]byte, error) {
	if rec.bsdNameLen > 0 || strings.HasPrefix(rec.name, "#1/") {
		// Some implementations (e.g. llvm-ar) append an indeterminate number of trailing nulls to
		// the prepended data, which should be stripped.
		name := bytes.TrimRight(buf[rec.bsdNameOff:rec.bsdNameOff+rec.bsdNameLen], "\x00")
		if len(name) == 0 {
			return nil, &FileNameError{Name: rec.name, Err: errors.New("zero-length file name")}
		}
		return name, nil
	}

	field := buf[rec.off : rec.off+int64(len(rec.name))]
	if len(field) == 0 {
		return nil, &FileNameError{Name: rec.name, Err: errors.New("zero-length file name")}
	}
	if kind == BSD {
		return field, nil
	}

	// A file name consisting of "/" followed by an integer indicates that this file has a long
	// name that is stored in the archive's string table. The integer is the byte offset of the
	// real file name in the string table.
	if field[0] == '/' && len(field) > 1 {
		if stringTable == nil {
			return nil, &FileNameError{Name: rec.name, Err: errors.New("missing string table")}
		}
		start, err := strconv.Atoi(string(field[1:]))
		if err != nil || start < 0 || start >= len(stringTable) {
			return nil, &FileNameError{Name: rec.name, Err: errors.New("invalid string table offset")}
		}
		entry := stringTable[start:]
		// GNU ar terminates entries with "/\n"; lib.exe terminates them with a NUL.
		end := bytes.IndexAny(entry, "\n\x00")
		if end == -1 {
			return nil, &StringTableError{Err: errors.New("missing entry terminator")}
		}
		name := entry[:end]
		if entry[end] == '\n' {
			name = bytes.TrimSuffix(name, []byte("/"))
		}
		if len(name) == 0 {
			return nil, &FileNameError{Name: rec.name, Err: errors.New("zero-length file name")}
		}
		return name, nil
	}

	// GNU ar appends "/" to all short file names.
	if field[len(field)-1] != '/' {
		if kind == GNU {
			return nil, &FileNameError{Name: rec.name, Err: errors.New("file name is missing trailing '/'")}
		}
		return field, nil
	}
	name := field[:len(field)-1]
	if len(name) == 0 {
		return nil, &FileNameError{Name: rec.name, Err: errors.New("zero-length file name")}
	}
	return name, nil
}

// header converts rec into the public Header form, naming it name.
func (rec record) header(name string) Header {
	return Header{
		Name:    name,
		ModTime: time.Unix(rec.modTime, 0),
		Uid:     int(rec.uid),
		Gid:     int(rec.gid),
		Mode:    rec.mode,
		Size:    rec.size,
	}
}
