package ar

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"log/slog"
)

// Archive is an opened ar archive. Its contents stay in memory (usually memory mapped) until Close
// is called; members obtained from it borrow that memory.
//
// An Archive and the iterators created from it must not be used from more than one goroutine at
// a time. Open the file once per goroutine to enumerate it concurrently.
type Archive struct {
	path   string
	st     *store
	logger *slog.Logger

	kind Kind

	// symtabs are the symbol table members found before the first regular member, in file order.
	// COFF archives carry two.
	symtabs []record

	// stringTable is the data section of the "//" member, if the archive has one.
	stringTable []byte

	// first is the offset of the first regular member's header, or the archive size if there is
	// none.
	first int64
}

// Open opens the archive at path. The whole file is mapped (or read) into memory, its signature is
// checked and the leading symbol and string tables are located. The caller must call Close when
// neither the archive nor any member read from it is needed any more.
func Open(path string, opts ...OpenOption) (*Archive, error) {
	cfg := openConfig{logger: defaultLogger(), mmap: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := loadStore(path, cfg.mmap)
	if err != nil {
		return nil, err
	}
	a := &Archive{path: path, st: st, logger: cfg.logger}
	if err := a.parse(st.data); err != nil {
		st.close()
		return nil, err
	}
	a.logger.Debug("opened archive",
		slog.String("path", path),
		slog.String("kind", a.kind.String()),
		slog.Int("size", len(st.data)),
		slog.Bool("mmap", st.mapped))
	return a, nil
}

// parse checks the global header and consumes the special members at the start of the archive.
func (a *Archive) parse(buf []byte) error {
	if len(buf) < len(GLOBAL_HEADER) {
		return ErrMissingGlobalHeader
	}
	if string(buf[:len(GLOBAL_HEADER)]) != GLOBAL_HEADER {
		return ErrInvalidGlobalHeader
	}

	off := int64(len(GLOBAL_HEADER))
	a.first = int64(len(buf))
	for off < int64(len(buf)) {
		rec, err := readRecord(buf, off)
		if err != nil {
			return err
		}
		switch name := specialName(buf, rec); name {
		case symtabName, symtab64Name:
			a.symtabs = append(a.symtabs, rec)
			// lib.exe writes a second linker member directly after the first one.
			if len(a.symtabs) == 2 && a.symtabs[0].name == symtabName && name == symtabName {
				a.kind = COFF
			} else if a.kind == KindOther {
				a.kind = GNU
			}
		case stringTableName:
			if a.stringTable != nil {
				return &StringTableError{Err: errors.New("archive contains multiple string tables")}
			}
			a.stringTable = buf[rec.dataOff : rec.dataOff+rec.size]
			if a.kind == KindOther {
				a.kind = GNU
			}
		case bsdSymdefName, bsdSymdefSorted, bsdSymdef64Name:
			a.symtabs = append(a.symtabs, rec)
			a.kind = BSD
		default:
			a.first = off
			if a.kind == KindOther {
				a.kind = detectKind(rec.name)
			}
			return nil
		}
		off = rec.next
	}
	if a.kind == KindOther {
		// An empty archive could be of any kind; the distinction doesn't matter for it.
		a.kind = BSD
	}
	return nil
}

// detectKind guesses the kind from the first regular member's name field. File names in the GNU
// variant either begin with "/" (file names >= 16 bytes) or end with "/" (file names < 16 bytes);
// otherwise, assume the archive uses the BSD variant.
func detectKind(name string) Kind {
	if len(name) > 0 && (name[0] == '/' || name[len(name)-1] == '/') {
		return GNU
	}
	return BSD
}

// specialName returns the name of rec if it is a symbol or string table, or "" otherwise. Darwin
// stores "__.SYMDEF SORTED" as a BSD long name, so that form is recognised too.
func specialName(buf []byte, rec record) string {
	if isSpecial(rec.name) {
		return rec.name
	}
	if rec.bsdNameLen > 0 {
		name := string(bytes.TrimRight(buf[rec.bsdNameOff:rec.bsdNameOff+rec.bsdNameLen], "\x00"))
		if isSpecial(name) && name != stringTableName && name != symtabName {
			return name
		}
	}
	return ""
}

// Close releases the archive's memory. Members read from the archive must not be used after
// Close; their accessors return ErrClosed. Closing an archive twice returns ErrClosed.
func (a *Archive) Close() error {
	a.logger.Debug("closing archive", slog.String("path", a.path))
	return a.st.close()
}

// Kind returns the variant of the ar format the archive was detected to use.
func (a *Archive) Kind() Kind {
	return a.kind
}

// Path returns the path the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

// HasSymbolTable reports whether the archive starts with a symbol table.
func (a *Archive) HasSymbolTable() bool {
	return len(a.symtabs) > 0
}

// Iterator returns a new iterator over the archive's members. It is shorthand for NewIterator(a).
func (a *Archive) Iterator() (*Iterator, error) {
	return NewIterator(a)
}

// Members returns a sequence of the archive's members. Iteration stops after the first error,
// which is yielded with a nil member.
func (a *Archive) Members() iter.Seq2[*Member, error] {
	return func(yield func(*Member, error) bool) {
		it, err := NewIterator(a)
		if err != nil {
			yield(nil, err)
			return
		}
		for {
			m, err := it.Next()
			if err == io.EOF {
				return
			}
			if !yield(m, err) || err != nil {
				return
			}
		}
	}
}
