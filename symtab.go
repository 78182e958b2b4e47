package ar

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Symbol is one entry of an archive's symbol table.
type Symbol struct {
	Name string

	// Offset is the offset of the header of the member that defines the symbol. It matches
	// Member.Offset for that member.
	Offset int64
}

// SymbolReader lists the global symbols defined by one member's contents. Contents it doesn't
// recognise as an object file should produce no symbols and no error.
type SymbolReader func(data []byte) ([]string, error)

// ErrSymbolTableOverflow is returned by WriteArchive when a symbol table can't describe the
// archive being written.
var ErrSymbolTableOverflow = errors.New("ar: archive exceeds symbol table limits")

// symbolTables encodes the symbol table members for a kind archive, in the order they are written.
// syms[i] lists the symbols defined by the member whose header is at offsets[i]. If wide is set,
// GNU and BSD archives get 64-bit tables; COFF has no 64-bit form.
func symbolTables(kind Kind, syms [][]string, offsets []int64, wide bool) ([]namedTable, error) {
	wordSize := 4
	if wide {
		wordSize = 8
	}
	switch kind {
	case BSD:
		if wide {
			return []namedTable{{bsdSymdef64Name, bsdSymtab(syms, offsets, wordSize)}}, nil
		}
		return []namedTable{{bsdSymdefName, bsdSymtab(syms, offsets, wordSize)}}, nil
	case COFF:
		if wide {
			return nil, fmt.Errorf("%w: member offsets exceed 32 bits", ErrSymbolTableOverflow)
		}
		second, err := coffSymtab(syms, offsets)
		if err != nil {
			return nil, err
		}
		return []namedTable{
			{symtabName, gnuSymtab(syms, offsets, wordSize)},
			{symtabName, second},
		}, nil
	}
	if wide {
		return []namedTable{{symtab64Name, gnuSymtab(syms, offsets, wordSize)}}, nil
	}
	return []namedTable{{symtabName, gnuSymtab(syms, offsets, wordSize)}}, nil
}

type namedTable struct {
	name string
	data []byte
}

// needsWideSymtab reports whether any member offset is too large for a 32-bit symbol table.
func needsWideSymtab(offsets []int64) bool {
	for _, off := range offsets {
		if off > math.MaxUint32 {
			return true
		}
	}
	return false
}

func appendWord(order binary.AppendByteOrder, b []byte, size int, v uint64) []byte {
	if size == 8 {
		return order.AppendUint64(b, v)
	}
	return order.AppendUint32(b, uint32(v))
}

// gnuSymtab encodes the "/" or "/SYM64/" member: a big-endian symbol count, the member offset of
// every symbol and then the NUL-terminated symbol names.
func gnuSymtab(syms [][]string, offsets []int64, wordSize int) []byte {
	var n int
	var names bytes.Buffer
	for _, s := range syms {
		n += len(s)
		for _, name := range s {
			names.WriteString(name)
			names.WriteByte(0)
		}
	}
	b := appendWord(binary.BigEndian, nil, wordSize, uint64(n))
	for i, s := range syms {
		for range s {
			b = appendWord(binary.BigEndian, b, wordSize, uint64(offsets[i]))
		}
	}
	return append(b, names.Bytes()...)
}

// bsdSymtab encodes the "__.SYMDEF" or "__.SYMDEF_64" member: the byte length of the ranlib
// array, (name offset, member offset) pairs, the byte length of the string table and the string
// table, all little-endian.
func bsdSymtab(syms [][]string, offsets []int64, wordSize int) []byte {
	var ranlibs, strtab []byte
	for i, s := range syms {
		for _, name := range s {
			ranlibs = appendWord(binary.LittleEndian, ranlibs, wordSize, uint64(len(strtab)))
			ranlibs = appendWord(binary.LittleEndian, ranlibs, wordSize, uint64(offsets[i]))
			strtab = append(strtab, name...)
			strtab = append(strtab, 0)
		}
	}
	b := appendWord(binary.LittleEndian, nil, wordSize, uint64(len(ranlibs)))
	b = append(b, ranlibs...)
	b = appendWord(binary.LittleEndian, b, wordSize, uint64(len(strtab)))
	return append(b, strtab...)
}

// coffSymtab encodes the second linker member of a COFF archive: the member offsets, then for every
// symbol (sorted by name) the 1-based index of its member, then the sorted names. Member indices
// are 16 bits wide.
func coffSymtab(syms [][]string, offsets []int64) ([]byte, error) {
	type entry struct {
		name   string
		member int
	}
	var entries []entry
	for i, s := range syms {
		for _, name := range s {
			if i+1 > math.MaxUint16 {
				return nil, fmt.Errorf("%w: member %d defines symbols but COFF indexes at most %d members",
					ErrSymbolTableOverflow, i, math.MaxUint16)
			}
			entries = append(entries, entry{name, i + 1})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	b := binary.LittleEndian.AppendUint32(nil, uint32(len(offsets)))
	for _, off := range offsets {
		b = binary.LittleEndian.AppendUint32(b, uint32(off))
	}
	b = binary.LittleEndian.AppendUint32(b, uint32(len(entries)))
	for _, e := range entries {
		b = binary.LittleEndian.AppendUint16(b, uint16(e.member))
	}
	for _, e := range entries {
		b = append(b, e.name...)
		b = append(b, 0)
	}
	return b, nil
}

// Symbols decodes the archive's symbol table. It returns nil if the archive doesn't have one. For
// COFF archives the first linker member is used.
func (a *Archive) Symbols() ([]Symbol, error) {
	if len(a.symtabs) == 0 {
		return nil, nil
	}
	buf, err := a.st.bytes()
	if err != nil {
		return nil, err
	}
	rec := a.symtabs[0]
	data := buf[rec.dataOff : rec.dataOff+rec.size]

	var syms []Symbol
	switch specialName(buf, rec) {
	case symtabName:
		syms, err = readGNUSymtab(data, 4)
	case symtab64Name:
		syms, err = readGNUSymtab(data, 8)
	case bsdSymdef64Name:
		syms, err = readBSDSymtab(data, 8)
	default:
		syms, err = readBSDSymtab(data, 4)
	}
	if err != nil {
		return nil, &FormatError{Offset: rec.off, Err: fmt.Errorf("symbol table: %w", err)}
	}
	return syms, nil
}

var errSymtabTruncated = errors.New("truncated")

func readWord(order binary.ByteOrder, b []byte, size int) uint64 {
	if size == 8 {
		return order.Uint64(b)
	}
	return uint64(order.Uint32(b))
}

func readGNUSymtab(data []byte, wordSize int) ([]Symbol, error) {
	if len(data) < wordSize {
		return nil, errSymtabTruncated
	}
	n := readWord(binary.BigEndian, data, wordSize)
	data = data[wordSize:]
	if n > uint64(len(data)/wordSize) {
		return nil, fmt.Errorf("symbol count %d exceeds table size", n)
	}
	offsets, names := data[:int(n)*wordSize], data[int(n)*wordSize:]
	syms := make([]Symbol, 0, n)
	for i := 0; i < int(n); i++ {
		end := bytes.IndexByte(names, 0)
		if end == -1 {
			return nil, errors.New("unterminated symbol name")
		}
		syms = append(syms, Symbol{
			Name:   string(names[:end]),
			Offset: int64(readWord(binary.BigEndian, offsets[i*wordSize:], wordSize)),
		})
		names = names[end+1:]
	}
	return syms, nil
}

func readBSDSymtab(data []byte, wordSize int) ([]Symbol, error) {
	if len(data) < wordSize {
		return nil, errSymtabTruncated
	}
	ranlibSize := readWord(binary.LittleEndian, data, wordSize)
	data = data[wordSize:]
	if ranlibSize > uint64(len(data)) || ranlibSize%uint64(2*wordSize) != 0 {
		return nil, fmt.Errorf("invalid ranlib size %d", ranlibSize)
	}
	ranlibs, rest := data[:ranlibSize], data[ranlibSize:]
	if len(rest) < wordSize {
		return nil, errSymtabTruncated
	}
	strSize := readWord(binary.LittleEndian, rest, wordSize)
	rest = rest[wordSize:]
	if strSize > uint64(len(rest)) {
		return nil, fmt.Errorf("invalid string table size %d", strSize)
	}
	strtab := rest[:strSize]

	syms := make([]Symbol, 0, len(ranlibs)/(2*wordSize))
	for len(ranlibs) > 0 {
		strx := readWord(binary.LittleEndian, ranlibs, wordSize)
		off := readWord(binary.LittleEndian, ranlibs[wordSize:], wordSize)
		ranlibs = ranlibs[2*wordSize:]
		if strx >= uint64(len(strtab)) {
			return nil, fmt.Errorf("symbol name offset %d out of bounds", strx)
		}
		name := strtab[strx:]
		if end := bytes.IndexByte(name, 0); end != -1 {
			name = name[:end]
		}
		syms = append(syms, Symbol{Name: string(name), Offset: int64(off)})
	}
	return syms, nil
}
