package ar

import (
	"time"
)

const (
	HEADER_BYTE_SIZE = 60
	GLOBAL_HEADER    = "!<arch>\n"

	// fileMagic terminates every member header.
	fileMagic = "`\n"
)

// Kind identifies the on-disk convention used by an archive: how long member names are stored
// and how the symbol table is encoded.
type Kind int

const (
	// KindOther is the zero Kind. It is never a valid argument to WriteArchive.
	KindOther Kind = iota

	// GNU represents the variant of the ar file format used by GNU ar.
	GNU

	// BSD represents the variant of the ar file format used by BSD ar.
	BSD

	// COFF represents the variant of the ar file format used by Microsoft lib.exe for COFF
	// import and static libraries.
	COFF
)

func (k Kind) String() string {
	switch k {
	case GNU:
		return "gnu"
	case BSD:
		return "bsd"
	case COFF:
		return "coff"
	}
	return "other"
}

func (k Kind) valid() bool {
	return k == GNU || k == BSD || k == COFF
}

// Names of the special members that never show up during iteration.
const (
	symtabName      = "/"
	symtab64Name    = "/SYM64/"
	stringTableName = "//"
	bsdSymdefName   = "__.SYMDEF"
	bsdSymdefSorted = "__.SYMDEF SORTED"
	bsdSymdef64Name = "__.SYMDEF_64"
)

type Header struct {
	Name    string
	ModTime time.Time
	Uid     int
	Gid     int
	Mode    int64
	Size    int64
}

type slicer []byte

func (sp *slicer) next(n int) (b []byte) {
	s := *sp
	b, *sp = s[0:n], s[n:]
	return
}

func isSpecial(name string) bool {
	switch name {
	case symtabName, symtab64Name, stringTableName, bsdSymdefName, bsdSymdefSorted, bsdSymdef64Name:
		return true
	}
	return false
}
