package ar

import (
	"path/filepath"
)

// NewMember describes one member of an archive to be written by WriteArchive. It is either a
// *FileMember or an *ExistingMember.
type NewMember interface {
	// MemberName returns the name the member was created with.
	MemberName() string

	newMember()
}

// FileMember is a new member whose contents are read from a file when the archive is written.
type FileMember struct {
	Path string
	Name string
}

// ExistingMember is a new member whose contents are copied from a member of another archive. The
// source archive must still be open when the new archive is written.
type ExistingMember struct {
	Name   string
	Member *Member
}

// FromFile returns a member that will contain the file at path. It panics if name is empty.
func FromFile(path, name string) *FileMember {
	if name == "" {
		panic("ar: FromFile called with an empty member name")
	}
	return &FileMember{Path: path, Name: name}
}

// FromExistingMember returns a member that will contain a copy of m's contents. It panics if name
// is empty or m is nil.
func FromExistingMember(name string, m *Member) *ExistingMember {
	if name == "" {
		panic("ar: FromExistingMember called with an empty member name")
	}
	if m == nil {
		panic("ar: FromExistingMember called with a nil member")
	}
	// Copy the descriptor so that the caller's value can be discarded.
	src := *m
	return &ExistingMember{Name: name, Member: &src}
}

func (f *FileMember) MemberName() string     { return f.Name }
func (e *ExistingMember) MemberName() string { return e.Name }

func (*FileMember) newMember()     {}
func (*ExistingMember) newMember() {}

// storedName returns the name a file member is written under. BSD and COFF archives store only
// the final path element of the file's path; GNU archives store the name it was created with.
func (f *FileMember) storedName(kind Kind) string {
	switch kind {
	case BSD, COFF:
		return filepath.Base(f.Path)
	}
	return f.Name
}
