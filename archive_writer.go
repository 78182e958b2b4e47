package ar

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/please-build/ar/v2/internal/objsym"
)

// deterministicMode is the mode recorded for every member of a deterministic archive.
const deterministicMode = 0644

// pendingMember is a new member whose contents have been loaded and whose header is final.
type pendingMember struct {
	hdr  Header
	data []byte
	syms []string
}

// WriteArchive writes a new archive of the given kind to dst, containing members in the order
// given. If writeSymtab is set, the archive starts with a symbol table listing the symbols each
// member defines.
//
// Every member is loaded before anything is written; the first member that can't be loaded, or
// whose name can't be stored in a kind archive, aborts the whole write with a *MemberError. The
// archive is written to a temporary file next to dst and renamed into place, so dst is never left
// half written.
//
// WriteArchive panics if kind is not GNU, BSD or COFF.
func WriteArchive(dst string, members []NewMember, writeSymtab bool, kind Kind, opts ...WriteOption) error {
	if !kind.valid() {
		panic(fmt.Sprintf("ar: bad archive kind %d", kind))
	}
	cfg := writeConfig{
		logger:        defaultLogger(),
		symbols:       objsym.Read,
		deterministic: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	pending := make([]pendingMember, 0, len(members))
	for i, nm := range members {
		if nm == nil || nm.MemberName() == "" {
			panic(fmt.Sprintf("ar: new member %d has no name", i))
		}
		pm, err := loadMember(nm, kind, cfg)
		if err == nil {
			err = checkName(kind, pm.hdr.Name)
		}
		if err == nil && writeSymtab {
			pm.syms, err = cfg.symbols(pm.data)
		}
		if err != nil {
			return &MemberError{Index: i, Name: nm.MemberName(), Err: err}
		}
		cfg.logger.Debug("adding archive member",
			slog.String("name", pm.hdr.Name),
			slog.Int64("size", pm.hdr.Size),
			slog.Int("symbols", len(pm.syms)))
		pending = append(pending, pm)
	}

	l, err := layout(kind, pending, writeSymtab)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(dst, func(w io.Writer) error {
		return encode(w, kind, pending, l)
	}); err != nil {
		return fmt.Errorf("ar: write %s: %w", dst, err)
	}
	cfg.logger.Debug("wrote archive",
		slog.String("path", dst),
		slog.String("kind", kind.String()),
		slog.Int("members", len(pending)),
		slog.Bool("symtab", writeSymtab))
	return nil
}

// loadMember reads a new member's contents and builds its header.
func loadMember(nm NewMember, kind Kind, cfg writeConfig) (pendingMember, error) {
	var pm pendingMember
	switch m := nm.(type) {
	case *FileMember:
		info, err := os.Stat(m.Path)
		if err != nil {
			return pm, err
		}
		if !info.Mode().IsRegular() {
			return pm, fmt.Errorf("%s: not a regular file", m.Path)
		}
		data, err := os.ReadFile(m.Path)
		if err != nil {
			return pm, err
		}
		uid, gid := fileOwner(info)
		pm.hdr = Header{
			Name:    m.storedName(kind),
			ModTime: info.ModTime(),
			Uid:     uid,
			Gid:     gid,
			Mode:    int64(info.Mode().Perm()),
		}
		pm.data = data
	case *ExistingMember:
		data, err := m.Member.Data()
		if err != nil {
			return pm, err
		}
		pm.hdr = m.Member.rec.header(m.Name)
		pm.data = data
	default:
		panic(fmt.Sprintf("ar: unknown member type %T", nm))
	}
	pm.hdr.Size = int64(len(pm.data))
	if cfg.deterministic {
		pm.hdr.ModTime = time.Time{}
		pm.hdr.Uid, pm.hdr.Gid = 0, 0
		pm.hdr.Mode = deterministicMode
	}
	return pm, nil
}

// archiveLayout is the position of every part of an archive about to be written.
type archiveLayout struct {
	names   []string
	tables  []namedTable
	offsets []int64
}

// layout computes member offsets and encodes the symbol tables that refer to them. The tables
// precede the members, so their sizes are computed first from placeholder offsets; 64-bit tables
// are used when the 32-bit layout puts a member beyond 4GiB.
func layout(kind Kind, members []pendingMember, writeSymtab bool) (archiveLayout, error) {
	l := archiveLayout{
		names:   make([]string, len(members)),
		offsets: make([]int64, len(members)),
	}
	syms := make([][]string, len(members))
	for i, m := range members {
		l.names[i] = m.hdr.Name
		syms[i] = m.syms
	}
	strtab, _ := stringTable(kind, l.names)

	for wide := false; ; wide = true {
		if writeSymtab {
			// Table sizes don't depend on the offsets they contain.
			tables, err := symbolTables(kind, syms, l.offsets, wide)
			if err != nil {
				return l, err
			}
			l.tables = tables
		}
		off := int64(len(GLOBAL_HEADER))
		for _, t := range l.tables {
			off += paddedSize(HEADER_BYTE_SIZE + int64(len(t.data)))
		}
		if len(strtab) > 0 {
			off += paddedSize(HEADER_BYTE_SIZE + int64(len(strtab)))
		}
		for i, m := range members {
			l.offsets[i] = off
			off += paddedSize(memberHeaderSize(kind, m.hdr.Name) + m.hdr.Size)
		}
		if !writeSymtab || wide || !needsWideSymtab(l.offsets) {
			break
		}
	}
	if writeSymtab {
		tables, err := symbolTables(kind, syms, l.offsets, needsWideSymtab(l.offsets))
		if err != nil {
			return l, err
		}
		l.tables = tables
	}
	return l, nil
}

// encode writes a complete archive laid out by l.
func encode(w io.Writer, kind Kind, members []pendingMember, l archiveLayout) error {
	bw := bufio.NewWriter(w)
	aw := NewWriter(bw, kind)
	for _, t := range l.tables {
		if err := aw.writeSpecial(t.name, t.data); err != nil {
			return err
		}
	}
	if err := aw.WriteStringTable(l.names); err != nil {
		return err
	}
	for i := range members {
		m := &members[i]
		if err := aw.WriteHeader(&m.hdr); err != nil {
			return err
		}
		if _, err := aw.Write(m.data); err != nil {
			return err
		}
	}
	if err := aw.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

// paddedSize rounds n up to the 2-byte alignment of member headers.
func paddedSize(n int64) int64 {
	return n + n%2
}

// writeFileAtomic calls write with a temporary file in target's directory, then renames the
// temporary file to target. The temporary file is removed if anything fails.
func writeFileAtomic(target string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".ar-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
