package ar

import (
	"fmt"
)

// Member identifies one member of an opened archive. It doesn't own the member's bytes: Name and
// Data return slices of the archive's memory, which are only valid until the archive is closed.
// Copying a Member is cheap and copies are independent of each other.
type Member struct {
	a   *Archive
	rec record
}

// Name returns the member's file name, with any format-specific decoration removed and long names
// resolved. The returned slice must not be modified. An error means the member has no usable
// name; other members of the archive can still be read.
func (m *Member) Name() ([]byte, error) {
	buf, err := m.a.st.bytes()
	if err != nil {
		return nil, err
	}
	return resolveName(buf, m.a.stringTable, m.a.kind, m.rec)
}

// Data returns the member's contents. The returned slice must not be modified.
func (m *Member) Data() ([]byte, error) {
	buf, err := m.a.st.bytes()
	if err != nil {
		return nil, err
	}
	end := m.rec.dataOff + m.rec.size
	if m.rec.dataOff < 0 || end > int64(len(buf)) {
		return nil, &FormatError{
			Offset: m.rec.off,
			Err:    fmt.Errorf("member data [%d, %d) exceeds archive size %d", m.rec.dataOff, end, len(buf)),
		}
	}
	return buf[m.rec.dataOff:end:end], nil
}

// Header returns the member's metadata. If the member's name cannot be resolved, the error is
// returned along with a Header whose Name is the raw name field.
func (m *Member) Header() (Header, error) {
	name, err := m.Name()
	if err != nil {
		return m.rec.header(m.rec.name), err
	}
	return m.rec.header(string(name)), nil
}

// Offset returns the offset of the member's header within the archive file. Symbol tables refer
// to members by this offset.
func (m *Member) Offset() int64 {
	return m.rec.off
}

// Size returns the size of the member's contents in bytes.
func (m *Member) Size() int64 {
	return m.rec.size
}

// Archive returns the archive the member belongs to.
func (m *Member) Archive() *Archive {
	return m.a
}
