package ar

import (
	"errors"
	"io"
	"log/slog"
)

type iterState int

const (
	// iterFresh: positioned at the first member, which hasn't been returned yet.
	iterFresh iterState = iota
	// iterPositioned: the member at cur has been returned; the next call advances first.
	iterPositioned
	iterExhausted
	iterErrored
)

// Iterator walks the regular members of an archive, skipping symbol and string tables.
//
// Members are validated lazily: a malformed header is only reported when Next tries to step onto
// it, so every member preceding a corrupt one is still returned. Once Next has returned an error
// it keeps returning that error.
//
// Example:
//
//	it, err := ar.NewIterator(archive)
//	if err != nil {
//		return err
//	}
//	for {
//		m, err := it.Next()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		data, err := m.Data()
//		...
//	}
type Iterator struct {
	a     *Archive
	state iterState
	cur   record
	end   int64
	err   error
}

// NewIterator returns an iterator positioned at the archive's first member. The first member's
// header is parsed immediately, since its extent is needed to find the second one; a malformed
// header is reported here rather than by Next.
func NewIterator(a *Archive) (*Iterator, error) {
	buf, err := a.st.bytes()
	if err != nil {
		return nil, err
	}
	it := &Iterator{a: a, end: int64(len(buf))}
	if a.first >= it.end {
		it.state = iterExhausted
		return it, nil
	}
	it.cur, err = readRecord(buf, a.first)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// Next returns the next member of the archive, or io.EOF once every member has been returned.
// Each returned Member is independent of the iterator and of other members.
func (it *Iterator) Next() (*Member, error) {
	switch it.state {
	case iterExhausted:
		return nil, io.EOF
	case iterErrored:
		return nil, it.err
	case iterFresh:
		// The first member was validated when the iterator was created; advancing here would
		// skip it.
		it.state = iterPositioned
	case iterPositioned:
		if err := it.advance(); err != nil {
			if err != io.EOF {
				it.a.logger.Debug("archive member is malformed",
					slog.String("path", it.a.path),
					slog.Any("error", err))
			}
			return nil, err
		}
	}
	return &Member{a: it.a, rec: it.cur}, nil
}

// advance steps over the current member, validating the header of the one after it. Symbol tables
// found after the first member are skipped as well.
func (it *Iterator) advance() error {
	buf, err := it.a.st.bytes()
	if err != nil {
		return it.fail(err)
	}
	off := it.cur.next
	for {
		if off >= it.end {
			it.state = iterExhausted
			return io.EOF
		}
		rec, err := readRecord(buf, off)
		if err != nil {
			return it.fail(err)
		}
		switch specialName(buf, rec) {
		case "":
			it.cur = rec
			return nil
		case stringTableName:
			return it.fail(&StringTableError{Err: errors.New("string table follows archive members")})
		}
		off = rec.next
	}
}

func (it *Iterator) fail(err error) error {
	it.state = iterErrored
	it.err = err
	return err
}
