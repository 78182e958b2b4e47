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
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalHeaderWrite(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, GNU)
	err := writer.Close()
	require.NoError(t, err)
	assert.Equal(t, []byte("!<arch>\n"), buf.Bytes())
}

func TestSimpleFile(t *testing.T) {
	hdr := new(Header)
	body := "Hello world!\n"
	hdr.ModTime = time.Unix(1361157466, 0)
	hdr.Name = "hello.txt"
	hdr.Size = int64(len(body))
	hdr.Mode = 0644
	hdr.Uid = 501
	hdr.Gid = 20

	var buf bytes.Buffer
	writer := NewWriter(&buf, BSD)
	require.NoError(t, writer.WriteHeader(hdr))
	_, err := writer.Write([]byte(body))
	require.NoError(t, err)
	err = writer.Close()
	require.NoError(t, err)

	expected := GLOBAL_HEADER +
		headerLine("hello.txt", "1361157466", "501", "20", "644", "13") +
		body + "\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteTooLong(t *testing.T) {
	body := "Hello world!\n"

	hdr := new(Header)
	hdr.Name = "a"
	hdr.Size = 1

	var buf bytes.Buffer
	writer := NewWriter(&buf, BSD)
	require.NoError(t, writer.WriteHeader(hdr))
	_, err := writer.Write([]byte(body))
	assert.ErrorIs(t, err, ErrWriteTooLong)
}

func TestWriteTooShort(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, GNU)
	require.NoError(t, writer.WriteHeader(&Header{Name: "a.o", Size: 4}))
	_, err := writer.Write([]byte("ab"))
	require.NoError(t, err)
	assert.ErrorIs(t, writer.Close(), ErrWriteTooShort)
}

func TestWritePadsOddMembersOnce(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, GNU)
	require.NoError(t, writer.WriteHeader(&Header{Name: "a.o", Size: 3}))
	// Several odd-length writes must not each add a padding byte.
	for _, chunk := range []string{"x", "y", "z"} {
		_, err := writer.Write([]byte(chunk))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	expected := GLOBAL_HEADER + headerLine("a.o/", "0", "0", "0", "0", "3") + "xyz\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteGNUFilename(t *testing.T) {
	hdr := &Header{}
	body := "test a file with a long filename\n"
	hdr.ModTime = time.Unix(1542225207, 0)
	hdr.Name = "test_long_filename.txt"
	hdr.Size = int64(len(body))
	hdr.Mode = 0644
	hdr.Uid = 502
	hdr.Gid = 0

	var buf bytes.Buffer
	writer := NewWriter(&buf, GNU)
	require.NoError(t, writer.WriteStringTable([]string{"test_long_filename.txt"}))
	require.NoError(t, writer.WriteHeader(hdr))
	_, err := writer.Write([]byte(body))
	require.NoError(t, err)
	err = writer.Close()
	require.NoError(t, err)

	table := "test_long_filename.txt/\n"
	expected := GLOBAL_HEADER +
		headerLine("//", "0", "0", "0", "0", strconv.Itoa(len(table))) + table +
		headerLine("/0", "1542225207", "502", "0", "644", strconv.Itoa(len(body))) + body + "\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteCOFFFilename(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, COFF)
	require.NoError(t, writer.WriteStringTable([]string{"short.obj", "a_rather_long_name.obj", "another_long_name.obj"}))
	require.NoError(t, writer.WriteHeader(&Header{Name: "another_long_name.obj", Size: 2}))
	_, err := writer.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	table := "a_rather_long_name.obj\x00another_long_name.obj\x00"
	expected := GLOBAL_HEADER +
		headerLine("//", "0", "0", "0", "0", strconv.Itoa(len(table))) + table + "\n" +
		headerLine("/23", "0", "0", "0", "0", "2") + "hi"
	assert.Equal(t, expected, buf.String())
}

func TestWriteGNUFilenameMissingFromTable(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, GNU)
	err := writer.WriteHeader(&Header{Name: "test_long_filename.txt", Size: 1})
	var nameErr *FileNameError
	assert.ErrorAs(t, err, &nameErr)
}

func TestWriteBSDFilename(t *testing.T) {
	hdr := &Header{}
	body := "test a file with a long filename\n"
	hdr.ModTime = time.Unix(1542225207, 0)
	hdr.Name = "test_long_filename.txt"
	hdr.Size = int64(len(body))
	hdr.Mode = 0644
	hdr.Uid = 502
	hdr.Gid = 0

	var buf bytes.Buffer
	writer := NewWriter(&buf, BSD)
	require.NoError(t, writer.WriteHeader(hdr))
	_, err := writer.Write([]byte(body))
	require.NoError(t, err)
	err = writer.Close()
	require.NoError(t, err)

	// 22 bytes of name plus two NULs is already even.
	name := "test_long_filename.txt\x00\x00"
	expected := GLOBAL_HEADER +
		headerLine("#1/24", "1542225207", "502", "0", "644", strconv.Itoa(len(name)+len(body))) +
		name + body + "\n"
	assert.Equal(t, expected, buf.String())
	assert.Equal(t, int64(len(body)), hdr.Size, "WriteHeader must not modify the caller's header")
}

func TestWriteBSDFilenameWithSpace(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, BSD)
	require.NoError(t, writer.WriteHeader(&Header{Name: "a b.o", Size: 0}))
	require.NoError(t, writer.Close())

	expected := GLOBAL_HEADER + headerLine("#1/8", "0", "0", "0", "0", "8") + "a b.o\x00\x00\x00"
	assert.Equal(t, expected, buf.String())
}

func TestWriteHeaderFieldOverflow(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, GNU)
	err := writer.WriteHeader(&Header{Name: "a.o", Uid: 12345678})
	assert.Error(t, err)
}

func TestNewWriterBadKind(t *testing.T) {
	assert.Panics(t, func() { NewWriter(&bytes.Buffer{}, KindOther) })
}

func TestWriteGNUNameWithLeadingSlash(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, GNU)
	require.NoError(t, writer.WriteStringTable([]string{"/abs.o", "short.o"}))
	require.NoError(t, writer.WriteHeader(&Header{Name: "/abs.o", Size: 2}))
	_, err := writer.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	table := "/abs.o/\n"
	expected := GLOBAL_HEADER +
		headerLine("//", "0", "0", "0", "0", strconv.Itoa(len(table))) + table +
		headerLine("/0", "0", "0", "0", "0", "2") + "hi"
	assert.Equal(t, expected, buf.String())
}

func TestWriteBSDReservedName(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf, BSD)
	err := writer.WriteHeader(&Header{Name: "__.SYMDEF", Size: 1})
	var nameErr *FileNameError
	assert.ErrorAs(t, err, &nameErr)
}
