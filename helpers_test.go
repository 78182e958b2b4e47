package ar

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// headerLine formats a 60-byte member header the way Writer pads it.
func headerLine(name, date, uid, gid, mode, size string) string {
	return fmt.Sprintf("%-16s%-12s%-6s%-6s%-8s%-10s`\n", name, date, uid, gid, mode, size)
}

type testFile struct {
	name string
	body string
}

// buildArchive encodes files as a kind archive in memory using Writer.
func buildArchive(t *testing.T, kind Kind, files []testFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf, kind)
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	require.NoError(t, w.WriteStringTable(names))
	for _, f := range files {
		require.NoError(t, w.WriteHeader(&Header{Name: f.name, Size: int64(len(f.body)), Mode: 0644}))
		_, err := w.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// writeTemp writes data to a file in a fresh temporary directory and returns its path.
func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// openBytes writes data to disk and opens it as an archive that is closed when the test ends.
func openBytes(t *testing.T, data []byte, opts ...OpenOption) *Archive {
	t.Helper()
	a, err := Open(writeTemp(t, "test.a", data), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

type readMember struct {
	name string
	body string
}

// readAll iterates a and returns every member's name and contents.
func readAll(t *testing.T, a *Archive) []readMember {
	t.Helper()
	var out []readMember
	for m, err := range a.Members() {
		require.NoError(t, err)
		name, err := m.Name()
		require.NoError(t, err)
		data, err := m.Data()
		require.NoError(t, err)
		out = append(out, readMember{string(name), string(data)})
	}
	return out
}
