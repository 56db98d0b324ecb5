package connector

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarRoundtrip(t *testing.T) {
	src := t.TempDir()
	files := map[string]string{
		"ca/ca.crt":     "CA CERT",
		"ca/ca.key":     "CA KEY",
		"es01/es01.crt": "NODE CERT",
	}
	for rel, content := range files {
		path := filepath.Join(src, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	// The write side prefixes entries with the mount directory name, the
	// read side strips exactly that component again.
	var buf bytes.Buffer
	require.NoError(t, tarDirectory(src, "bundle", &buf))

	dest := t.TempDir()
	require.NoError(t, untarInto(&buf, dest))

	for rel, content := range files {
		data, err := os.ReadFile(filepath.Join(dest, rel))
		require.NoError(t, err, rel)
		assert.Equal(t, content, string(data))
	}
}

func TestUntarIgnoresBareRootEntry(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0o600))

	var buf bytes.Buffer
	require.NoError(t, tarDirectory(src, "bundle", &buf))
	// An empty stream or one holding only the root directory entry must not
	// produce files.
	require.NoError(t, untarInto(bytes.NewReader(nil), t.TempDir()))

	dest := t.TempDir()
	require.NoError(t, untarInto(&buf, dest))
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStripFirstComponent(t *testing.T) {
	assert.Equal(t, "ca/ca.crt", stripFirstComponent("bundle/ca/ca.crt"))
	assert.Equal(t, "ca/ca.crt", stripFirstComponent("./bundle/ca/ca.crt"))
	assert.Equal(t, "", stripFirstComponent("bundle"))
}
