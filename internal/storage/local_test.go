package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SaveAndOpen(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	rel, n, err := l.Save("project-1", "Contrato.PDF", strings.NewReader("hello"), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.True(t, strings.HasPrefix(rel, "project-1/"))
	assert.True(t, strings.HasSuffix(rel, ".pdf"))

	rc, err := l.Open(rel)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestLocal_SaveRejectsOversizedBody(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root)
	require.NoError(t, err)

	_, _, err = l.Save("p", "big.bin", strings.NewReader("0123456789X"), 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(filepath.Join(root, "p"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocal_SaveAcceptsExactLimit(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	_, n, err := l.Save("p", "ok.txt", strings.NewReader("0123456789"), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
}

func TestLocal_DirCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root)
	require.NoError(t, err)

	rel, _, err := l.Save("../../etc", "x.txt", strings.NewReader("x"), 10)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "etc/"))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	assert.NoError(t, err)
}

func TestLocal_OpenRejectsTraversal(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"../secret", "/etc/passwd", "..", ""} {
		_, err := l.Open(p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}
}

func TestLocal_RemoveMissingIsNoError(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, l.Remove("p/nothing.txt"))
}
