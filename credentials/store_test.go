package credentials

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wappi2mqtt/logger"
)

func TestMemory(t *testing.T) {
	m := NewMemory("")
	_, ok := m.Get()
	assert.False(t, ok)

	require.NoError(t, m.Set("abc"))
	token, ok := m.Get()
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	require.NoError(t, m.Clear())
	_, ok = m.Get()
	assert.False(t, ok)
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory("seed")
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.Set("x")
		}()
		go func() {
			defer wg.Done()
			m.Get()
		}()
	}
	wg.Wait()

	token, ok := m.Get()
	assert.True(t, ok)
	assert.Equal(t, "x", token)
}

func TestFile_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "creds")
	f := NewFile(dir, logger.Nop())

	_, ok := f.Get()
	assert.False(t, ok, "missing file means no credential")

	require.NoError(t, f.Set("tok-1"))
	token, ok := f.Get()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", token)

	info, err := os.Stat(f.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FILE_MODE), info.Mode().Perm())

	// A second store over the same directory sees the token.
	other := NewFile(dir, logger.Nop())
	token, ok = other.Get()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", token)

	require.NoError(t, f.Set("tok-2"))
	token, _ = other.Get()
	assert.Equal(t, "tok-2", token)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestFile_Clear(t *testing.T) {
	f := NewFile(t.TempDir(), logger.Nop())

	require.NoError(t, f.Clear(), "clearing an empty store is fine")

	require.NoError(t, f.Set("tok"))
	require.NoError(t, f.Clear())
	_, ok := f.Get()
	assert.False(t, ok)

	_, err := os.Stat(f.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestFile_SetEmptyClears(t *testing.T) {
	f := NewFile(t.TempDir(), logger.Nop())
	require.NoError(t, f.Set("tok"))
	require.NoError(t, f.Set(""))

	_, ok := f.Get()
	assert.False(t, ok)
}

func TestFile_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(dir, logger.Nop())
	require.NoError(t, os.WriteFile(filepath.Join(dir, TOKEN_SLOT), []byte("  tok\n"), 0600))

	token, ok := f.Get()
	assert.True(t, ok)
	assert.Equal(t, "tok", token)
}

func TestFile_RelativeDirResolvesAgainstRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.yaml"), []byte("environment: testing\n"), 0644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	f := NewFile("data", logger.Nop())
	resolved, err := filepath.EvalSymlinks(filepath.Dir(filepath.Dir(f.Path())))
	require.NoError(t, err)
	expected, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, expected, resolved)
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*File)(nil)
)
