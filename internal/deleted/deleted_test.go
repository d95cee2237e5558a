package deleted

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, l.All())
}

func TestAddRemoveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deleted.json")
	l, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, l.Add("com.webos.app.browser"))
	assert.True(t, l.Contains("com.webos.app.browser"))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Contains("com.webos.app.browser"))

	require.NoError(t, l.Remove("com.webos.app.browser"))
	assert.False(t, l.Contains("com.webos.app.browser"))

	reloaded2, err := Load(path)
	require.NoError(t, err)
	assert.False(t, reloaded2.Contains("com.webos.app.browser"))
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
