package kvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")

	s, err := OpenFileStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Set("data.stories", `[1,2,3]`))
	require.NoError(t, s.Set("data.settings", `{"theme":"dark"}`))
	require.NoError(t, s.Remove("data.settings"))
	require.NoError(t, s.Close())

	reopened, err := OpenFileStore(path, 0)
	require.NoError(t, err)
	v, ok, err := reopened.Get("data.stories")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[1,2,3]`, v)

	_, ok, _ = reopened.Get("data.settings")
	assert.False(t, ok)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	s, err := OpenFileStore(path, 0)
	require.NoError(t, err)
	keys, err := s.Keys("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileStore_CorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := OpenFileStore(path, 0)
	assert.Error(t, err)
}

func TestFileStore_QuotaAppliesToLoadedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":"0123456789"}`), 0644))

	s, err := OpenFileStore(path, 20)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Set("b", "0123456789"), ErrQuotaExceeded)
}

func TestFileStore_FailedFlushRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	s, err := OpenFileStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, s.Set("a", "1"))

	// a directory where the temp file should go makes os.Create fail
	require.NoError(t, os.Mkdir(path+".tmp", 0755))

	assert.Error(t, s.Set("a", "2"))
	assert.Error(t, s.Set("b", "3"))
	assert.Error(t, s.Remove("a"))

	v, ok, _ := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok, _ = s.Get("b")
	assert.False(t, ok)
}

func TestFileStore_SharedPathSeesOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	daemon, err := OpenFileStore(path, 0)
	require.NoError(t, err)
	defer daemon.Close()
	app, err := OpenFileStore(path, 0)
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, daemon.Set("backup.latest", `{}`))
	require.NoError(t, app.Set("data.stories", `[{"id":"a"},{"id":"b"}]`))

	v, ok, err := daemon.Get("data.stories")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"},{"id":"b"}]`, v)

	keys, err := daemon.Keys("")
	require.NoError(t, err)
	assert.Equal(t, []string{"backup.latest", "data.stories"}, keys)

	// a write from one handle must not drop keys the other wrote
	require.NoError(t, daemon.Set("backup.slot.0", `{}`))
	v, ok, err = app.Get("data.stories")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"},{"id":"b"}]`, v)

	require.NoError(t, app.Remove("backup.latest"))
	_, ok, err = daemon.Get("backup.latest")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_ExternalRewriteIsVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := OpenFileStore(path, 0)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Set("data.needs", `[]`))

	require.NoError(t, os.WriteFile(path, []byte(`{"data.needs":"[1]"}`), 0644))
	v, _, err := s.Get("data.needs")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, v)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))
	_, _, err = s.Get("data.needs")
	assert.Error(t, err)
	assert.Error(t, s.Set("data.needs", `[2]`))
}

func TestFileStore_ClosedStore(t *testing.T) {
	s, err := OpenFileStore(filepath.Join(t.TempDir(), "store.json"), 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, _, err = s.Get("k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set("k", "v"), ErrClosed)
	_, err = s.Keys("")
	assert.ErrorIs(t, err, ErrClosed)
}
