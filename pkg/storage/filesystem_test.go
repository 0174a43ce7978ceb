package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectStoreRoundTrip(t *testing.T) {
	store, err := NewObjectStore(t.TempDir())
	require.NoError(t, err)

	n, err := store.Put("documents", "user-1/memo.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	exists, err := store.Exists("documents", "user-1/memo.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	file, err := store.Open("documents", "user-1/memo.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete("documents", "user-1/memo.txt"))
	require.NoError(t, store.Delete("documents", "user-1/memo.txt"))
	_, err = store.Open("documents", "user-1/memo.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestObjectStoreRejectsEscapingKeys(t *testing.T) {
	store, err := NewObjectStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../secret", "user-1/../../etc/passwd", "/abs", "user-1//x"} {
		_, err := store.Put("documents", key, strings.NewReader("x"))
		assert.Error(t, err, key)
	}
	_, err = store.Put("../documents", "user-1/x", strings.NewReader("x"))
	assert.Error(t, err)
}
