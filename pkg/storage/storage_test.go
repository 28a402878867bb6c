package storage

import (
	"context"
	"os"
	"path/filepath"
	"quiz_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider(t *testing.T) {
	root := t.TempDir()
	p, err := New(&config.StorageConfig{Type: "local", LocalPath: root})
	require.NoError(t, err)

	url, err := PutBytes(context.Background(), p, "ai-feedback/run/answer-1.json", []byte(`{"a":1}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "/archive/ai-feedback/run/answer-1.json", url)

	data, err := os.ReadFile(filepath.Join(root, "ai-feedback", "run", "answer-1.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	require.NoError(t, p.Delete(context.Background(), "ai-feedback/run/answer-1.json"))
	_, err = os.Stat(filepath.Join(root, "ai-feedback", "run", "answer-1.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestNewMinioProvider(t *testing.T) {
	p, err := New(&config.StorageConfig{
		Type:          "minio",
		MinioEndpoint: "localhost:9000",
		MinioAccessID: "key",
		MinioSecret:   "secret",
		MinioBucket:   "archive",
	})
	require.NoError(t, err)
	assert.IsType(t, &MinioProvider{}, p)
	assert.Equal(t, "/archive/a/b.json", p.GetURL("a/b.json"))
}
