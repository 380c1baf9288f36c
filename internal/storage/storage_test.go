package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bettersystems/crm-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStorageInterfaceCompliance(t *testing.T) {
	var _ Storage = (*LocalStorage)(nil)
	var _ Storage = (*AzureBlobStorage)(nil)
}

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	basePath := filepath.Join(t.TempDir(), "uploads")

	ls, err := NewLocalStorage(basePath)
	require.NoError(t, err)
	assert.NotNil(t, ls)

	info, err := os.Stat(basePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorage_UploadDownloadDelete(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	content := []byte("fake pdf content")

	storagePath, size, err := ls.Upload(ctx, "deal/42", "Proposal.PDF", "application/pdf", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)
	assert.True(t, strings.HasPrefix(storagePath, "deal/42/"))
	assert.True(t, strings.HasSuffix(storagePath, ".pdf"))

	rc, err := ls.Download(ctx, storagePath)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, ls.Delete(ctx, storagePath))
	_, err = ls.Download(ctx, storagePath)
	assert.True(t, errors.Is(err, ErrObjectNotFound))

	// deleting twice is a no-op
	assert.NoError(t, ls.Delete(ctx, storagePath))
}

func TestLocalStorage_UniquePaths(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	p1, _, err := ls.Upload(context.Background(), "client/1", "a.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)
	p2, _, err := ls.Upload(context.Background(), "client/1", "a.png", "image/png", strings.NewReader("x"))
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)
}

func TestLocalStorage_TraversalStaysInsideBase(t *testing.T) {
	base := t.TempDir()
	ls, err := NewLocalStorage(base)
	require.NoError(t, err)

	storagePath, _, err := ls.Upload(context.Background(), "../../etc", "x.txt", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(storagePath, "etc/"))

	_, err = os.Stat(filepath.Join(base, filepath.FromSlash(storagePath)))
	assert.NoError(t, err)
}

func TestNewStorage_Modes(t *testing.T) {
	s, err := NewStorage(&config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = NewStorage(&config.StorageConfig{Mode: "azure"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewStorage(&config.StorageConfig{Mode: "ftp"}, zap.NewNop())
	assert.Error(t, err)
}
