package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"placeprep_backend/internal/config"
	"placeprep_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageProvider(t *testing.T) {
	root := t.TempDir()
	p := &LocalStorageProvider{Root: root}
	ctx := context.Background()

	url, err := p.Put(ctx, "exports/7/report.xlsx", bytes.NewReader([]byte("data")), 4, util.MimeXLSX)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/exports/7/report.xlsx", url)

	content, err := os.ReadFile(filepath.Join(root, "exports", "7", "report.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))

	require.NoError(t, p.Delete(ctx, "exports/7/report.xlsx"))
	_, err = os.Stat(filepath.Join(root, "exports", "7", "report.xlsx"))
	assert.True(t, os.IsNotExist(err))
	assert.Error(t, p.Delete(ctx, "exports/7/report.xlsx"))

	assert.Equal(t, "/uploads/a.csv", p.URL("/a.csv"))
}

func TestNewStorageProviderDefaultsToLocal(t *testing.T) {
	p := NewStorageProvider(&config.StorageConfig{Type: "local", LocalPath: "./uploads"})
	local, ok := p.(*LocalStorageProvider)
	require.True(t, ok)
	assert.Equal(t, "./uploads", local.Root)
}
