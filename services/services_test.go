package services

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cppla/filebox/config"
	"github.com/cppla/filebox/models"
	"github.com/cppla/filebox/storage"
)

type testEnv struct {
	creds    *CredentialStore
	registry *FileRegistry
	blobs    *storage.DiskStore
	dir      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: "sqlite:" + filepath.Join(root, "test.db"),
		LogLevel:    "silent",
	}, models.All()...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	dir := filepath.Join(root, "uploads")
	blobs, err := storage.NewDiskStore(dir)
	require.NoError(t, err)

	return &testEnv{
		creds:    NewCredentialStore(db, blobs),
		registry: NewFileRegistry(db, blobs, config.DefaultAllowedExtensions, 1<<20),
		blobs:    blobs,
		dir:      dir,
	}
}

func (e *testEnv) register(t *testing.T, email string) Identity {
	t.Helper()
	u, err := e.creds.Register(context.Background(), email, "Test User", "correct-horse")
	require.NoError(t, err)
	return IdentityOf(u)
}

func (e *testEnv) upload(t *testing.T, owner Identity, name, body string) *models.File {
	t.Helper()
	f, err := e.registry.Store(context.Background(), owner, bytes.NewBufferString(body), name)
	require.NoError(t, err)
	return f
}

func readBlob(t *testing.T, e *testEnv, f *models.File) string {
	t.Helper()
	rc, err := e.registry.Open(context.Background(), f)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func blobCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}
