package sources_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/adapters/manifest"
	"go.trai.ch/forge/internal/adapters/sources"
	"go.trai.ch/forge/internal/core/domain"
)

func writeManifest(t *testing.T, dir, name, version string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, domain.DirPerm))
	content := "package:\n  name: " + name + "\n  version: " + version + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ManifestFileName), []byte(content), domain.FilePerm))
}

func TestPathSource_Recursive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeManifest(t, filepath.Join(root, "util"), "util", "1.0.0")
	writeManifest(t, filepath.Join(root, "nested", "log"), "log", "0.4.0")
	writeManifest(t, filepath.Join(root, "target", "package", "stale"), "stale", "9.9.9")
	writeManifest(t, filepath.Join(root, ".hidden", "secret"), "secret", "1.0.0")

	id, err := domain.NewPathSourceID(root)
	require.NoError(t, err)
	src := sources.NewRecursivePathSource(id, root, manifest.NewLoader(domain.DefaultRegistryID()), fs.NewWalker())

	require.NoError(t, src.Update(t.Context()))
	assert.Equal(t, id, src.ID())

	for _, name := range []string{"util", "log"} {
		summaries, err := src.Query(t.Context(), domain.Dependency{Name: name})
		require.NoError(t, err)
		require.Len(t, summaries, 1, name)
		assert.Equal(t, id, summaries[0].ID.Source)
	}

	for _, name := range []string{"stale", "secret"} {
		summaries, err := src.Query(t.Context(), domain.Dependency{Name: name})
		require.NoError(t, err)
		assert.Empty(t, summaries, name)
	}

	utilID, err := domain.NewPackageID("util", "1.0.0", id)
	require.NoError(t, err)
	require.NoError(t, src.Download(t.Context(), []domain.PackageID{utilID}))

	pkgs, err := src.Get(t.Context(), []domain.PackageID{utilID})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, filepath.Join(root, "util"), pkgs[0].Root())
}

func TestPathSource_Single(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeManifest(t, root, "app", "0.1.0")
	writeManifest(t, filepath.Join(root, "sub"), "sub", "0.1.0")

	id, err := domain.NewPathSourceID(root)
	require.NoError(t, err)
	src := sources.NewPathSource(id, root, manifest.NewLoader(domain.DefaultRegistryID()))

	summaries, err := src.Query(t.Context(), domain.Dependency{Name: "sub"})
	require.NoError(t, err)
	assert.Empty(t, summaries)

	summaries, err = src.Query(t.Context(), domain.Dependency{Name: "app"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	missing, err := domain.NewPackageID("app", "0.2.0", id)
	require.NoError(t, err)
	_, err = src.Get(t.Context(), []domain.PackageID{missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrPackageNotFound.Error())
}

func TestPathSource_UpdateFails(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	id, err := domain.NewPathSourceID(root)
	require.NoError(t, err)
	src := sources.NewPathSource(id, root, manifest.NewLoader(domain.DefaultRegistryID()))

	err = src.Update(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrSourceUpdateFailed.Error())
}
