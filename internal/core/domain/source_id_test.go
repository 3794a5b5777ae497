package domain_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
)

func TestNewPathSourceID_Canonical(t *testing.T) {
	dir := t.TempDir()
	realDir := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(realDir, domain.DirPerm))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(realDir, link))

	a, err := domain.NewPathSourceID(realDir)
	require.NoError(t, err)
	b, err := domain.NewPathSourceID(link + string(filepath.Separator))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, a.IsPath())
	assert.Equal(t, a.ShortHash(), b.ShortHash())
}

func TestParseSourceID_RoundTrip(t *testing.T) {
	path, err := domain.NewPathSourceID(t.TempDir())
	require.NoError(t, err)
	registry := domain.NewRegistrySourceID("https://packages.example.com/")

	for _, id := range []domain.SourceID{path, registry} {
		parsed, err := domain.ParseSourceID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}

	assert.Equal(t, "registry+https://packages.example.com", registry.String())
	assert.Empty(t, registry.Path())

	_, err = domain.ParseSourceID("git+https://example.com/repo")
	assert.Error(t, err)
}

func TestParsePackageIDSpec(t *testing.T) {
	tests := []struct {
		spec string
		want domain.PackageIDSpec
	}{
		{"foo", domain.PackageIDSpec{Name: "foo"}},
		{"foo:1.2.3", domain.PackageIDSpec{Name: "foo", Version: "1.2.3"}},
		{"https://example.com/foo", domain.PackageIDSpec{Name: "foo", URL: "https://example.com/foo"}},
		{"https://example.com/foo#1.2.3", domain.PackageIDSpec{Name: "foo", Version: "1.2.3", URL: "https://example.com/foo"}},
		{"https://example.com/foo#bar", domain.PackageIDSpec{Name: "bar", URL: "https://example.com/foo"}},
		{"https://example.com/foo#bar:0.1.0", domain.PackageIDSpec{Name: "bar", Version: "0.1.0", URL: "https://example.com/foo"}},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := domain.ParsePackageIDSpec(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.spec, got.String())
		})
	}

	_, err := domain.ParsePackageIDSpec("foo:not-a-version")
	assert.Error(t, err)
	_, err = domain.ParsePackageIDSpec(":1.0.0")
	assert.Error(t, err)
}

func TestDependency_Matches(t *testing.T) {
	src := domain.NewRegistrySourceID("https://packages.example.com")
	other := domain.NewRegistrySourceID("https://mirror.example.com")

	tests := []struct {
		name string
		req  string
		id   domain.PackageID
		want bool
	}{
		{"BareIsCaret", "1.2", mustID(t, "log", "1.9.0", src), true},
		{"BareRejectsMajor", "1.2", mustID(t, "log", "2.0.0", src), false},
		{"EmptyMatchesAny", "", mustID(t, "log", "7.1.0", src), true},
		{"Exact", "=0.4.1", mustID(t, "log", "0.4.2", src), false},
		{"OtherSource", "*", mustID(t, "log", "1.0.0", other), false},
		{"OtherName", "*", mustID(t, "env", "1.0.0", src), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dep := domain.Dependency{Name: "log", Req: tt.req, Source: src}
			assert.Equal(t, tt.want, dep.Matches(tt.id))
		})
	}
}
