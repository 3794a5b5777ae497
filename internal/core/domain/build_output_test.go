package domain_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestParseRustcFlags(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantPaths []string
		wantLinks []string
	}{
		{"Separated", "-L /foo -l bar", []string{"/foo"}, []string{"bar"}},
		{"Attached", "-L/foo -lbar", []string{"/foo"}, []string{"bar"}},
		{"Mixed", "-l a -L/x -L /y -lb", []string{"/x", "/y"}, []string{"a", "b"}},
		{"Empty", "   ", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, links, err := domain.ParseRustcFlags(tt.value, "`foo`")
			require.NoError(t, err)
			assert.Equal(t, tt.wantPaths, paths)
			assert.Equal(t, tt.wantLinks, links)
		})
	}
}

func TestParseRustcFlags_InvalidToken(t *testing.T) {
	_, _, err := domain.ParseRustcFlags("-L /foo -framework bar", "`native` (in /p/.forge/config.toml)")
	require.Error(t, err)

	assert.Contains(t, err.Error(),
		"Only `-l` and `-L` flags are allowed in `native` (in /p/.forge/config.toml): `-framework`")

	zErr, ok := err.(*zerr.Error)
	require.True(t, ok, "expected *zerr.Error, got %T", err)
	assert.Equal(t, "-L /foo -framework bar", zErr.Metadata()["flags"])
}

func TestParseRustcFlags_MissingValue(t *testing.T) {
	_, _, err := domain.ParseRustcFlags("-l bar -L", "`foo`")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Flag in rustc-flags has no value in `foo`: `-L`")
}

func TestParseBuildScriptOutput(t *testing.T) {
	output := `compiling native helper
forge:rustc-flags=-L /opt/lib -l ssl
forge:rustc-link-lib=z
forge:rustc-link-search=/usr/local/lib
forge:rustc-cfg=has_ssl
forge:rerun-if-changed=native/ssl.c
forge:root=/opt
not a directive: forge:ignored
`
	got, err := domain.ParseBuildScriptOutput(output, "build script of `ssl`")
	require.NoError(t, err)

	want := domain.BuildOutput{
		LibraryPaths:   []string{"/opt/lib", "/usr/local/lib"},
		LibraryLinks:   []string{"ssl", "z"},
		Cfgs:           []string{"has_ssl"},
		Metadata:       []domain.MetadataEntry{{Key: "root", Value: "/opt"}},
		RerunIfChanged: []string{"native/ssl.c"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseBuildScriptOutput() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBuildScriptOutput_BadFlags(t *testing.T) {
	_, err := domain.ParseBuildScriptOutput("forge:rustc-flags=-O\n", "build script")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "`-O`")
}

func TestBuildOutput_Merge(t *testing.T) {
	out := domain.BuildOutput{LibraryPaths: []string{"/a"}}
	out.Merge(domain.BuildOutput{LibraryPaths: []string{"/b"}, LibraryLinks: []string{"c"}})

	assert.Equal(t, []string{"/a", "/b"}, out.LibraryPaths)
	assert.Equal(t, []string{"c"}, out.LibraryLinks)
}
