package sources_test

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/manifest"
	"go.trai.ch/forge/internal/adapters/sources"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const testIndex = "https://registry.example.com"

// MockRoundTripper is a helper to mock http.Client behavior.
type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) *http.Response
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req), nil
}

func newTestClient(handler func(req *http.Request) *http.Response) *http.Client {
	return &http.Client{
		Transport: &MockRoundTripper{RoundTripFunc: handler},
	}
}

func respond(status int, body []byte) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
	}
}

func buildArchive(t *testing.T, prefix string, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     prefix + "/" + name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

type fakeRegistry struct {
	archive  []byte
	checksum string
	requests atomic.Int32
}

func newFakeRegistry(t *testing.T) *fakeRegistry {
	t.Helper()
	archive := buildArchive(t, "util-1.2.0", map[string]string{
		domain.ManifestFileName: "package:\n  name: util\n  version: 1.2.0\n",
		"src/lib.rs":            "",
	})
	sum := sha256.Sum256(archive)
	return &fakeRegistry{archive: archive, checksum: hex.EncodeToString(sum[:])}
}

func (f *fakeRegistry) handle(t *testing.T) func(req *http.Request) *http.Response {
	return func(req *http.Request) *http.Response {
		f.requests.Add(1)
		switch req.URL.Path {
		case "/api/v1/packages/util":
			body, err := json.Marshal(map[string]any{
				"name": "util",
				"versions": []map[string]any{
					{
						"version":  "1.1.0",
						"checksum": "unused",
						"yanked":   true,
					},
					{
						"version":  "1.2.0",
						"checksum": f.checksum,
						"dependencies": []map[string]any{
							{"name": "log", "req": "^0.4", "kind": "normal"},
							{"name": "gen", "req": "1", "kind": "build", "default_features": false},
						},
						"features": map[string][]string{"default": {"std"}, "std": {}},
					},
				},
			})
			require.NoError(t, err)
			return respond(http.StatusOK, body)
		case "/api/v1/packages/util/1.2.0/download":
			return respond(http.StatusOK, f.archive)
		default:
			return respond(http.StatusNotFound, nil)
		}
	}
}

func newRegistrySource(t *testing.T, home string, offline bool, client *http.Client) *sources.RegistrySource {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Status(gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Debug(gomock.Any()).AnyTimes()

	id := domain.NewRegistrySourceID(testIndex)
	return sources.NewRegistrySource(id, sources.RegistryOptions{
		Home:    home,
		Offline: offline,
		Client:  client,
	}, manifest.NewLoader(id), mockLogger)
}

func TestRegistrySource_QueryDownloadGet(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	fake := newFakeRegistry(t)
	src := newRegistrySource(t, home, false, newTestClient(fake.handle(t)))
	id := src.ID()

	require.NoError(t, src.Update(t.Context()))

	summaries, err := src.Query(t.Context(), domain.Dependency{Name: "util"})
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.True(t, summaries[0].Yanked)
	latest := summaries[1]
	assert.Equal(t, "1.2.0", latest.ID.Version)
	assert.Equal(t, id, latest.ID.Source)
	assert.Equal(t, fake.checksum, latest.Checksum)
	require.Len(t, latest.Dependencies, 2)
	assert.Equal(t, "log", latest.Dependencies[0].Name)
	assert.Equal(t, id, latest.Dependencies[0].Source)
	assert.True(t, latest.Dependencies[0].DefaultFeatures)
	assert.Equal(t, domain.DepBuild, latest.Dependencies[1].Kind)
	assert.False(t, latest.Dependencies[1].DefaultFeatures)
	assert.Equal(t, []string{"std"}, latest.Features["default"])

	require.NoError(t, src.Download(t.Context(), []domain.PackageID{latest.ID}))
	unpacked := filepath.Join(domain.RegistrySrcPath(home, id), "util-1.2.0")
	assert.FileExists(t, filepath.Join(unpacked, "src", "lib.rs"))
	assert.FileExists(t, filepath.Join(domain.RegistryArchivePath(home, id), "util-1.2.0.tar.gz"))

	before := fake.requests.Load()
	require.NoError(t, src.Download(t.Context(), []domain.PackageID{latest.ID}))
	assert.Equal(t, before, fake.requests.Load(), "unpacked packages are not downloaded again")

	pkgs, err := src.Get(t.Context(), []domain.PackageID{latest.ID})
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, latest.ID, pkgs[0].ID())
	assert.Equal(t, unpacked, pkgs[0].Root())
	_, hasLib := pkgs[0].Lib()
	assert.True(t, hasLib)
}

func TestRegistrySource_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	fake := newFakeRegistry(t)
	fake.checksum = strings.Repeat("0", 64)
	src := newRegistrySource(t, t.TempDir(), false, newTestClient(fake.handle(t)))

	id, err := domain.NewPackageID("util", "1.2.0", src.ID())
	require.NoError(t, err)

	err = src.Download(t.Context(), []domain.PackageID{id})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrChecksumMismatch.Error())

	_, err = src.Get(t.Context(), []domain.PackageID{id})
	require.Error(t, err)
}

func TestRegistrySource_NotFound(t *testing.T) {
	t.Parallel()

	fake := newFakeRegistry(t)
	src := newRegistrySource(t, t.TempDir(), false, newTestClient(fake.handle(t)))

	_, err := src.Query(t.Context(), domain.Dependency{Name: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrPackageNotFound.Error())
}

func TestRegistrySource_ServerError(t *testing.T) {
	t.Parallel()

	src := newRegistrySource(t, t.TempDir(), false, newTestClient(func(_ *http.Request) *http.Response {
		return respond(http.StatusInternalServerError, nil)
	}))

	_, err := src.Query(t.Context(), domain.Dependency{Name: "util"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrRegistryRequestFailed.Error())
}

func TestRegistrySource_Offline(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	fake := newFakeRegistry(t)

	online := newRegistrySource(t, home, false, newTestClient(fake.handle(t)))
	_, err := online.Query(t.Context(), domain.Dependency{Name: "util"})
	require.NoError(t, err)

	failing := newTestClient(func(_ *http.Request) *http.Response {
		t.Error("offline source must not make requests")
		return respond(http.StatusInternalServerError, nil)
	})
	offline := newRegistrySource(t, home, true, failing)

	summaries, err := offline.Query(t.Context(), domain.Dependency{Name: "util"})
	require.NoError(t, err)
	assert.Len(t, summaries, 2)

	_, err = offline.Query(t.Context(), domain.Dependency{Name: "log"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrRegistryOffline.Error())

	id, err := domain.NewPackageID("util", "1.2.0", offline.ID())
	require.NoError(t, err)
	err = offline.Download(t.Context(), []domain.PackageID{id})
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.ErrRegistryOffline.Error())
}
