package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.Source = (*RegistrySource)(nil)

const (
	// downloadConcurrency bounds the number of parallel archive downloads.
	downloadConcurrency = 4

	// readyMarker is written into an unpacked package once extraction finished.
	readyMarker = ".forge-ok"
)

// RegistryOptions configures a RegistrySource.
type RegistryOptions struct {
	// Index is the base URL requests go to. It may differ from the source id
	// when `registry.index` redirects the default registry.
	Index   string
	Home    string
	Offline bool
	Client  *http.Client
}

// RegistrySource serves packages from a remote registry, caching index
// entries and unpacked archives below the forge home.
type RegistrySource struct {
	id        domain.SourceID
	index     string
	home      string
	offline   bool
	client    *http.Client
	manifests ports.ManifestLoader
	logger    ports.Logger

	mu      sync.Mutex
	entries map[string]*indexEntry
}

// NewRegistrySource creates a registry source for id.
func NewRegistrySource(
	id domain.SourceID,
	opts RegistryOptions,
	manifests ports.ManifestLoader,
	logger ports.Logger,
) *RegistrySource {
	index := opts.Index
	if index == "" {
		index = id.URL()
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &RegistrySource{
		id:        id,
		index:     strings.TrimSuffix(index, "/"),
		home:      opts.Home,
		offline:   opts.Offline,
		client:    client,
		manifests: manifests,
		logger:    logger,
		entries:   make(map[string]*indexEntry),
	}
}

// ID returns the id the source serves.
func (s *RegistrySource) ID() domain.SourceID { return s.id }

// Update drops index entries fetched earlier so the next query sees the
// registry's current state.
func (s *RegistrySource) Update(_ context.Context) error {
	if s.offline {
		return nil
	}
	s.logger.Status("Updating", "registry `"+s.index+"`")

	s.mu.Lock()
	clear(s.entries)
	s.mu.Unlock()
	return nil
}

// Query returns a summary of every published version of the package named
// like dep. Yanked versions are included with Yanked set.
func (s *RegistrySource) Query(ctx context.Context, dep domain.Dependency) ([]domain.Summary, error) {
	entry, err := s.fetchIndex(ctx, dep.Name)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.Summary, 0, len(entry.Versions))
	for _, v := range entry.Versions {
		summary, err := s.summary(entry.Name, v)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *RegistrySource) summary(name string, v indexVersion) (domain.Summary, error) {
	id, err := domain.NewPackageID(name, v.Version, s.id)
	if err != nil {
		return domain.Summary{}, zerr.Wrap(err, domain.ErrRegistryParseFailed.Error())
	}

	deps := make([]domain.Dependency, 0, len(v.Dependencies))
	for _, d := range v.Dependencies {
		dep := domain.Dependency{
			Name:            d.Name,
			Req:             d.Req,
			Source:          s.id,
			Optional:        d.Optional,
			Features:        d.Features,
			DefaultFeatures: d.DefaultFeatures == nil || *d.DefaultFeatures,
		}
		switch d.Kind {
		case "dev":
			dep.Kind = domain.DepDev
		case "build":
			dep.Kind = domain.DepBuild
		}
		if d.Registry != "" {
			dep.Source = domain.NewRegistrySourceID(d.Registry)
		}
		deps = append(deps, dep)
	}

	return domain.Summary{
		ID:           id,
		Dependencies: deps,
		Features:     v.Features,
		Checksum:     v.Checksum,
		Yanked:       v.Yanked,
	}, nil
}

// Download fetches and unpacks the archives of ids that are not unpacked yet.
func (s *RegistrySource) Download(ctx context.Context, ids []domain.PackageID) error {
	var missing []domain.PackageID
	for _, id := range ids {
		if !s.isUnpacked(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 && s.offline {
		return zerr.With(domain.ErrRegistryOffline, "package", missing[0].String())
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)

	for _, id := range missing {
		g.Go(func() error {
			return s.download(groupCtx, id)
		})
	}

	return g.Wait()
}

func (s *RegistrySource) download(ctx context.Context, id domain.PackageID) error {
	checksum, err := s.checksum(ctx, id)
	if err != nil {
		return err
	}

	resp, err := s.get(ctx, s.downloadURL(id))
	if err != nil {
		return zerr.With(err, "package", id.String())
	}
	defer func() { _ = resp.Body.Close() }()

	archiveDir := domain.RegistryArchivePath(s.home, s.id)
	if err := os.MkdirAll(archiveDir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrRegistryRequestFailed.Error())
	}
	tmp, err := os.CreateTemp(archiveDir, packageDirName(id)+".*.tmp")
	if err != nil {
		return zerr.Wrap(err, domain.ErrRegistryRequestFailed.Error())
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrRegistryRequestFailed.Error()), "package", id.String())
	}

	if got := hex.EncodeToString(hasher.Sum(nil)); checksum != "" && got != checksum {
		mismatch := zerr.With(domain.ErrChecksumMismatch, "package", id.String())
		mismatch = zerr.With(mismatch, "expected", checksum)
		return zerr.With(mismatch, "actual", got)
	}

	archivePath := filepath.Join(archiveDir, packageDirName(id)+".tar.gz")
	if err := os.Rename(tmpName, archivePath); err != nil {
		return zerr.Wrap(err, domain.ErrRegistryRequestFailed.Error())
	}

	s.logger.Status("Downloading", fmt.Sprintf("%s v%s (%s)", id.Name, id.Version, humanize.Bytes(uint64(size))))

	dest := filepath.Join(domain.RegistrySrcPath(s.home, s.id), packageDirName(id))
	if err := os.RemoveAll(dest); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrArchiveUnpackFailed.Error()), "package", id.String())
	}
	if err := unpackArchive(archivePath, filepath.Dir(dest), packageDirName(id)); err != nil {
		return zerr.With(err, "package", id.String())
	}
	return atomicWriteFile(filepath.Join(dest, readyMarker), nil)
}

func (s *RegistrySource) checksum(ctx context.Context, id domain.PackageID) (string, error) {
	entry, err := s.fetchIndex(ctx, id.Name)
	if err != nil {
		return "", err
	}
	for _, v := range entry.Versions {
		if v.Version == id.Version {
			return v.Checksum, nil
		}
	}
	return "", zerr.With(domain.ErrPackageNotFound, "package", id.String())
}

func (s *RegistrySource) isUnpacked(id domain.PackageID) bool {
	_, err := os.Stat(filepath.Join(domain.RegistrySrcPath(s.home, s.id), packageDirName(id), readyMarker))
	return err == nil
}

// Get loads the manifests of unpacked packages.
func (s *RegistrySource) Get(_ context.Context, ids []domain.PackageID) ([]*domain.Package, error) {
	out := make([]*domain.Package, 0, len(ids))
	for _, id := range ids {
		if !s.isUnpacked(id) {
			return nil, zerr.With(domain.ErrPackageNotFound, "package", id.String())
		}
		path := filepath.Join(domain.RegistrySrcPath(s.home, s.id), packageDirName(id), domain.ManifestFileName)
		pkg, err := s.manifests.Load(path, s.id)
		if err != nil {
			return nil, err
		}
		out = append(out, pkg)
	}
	return out, nil
}

func packageDirName(id domain.PackageID) string {
	return id.Name + "-" + id.Version
}
