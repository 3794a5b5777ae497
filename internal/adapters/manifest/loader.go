// Package manifest loads forge.yaml package manifests.
package manifest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ManifestLoader = (*Loader)(nil)

// BuildScriptName is the target name given to a package's build script.
const BuildScriptName = "build-script-build"

var errMissingName = zerr.New("missing field `package.name`")

// Loader implements ports.ManifestLoader for forge.yaml files.
type Loader struct {
	defaultRegistry domain.SourceID
}

// NewLoader creates a new manifest loader. Dependencies without a path or
// registry key come from defaultRegistry.
func NewLoader(defaultRegistry domain.SourceID) *Loader {
	return &Loader{defaultRegistry: defaultRegistry}
}

// Load parses the manifest at path into a package of the given source.
func (l *Loader) Load(path string, source domain.SourceID) (*domain.Package, error) {
	var doc yaml.Node
	if err := readAndUnmarshalYAML(path, &doc); err != nil {
		return nil, err
	}

	var m Manifest
	if doc.Kind == 0 {
		return nil, zerr.With(errMissingName, "manifest", path)
	}
	if err := doc.Decode(&m); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrManifestParseFailed.Error()), "manifest", path)
	}

	if m.Package.Name == "" {
		return nil, zerr.With(errMissingName, "manifest", path)
	}
	id, err := domain.NewPackageID(m.Package.Name, m.Package.Version, source)
	if err != nil {
		return nil, zerr.With(err, "manifest", path)
	}

	root := filepath.Dir(path)
	manifest := &domain.Manifest{
		ID:       id,
		Features: m.Features,
		Links:    m.Package.Links,
		Profiles: buildProfiles(m.Profile),
	}

	for _, key := range unusedKeys(&doc) {
		manifest.Warnings = append(manifest.Warnings, "unused manifest key: "+key)
	}

	for _, section := range []struct {
		table DependencyTable
		kind  domain.DependencyKind
	}{
		{m.Dependencies, domain.DepNormal},
		{m.DevDependencies, domain.DepDev},
		{m.BuildDependencies, domain.DepBuild},
	} {
		for _, named := range section.table {
			dep, err := l.buildDependency(root, named, section.kind)
			if err != nil {
				return nil, zerr.With(err, "manifest", path)
			}
			manifest.Dependencies = append(manifest.Dependencies, dep)
		}
	}

	targets, err := discoverTargets(root, &m)
	if err != nil {
		return nil, zerr.With(err, "manifest", path)
	}
	manifest.Targets = targets

	return domain.NewPackage(manifest, path), nil
}

// FindRootManifest returns manifestPath made absolute if it is set, or the
// nearest manifest in cwd or its ancestors.
func (l *Loader) FindRootManifest(manifestPath, cwd string) (string, error) {
	if manifestPath != "" {
		if !filepath.IsAbs(manifestPath) {
			manifestPath = filepath.Join(cwd, manifestPath)
		}
		if filepath.Base(manifestPath) != domain.ManifestFileName {
			return "", zerr.With(zerr.New("the manifest-path must be a path to a "+domain.ManifestFileName+" file"), "path", manifestPath)
		}
		if _, err := os.Stat(manifestPath); err != nil {
			return "", zerr.With(zerr.Wrap(err, "manifest path does not exist"), "path", manifestPath)
		}
		return filepath.Clean(manifestPath), nil
	}

	dir := cwd
	for {
		candidate := filepath.Join(dir, domain.ManifestFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", zerr.With(zerr.Wrap(err, domain.ErrManifestReadFailed.Error()), "path", candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", zerr.With(domain.ErrManifestNotFound, "cwd", cwd)
		}
		dir = parent
	}
}

func (l *Loader) buildDependency(root string, named NamedDependency, kind domain.DependencyKind) (domain.Dependency, error) {
	dep := domain.Dependency{
		Name:            named.Name,
		Req:             named.Version,
		Kind:            kind,
		Optional:        named.Optional,
		Features:        slices.Clone(named.Features),
		DefaultFeatures: named.DefaultFeatures == nil || *named.DefaultFeatures,
	}

	if _, err := dep.Constraint(); err != nil {
		err = zerr.With(zerr.Wrap(err, "failed to parse the version requirement"), "dependency", named.Name)
		return dep, zerr.With(err, "requirement", named.Version)
	}

	switch {
	case named.Path != "" && named.Registry != "":
		return dep, zerr.With(zerr.New("dependency specifies both `path` and `registry`"), "dependency", named.Name)
	case named.Path != "":
		path := named.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, filepath.FromSlash(path))
		}
		id, err := domain.NewPathSourceID(path)
		if err != nil {
			return dep, zerr.With(err, "dependency", named.Name)
		}
		dep.Source = id
	case named.Registry != "":
		dep.Source = domain.NewRegistrySourceID(named.Registry)
	default:
		dep.Source = l.defaultRegistry
	}
	return dep, nil
}

// discoverTargets combines the declared target sections with the
// conventional layout: src/lib.rs, src/main.rs, examples/, tests/, benches/
// and build.rs.
func discoverTargets(root string, m *Manifest) ([]domain.Target, error) {
	var targets []domain.Target
	libName := strings.ReplaceAll(m.Package.Name, "-", "_")

	switch {
	case m.Lib != nil:
		name := m.Lib.Name
		if name == "" {
			name = libName
		}
		t := domain.NewLibTarget(name, srcPath(root, m.Lib.Path, filepath.Join("src", "lib.rs")))
		applyFlags(&t, m.Lib)
		targets = append(targets, t)
	case fileExists(root, "src", "lib.rs"):
		targets = append(targets, domain.NewLibTarget(libName, filepath.Join(root, "src", "lib.rs")))
	}

	bins, err := sectionTargets(root, m.Bin, "bin", func(name string) string {
		if name == m.Package.Name {
			return filepath.Join("src", "main.rs")
		}
		return filepath.Join("src", "bin", name+".rs")
	}, domain.NewBinTarget)
	if err != nil {
		return nil, err
	}
	if len(m.Bin) == 0 && fileExists(root, "src", "main.rs") {
		bins = append(bins, domain.NewBinTarget(m.Package.Name, filepath.Join(root, "src", "main.rs")))
	}
	targets = append(targets, bins...)

	for _, section := range []struct {
		dtos []TargetDTO
		kind string
		dir  string
		ctor func(name, src string) domain.Target
	}{
		{m.Example, "example", "examples", domain.NewExampleTarget},
		{m.Test, "test", "tests", domain.NewTestTarget},
		{m.Bench, "bench", "benches", domain.NewBenchTarget},
	} {
		dir := section.dir
		declared, err := sectionTargets(root, section.dtos, section.kind, func(name string) string {
			return filepath.Join(dir, name+".rs")
		}, section.ctor)
		if err != nil {
			return nil, err
		}
		if len(section.dtos) == 0 {
			declared = discoverDir(root, section.dir, section.ctor)
		}
		targets = append(targets, declared...)
	}

	switch {
	case m.Package.Build != "":
		targets = append(targets, domain.NewCustomBuildTarget(BuildScriptName, srcPath(root, m.Package.Build, "")))
	case fileExists(root, "build.rs"):
		targets = append(targets, domain.NewCustomBuildTarget(BuildScriptName, filepath.Join(root, "build.rs")))
	}

	return targets, nil
}

func sectionTargets(
	root string,
	dtos []TargetDTO,
	kind string,
	defaultPath func(name string) string,
	ctor func(name, src string) domain.Target,
) ([]domain.Target, error) {
	targets := make([]domain.Target, 0, len(dtos))
	for i := range dtos {
		dto := &dtos[i]
		if dto.Name == "" {
			return nil, zerr.With(zerr.New("target is missing a `name`"), "section", kind)
		}
		t := ctor(dto.Name, srcPath(root, dto.Path, defaultPath(dto.Name)))
		applyFlags(&t, dto)
		targets = append(targets, t)
	}
	return targets, nil
}

func discoverDir(root, dir string, ctor func(name, src string) domain.Target) []domain.Target {
	entries, err := os.ReadDir(filepath.Join(root, dir))
	if err != nil {
		return nil
	}

	var targets []domain.Target
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".rs" {
			continue
		}
		targets = append(targets, ctor(strings.TrimSuffix(name, ".rs"), filepath.Join(root, dir, name)))
	}
	return targets
}

func applyFlags(t *domain.Target, dto *TargetDTO) {
	if dto.Test != nil {
		t.Test = *dto.Test
	}
	if dto.Bench != nil {
		t.Bench = *dto.Bench
	}
	if dto.Doc != nil {
		t.Doc = *dto.Doc
	}
	if dto.Doctest != nil {
		t.Doctest = *dto.Doctest
	}
	if dto.Harness != nil {
		t.Harness = *dto.Harness
	}
}

func buildProfiles(dtos map[string]ProfileDTO) domain.Profiles {
	profiles := domain.DefaultProfiles()
	for name, p := range map[string]*domain.Profile{
		"dev":     &profiles.Dev,
		"release": &profiles.Release,
		"test":    &profiles.Test,
		"bench":   &profiles.Bench,
		"doc":     &profiles.Doc,
	} {
		dto, ok := dtos[name]
		if !ok {
			continue
		}
		if dto.OptLevel != nil {
			p.OptLevel = *dto.OptLevel
		}
		if dto.Debug != nil {
			p.Debuginfo = *dto.Debug
		}
		if dto.DebugAssertions != nil {
			p.DebugAssertions = *dto.DebugAssertions
		}
		if dto.CodegenUnits != nil {
			p.CodegenUnits = *dto.CodegenUnits
		}
		if dto.RustcArgs != nil {
			p.RustcArgs = slices.Clone(dto.RustcArgs)
		}
		if dto.RustdocArgs != nil {
			p.RustdocArgs = slices.Clone(dto.RustdocArgs)
		}
	}
	return profiles
}

func srcPath(root, declared, fallback string) string {
	if declared == "" {
		declared = fallback
	}
	if filepath.IsAbs(declared) {
		return declared
	}
	return filepath.Join(root, filepath.FromSlash(declared))
}

func fileExists(root string, elem ...string) bool {
	info, err := os.Stat(filepath.Join(append([]string{root}, elem...)...))
	return err == nil && !info.IsDir()
}

func readAndUnmarshalYAML[T any](path string, target *T) error {
	// #nosec G304 -- path is the manifest located by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrManifestReadFailed.Error()), "manifest", path)
	}

	if parseErr := yaml.Unmarshal(data, target); parseErr != nil {
		return zerr.With(zerr.Wrap(parseErr, domain.ErrManifestParseFailed.Error()), "manifest", path)
	}

	return nil
}
