package compile_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/engine/compile"
	"go.uber.org/mock/gomock"
)

var registryID = domain.NewRegistrySourceID("https://packages.example.com")

type fixture struct {
	ctrl         *gomock.Controller
	ws           string
	root         *domain.Package
	rootSource   *mocks.MockSource
	resolver     *mocks.MockDependencyResolver
	loader       *mocks.MockSourceLoader
	orchestrator *mocks.MockOrchestrator
	manifests    *mocks.MockManifestLoader
	logger       *mocks.MockLogger
	executor     *mocks.MockExecutor
	pipeline     *compile.Pipeline
}

func newFixture(t *testing.T, warnings []string, targets ...domain.Target) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	ws := t.TempDir()
	source, err := domain.NewPathSourceID(ws)
	require.NoError(t, err)
	id, err := domain.NewPackageID("app", "0.1.0", source)
	require.NoError(t, err)

	f := &fixture{
		ctrl: ctrl,
		ws:   ws,
		root: domain.NewPackage(&domain.Manifest{
			ID:       id,
			Targets:  targets,
			Profiles: domain.DefaultProfiles(),
			Warnings: warnings,
		}, filepath.Join(ws, domain.ManifestFileName)),
		rootSource:   mocks.NewMockSource(ctrl),
		resolver:     mocks.NewMockDependencyResolver(ctrl),
		loader:       mocks.NewMockSourceLoader(ctrl),
		orchestrator: mocks.NewMockOrchestrator(ctrl),
		manifests:    mocks.NewMockManifestLoader(ctrl),
		logger:       mocks.NewMockLogger(ctrl),
		executor:     mocks.NewMockExecutor(ctrl),
	}
	f.rootSource.EXPECT().ID().Return(source).AnyTimes()
	f.logger.EXPECT().Status(gomock.Any(), gomock.Any()).AnyTimes()
	f.logger.EXPECT().Debug(gomock.Any()).AnyTimes()

	f.pipeline = compile.New(f.resolver, f.loader, f.orchestrator, f.manifests, f.logger)
	return f
}

func libAndBin(dir string) []domain.Target {
	return []domain.Target{
		domain.NewLibTarget("app", filepath.Join(dir, "src", "lib.rs")),
		domain.NewBinTarget("app", filepath.Join(dir, "src", "main.rs")),
	}
}

func (f *fixture) options(t *testing.T) compile.Options {
	t.Helper()
	return compile.Options{
		Config:     loadConfig(t, f.ws, nil),
		Filter:     domain.FilterEverything(),
		Mode:       domain.ModeBuild(),
		ExecEngine: f.executor,
	}
}

// expectResolve sets up both resolution phases to return resolve, and the
// given sources to serve its packages.
func (f *fixture) expectResolve(t *testing.T, method ports.Method, resolve *domain.Resolve, pkgs ...*domain.Package) {
	t.Helper()
	f.resolver.EXPECT().ResolvePackage(gomock.Any(), gomock.Any(), f.root).Return(resolve, nil)
	f.resolver.EXPECT().ResolveWithPrevious(gomock.Any(), gomock.Any(), f.root, method, resolve).Return(resolve, nil)

	f.rootSource.EXPECT().Download(gomock.Any(), []domain.PackageID{f.root.ID()}).Return(nil)
	f.rootSource.EXPECT().Get(gomock.Any(), []domain.PackageID{f.root.ID()}).Return([]*domain.Package{f.root}, nil)

	if len(pkgs) == 0 {
		return
	}
	remote := mocks.NewMockSource(f.ctrl)
	ids := make([]domain.PackageID, len(pkgs))
	for i, pkg := range pkgs {
		ids[i] = pkg.ID()
	}
	f.loader.EXPECT().Load(registryID).Return(remote, nil)
	remote.EXPECT().Update(gomock.Any()).Return(nil)
	remote.EXPECT().Download(gomock.Any(), ids).Return(nil)
	remote.EXPECT().Get(gomock.Any(), ids).Return(pkgs, nil)
}

func rootOnly(t *testing.T, root *domain.Package) *domain.Resolve {
	t.Helper()
	r, err := domain.NewResolveBuilder(root.ID()).Build()
	require.NoError(t, err)
	return r
}

func defaultMethod(features ...string) ports.Method {
	return ports.Method{DevDeps: true, Features: features, UsesDefaultFeatures: true}
}

func TestCompilePkg_Build(t *testing.T) {
	f := newFixture(t, []string{"unused manifest key: package.authors"}, libAndBin("/ws/app")...)

	f.logger.EXPECT().Warn("unused manifest key: package.authors")
	f.expectResolve(t, defaultMethod("serde", "tls"), rootOnly(t, f.root))

	var req *domain.CompileRequest
	f.orchestrator.EXPECT().CompileTargets(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *domain.CompileRequest) (*domain.Compilation, error) {
			req = r
			return domain.NewCompilation("/out", "/out/deps"), nil
		})

	opts := f.options(t)
	opts.Features = " serde  tls "

	compilation, err := f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, opts)
	require.NoError(t, err)

	require.NotNil(t, req)
	assert.Equal(t, 8, req.Config.Jobs)
	assert.False(t, req.Config.Test)
	assert.False(t, req.Config.Release)
	assert.False(t, req.Config.DocAll)
	assert.Equal(t, domain.ExecEngine(f.executor), req.Config.ExecEngine)
	assert.Equal(t, 1, req.PackageSet.Len())
	require.Len(t, req.Packages, 1)
	assert.Equal(t, []string{"lib:app@dev", "bin:app@dev"}, selected(req.Packages[0].Targets))
	assert.Equal(t, []*domain.Package{f.root}, compilation.ToDocTest)
}

func TestCompilePkg_ModeFlags(t *testing.T) {
	tests := []struct {
		name       string
		mode       domain.CompileMode
		release    bool
		wantTest   bool
		wantDocAll bool
	}{
		{name: "test", mode: domain.ModeTest(), wantTest: true},
		{name: "release", mode: domain.ModeBuild(), release: true},
		{name: "doc with deps", mode: domain.ModeDoc(true), wantDocAll: true},
		{name: "doc without deps", mode: domain.ModeDoc(false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, libAndBin("/ws/app")...)
			f.expectResolve(t, defaultMethod(), rootOnly(t, f.root))

			f.orchestrator.EXPECT().CompileTargets(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, r *domain.CompileRequest) (*domain.Compilation, error) {
					assert.Equal(t, tt.wantTest, r.Config.Test)
					assert.Equal(t, tt.release, r.Config.Release)
					assert.Equal(t, tt.wantDocAll, r.Config.DocAll)
					return domain.NewCompilation("/out", "/out/deps"), nil
				})

			opts := f.options(t)
			opts.Mode = tt.mode
			opts.Release = tt.release
			_, err := f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, opts)
			require.NoError(t, err)
		})
	}
}

func TestCompilePkg_NoDefaultFeatures(t *testing.T) {
	f := newFixture(t, nil, libAndBin("/ws/app")...)
	method := ports.Method{DevDeps: true}
	f.expectResolve(t, method, rootOnly(t, f.root))
	f.orchestrator.EXPECT().CompileTargets(gomock.Any(), gomock.Any()).
		Return(domain.NewCompilation("/out", "/out/deps"), nil)

	opts := f.options(t)
	opts.NoDefaultFeatures = true
	_, err := f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, opts)
	require.NoError(t, err)
}

func TestCompilePkg_BadFilterFailsBeforeResolution(t *testing.T) {
	f := newFixture(t, nil, libAndBin("/ws/app")...)

	opts := f.options(t)
	opts.Filter = domain.FilterOnly(false, []string{"ap"}, nil, nil, nil)

	_, err := f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, opts)
	require.Error(t, err)
	assert.Equal(t, "no bin target named `ap`\n\nDid you mean `app`?", err.Error())
}

func TestCompilePkg_JobsZero(t *testing.T) {
	f := newFixture(t, nil, libAndBin("/ws/app")...)

	opts := f.options(t)
	opts.Jobs = intPtr(0)

	_, err := f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs must be at least 1")
}

func TestCompilePkg_RustcArgs(t *testing.T) {
	t.Run("several targets", func(t *testing.T) {
		f := newFixture(t, nil, libAndBin("/ws/app")...)
		f.expectResolve(t, defaultMethod(), rootOnly(t, f.root))

		opts := f.options(t)
		opts.TargetRustcArgs = []string{"-Z", "time-passes"}

		_, err := f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, opts)
		require.Error(t, err)
		assert.Equal(t, "extra arguments to `rustc` can only be passed to one target, consider filtering\n"+
			"the package by passing e.g. `--lib` or `--bin NAME` to specify a single target", err.Error())
	})

	t.Run("single target", func(t *testing.T) {
		f := newFixture(t, nil, libAndBin("/ws/app")...)
		f.expectResolve(t, defaultMethod(), rootOnly(t, f.root))

		f.orchestrator.EXPECT().CompileTargets(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *domain.CompileRequest) (*domain.Compilation, error) {
				require.Len(t, r.Packages, 1)
				require.Len(t, r.Packages[0].Targets, 1)
				assert.Equal(t, []string{"-Z", "time-passes"}, r.Packages[0].Targets[0].Profile.RustcArgs)
				assert.Empty(t, r.Profiles.Dev.RustcArgs)
				return domain.NewCompilation("/out", "/out/deps"), nil
			})

		opts := f.options(t)
		opts.Filter = domain.FilterOnly(true, nil, nil, nil, nil)
		opts.TargetRustcArgs = []string{"-Z", "time-passes"}

		_, err := f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, opts)
		require.NoError(t, err)
	})

	t.Run("rustdoc", func(t *testing.T) {
		f := newFixture(t, nil, libAndBin("/ws/app")...)
		f.expectResolve(t, defaultMethod(), rootOnly(t, f.root))

		opts := f.options(t)
		opts.Mode = domain.ModeDoc(false)
		opts.TargetRustdocArgs = []string{"--html-in-header", "x.html"}

		_, err := f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "extra arguments to `rustdoc` can only be passed to one target")
	})
}

func withUtil(t *testing.T, f *fixture) (*domain.Package, *domain.Resolve) {
	t.Helper()
	utilID, err := domain.NewPackageID("util", "1.2.0", registryID)
	require.NoError(t, err)
	util := domain.NewPackage(&domain.Manifest{
		ID:       utilID,
		Targets:  []domain.Target{domain.NewLibTarget("util", "/registry/util-1.2.0/src/lib.rs")},
		Profiles: domain.DefaultProfiles(),
	}, "/registry/util-1.2.0/forge.yaml")

	b := domain.NewResolveBuilder(f.root.ID())
	b.Link(f.root.ID(), utilID)
	resolve, err := b.Build()
	require.NoError(t, err)
	return util, resolve
}

func TestCompilePkg_Spec(t *testing.T) {
	f := newFixture(t, nil, libAndBin("/ws/app")...)
	util, resolve := withUtil(t, f)
	f.expectResolve(t, defaultMethod(), resolve, util)

	f.orchestrator.EXPECT().CompileTargets(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *domain.CompileRequest) (*domain.Compilation, error) {
			require.Len(t, r.Packages, 1)
			assert.Same(t, util, r.Packages[0].Package)
			assert.Equal(t, []string{"lib:util@dev"}, selected(r.Packages[0].Targets))
			assert.Equal(t, 2, r.PackageSet.Len())
			return domain.NewCompilation("/out", "/out/deps"), nil
		})

	opts := f.options(t)
	opts.Spec = []string{"util:1.2.0"}

	compilation, err := f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, opts)
	require.NoError(t, err)
	assert.Equal(t, []*domain.Package{util}, compilation.ToDocTest)
}

func TestCompilePkg_UnknownSpec(t *testing.T) {
	f := newFixture(t, nil, libAndBin("/ws/app")...)
	f.expectResolve(t, defaultMethod(), rootOnly(t, f.root))

	opts := f.options(t)
	opts.Spec = []string{"missing"}

	_, err := f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not match any packages")
}

func TestCompilePkg_RustcArgsWithSeveralPackagesPanics(t *testing.T) {
	f := newFixture(t, nil, libAndBin("/ws/app")...)
	util, resolve := withUtil(t, f)
	f.expectResolve(t, defaultMethod(), resolve, util)

	opts := f.options(t)
	opts.Spec = []string{"app", "util"}
	opts.TargetRustcArgs = []string{"-g"}

	assert.Panics(t, func() {
		_, _ = f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, opts)
	})
}

func TestCompilePkg_ResolutionFailure(t *testing.T) {
	f := newFixture(t, nil, libAndBin("/ws/app")...)
	f.resolver.EXPECT().ResolvePackage(gomock.Any(), gomock.Any(), f.root).
		Return(nil, domain.ErrRegistryOffline)

	_, err := f.pipeline.CompilePkg(context.Background(), f.root, f.rootSource, f.options(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve dependencies")
	assert.Contains(t, err.Error(), "offline mode is enabled")
}

func TestCompile_LoadsRootManifest(t *testing.T) {
	f := newFixture(t, nil)
	manifestPath := f.root.ManifestPath()
	f.manifests.EXPECT().Load(manifestPath, f.root.ID().Source).Return(nil, domain.ErrManifestParseFailed)

	_, err := f.pipeline.Compile(context.Background(), manifestPath, f.options(t))
	require.ErrorIs(t, err, domain.ErrManifestParseFailed)
}
