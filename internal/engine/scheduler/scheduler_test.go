package scheduler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

const hostTriple = "x86_64-unknown-linux-gnu"

type fixture struct {
	ctrl      *gomock.Controller
	ws        string
	hasher    *mocks.MockHasher
	verifier  *mocks.MockOutputVerifier
	telemetry *mocks.MockTelemetry
	vertex    *mocks.MockVertex
	logger    *mocks.MockLogger
	store     *mocks.MockFingerprintStore
	executor  *mocks.MockExecutor
	sched     *scheduler.Scheduler
	procs     *recorder
}

func newFixture(t *testing.T, ws string) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		ctrl:      ctrl,
		ws:        ws,
		hasher:    mocks.NewMockHasher(ctrl),
		verifier:  mocks.NewMockOutputVerifier(ctrl),
		telemetry: mocks.NewMockTelemetry(ctrl),
		vertex:    mocks.NewMockVertex(ctrl),
		logger:    mocks.NewMockLogger(ctrl),
		store:     mocks.NewMockFingerprintStore(ctrl),
		executor:  mocks.NewMockExecutor(ctrl),
		procs:     &recorder{},
	}

	f.telemetry.EXPECT().Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) (context.Context, ports.Vertex) {
			return ctx, f.vertex
		}).AnyTimes()
	f.vertex.EXPECT().Stdout().Return(&strings.Builder{}).AnyTimes()
	f.vertex.EXPECT().Stderr().Return(&strings.Builder{}).AnyTimes()
	f.vertex.EXPECT().Complete(gomock.Any()).AnyTimes()
	f.logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	f.hasher.EXPECT().ComputeUnitHash(gomock.Any()).
		DoAndReturn(func(in *domain.UnitHashInput) (string, error) {
			return "hash:" + in.Key, nil
		}).AnyTimes()

	openStore := func(path string) (ports.FingerprintStore, error) {
		assert.True(t, strings.HasPrefix(path, ws), "store %s outside workspace", path)
		return f.store, nil
	}
	f.sched = scheduler.NewScheduler(f.hasher, f.verifier, f.telemetry, f.logger, openStore)
	f.sched.SetOutput(&strings.Builder{})
	return f
}

// expectStale makes every unit miss the fingerprint store.
func (f *fixture) expectStale() {
	f.store.EXPECT().Get(gomock.Any()).Return(nil, nil).AnyTimes()
	f.store.EXPECT().Put(gomock.Any()).Return(nil).AnyTimes()
}

func (f *fixture) expectExec() {
	f.executor.EXPECT().Exec(gomock.Any(), gomock.Any()).DoAndReturn(f.procs.exec).AnyTimes()
}

type recorder struct {
	mu    sync.Mutex
	procs []*domain.ProcessBuilder
}

func (r *recorder) exec(_ context.Context, p *domain.ProcessBuilder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs = append(r.procs, p)
	return nil
}

// names lists the crate names of the recorded compiler invocations in order.
func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.procs))
	for _, p := range r.procs {
		name := p.Program
		if values := argValues(p, "--crate-name"); len(values) > 0 {
			name = values[0]
		}
		if slices.Contains(p.Args, "--test") {
			name += "(test)"
		}
		out = append(out, name)
	}
	return out
}

func (r *recorder) find(t *testing.T, name string) *domain.ProcessBuilder {
	t.Helper()
	for i, n := range r.names() {
		if n == name {
			return r.procs[i]
		}
	}
	t.Fatalf("no invocation of %s in %v", name, r.names())
	return nil
}

func argValues(p *domain.ProcessBuilder, flag string) []string {
	var out []string
	for i := 0; i+1 < len(p.Args); i++ {
		if p.Args[i] == flag {
			out = append(out, p.Args[i+1])
		}
	}
	return out
}

func newPackage(t *testing.T, root, name string, deps []domain.Dependency, targets ...domain.Target) *domain.Package {
	t.Helper()
	source, err := domain.NewPathSourceID(root)
	require.NoError(t, err)
	id, err := domain.NewPackageID(name, "0.1.0", source)
	require.NoError(t, err)
	return domain.NewPackage(&domain.Manifest{
		ID:           id,
		Dependencies: deps,
		Targets:      targets,
		Profiles:     domain.DefaultProfiles(),
	}, filepath.Join(root, domain.ManifestFileName))
}

func lib(root, name string) domain.Target {
	return domain.NewLibTarget(name, filepath.Join(root, "src", "lib.rs"))
}

func bin(root, name string) domain.Target {
	return domain.NewBinTarget(name, filepath.Join(root, "src", "main.rs"))
}

func buildScript(root string) domain.Target {
	return domain.NewCustomBuildTarget("build", filepath.Join(root, "build.rs"))
}

func dep(name string, kind domain.DependencyKind) domain.Dependency {
	return domain.Dependency{Name: name, Req: "0.1", Kind: kind}
}

// newRequest resolves every declared dependency of the packages against the
// packages themselves.
func (f *fixture) newRequest(t *testing.T, root *domain.Package, others ...*domain.Package) *domain.CompileRequest {
	t.Helper()
	all := append([]*domain.Package{root}, others...)
	b := domain.NewResolveBuilder(root.ID())
	for _, p := range all {
		b.AddNode(p.ID())
		for _, d := range p.Dependencies() {
			for _, q := range all {
				if q.Name() == d.Name {
					b.Link(p.ID(), q.ID())
				}
			}
		}
	}
	resolve, err := b.Build()
	require.NoError(t, err)

	return &domain.CompileRequest{
		PackageSet: domain.NewPackageSet(all),
		Resolve:    resolve,
		Profiles:   domain.DefaultProfiles(),
		Config: domain.BuildConfig{
			Jobs:       4,
			HostTriple: hostTriple,
			ExecEngine: f.executor,
			Rustc:      "rustc",
			Rustdoc:    "rustdoc",
		},
	}
}

func selectTargets(pkg *domain.Package, profile domain.Profile) []domain.PackageTargets {
	pt := domain.PackageTargets{Package: pkg}
	for i := range pkg.Targets() {
		t := &pkg.Targets()[i]
		if t.IsCustomBuild() {
			continue
		}
		pt.Targets = append(pt.Targets, domain.TargetProfile{Target: t, Profile: profile})
	}
	return []domain.PackageTargets{pt}
}

// appWithUtil is a package with a library and a binary depending on the library util.
func appWithUtil(t *testing.T, ws string, appDeps ...domain.Dependency) (app, util *domain.Package) {
	t.Helper()
	appRoot, utilRoot := filepath.Join(ws, "app"), filepath.Join(ws, "util")
	util = newPackage(t, utilRoot, "util", nil, lib(utilRoot, "util"))
	app = newPackage(t, appRoot, "app",
		append([]domain.Dependency{dep("util", domain.DepNormal)}, appDeps...),
		lib(appRoot, "app"), bin(appRoot, "app"))
	return app, util
}

func TestScheduler_CompileTargets_Build(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.expectStale()
	f.expectExec()

	app, util := appWithUtil(t, f.ws)
	f.logger.EXPECT().Status("Compiling", util.String()).Times(1)
	f.logger.EXPECT().Status("Compiling", app.String()).Times(1)

	req := f.newRequest(t, app, util)
	req.Packages = selectTargets(app, req.Profiles.Dev)

	compilation, err := f.sched.CompileTargets(context.Background(), req)
	require.NoError(t, err)

	names := f.procs.names()
	require.Len(t, names, 3)
	assert.Less(t, slices.Index(names, "util"), slices.Index(names, "app"))

	target := filepath.Join(f.ws, "app", "target", "debug")
	assert.Equal(t, target, compilation.RootOutput)
	assert.Equal(t, filepath.Join(target, "deps"), compilation.DepsOutput)
	assert.Equal(t, []string{filepath.Join(target, "app")}, compilation.Binaries)
	assert.Equal(t, []string{filepath.Join(target, "libapp.rlib")}, compilation.Libraries[app.ID()])

	require.Len(t, compilation.Libraries[util.ID()], 1)
	utilLib := compilation.Libraries[util.ID()][0]
	assert.True(t, strings.HasPrefix(utilLib, filepath.Join(target, "deps", "libutil-")), utilLib)

	var appLib *domain.ProcessBuilder
	for _, p := range f.procs.procs {
		if argValues(p, "--crate-name")[0] == "app" && slices.Contains(p.Args, "lib") {
			appLib = p
		}
	}
	require.NotNil(t, appLib)
	assert.Equal(t, []string{"util=" + utilLib}, argValues(appLib, "--extern"))
	assert.Equal(t, []string{target}, argValues(appLib, "--out-dir"))
	assert.Contains(t, appLib.Args, "-g")
	assert.Equal(t, "app", appLib.Env["FORGE_PKG_NAME"])

	for key, status := range f.sched.GetUnitStatusMap() {
		assert.Equal(t, domain.UnitStatusCompleted, status, key)
	}
}

func TestScheduler_CompileTargets_Release(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.expectStale()
	f.expectExec()
	f.logger.EXPECT().Status(gomock.Any(), gomock.Any()).AnyTimes()

	app, util := appWithUtil(t, f.ws)
	req := f.newRequest(t, app, util)
	req.Config.Release = true
	req.Packages = selectTargets(app, req.Profiles.Release)

	compilation, err := f.sched.CompileTargets(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.ws, "app", "target", "release"), compilation.RootOutput)
	for _, p := range f.procs.procs {
		assert.Contains(t, p.Args, "opt-level=3")
		assert.NotContains(t, p.Args, "-g")
	}
}

func TestScheduler_CompileTargets_Fresh(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.store.EXPECT().Get(gomock.Any()).DoAndReturn(func(key string) (*domain.Fingerprint, error) {
		return &domain.Fingerprint{Unit: key, InputHash: "hash:" + key}, nil
	}).AnyTimes()
	f.verifier.EXPECT().VerifyOutputs(gomock.Any()).Return(true, nil).AnyTimes()
	f.vertex.EXPECT().Cached().Times(3)

	app, util := appWithUtil(t, f.ws)
	req := f.newRequest(t, app, util)
	req.Packages = selectTargets(app, req.Profiles.Dev)

	compilation, err := f.sched.CompileTargets(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, compilation.Binaries, 1)

	for key, status := range f.sched.GetUnitStatusMap() {
		assert.Equal(t, domain.UnitStatusFresh, status, key)
	}
}

func TestScheduler_CompileTargets_MissingOutputRebuilds(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.store.EXPECT().Get(gomock.Any()).DoAndReturn(func(key string) (*domain.Fingerprint, error) {
		return &domain.Fingerprint{Unit: key, InputHash: "hash:" + key}, nil
	}).AnyTimes()
	f.store.EXPECT().Put(gomock.Any()).Return(nil).Times(3)
	f.verifier.EXPECT().VerifyOutputs(gomock.Any()).Return(false, nil).AnyTimes()
	f.logger.EXPECT().Status(gomock.Any(), gomock.Any()).AnyTimes()
	f.expectExec()

	app, util := appWithUtil(t, f.ws)
	req := f.newRequest(t, app, util)
	req.Packages = selectTargets(app, req.Profiles.Dev)

	_, err := f.sched.CompileTargets(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, f.procs.names(), 3)
}

func TestScheduler_CompileTargets_FailureStopsDependents(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.expectStale()
	f.logger.EXPECT().Status(gomock.Any(), gomock.Any()).AnyTimes()

	code := 1
	f.executor.EXPECT().Exec(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *domain.ProcessBuilder) error {
			assert.Equal(t, []string{"util"}, argValues(p, "--crate-name"), "dependents must not run")
			return domain.NewProcessError(p, &code, nil)
		}).Times(1)

	app, util := appWithUtil(t, f.ws)
	req := f.newRequest(t, app, util)
	req.Packages = selectTargets(app, req.Profiles.Dev)

	_, err := f.sched.CompileTargets(context.Background(), req)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrUnitFailed.Error())

	var processErr *domain.ProcessError
	require.ErrorAs(t, err, &processErr)
	assert.Equal(t, 1, *processErr.Exit)

	var failed, pending int
	for _, status := range f.sched.GetUnitStatusMap() {
		switch status {
		case domain.UnitStatusFailed:
			failed++
		case domain.UnitStatusPending:
			pending++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, pending)
}

func TestScheduler_CompileTargets_BuildScript(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.expectStale()
	f.expectExec()
	f.logger.EXPECT().Status("Compiling", gomock.Any()).Times(1)

	appRoot := filepath.Join(f.ws, "app")
	app := newPackage(t, appRoot, "app", nil, lib(appRoot, "app"), buildScript(appRoot))

	var ran *domain.ProcessBuilder
	f.executor.EXPECT().Output(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *domain.ProcessBuilder) ([]byte, error) {
			ran = p
			return []byte("warming up\nforge:rustc-link-search=/opt/ssl/lib\nforge:rustc-link-lib=ssl\nforge:rustc-cfg=ossl\n"), nil
		}).Times(1)

	req := f.newRequest(t, app)
	req.Packages = selectTargets(app, req.Profiles.Dev)

	compilation, err := f.sched.CompileTargets(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, ran)
	script := f.procs.find(t, "build_script_build")
	assert.Equal(t, argValues(script, "-o")[0], ran.Program)
	assert.Equal(t, appRoot, ran.Dir)
	assert.Equal(t, hostTriple, ran.Env["TARGET"])
	assert.Equal(t, "debug", ran.Env["PROFILE"])
	assert.Equal(t, "4", ran.Env["NUM_JOBS"])
	assert.True(t, strings.HasPrefix(ran.Env["OUT_DIR"], filepath.Join(appRoot, "target", "debug", "build", "app-")))

	output, err := os.ReadFile(filepath.Join(filepath.Dir(ran.Env["OUT_DIR"]), "output"))
	require.NoError(t, err)
	assert.Contains(t, string(output), "forge:rustc-link-lib=ssl")

	appLib := f.procs.find(t, "app")
	assert.Equal(t,
		[]string{"dependency=" + filepath.Join(appRoot, "target", "debug", "deps"), "native=/opt/ssl/lib"},
		argValues(appLib, "-L"))
	assert.Equal(t, []string{"ssl"}, argValues(appLib, "-l"))
	assert.Contains(t, argValues(appLib, "--cfg"), "ossl")
	assert.Equal(t, []string{"/opt/ssl/lib"}, compilation.NativeDirs)
}

func TestScheduler_CompileTargets_OverriddenBuildScript(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.expectStale()
	f.expectExec()
	f.logger.EXPECT().Status(gomock.Any(), gomock.Any()).AnyTimes()

	sysRoot := filepath.Join(f.ws, "openssl-sys")
	sys := domain.NewPackage(&domain.Manifest{
		ID:       newPackage(t, sysRoot, "openssl-sys", nil).ID(),
		Targets:  []domain.Target{lib(sysRoot, "openssl_sys"), buildScript(sysRoot)},
		Profiles: domain.DefaultProfiles(),
		Links:    "ssl",
	}, filepath.Join(sysRoot, domain.ManifestFileName))

	appRoot := filepath.Join(f.ws, "app")
	app := newPackage(t, appRoot, "app",
		[]domain.Dependency{dep("openssl-sys", domain.DepNormal)},
		lib(appRoot, "app"), buildScript(appRoot))

	var appScriptEnv map[string]string
	f.executor.EXPECT().Output(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *domain.ProcessBuilder) ([]byte, error) {
			assert.Equal(t, "app", p.Env["FORGE_PKG_NAME"], "overridden scripts must not run")
			appScriptEnv = p.Env
			return nil, nil
		}).Times(1)

	req := f.newRequest(t, app, sys)
	req.Config.Target.Overrides = map[string]domain.BuildOutput{
		"ssl": {
			LibraryPaths: []string{"/usr/lib/ssl"},
			LibraryLinks: []string{"ssl", "crypto"},
			Metadata:     []domain.MetadataEntry{{Key: "root", Value: "/usr"}},
		},
	}
	req.Config.Host = req.Config.Target
	req.Packages = selectTargets(app, req.Profiles.Dev)

	compilation, err := f.sched.CompileTargets(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "/usr", appScriptEnv["DEP_SSL_ROOT"])
	scripts := 0
	for _, name := range f.procs.names() {
		if name == "build_script_build" {
			scripts++
		}
	}
	assert.Equal(t, 1, scripts)

	sysLib := f.procs.find(t, "openssl_sys")
	assert.Equal(t, []string{"ssl", "crypto"}, argValues(sysLib, "-l"))
	appLib := f.procs.find(t, "app")
	assert.Contains(t, argValues(appLib, "-L"), "native=/usr/lib/ssl")
	assert.Empty(t, argValues(appLib, "-l"))
	assert.Equal(t, []string{"/usr/lib/ssl"}, compilation.NativeDirs)
}

func TestScheduler_CompileTargets_TestHarness(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.expectStale()
	f.expectExec()
	f.logger.EXPECT().Status(gomock.Any(), gomock.Any()).AnyTimes()

	testerRoot := filepath.Join(f.ws, "tester")
	tester := newPackage(t, testerRoot, "tester", nil, lib(testerRoot, "tester"))
	app, util := appWithUtil(t, f.ws, dep("tester", domain.DepDev))
	appLibTarget, _ := app.Lib()

	req := f.newRequest(t, app, util, tester)
	req.Packages = []domain.PackageTargets{{
		Package: app,
		Targets: []domain.TargetProfile{{Target: appLibTarget, Profile: req.Profiles.Test}},
	}}

	compilation, err := f.sched.CompileTargets(context.Background(), req)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"util", "tester", "app(test)"}, f.procs.names())

	harness := f.procs.find(t, "app(test)")
	externs := argValues(harness, "--extern")
	require.Len(t, externs, 2)
	assert.True(t, strings.HasPrefix(externs[0], "tester=") || strings.HasPrefix(externs[1], "tester="), externs)

	require.Len(t, compilation.Tests, 1)
	test := compilation.Tests[0]
	assert.Equal(t, app, test.Package)
	assert.Equal(t, domain.TargetLib, test.Kind)
	assert.True(t, strings.HasPrefix(test.Path, filepath.Join(compilation.DepsOutput, "app-")), test.Path)
	assert.Empty(t, compilation.Binaries)
}

func TestScheduler_CompileTargets_CrossCompile(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.expectStale()
	f.expectExec()
	f.logger.EXPECT().Status(gomock.Any(), gomock.Any()).AnyTimes()
	f.executor.EXPECT().Output(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	appRoot := filepath.Join(f.ws, "app")
	app := newPackage(t, appRoot, "app", nil, lib(appRoot, "app"), buildScript(appRoot))

	req := f.newRequest(t, app)
	req.Config.RequestedTarget = "aarch64-unknown-linux-gnu"
	req.Config.Target.Linker = "aarch64-linux-gnu-gcc"
	req.Packages = selectTargets(app, req.Profiles.Dev)

	compilation, err := f.sched.CompileTargets(context.Background(), req)
	require.NoError(t, err)

	target := filepath.Join(appRoot, "target")
	assert.Equal(t, filepath.Join(target, "aarch64-unknown-linux-gnu", "debug"), compilation.RootOutput)

	script := f.procs.find(t, "build_script_build")
	assert.Empty(t, argValues(script, "--target"))
	assert.True(t, strings.HasPrefix(argValues(script, "-o")[0], filepath.Join(target, "debug", "build")))

	appLib := f.procs.find(t, "app")
	assert.Equal(t, []string{"aarch64-unknown-linux-gnu"}, argValues(appLib, "--target"))
	assert.Contains(t, argValues(appLib, "-C"), "linker=aarch64-linux-gnu-gcc")
}

func TestScheduler_CompileTargets_JobsZero(t *testing.T) {
	f := newFixture(t, t.TempDir())
	app, util := appWithUtil(t, f.ws)
	req := f.newRequest(t, app, util)
	req.Config.Jobs = 0

	_, err := f.sched.CompileTargets(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrJobsZero)
}

func TestScheduler_CompileTargets_Canceled(t *testing.T) {
	f := newFixture(t, t.TempDir())
	app, util := appWithUtil(t, f.ws)
	req := f.newRequest(t, app, util)
	req.Packages = selectTargets(app, req.Profiles.Dev)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.sched.CompileTargets(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScheduler_CompileTargets_CanceledWhileRunning(t *testing.T) {
	ws := t.TempDir()
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, ws)
		f.expectStale()
		f.logger.EXPECT().Status(gomock.Any(), gomock.Any()).AnyTimes()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// The running unit ignores cancellation and finishes a second later.
		// The loop must block until then instead of polling the closed context.
		f.executor.EXPECT().Exec(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *domain.ProcessBuilder) error {
				cancel()
				time.Sleep(time.Second)
				return nil
			}).Times(1)

		app, util := appWithUtil(t, ws)
		req := f.newRequest(t, app, util)
		req.Packages = selectTargets(app, req.Profiles.Dev)

		start := time.Now()
		_, err := f.sched.CompileTargets(ctx, req)

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, time.Second, time.Since(start))
	})
}

func TestScheduler_CompileTargets_Parallelism(t *testing.T) {
	ws := t.TempDir()
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, ws)
		f.expectStale()
		f.logger.EXPECT().Status(gomock.Any(), gomock.Any()).AnyTimes()

		var mu sync.Mutex
		var active, peak int
		f.executor.EXPECT().Exec(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *domain.ProcessBuilder) error {
				mu.Lock()
				active++
				peak = max(peak, active)
				mu.Unlock()

				time.Sleep(time.Second)

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			}).Times(4)

		var deps []domain.Dependency
		var leaves []*domain.Package
		for _, name := range []string{"a", "b", "c"} {
			root := filepath.Join(ws, name)
			leaves = append(leaves, newPackage(t, root, name, nil, lib(root, name)))
			deps = append(deps, dep(name, domain.DepNormal))
		}
		appRoot := filepath.Join(ws, "app")
		app := newPackage(t, appRoot, "app", deps, lib(appRoot, "app"))

		req := f.newRequest(t, app, leaves...)
		req.Config.Jobs = 2
		req.Packages = selectTargets(app, req.Profiles.Dev)

		start := time.Now()
		_, err := f.sched.CompileTargets(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, 2, peak)
		// Two rounds for the leaves, one for app.
		assert.Equal(t, 3*time.Second, time.Since(start))
	})
}

func TestScheduler_CompileTargets_IndependentFailuresAreJoined(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.expectStale()
	f.logger.EXPECT().Status(gomock.Any(), gomock.Any()).AnyTimes()

	code := 2
	f.executor.EXPECT().Exec(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *domain.ProcessBuilder) error {
			return domain.NewProcessError(p, &code, nil)
		}).Times(2)

	aRoot, bRoot := filepath.Join(f.ws, "a"), filepath.Join(f.ws, "b")
	a := newPackage(t, aRoot, "a", nil, lib(aRoot, "a"))
	b := newPackage(t, bRoot, "b", nil, lib(bRoot, "b"))
	appRoot := filepath.Join(f.ws, "app")
	app := newPackage(t, appRoot, "app",
		[]domain.Dependency{dep("a", domain.DepNormal), dep("b", domain.DepNormal)},
		lib(appRoot, "app"))

	req := f.newRequest(t, app, a, b)
	req.Packages = selectTargets(app, req.Profiles.Dev)

	_, err := f.sched.CompileTargets(context.Background(), req)
	require.Error(t, err)

	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	assert.Len(t, joined.Unwrap(), 2)
}
