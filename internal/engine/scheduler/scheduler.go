// Package scheduler compiles the units of a resolved package set in dependency order.
package scheduler

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Orchestrator = (*Scheduler)(nil)

// sourceIgnores are skipped when hashing package sources.
var sourceIgnores = []string{domain.TargetDirName, domain.FingerprintDirName}

// Scheduler manages the execution of compile units.
type Scheduler struct {
	hasher    ports.Hasher
	verifier  ports.OutputVerifier
	telemetry ports.Telemetry
	logger    ports.Logger
	openStore ports.FingerprintStoreOpener
	stderr    io.Writer

	mu         sync.RWMutex
	unitStatus map[string]domain.UnitStatus
}

// NewScheduler creates a new Scheduler.
func NewScheduler(
	hasher ports.Hasher,
	verifier ports.OutputVerifier,
	telemetry ports.Telemetry,
	logger ports.Logger,
	openStore ports.FingerprintStoreOpener,
) *Scheduler {
	return &Scheduler{
		hasher:     hasher,
		verifier:   verifier,
		telemetry:  telemetry,
		logger:     logger,
		openStore:  openStore,
		stderr:     os.Stderr,
		unitStatus: make(map[string]domain.UnitStatus),
	}
}

// SetOutput sets where compiler diagnostics are copied to.
func (s *Scheduler) SetOutput(w io.Writer) {
	s.stderr = w
}

func (s *Scheduler) initUnitStatuses(g *unitGraph) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unitStatus = make(map[string]domain.UnitStatus, len(g.order))
	for _, u := range g.order {
		s.unitStatus[u.key] = domain.UnitStatusPending
	}
}

func (s *Scheduler) updateStatus(key string, status domain.UnitStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unitStatus[key] = status
}

// CompileTargets builds the requested targets and every unit they need.
func (s *Scheduler) CompileTargets(ctx context.Context, req *domain.CompileRequest) (*domain.Compilation, error) {
	if req.Config.Jobs < 1 {
		return nil, domain.ErrJobsZero
	}

	graph, err := newUnitGraph(req)
	if err != nil {
		return nil, err
	}

	targetDir := req.Config.TargetDir
	if targetDir == "" {
		targetDir = filepath.Join(rootDir(req), domain.TargetDirName)
	}
	l := newLayout(&req.Config, targetDir)

	store, err := s.openStore(l.dest)
	if err != nil {
		return nil, err
	}

	s.initUnitStatuses(graph)
	state := s.newRunState(ctx, req, graph, l, store)
	if err := state.run(); err != nil {
		return nil, err
	}
	return state.compilation(), nil
}

func rootDir(req *domain.CompileRequest) string {
	if pkg, err := req.PackageSet.Get(req.Resolve.Root()); err == nil {
		return pkg.Root()
	}
	if len(req.Packages) > 0 {
		return req.Packages[0].Package.Root()
	}
	return "."
}

type result struct {
	unit    *unit
	err     error
	fresh   bool
	hash    string
	outputs []string
}

type runState struct {
	inDegree    map[*unit]int
	ready       []*unit
	active      int
	resultsCh   chan result
	errs        error
	ctx         context.Context
	parallelism int
	s           *Scheduler

	req    *domain.CompileRequest
	graph  *unitGraph
	layout layout
	store  ports.FingerprintStore

	mu        sync.Mutex
	announced map[domain.PackageID]bool
}

func (s *Scheduler) newRunState(
	ctx context.Context,
	req *domain.CompileRequest,
	graph *unitGraph,
	l layout,
	store ports.FingerprintStore,
) *runState {
	inDegree := make(map[*unit]int, len(graph.order))
	var ready []*unit
	for _, u := range graph.order {
		inDegree[u] = len(u.deps)
		if len(u.deps) == 0 {
			ready = append(ready, u)
		}
	}

	return &runState{
		inDegree:    inDegree,
		ready:       ready,
		resultsCh:   make(chan result, req.Config.Jobs),
		ctx:         ctx,
		parallelism: req.Config.Jobs,
		s:           s,
		req:         req,
		graph:       graph,
		layout:      l,
		store:       store,
		announced:   make(map[domain.PackageID]bool),
	}
}

func (state *runState) run() error {
	// Cleared after cancellation so the loop only waits for running units.
	done := state.ctx.Done()
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			return errors.Join(state.errs, state.ctx.Err())
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-done:
			done = nil
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}

	return state.errs
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		u := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.s.updateStatus(u.key, domain.UnitStatusRunning)

		go state.executeUnit(u)
	}
}

func (state *runState) executeUnit(u *unit) {
	// The vertex is completed before the result is sent so the recording is
	// finished once the execution loop sees the unit as done.
	res := func() result {
		ctx, vertex := state.s.telemetry.Record(state.ctx, u.String())
		res := state.execute(ctx, u, vertex)
		if res.fresh {
			vertex.Cached()
		}
		vertex.Complete(res.err)
		return res
	}()

	state.resultsCh <- res
}

func (state *runState) execute(ctx context.Context, u *unit, vertex ports.Vertex) result {
	inv, err := state.invocation(u)
	if err != nil {
		return result{unit: u, err: err}
	}

	depHashes := make([]string, 0, len(u.deps))
	for _, dep := range u.deps {
		depHashes = append(depHashes, dep.hash)
	}
	hash, err := state.s.hasher.ComputeUnitHash(&domain.UnitHashInput{
		Key:       u.key,
		SrcRoot:   u.pkg.Root(),
		Ignores:   sourceIgnores,
		Args:      append([]string{inv.process.Program}, inv.process.Args...),
		Env:       inv.process.Env,
		DepHashes: depHashes,
	})
	if err != nil {
		return result{unit: u, err: err}
	}

	fresh, err := state.isFresh(u, hash, inv.outputs)
	if err != nil {
		return result{unit: u, err: err}
	}
	if fresh {
		if inv.outFile != "" {
			if err := state.loadBuildScriptOutput(u, inv.outFile); err != nil {
				return result{unit: u, err: err}
			}
		}
		u.hash, u.artifacts = hash, inv.outputs
		state.s.logger.Debug("Fresh " + u.String())
		return result{unit: u, fresh: true, hash: hash, outputs: inv.outputs}
	}

	state.announce(u)
	if err := state.prepareOutputs(inv); err != nil {
		return result{unit: u, err: err}
	}

	stderr := io.MultiWriter(vertex.Stderr(), state.s.stderr)
	inv.process.Stdout, inv.process.Stderr = vertex.Stdout(), stderr
	state.s.logger.Debug("Running " + inv.process.String())

	if u.action == actionRunBuildScript {
		err = state.runBuildScript(ctx, u, inv)
	} else {
		err = state.req.Config.ExecEngine.Exec(ctx, inv.process)
	}
	if err != nil {
		return result{unit: u, err: err}
	}

	u.hash, u.artifacts = hash, inv.outputs
	return result{unit: u, hash: hash, outputs: inv.outputs}
}

func (state *runState) isFresh(u *unit, hash string, outputs []string) (bool, error) {
	fp, err := state.store.Get(u.key)
	if err != nil {
		return false, err
	}
	if fp == nil || fp.InputHash != hash {
		return false, nil
	}
	return state.s.verifier.VerifyOutputs(outputs)
}

// announce prints the status line of a package once per compile.
func (state *runState) announce(u *unit) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.announced[u.pkg.ID()] {
		return
	}
	state.announced[u.pkg.ID()] = true

	verb := "Compiling"
	if u.action == actionDoc {
		verb = "Documenting"
	}
	state.s.logger.Status(verb, u.pkg.String())
}

// prepareOutputs creates the output directories and removes stale artifacts.
func (state *runState) prepareOutputs(inv *invocation) error {
	rootAbs, err := filepath.Abs(state.layout.target)
	if err != nil {
		return zerr.Wrap(err, domain.ErrCleanOutputFailed.Error())
	}

	for _, dir := range inv.dirs {
		if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrCleanOutputFailed.Error()), "dir", dir)
		}
	}

	for _, out := range inv.outputs {
		outAbs, err := filepath.Abs(out)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrCleanOutputFailed.Error()), "file", out)
		}
		rel, err := filepath.Rel(rootAbs, outAbs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return zerr.With(domain.ErrOutputOutsideTargetDir, "file", out)
		}
		if err := os.RemoveAll(outAbs); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrCleanOutputFailed.Error()), "file", out)
		}
	}
	return nil
}

func (state *runState) runBuildScript(ctx context.Context, u *unit, inv *invocation) error {
	stdout, err := state.req.Config.ExecEngine.Output(ctx, inv.process)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrBuildScriptFailed.Error()), "package", u.pkg.String())
	}
	if err := os.WriteFile(inv.outFile, stdout, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to save build script output"), "file", inv.outFile)
	}
	return state.parseBuildScriptOutput(u, string(stdout))
}

func (state *runState) loadBuildScriptOutput(u *unit, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // Path is inside the target directory
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read build script output"), "file", path)
	}
	return state.parseBuildScriptOutput(u, string(data))
}

func (state *runState) parseBuildScriptOutput(u *unit, output string) error {
	out, err := domain.ParseBuildScriptOutput(output, "build script of `"+u.pkg.String()+"`")
	if err != nil {
		return err
	}
	u.output = &out
	return nil
}

func (state *runState) handleResult(res result) {
	state.active--

	if res.err != nil {
		enhancedErr := zerr.With(zerr.Wrap(res.err, domain.ErrUnitFailed.Error()), "unit", res.unit.String())
		state.errs = errors.Join(state.errs, enhancedErr)
		state.s.updateStatus(res.unit.key, domain.UnitStatusFailed)
	} else {
		state.handleSuccess(res)
	}
}

func (state *runState) handleSuccess(res result) {
	if res.fresh {
		state.s.updateStatus(res.unit.key, domain.UnitStatusFresh)
	} else {
		state.s.updateStatus(res.unit.key, domain.UnitStatusCompleted)
		err := state.store.Put(domain.Fingerprint{
			Unit:      res.unit.key,
			InputHash: res.hash,
			Outputs:   res.outputs,
			Timestamp: time.Now(),
		})
		if err != nil {
			state.s.logger.Debug("failed to record fingerprint of " + res.unit.String() + ": " + err.Error())
		}
	}

	for _, dep := range res.unit.dependents {
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}

// compilation collects the artifacts of a finished run.
func (state *runState) compilation() *domain.Compilation {
	l := state.layout
	c := domain.NewCompilation(l.root(false), l.deps(false))

	var native []string
	for _, u := range state.graph.order {
		if u.output != nil {
			native = append(native, u.output.LibraryPaths...)
		}
		if u.action != actionCompile || u.host || len(u.artifacts) == 0 {
			continue
		}
		path := u.artifacts[0]
		switch {
		case u.isHarness():
			if u.root {
				c.Tests = append(c.Tests, domain.TestBinary{
					Package: u.pkg,
					Target:  u.target.Name,
					Kind:    u.target.Kind,
					Path:    path,
				})
			}
		case u.target.IsLib():
			if !slices.Contains(c.Libraries[u.pkg.ID()], path) {
				c.Libraries[u.pkg.ID()] = append(c.Libraries[u.pkg.ID()], path)
			}
		case u.target.IsBin():
			if u.root {
				c.Binaries = append(c.Binaries, path)
			}
		case u.target.IsExample():
			if u.root {
				c.Examples = append(c.Examples, path)
			}
		}
	}
	for _, out := range state.graph.overrides {
		native = append(native, out.LibraryPaths...)
	}
	slices.Sort(native)
	c.NativeDirs = slices.Compact(native)

	return c
}
