package compile_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/engine/compile"
)

// selected renders a selection as "kind:name@profile" for comparison.
func selected(targets []domain.TargetProfile) []string {
	out := make([]string, len(targets))
	for i, tp := range targets {
		out[i] = tp.Target.Kind.String() + ":" + tp.Target.Name + "@" + tp.Profile.Name
	}
	return out
}

func newPackage(t *testing.T, targets ...domain.Target) *domain.Package {
	t.Helper()
	source, err := domain.NewPathSourceID("/ws/app")
	require.NoError(t, err)
	id, err := domain.NewPackageID("app", "0.1.0", source)
	require.NoError(t, err)
	return domain.NewPackage(&domain.Manifest{
		ID:       id,
		Targets:  targets,
		Profiles: domain.DefaultProfiles(),
	}, "/ws/app/forge.yaml")
}

func scenarioPackage(t *testing.T) *domain.Package {
	t.Helper()
	return newPackage(t,
		domain.NewLibTarget("app", "/ws/app/src/lib.rs"),
		domain.NewBinTarget("app", "/ws/app/src/main.rs"),
		domain.NewTestTarget("it", "/ws/app/tests/it.rs"),
	)
}

func TestGenerateTargets_Scenario(t *testing.T) {
	pkg := scenarioPackage(t)
	profiles := pkg.Profiles()

	tests := []struct {
		name    string
		mode    domain.CompileMode
		release bool
		want    []string
	}{
		{
			name: "build",
			mode: domain.ModeBuild(),
			want: []string{"lib:app@dev", "bin:app@dev"},
		},
		{
			name:    "build release",
			mode:    domain.ModeBuild(),
			release: true,
			want:    []string{"lib:app@release", "bin:app@release"},
		},
		{
			name: "test",
			mode: domain.ModeTest(),
			want: []string{"lib:app@test", "bin:app@test", "test:it@test", "lib:app@dev"},
		},
		{
			name:    "test release",
			mode:    domain.ModeTest(),
			release: true,
			want:    []string{"lib:app@bench", "bin:app@bench", "test:it@bench", "lib:app@release"},
		},
		{
			name: "bench",
			mode: domain.ModeBench(),
			want: []string{"lib:app@bench", "bin:app@bench"},
		},
		{
			name: "doc",
			mode: domain.ModeDoc(true),
			want: []string{"lib:app@doc", "bin:app@doc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compile.GenerateTargets(pkg, profiles, tt.mode, domain.FilterEverything(), tt.release)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, selected(got)); diff != "" {
				t.Errorf("GenerateTargets() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerateTargets_DoctestDuplicate(t *testing.T) {
	pkg := scenarioPackage(t)

	got, err := compile.GenerateTargets(pkg, pkg.Profiles(), domain.ModeTest(), domain.FilterEverything(), false)
	require.NoError(t, err)

	lib, ok := pkg.Lib()
	require.True(t, ok)

	var profiles []string
	for _, tp := range got {
		if tp.Target == lib {
			profiles = append(profiles, tp.Profile.Name)
		}
	}
	assert.Equal(t, []string{"test", "dev"}, profiles)
}

func TestGenerateTargets_NoDoctest(t *testing.T) {
	lib := domain.NewLibTarget("app", "/ws/app/src/lib.rs")
	lib.Doctest = false
	pkg := newPackage(t, lib)

	got, err := compile.GenerateTargets(pkg, pkg.Profiles(), domain.ModeTest(), domain.FilterEverything(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib:app@test"}, selected(got))
}

func TestGenerateTargets_ExamplesUseBuildProfile(t *testing.T) {
	pkg := newPackage(t,
		domain.NewLibTarget("app", "/ws/app/src/lib.rs"),
		domain.NewExampleTarget("demo", "/ws/app/examples/demo.rs"),
	)
	filter := domain.FilterOnly(false, nil, nil, []string{"demo"}, nil)

	for _, mode := range []domain.CompileMode{domain.ModeBuild(), domain.ModeTest(), domain.ModeBench()} {
		t.Run(mode.String(), func(t *testing.T) {
			got, err := compile.GenerateTargets(pkg, pkg.Profiles(), mode, filter, false)
			require.NoError(t, err)
			assert.Equal(t, []string{"example:demo@dev"}, selected(got))
		})
	}

	t.Run("everything test", func(t *testing.T) {
		got, err := compile.GenerateTargets(pkg, pkg.Profiles(), domain.ModeTest(), domain.FilterEverything(), false)
		require.NoError(t, err)
		assert.Contains(t, selected(got), "example:demo@dev")
	})
}

func TestGenerateTargets_Only(t *testing.T) {
	pkg := newPackage(t,
		domain.NewLibTarget("app", "/ws/app/src/lib.rs"),
		domain.NewBinTarget("server", "/ws/app/src/bin/server.rs"),
		domain.NewBinTarget("client", "/ws/app/src/bin/client.rs"),
		domain.NewTestTarget("it", "/ws/app/tests/it.rs"),
		domain.NewBenchTarget("speed", "/ws/app/benches/speed.rs"),
		domain.NewCustomBuildTarget("build-script-build", "/ws/app/build.rs"),
	)

	filter := domain.FilterOnly(true, []string{"client", "server"}, []string{"it"}, nil, []string{"speed"})
	got, err := compile.GenerateTargets(pkg, pkg.Profiles(), domain.ModeBuild(), filter, false)
	require.NoError(t, err)

	want := []string{"lib:app@dev", "bin:client@dev", "bin:server@dev", "test:it@test", "bench:speed@bench"}
	if diff := cmp.Diff(want, selected(got)); diff != "" {
		t.Errorf("GenerateTargets() mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateTargets_OnlyErrors(t *testing.T) {
	pkg := newPackage(t,
		domain.NewBinTarget("server", "/ws/app/src/bin/server.rs"),
		domain.NewTestTarget("integration", "/ws/app/tests/integration.rs"),
	)

	tests := []struct {
		name    string
		filter  domain.CompileFilter
		wantErr string
	}{
		{
			name:    "missing lib",
			filter:  domain.FilterOnly(true, nil, nil, nil, nil),
			wantErr: "no library targets found",
		},
		{
			name:    "typo suggests closest bin",
			filter:  domain.FilterOnly(false, []string{"sever"}, nil, nil, nil),
			wantErr: "no bin target named `sever`\n\nDid you mean `server`?",
		},
		{
			name:    "suggestion is limited to the same kind",
			filter:  domain.FilterOnly(false, nil, nil, []string{"server"}, nil),
			wantErr: "no example target named `server`",
		},
		{
			name:    "no suggestion when too different",
			filter:  domain.FilterOnly(false, nil, []string{"unit"}, nil, nil),
			wantErr: "no test target named `unit`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile.GenerateTargets(pkg, pkg.Profiles(), domain.ModeBuild(), tt.filter, false)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}
