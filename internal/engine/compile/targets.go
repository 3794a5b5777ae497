package compile

import (
	"fmt"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// GenerateTargets returns the targets of pkg selected by mode and filter,
// each paired with the profile it is built under. The result follows
// declaration order for Everything and request order for Only.
func GenerateTargets(
	pkg *domain.Package,
	profiles domain.Profiles,
	mode domain.CompileMode,
	filter domain.CompileFilter,
	release bool,
) ([]domain.TargetProfile, error) {
	build, test := profiles.Dev, profiles.Test
	if release {
		build, test = profiles.Release, profiles.Bench
	}

	var profile domain.Profile
	switch mode.Kind {
	case domain.ModeKindTest:
		profile = test
	case domain.ModeKindBench:
		profile = profiles.Bench
	case domain.ModeKindDoc:
		profile = profiles.Doc
	default:
		profile = build
	}

	if filter.IsEverything() {
		return everything(pkg, mode, profile, build), nil
	}
	return only(pkg, filter, selection{
		mode:  profile,
		build: build,
		test:  test,
		bench: profiles.Bench,
	})
}

func everything(pkg *domain.Package, mode domain.CompileMode, profile, build domain.Profile) []domain.TargetProfile {
	targets := pkg.Targets()

	var out []domain.TargetProfile
	for i := range targets {
		t := &targets[i]

		var selected bool
		switch mode.Kind {
		case domain.ModeKindTest:
			selected = t.Tested()
		case domain.ModeKindBench:
			selected = t.Benched()
		case domain.ModeKindDoc:
			selected = t.Documented()
		default:
			selected = t.IsBin() || t.IsLib()
		}
		if !selected {
			continue
		}

		p := profile
		if mode.Kind == domain.ModeKindTest && t.IsExample() {
			p = build
		}
		out = append(out, domain.TargetProfile{Target: t, Profile: p})
	}

	// Doc tests link against the library built in its build profile, so it
	// is listed a second time.
	if mode.Kind == domain.ModeKindTest {
		if lib, ok := pkg.Lib(); ok && lib.Doctested() {
			out = append(out, domain.TargetProfile{Target: lib, Profile: build})
		}
	}
	return out
}

// selection holds the profiles an Only filter pairs each kind with.
type selection struct {
	mode  domain.Profile
	build domain.Profile
	test  domain.Profile
	bench domain.Profile
}

func only(pkg *domain.Package, filter domain.CompileFilter, profiles selection) ([]domain.TargetProfile, error) {
	var out []domain.TargetProfile

	if filter.Lib {
		lib, ok := pkg.Lib()
		if !ok {
			return nil, zerr.With(domain.ErrNoLibraryTarget, "package", pkg.String())
		}
		out = append(out, domain.TargetProfile{Target: lib, Profile: profiles.mode})
	}

	groups := []struct {
		names   []string
		kind    domain.TargetKind
		profile domain.Profile
	}{
		{filter.Bins, domain.TargetBin, profiles.mode},
		{filter.Examples, domain.TargetExample, profiles.build},
		{filter.Tests, domain.TargetTest, profiles.test},
		{filter.Benches, domain.TargetBench, profiles.bench},
	}
	for _, g := range groups {
		for _, name := range g.names {
			t, err := findTarget(pkg, name, g.kind)
			if err != nil {
				return nil, err
			}
			out = append(out, domain.TargetProfile{Target: t, Profile: g.profile})
		}
	}
	return out, nil
}

func findTarget(pkg *domain.Package, name string, kind domain.TargetKind) (*domain.Target, error) {
	if t, ok := pkg.FindTarget(name, kind); ok {
		return t, nil
	}

	msg := fmt.Sprintf("no %s target named `%s`", kind, name)
	if suggestion, ok := pkg.FindClosestTarget(name, kind); ok {
		msg += fmt.Sprintf("\n\nDid you mean `%s`?", suggestion.Name)
	}
	return nil, zerr.With(zerr.New(msg), "package", pkg.String())
}
