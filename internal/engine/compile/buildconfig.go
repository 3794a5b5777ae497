package compile

import (
	"fmt"
	"math"
	"path/filepath"
	"slices"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Keys of a `target.<triple>` table that are not library overrides.
var reservedTargetKeys = []string{"ar", "linker", "rustflags"}

// ScrapeBuildConfig merges the command line job count and target triple
// with the configuration. jobs is nil when not given on the command line and
// target is empty when no triple was requested.
func ScrapeBuildConfig(cfg ports.Config, jobs *int, target string) (domain.BuildConfig, error) {
	cfgJobs, err := cfg.GetI64("build.jobs")
	if err != nil {
		return domain.BuildConfig{}, err
	}
	if cfgJobs != nil {
		if cfgJobs.Val <= 0 {
			return domain.BuildConfig{}, zerr.New(fmt.Sprintf(
				"build.jobs must be positive, but found %d in %s", cfgJobs.Val, cfgJobs.Definition))
		}
		if cfgJobs.Val >= math.MaxUint32 {
			return domain.BuildConfig{}, zerr.New(fmt.Sprintf(
				"build.jobs is too large: found %d in %s", cfgJobs.Val, cfgJobs.Definition))
		}
	}

	host := cfg.Host()
	bc := domain.BuildConfig{Jobs: max(host.Parallelism, 1), HostTriple: host.Triple}
	switch {
	case jobs != nil:
		bc.Jobs = *jobs
	case cfgJobs != nil:
		bc.Jobs = int(cfgJobs.Val)
	}

	if target == "" {
		cfgTarget, err := cfg.GetString("build.target")
		if err != nil {
			return domain.BuildConfig{}, err
		}
		if cfgTarget != nil {
			target = cfgTarget.Val
		}
	}
	bc.RequestedTarget = target

	// The host configuration is needed for build scripts even when cross
	// compiling.
	bc.Host, err = scrapeTargetConfig(cfg, host.Triple)
	if err != nil {
		return domain.BuildConfig{}, err
	}
	bc.Target = bc.Host
	if target != "" {
		bc.Target, err = scrapeTargetConfig(cfg, target)
		if err != nil {
			return domain.BuildConfig{}, err
		}
	}

	if bc.Rustc, err = tool(cfg, "rustc"); err != nil {
		return domain.BuildConfig{}, err
	}
	if bc.Rustdoc, err = tool(cfg, "rustdoc"); err != nil {
		return domain.BuildConfig{}, err
	}

	targetDir, err := cfg.GetPath("build.target-dir")
	if err != nil {
		return domain.BuildConfig{}, err
	}
	if targetDir != nil {
		bc.TargetDir = targetDir.Val
	}
	return bc, nil
}

// tool returns the program configured under `build.<name>`, or name itself.
func tool(cfg ports.Config, name string) (string, error) {
	v, err := cfg.GetPath("build." + name)
	if err != nil {
		return "", err
	}
	if v == nil {
		return name, nil
	}
	return v.Val, nil
}

func scrapeTargetConfig(cfg ports.Config, triple string) (domain.TargetConfig, error) {
	key := "target." + triple
	tc := domain.TargetConfig{Overrides: make(map[string]domain.BuildOutput)}

	ar, err := cfg.GetPath(key + ".ar")
	if err != nil {
		return tc, err
	}
	if ar != nil {
		tc.Ar = ar.Val
	}

	linker, err := cfg.GetPath(key + ".linker")
	if err != nil {
		return tc, err
	}
	if linker != nil {
		tc.Linker = linker.Val
	}

	table, err := cfg.GetTable(key)
	if err != nil || table == nil {
		return tc, err
	}

	for _, lib := range sortedKeys(table.Val) {
		if slices.Contains(reservedTargetKeys, lib) {
			continue
		}
		out, err := scrapeLibOverride(cfg, key+"."+lib)
		if err != nil {
			return tc, err
		}
		tc.Overrides[lib] = out
	}
	return tc, nil
}

// scrapeLibOverride reads the link information injected for one library.
func scrapeLibOverride(cfg ports.Config, key string) (domain.BuildOutput, error) {
	var out domain.BuildOutput

	table, err := cfg.GetTable(key)
	if err != nil || table == nil {
		return out, err
	}

	for _, k := range sortedKeys(table.Val) {
		valueKey := key + "." + k
		switch k {
		case "rustc-flags":
			v, err := cfg.GetString(valueKey)
			if err != nil {
				return out, err
			}
			whence := fmt.Sprintf("`%s` (in %s)", valueKey, v.Definition)
			paths, links, err := domain.ParseRustcFlags(v.Val, whence)
			if err != nil {
				return out, err
			}
			out.LibraryPaths = append(out.LibraryPaths, paths...)
			out.LibraryLinks = append(out.LibraryLinks, links...)
		case "rustc-link-lib":
			list, err := cfg.GetList(valueKey)
			if err != nil {
				return out, err
			}
			for _, item := range list.Val {
				out.LibraryLinks = append(out.LibraryLinks, item.Val)
			}
		case "rustc-link-search":
			list, err := cfg.GetList(valueKey)
			if err != nil {
				return out, err
			}
			for _, item := range list.Val {
				out.LibraryPaths = append(out.LibraryPaths, filepath.FromSlash(item.Val))
			}
		case "rustc-cfg":
			list, err := cfg.GetList(valueKey)
			if err != nil {
				return out, err
			}
			for _, item := range list.Val {
				out.Cfgs = append(out.Cfgs, item.Val)
			}
		default:
			v, err := cfg.GetString(valueKey)
			if err != nil {
				return out, err
			}
			out.Metadata = append(out.Metadata, domain.MetadataEntry{Key: k, Value: v.Val})
		}
	}
	return out, nil
}

func sortedKeys(m map[string]domain.ConfigValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
