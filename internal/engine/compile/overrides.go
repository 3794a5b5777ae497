package compile

import (
	"context"
	"fmt"
	"path/filepath"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/registry"
	"go.trai.ch/zerr"
)

// addOverrides registers a recursive path source for every entry of the
// `paths` config list. Relative entries are resolved against the directory
// holding the config directory that defined them.
func addOverrides(
	ctx context.Context,
	reg *registry.Registry,
	rootDir string,
	cfg ports.Config,
	loader ports.SourceLoader,
) error {
	paths, err := cfg.GetList("paths")
	if err != nil {
		return err
	}
	if paths == nil {
		return nil
	}

	rootDir = filepath.Clean(rootDir)
	for _, entry := range paths.Val {
		path := filepath.FromSlash(entry.Val)
		if !filepath.IsAbs(path) {
			path = filepath.Join(entry.Definition.Root(cfg.Cwd()), path)
		}
		path = filepath.Clean(path)

		// A package never overrides itself.
		if path == rootDir {
			continue
		}

		id, err := domain.NewPathSourceID(path)
		if err != nil {
			return err
		}

		src, err := loader.Recursive(path, id)
		if err == nil {
			err = src.Update(ctx)
		}
		if err != nil {
			return zerr.Wrap(err, fmt.Sprintf("failed to update path override `%s` (defined in `%s`)", path, entry.Definition))
		}

		reg.AddOverride(id, src)
	}
	return nil
}
