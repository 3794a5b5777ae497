// Package config discovers and merges forge configuration files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Loader implements ports.ConfigLoader over `.forge/config.toml` files.
type Loader struct {
	home string
	env  map[string]string
	host *domain.Host
}

// Option customises a Loader.
type Option func(*Loader)

// WithEnv replaces the process environment consulted for FORGE_* overrides.
func WithEnv(env map[string]string) Option {
	return func(l *Loader) { l.env = env }
}

// WithHost replaces host detection.
func WithHost(host domain.Host) Option {
	return func(l *Loader) { l.host = &host }
}

// NewLoader creates a loader that also reads the config file in home.
func NewLoader(home string, opts ...Option) *Loader {
	l := &Loader{home: home}
	for _, opt := range opts {
		opt(l)
	}
	if l.env == nil {
		l.env = environ()
	}
	return l
}

// Load merges the config files of cwd, every ancestor of cwd and the home
// directory. Files closer to cwd take precedence for scalar values; lists
// are concatenated, closest first.
func (l *Loader) Load(cwd string) (ports.Config, error) {
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve working directory")
	}

	root := domain.ConfigValue{Kind: domain.ConfigTable, Table: make(map[string]domain.ConfigValue)}
	for _, path := range l.discover(cwd) {
		table, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if err := merge(&root, table, ""); err != nil {
			return nil, err
		}
	}

	host := domain.DetectHost()
	if l.host != nil {
		host = *l.host
	}

	return &Config{root: root, env: l.env, cwd: cwd, home: l.home, host: host}, nil
}

func (l *Loader) discover(cwd string) []string {
	var files []string
	for dir := cwd; ; {
		candidate := filepath.Join(dir, domain.ConfigDirName, domain.ConfigFileName)
		if isFile(candidate) {
			files = append(files, candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if l.home != "" {
		candidate := filepath.Join(l.home, domain.ConfigFileName)
		if abs, err := filepath.Abs(candidate); err == nil && isFile(abs) && !slices.Contains(files, abs) {
			files = append(files, abs)
		}
	}
	return files
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readFile(path string) (domain.ConfigValue, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is discovered from the working directory
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ConfigValue{Kind: domain.ConfigTable}, nil
		}
		return domain.ConfigValue{}, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "file", path)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return domain.ConfigValue{}, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "file", path)
	}

	return convert(raw, "", domain.DefinedInFile(path))
}

func convert(raw any, key string, def domain.Definition) (domain.ConfigValue, error) {
	switch v := raw.(type) {
	case string:
		return domain.ConfigValue{Kind: domain.ConfigString, Str: v, Definition: def}, nil
	case int64:
		return domain.ConfigValue{Kind: domain.ConfigInteger, Int: v, Definition: def}, nil
	case bool:
		return domain.ConfigValue{Kind: domain.ConfigBoolean, Bool: v, Definition: def}, nil
	case []any:
		list := make([]domain.Value[string], 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return domain.ConfigValue{}, unsupported(key, item, def)
			}
			list = append(list, domain.Value[string]{Val: s, Definition: def})
		}
		return domain.ConfigValue{Kind: domain.ConfigList, List: list, Definition: def}, nil
	case map[string]any:
		table := make(map[string]domain.ConfigValue, len(v))
		for k, item := range v {
			child, err := convert(item, joinKey(key, k), def)
			if err != nil {
				return domain.ConfigValue{}, err
			}
			table[k] = child
		}
		return domain.ConfigValue{Kind: domain.ConfigTable, Table: table, Definition: def}, nil
	default:
		return domain.ConfigValue{}, unsupported(key, v, def)
	}
}

func unsupported(key string, v any, def domain.Definition) error {
	err := zerr.New(fmt.Sprintf("unsupported value type %T for `%s`", v, key))
	return zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "file", def.String())
}

// merge folds src into dst. Values already present in dst win, except that
// lists are concatenated and tables are merged recursively.
func merge(dst *domain.ConfigValue, src domain.ConfigValue, prefix string) error {
	if dst.Table == nil {
		dst.Table = make(map[string]domain.ConfigValue, len(src.Table))
	}
	for k, incoming := range src.Table {
		key := joinKey(prefix, k)
		existing, ok := dst.Table[k]
		if !ok {
			dst.Table[k] = incoming
			continue
		}
		if existing.Kind != incoming.Kind {
			return zerr.New(fmt.Sprintf("failed to merge key `%s` between %s and %s",
				key, existing.Definition, incoming.Definition))
		}
		switch existing.Kind {
		case domain.ConfigTable:
			if err := merge(&existing, incoming, key); err != nil {
				return err
			}
		case domain.ConfigList:
			existing.List = append(existing.List, incoming.List...)
		default:
			continue
		}
		dst.Table[k] = existing
	}
	return nil
}

func joinKey(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "." + k
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, domain.ConfigEnvPrefix) {
			env[k] = v
		}
	}
	return env
}
