package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// Config is the merged configuration of one working directory.
type Config struct {
	root domain.ConfigValue
	env  map[string]string
	cwd  string
	home string
	host domain.Host
}

var envReplacer = strings.NewReplacer(".", "_", "-", "_")

// EnvKey returns the environment variable that overrides key.
func EnvKey(key string) string {
	return domain.ConfigEnvPrefix + strings.ToUpper(envReplacer.Replace(key))
}

// Cwd returns the directory the configuration was loaded for.
func (c *Config) Cwd() string { return c.cwd }

// Home returns the forge home directory.
func (c *Config) Home() string { return c.home }

// Host returns the detected host.
func (c *Config) Host() domain.Host { return c.host }

func (c *Config) lookup(key string) (domain.ConfigValue, bool) {
	current := c.root
	for _, part := range strings.Split(key, ".") {
		if current.Kind != domain.ConfigTable {
			return domain.ConfigValue{}, false
		}
		next, ok := current.Table[part]
		if !ok {
			return domain.ConfigValue{}, false
		}
		current = next
	}
	return current, true
}

func (c *Config) fromEnv(key string) (string, domain.Definition, bool) {
	name := EnvKey(key)
	v, ok := c.env[name]
	return v, domain.DefinedInEnv(name), ok
}

// GetString returns a string value.
func (c *Config) GetString(key string) (*domain.Value[string], error) {
	if v, def, ok := c.fromEnv(key); ok {
		return &domain.Value[string]{Val: v, Definition: def}, nil
	}
	v, ok := c.lookup(key)
	if !ok {
		return nil, nil
	}
	if v.Kind != domain.ConfigString {
		return nil, mismatch(key, domain.ConfigString, v)
	}
	return &domain.Value[string]{Val: v.Str, Definition: v.Definition}, nil
}

// GetI64 returns an integer value.
func (c *Config) GetI64(key string) (*domain.Value[int64], error) {
	if v, def, ok := c.fromEnv(key); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, zerr.With(zerr.New(fmt.Sprintf("%s could not be parsed as an integer", def)), "value", v)
		}
		return &domain.Value[int64]{Val: n, Definition: def}, nil
	}
	v, ok := c.lookup(key)
	if !ok {
		return nil, nil
	}
	if v.Kind != domain.ConfigInteger {
		return nil, mismatch(key, domain.ConfigInteger, v)
	}
	return &domain.Value[int64]{Val: v.Int, Definition: v.Definition}, nil
}

// GetBool returns a boolean value.
func (c *Config) GetBool(key string) (*domain.Value[bool], error) {
	if v, def, ok := c.fromEnv(key); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, zerr.With(zerr.New(fmt.Sprintf("%s could not be parsed as a boolean", def)), "value", v)
		}
		return &domain.Value[bool]{Val: b, Definition: def}, nil
	}
	v, ok := c.lookup(key)
	if !ok {
		return nil, nil
	}
	if v.Kind != domain.ConfigBoolean {
		return nil, mismatch(key, domain.ConfigBoolean, v)
	}
	return &domain.Value[bool]{Val: v.Bool, Definition: v.Definition}, nil
}

// GetPath returns a string value. A value containing a path separator is a
// path relative to the root of its definition; anything else, such as a
// tool name, is returned unchanged.
func (c *Config) GetPath(key string) (*domain.Value[string], error) {
	v, err := c.GetString(key)
	if err != nil || v == nil {
		return v, err
	}
	if strings.ContainsRune(v.Val, '/') || strings.ContainsRune(v.Val, os.PathSeparator) {
		p := filepath.FromSlash(v.Val)
		if !filepath.IsAbs(p) {
			p = filepath.Join(v.Definition.Root(c.cwd), p)
		}
		v.Val = p
	}
	return v, nil
}

// GetList returns a list of strings. Lists cannot be set from the environment.
func (c *Config) GetList(key string) (*domain.Value[[]domain.Value[string]], error) {
	v, ok := c.lookup(key)
	if !ok {
		return nil, nil
	}
	if v.Kind != domain.ConfigList {
		return nil, mismatch(key, domain.ConfigList, v)
	}
	return &domain.Value[[]domain.Value[string]]{Val: v.List, Definition: v.Definition}, nil
}

// GetTable returns a table.
func (c *Config) GetTable(key string) (*domain.Value[map[string]domain.ConfigValue], error) {
	v, ok := c.lookup(key)
	if !ok {
		return nil, nil
	}
	if v.Kind != domain.ConfigTable {
		return nil, mismatch(key, domain.ConfigTable, v)
	}
	return &domain.Value[map[string]domain.ConfigValue]{Val: v.Table, Definition: v.Definition}, nil
}

func mismatch(key string, want domain.ConfigKind, got domain.ConfigValue) error {
	err := zerr.New(fmt.Sprintf("expected %s, but found a %s for `%s` in %s", want, got.Kind, key, got.Definition))
	return zerr.With(err, "key", key)
}
