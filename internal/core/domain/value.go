package domain

import (
	"path/filepath"
	"sort"
)

// Definition records where a configuration value came from.
type Definition struct {
	// Path is the config file that defined the value.
	Path string
	// Env is the environment variable that defined the value.
	Env string
}

// DefinedInFile returns a definition for a config file.
func DefinedInFile(path string) Definition {
	return Definition{Path: path}
}

// DefinedInEnv returns a definition for an environment variable.
func DefinedInEnv(name string) Definition {
	return Definition{Env: name}
}

// String renders the definition for diagnostics.
func (d Definition) String() string {
	if d.Env != "" {
		return "environment variable `" + d.Env + "`"
	}
	return d.Path
}

// Root returns the directory relative paths in the value are resolved
// against: the directory containing the config directory for files, and cwd
// for environment variables.
func (d Definition) Root(cwd string) string {
	if d.Env != "" || d.Path == "" {
		return cwd
	}
	return filepath.Dir(filepath.Dir(d.Path))
}

// Value is a configuration value paired with its definition.
type Value[T any] struct {
	Val        T
	Definition Definition
}

// ConfigKind is the type of a raw configuration value.
type ConfigKind int

const (
	// ConfigString is a string value.
	ConfigString ConfigKind = iota + 1
	// ConfigInteger is an integer value.
	ConfigInteger
	// ConfigBoolean is a boolean value.
	ConfigBoolean
	// ConfigList is a list of strings.
	ConfigList
	// ConfigTable is a nested table.
	ConfigTable
)

// String returns the type name used in mismatch errors.
func (k ConfigKind) String() string {
	switch k {
	case ConfigString:
		return "string"
	case ConfigInteger:
		return "integer"
	case ConfigBoolean:
		return "boolean"
	case ConfigList:
		return "array"
	case ConfigTable:
		return "table"
	default:
		return "unknown"
	}
}

// ConfigValue is a raw, merged configuration value. Lists keep the
// definition of every element because they may be merged from several files.
type ConfigValue struct {
	Kind       ConfigKind
	Str        string
	Int        int64
	Bool       bool
	List       []Value[string]
	Table      map[string]ConfigValue
	Definition Definition
}

// Keys returns the sorted keys of a table value.
func (v ConfigValue) Keys() []string {
	keys := make([]string, 0, len(v.Table))
	for k := range v.Table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Plain converts the value into plain Go values (string, int64, bool,
// []any, map[string]any) for struct decoding.
func (v ConfigValue) Plain() any {
	switch v.Kind {
	case ConfigString:
		return v.Str
	case ConfigInteger:
		return v.Int
	case ConfigBoolean:
		return v.Bool
	case ConfigList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = item.Val
		}
		return out
	case ConfigTable:
		out := make(map[string]any, len(v.Table))
		for k, item := range v.Table {
			out[k] = item.Plain()
		}
		return out
	default:
		return nil
	}
}
