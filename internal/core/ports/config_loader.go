package ports

import "go.trai.ch/forge/internal/core/domain"

// Config exposes merged configuration values. Every getter returns nil when
// the key is not set, and an error when it is set with the wrong type.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type Config interface {
	GetI64(key string) (*domain.Value[int64], error)
	GetString(key string) (*domain.Value[string], error)
	GetBool(key string) (*domain.Value[bool], error)
	// GetPath returns a string value; values containing a path separator are
	// resolved against the root of the definition.
	GetPath(key string) (*domain.Value[string], error)
	// GetList returns a list whose elements keep their own definitions.
	GetList(key string) (*domain.Value[[]domain.Value[string]], error)
	GetTable(key string) (*domain.Value[map[string]domain.ConfigValue], error)

	// Cwd returns the directory the configuration was discovered from.
	Cwd() string
	// Home returns the forge home directory.
	Home() string
	// Host returns the host description detected when the configuration was loaded.
	Host() domain.Host
}

// ConfigLoader discovers and merges configuration files.
type ConfigLoader interface {
	// Load reads the config files of cwd, its ancestors and the home directory.
	Load(cwd string) (Config, error)
}
