package config

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// DefaultRegistryIndex is the registry used when `registry.index` is unset.
	DefaultRegistryIndex = domain.DefaultRegistryIndex

	// DefaultRegistryTimeout bounds every registry request.
	DefaultRegistryTimeout = 30 * time.Second
)

// RegistrySettings is the decoded `[registry]` table.
type RegistrySettings struct {
	Index   string        `mapstructure:"index"`
	Timeout time.Duration `mapstructure:"timeout"`
	Offline bool          `mapstructure:"offline"`
}

// Registry decodes the `[registry]` table of cfg, applying defaults and
// FORGE_REGISTRY_* overrides.
func Registry(cfg ports.Config) (RegistrySettings, error) {
	settings := RegistrySettings{Index: DefaultRegistryIndex, Timeout: DefaultRegistryTimeout}

	table, err := cfg.GetTable("registry")
	if err != nil {
		return settings, err
	}
	if table != nil {
		raw := make(map[string]any, len(table.Val))
		for k, v := range table.Val {
			raw[k] = v.Plain()
		}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
			ErrorUnused: true,
			Result:      &settings,
		})
		if err != nil {
			return settings, zerr.Wrap(err, "failed to create registry decoder")
		}
		if err := decoder.Decode(raw); err != nil {
			return settings, zerr.With(zerr.Wrap(err, "invalid `registry` table"), "file", table.Definition.String())
		}
	}

	index, err := cfg.GetString("registry.index")
	if err != nil {
		return settings, err
	}
	if index != nil {
		settings.Index = index.Val
	}

	offline, err := cfg.GetBool("registry.offline")
	if err != nil {
		return settings, err
	}
	if offline != nil {
		settings.Offline = offline.Val
	}

	return settings, nil
}
