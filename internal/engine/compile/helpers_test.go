package compile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/config"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
)

const hostTriple = "x86_64-unknown-linux-gnu"

// writeConfig writes a config file below dir and returns its path.
func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	configDir := filepath.Join(dir, domain.ConfigDirName)
	require.NoError(t, os.MkdirAll(configDir, domain.DirPerm))
	path := filepath.Join(configDir, domain.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func loadConfig(t *testing.T, cwd string, env map[string]string) ports.Config {
	t.Helper()
	if env == nil {
		env = map[string]string{}
	}
	cfg, err := config.NewLoader("",
		config.WithEnv(env),
		config.WithHost(domain.Host{Triple: hostTriple, Parallelism: 8}),
	).Load(cwd)
	require.NoError(t, err)
	return cfg
}

func intPtr(n int) *int { return &n }
