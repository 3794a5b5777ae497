package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/forge/internal/core/domain"
)

func TestUnitStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     domain.UnitStatus
		isTerminal bool
	}{
		{"Pending", domain.UnitStatusPending, false},
		{"Running", domain.UnitStatusRunning, false},
		{"Completed", domain.UnitStatusCompleted, true},
		{"Failed", domain.UnitStatusFailed, true},
		{"Fresh", domain.UnitStatusFresh, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isTerminal, tt.status.IsTerminal())
		})
	}
}

func TestParseColorChoice(t *testing.T) {
	tests := []struct {
		input string
		want  domain.ColorChoice
		ok    bool
	}{
		{"", domain.ColorAuto, true},
		{"auto", domain.ColorAuto, true},
		{"always", domain.ColorAlways, true},
		{"never", domain.ColorNever, true},
		{"sometimes", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := domain.ParseColorChoice(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefinition_Root(t *testing.T) {
	file := domain.DefinedInFile("/work/project/.forge/config.toml")
	assert.Equal(t, "/work/project", file.Root("/cwd"))
	assert.Equal(t, "/work/project/.forge/config.toml", file.String())

	env := domain.DefinedInEnv("FORGE_BUILD_JOBS")
	assert.Equal(t, "/cwd", env.Root("/cwd"))
	assert.Equal(t, "environment variable `FORGE_BUILD_JOBS`", env.String())
}
