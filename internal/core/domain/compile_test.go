package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/forge/internal/core/domain"
)

func TestNewCompileFilter(t *testing.T) {
	assert.True(t, domain.NewCompileFilter(false, nil, nil, nil, nil).IsEverything())
	assert.True(t, domain.NewCompileFilter(true, nil, nil, nil, nil).IsSpecific())
	assert.True(t, domain.NewCompileFilter(false, []string{"a"}, nil, nil, nil).IsSpecific())
	assert.True(t, domain.NewCompileFilter(false, nil, nil, nil, []string{"b"}).IsSpecific())

	only := domain.FilterOnly(false, nil, nil, nil, nil)
	assert.True(t, only.IsSpecific())
	assert.False(t, only.IsEverything())
}

func TestCompileFilter_Matches(t *testing.T) {
	lib := domain.NewLibTarget("foo", "src/lib.rs")
	bin := domain.NewBinTarget("foo", "src/main.rs")
	example := domain.NewExampleTarget("demo", "examples/demo.rs")
	test := domain.NewTestTarget("it", "tests/it.rs")
	bench := domain.NewBenchTarget("speed", "benches/speed.rs")
	build := domain.NewCustomBuildTarget("build-script-build", "build.rs")

	filter := domain.FilterOnly(true, []string{"foo"}, []string{"it"}, nil, []string{"other"})

	tests := []struct {
		name   string
		target domain.Target
		want   bool
	}{
		{"Lib", lib, true},
		{"Bin", bin, true},
		{"Example", example, false},
		{"Test", test, true},
		{"Bench", bench, false},
		{"CustomBuild", build, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filter.Matches(&tt.target))
		})
	}

	everything := domain.FilterEverything()
	assert.True(t, everything.Matches(&example))
	assert.True(t, everything.Matches(&lib))
	assert.False(t, everything.Matches(&build))
}

func TestCompileMode_String(t *testing.T) {
	assert.Equal(t, "build", domain.ModeBuild().String())
	assert.Equal(t, "test", domain.ModeTest().String())
	assert.Equal(t, "bench", domain.ModeBench().String())
	assert.Equal(t, "doc", domain.ModeDoc(false).String())
	assert.Equal(t, "doc(deps)", domain.ModeDoc(true).String())
	assert.True(t, domain.ModeDoc(true).IsDoc())
	assert.False(t, domain.ModeBuild().IsDoc())
}

func TestTarget_Predicates(t *testing.T) {
	lib := domain.NewLibTarget("my-lib", "src/lib.rs")
	assert.True(t, lib.Doctested())
	assert.Equal(t, "my_lib", lib.CrateName())
	assert.Equal(t, "lib `my-lib`", lib.String())

	bin := domain.NewBinTarget("tool", "src/main.rs")
	bin.Doctest = true
	assert.False(t, bin.Doctested(), "only libraries are doctested")

	example := domain.NewExampleTarget("demo", "examples/demo.rs")
	assert.True(t, example.Tested())
	assert.False(t, example.Benched())
	assert.False(t, example.Documented())
}
