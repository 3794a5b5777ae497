package manifest

import (
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Manifest represents the structure of a forge.yaml file.
type Manifest struct {
	Package           PackageDTO            `yaml:"package"`
	Dependencies      DependencyTable       `yaml:"dependencies"`
	DevDependencies   DependencyTable       `yaml:"dev-dependencies"`
	BuildDependencies DependencyTable       `yaml:"build-dependencies"`
	Features          map[string][]string   `yaml:"features"`
	Lib               *TargetDTO            `yaml:"lib"`
	Bin               []TargetDTO           `yaml:"bin"`
	Example           []TargetDTO           `yaml:"example"`
	Test              []TargetDTO           `yaml:"test"`
	Bench             []TargetDTO           `yaml:"bench"`
	Profile           map[string]ProfileDTO `yaml:"profile"`
}

// PackageDTO is the `package` section.
type PackageDTO struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Links   string `yaml:"links"`
	Build   string `yaml:"build"`
}

// TargetDTO describes one target section.
type TargetDTO struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Test    *bool  `yaml:"test"`
	Bench   *bool  `yaml:"bench"`
	Doc     *bool  `yaml:"doc"`
	Doctest *bool  `yaml:"doctest"`
	Harness *bool  `yaml:"harness"`
}

// ProfileDTO overrides fields of a profile.
type ProfileDTO struct {
	OptLevel        *int     `yaml:"opt-level"`
	Debug           *bool    `yaml:"debug"`
	DebugAssertions *bool    `yaml:"debug-assertions"`
	CodegenUnits    *int     `yaml:"codegen-units"`
	RustcArgs       []string `yaml:"rustc-args"`
	RustdocArgs     []string `yaml:"rustdoc-args"`
}

// DependencyDTO is a dependency entry. The shorthand `name: "1.0"` sets only
// the version requirement.
type DependencyDTO struct {
	Version         string   `yaml:"version"`
	Path            string   `yaml:"path"`
	Registry        string   `yaml:"registry"`
	Features        []string `yaml:"features"`
	Optional        bool     `yaml:"optional"`
	DefaultFeatures *bool    `yaml:"default-features"`
}

// UnmarshalYAML accepts either a requirement string or a mapping.
func (d *DependencyDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		d.Version = node.Value
		return nil
	}

	type plain DependencyDTO
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = DependencyDTO(p)
	return nil
}

// NamedDependency is one entry of a dependency table.
type NamedDependency struct {
	Name string
	DependencyDTO
}

// DependencyTable keeps dependencies in declaration order.
type DependencyTable []NamedDependency

// UnmarshalYAML decodes a mapping while preserving key order.
func (t *DependencyTable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return zerr.With(zerr.New("dependency table must be a mapping"), "line", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		var dep NamedDependency
		dep.Name = node.Content[i].Value
		if err := node.Content[i+1].Decode(&dep.DependencyDTO); err != nil {
			return zerr.With(err, "dependency", dep.Name)
		}
		*t = append(*t, dep)
	}
	return nil
}

var (
	topLevelKeys = keySet("package", "dependencies", "dev-dependencies", "build-dependencies",
		"features", "lib", "bin", "example", "test", "bench", "profile")
	packageKeys    = keySet("name", "version", "links", "build")
	targetKeys     = keySet("name", "path", "test", "bench", "doc", "doctest", "harness")
	profileNames   = keySet("dev", "release", "test", "bench", "doc")
	profileKeys    = keySet("opt-level", "debug", "debug-assertions", "codegen-units", "rustc-args", "rustdoc-args")
	dependencyKeys = keySet("version", "path", "registry", "features", "optional", "default-features")
)

func keySet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// unusedKeys walks the raw document and returns the dotted paths of keys the
// manifest schema does not know.
func unusedKeys(doc *yaml.Node) []string {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil
	}

	var unused []string
	forEachKey(doc, func(key string, value *yaml.Node) {
		if _, ok := topLevelKeys[key]; !ok {
			unused = append(unused, key)
			return
		}

		switch key {
		case "package":
			unused = append(unused, unknownIn(value, key, packageKeys)...)
		case "lib":
			unused = append(unused, unknownIn(value, key, targetKeys)...)
		case "bin", "example", "test", "bench":
			for _, item := range value.Content {
				unused = append(unused, unknownIn(item, key, targetKeys)...)
			}
		case "dependencies", "dev-dependencies", "build-dependencies":
			forEachKey(value, func(name string, dep *yaml.Node) {
				unused = append(unused, unknownIn(dep, key+"."+name, dependencyKeys)...)
			})
		case "profile":
			forEachKey(value, func(name string, profile *yaml.Node) {
				if _, ok := profileNames[name]; !ok {
					unused = append(unused, key+"."+name)
					return
				}
				unused = append(unused, unknownIn(profile, key+"."+name, profileKeys)...)
			})
		}
	})
	return unused
}

func unknownIn(node *yaml.Node, prefix string, known map[string]struct{}) []string {
	var unused []string
	forEachKey(node, func(key string, _ *yaml.Node) {
		if _, ok := known[key]; !ok {
			unused = append(unused, prefix+"."+key)
		}
	})
	return unused
}

func forEachKey(node *yaml.Node, fn func(key string, value *yaml.Node)) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		fn(node.Content[i].Value, node.Content[i+1])
	}
}
