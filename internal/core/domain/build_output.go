package domain

import (
	"bufio"
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

// BuildScriptPrefix marks the stdout lines of a build script that forge interprets.
const BuildScriptPrefix = "forge:"

// MetadataEntry is a free-form key/value a library advertises to its dependents.
type MetadataEntry struct {
	Key   string
	Value string
}

// BuildOutput is the link information of one library, either produced by its
// build script or injected through configuration.
type BuildOutput struct {
	LibraryPaths   []string
	LibraryLinks   []string
	Cfgs           []string
	Metadata       []MetadataEntry
	RerunIfChanged []string
}

// Merge appends the contents of other.
func (o *BuildOutput) Merge(other BuildOutput) {
	o.LibraryPaths = append(o.LibraryPaths, other.LibraryPaths...)
	o.LibraryLinks = append(o.LibraryLinks, other.LibraryLinks...)
	o.Cfgs = append(o.Cfgs, other.Cfgs...)
	o.Metadata = append(o.Metadata, other.Metadata...)
	o.RerunIfChanged = append(o.RerunIfChanged, other.RerunIfChanged...)
}

// ParseRustcFlags parses a `rustc-flags` value. Only `-L <path>` and
// `-l <name>` are accepted, separated or attached (`-L/usr/lib`). whence
// describes where the value came from and is included in errors.
func ParseRustcFlags(value, whence string) (paths, links []string, err error) {
	tokens := strings.Fields(value)
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		if len(token) < 2 || (token[:2] != "-L" && token[:2] != "-l") {
			return nil, nil, zerr.With(
				zerr.New(fmt.Sprintf("Only `-l` and `-L` flags are allowed in %s: `%s`", whence, token)),
				"flags", value,
			)
		}

		flag, arg := token[:2], token[2:]
		if arg == "" {
			if i+1 >= len(tokens) {
				return nil, nil, zerr.With(
					zerr.New(fmt.Sprintf("Flag in rustc-flags has no value in %s: `%s`", whence, token)),
					"flags", value,
				)
			}
			i++
			arg = tokens[i]
		}

		if flag == "-L" {
			paths = append(paths, arg)
		} else {
			links = append(links, arg)
		}
	}
	return paths, links, nil
}

// ParseBuildScriptOutput interprets the `forge:key=value` lines printed by a
// build script. Other lines are ignored.
func ParseBuildScriptOutput(output, whence string) (BuildOutput, error) {
	var out BuildOutput
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		rest, ok := strings.CutPrefix(line, BuildScriptPrefix)
		if !ok {
			continue
		}
		key, value, ok := strings.Cut(rest, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch key {
		case "rustc-flags":
			paths, links, err := ParseRustcFlags(value, whence)
			if err != nil {
				return BuildOutput{}, err
			}
			out.LibraryPaths = append(out.LibraryPaths, paths...)
			out.LibraryLinks = append(out.LibraryLinks, links...)
		case "rustc-link-lib":
			out.LibraryLinks = append(out.LibraryLinks, value)
		case "rustc-link-search":
			out.LibraryPaths = append(out.LibraryPaths, value)
		case "rustc-cfg":
			out.Cfgs = append(out.Cfgs, value)
		case "rerun-if-changed":
			out.RerunIfChanged = append(out.RerunIfChanged, value)
		default:
			out.Metadata = append(out.Metadata, MetadataEntry{Key: key, Value: value})
		}
	}
	if err := scanner.Err(); err != nil {
		return BuildOutput{}, zerr.Wrap(err, "failed to read build script output")
	}
	return out, nil
}
