package fs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes fingerprints of compile units.
type Hasher struct {
	walker *Walker
}

// NewHasher creates a new Hasher.
func NewHasher(walker *Walker) *Hasher {
	return &Hasher{walker: walker}
}

// ComputeFileHash computes the XXHash of a file's content.
func (h *Hasher) ComputeFileHash(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return hasher.Sum64(), nil
}

// ComputeUnitHash computes a single hash over the unit key, the compiler
// invocation, the environment, the dependency hashes and every source file.
func (h *Hasher) ComputeUnitHash(in *domain.UnitHashInput) (string, error) {
	hasher := xxhash.New()

	writeField(hasher, in.Key)
	writeList(hasher, in.Args)
	h.hashEnvironment(in.Env, hasher)
	writeList(hasher, in.DepHashes)

	if in.SrcRoot != "" {
		if err := h.hashSources(in.SrcRoot, in.Ignores, hasher); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

func writeField(w io.Writer, s string) {
	_, _ = io.WriteString(w, s)
	_, _ = w.Write([]byte{0})
}

func writeList(w io.Writer, items []string) {
	for _, item := range items {
		writeField(w, item)
	}
	_, _ = w.Write([]byte{0}) // Section separator
}

// hashEnvironment hashes environment variables in a deterministic order.
func (h *Hasher) hashEnvironment(env map[string]string, hasher *xxhash.Digest) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		_, _ = hasher.WriteString(k)
		_, _ = hasher.Write([]byte{'='})
		_, _ = hasher.WriteString(env[k])
		_, _ = hasher.Write([]byte{0})
	}
	_, _ = hasher.Write([]byte{0})
}

// hashSources hashes the files below root by their root-relative path, so
// moving a package does not invalidate its fingerprints.
func (h *Hasher) hashSources(root string, ignores []string, hasher io.Writer) error {
	if _, err := os.Stat(root); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to stat source root"), "path", root)
	}

	for path := range h.walker.WalkFiles(root, ignores) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		writeField(hasher, filepath.ToSlash(rel))

		hash, err := h.ComputeFileHash(path)
		if err != nil {
			return err
		}
		if err := binary.Write(hasher, binary.LittleEndian, hash); err != nil {
			return zerr.Wrap(err, "failed to write hash to digest")
		}
	}
	return nil
}
