package sources

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// indexEntry is the registry's JSON description of one package.
type indexEntry struct {
	Name     string         `json:"name"`
	Versions []indexVersion `json:"versions"`
}

type indexVersion struct {
	Version      string              `json:"version"`
	Checksum     string              `json:"checksum"`
	Yanked       bool                `json:"yanked"`
	Dependencies []indexDependency   `json:"dependencies"`
	Features     map[string][]string `json:"features"`
}

type indexDependency struct {
	Name            string   `json:"name"`
	Req             string   `json:"req"`
	Kind            string   `json:"kind"`
	Optional        bool     `json:"optional"`
	Features        []string `json:"features"`
	DefaultFeatures *bool    `json:"default_features"`
	Registry        string   `json:"registry,omitempty"`
}

func (s *RegistrySource) indexURL(name string) string {
	return s.index + "/api/v1/packages/" + url.PathEscape(name)
}

func (s *RegistrySource) downloadURL(id domain.PackageID) string {
	return s.indexURL(id.Name) + "/" + url.PathEscape(id.Version) + "/download"
}

func (s *RegistrySource) cachePath(name string) string {
	return filepath.Join(domain.RegistryIndexCachePath(s.home, s.id), name+".json")
}

// fetchIndex returns the index entry of name, from memory, the on-disk cache
// when offline, or the registry.
func (s *RegistrySource) fetchIndex(ctx context.Context, name string) (*indexEntry, error) {
	s.mu.Lock()
	entry, ok := s.entries[name]
	s.mu.Unlock()
	if ok {
		return entry, nil
	}

	var data []byte
	var err error
	if s.offline {
		data, err = s.loadFromCache(name)
	} else {
		data, err = s.queryRegistry(ctx, name)
	}
	if err != nil {
		return nil, err
	}

	entry = &indexEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRegistryParseFailed.Error()), "package", name)
	}

	if !s.offline {
		if err := atomicWriteFile(s.cachePath(name), data); err != nil {
			s.logger.Debug("failed to cache index entry for `" + name + "`: " + err.Error())
		}
	}

	s.mu.Lock()
	s.entries[name] = entry
	s.mu.Unlock()
	return entry, nil
}

func (s *RegistrySource) loadFromCache(name string) ([]byte, error) {
	data, err := os.ReadFile(s.cachePath(name))
	if err != nil {
		return nil, zerr.With(domain.ErrRegistryOffline, "package", name)
	}
	return data, nil
}

func (s *RegistrySource) queryRegistry(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.get(ctx, s.indexURL(name))
	if err != nil {
		return nil, zerr.With(err, "package", name)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRegistryRequestFailed.Error()), "package", name)
	}
	return body, nil
}

// get performs a GET request, mapping 404 to ErrPackageNotFound and any
// other non-200 status to ErrRegistryRequestFailed.
func (s *RegistrySource) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrRegistryRequestFailed.Error())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRegistryRequestFailed.Error()), "url", target)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, zerr.With(domain.ErrPackageNotFound, "url", target)
	default:
		_ = resp.Body.Close()
		apiErr := zerr.With(domain.ErrRegistryRequestFailed, "status_code", resp.StatusCode)
		return nil, zerr.With(apiErr, "url", target)
	}
}

// atomicWriteFile writes data to a file atomically by writing to a temp file and renaming it.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
