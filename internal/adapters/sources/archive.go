package sources

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// unpackArchive extracts the .tar.gz at path into dest. Every entry must live
// below prefix; symlinks and other special entries are skipped.
func unpackArchive(path, dest, prefix string) error {
	// #nosec G304 -- path points into the registry archive cache
	f, err := os.Open(path)
	if err != nil {
		return zerr.Wrap(err, domain.ErrArchiveUnpackFailed.Error())
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return zerr.Wrap(err, domain.ErrArchiveUnpackFailed.Error())
	}
	defer func() { _ = gz.Close() }()

	cleanDest := filepath.Clean(dest)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return zerr.Wrap(err, domain.ErrArchiveUnpackFailed.Error())
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		if name != prefix && !strings.HasPrefix(name, prefix+"/") {
			return zerr.With(zerr.New("archive entry outside of package directory"), "entry", hdr.Name)
		}
		target := filepath.Join(cleanDest, filepath.FromSlash(name))
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return zerr.With(zerr.New("archive entry escapes destination"), "entry", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, domain.DirPerm); err != nil {
				return zerr.Wrap(err, domain.ErrArchiveUnpackFailed.Error())
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		}
	}
}

func writeEntry(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrArchiveUnpackFailed.Error())
	}

	// #nosec G304 -- target was checked to stay below the destination
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm|0o600)
	if err != nil {
		return zerr.Wrap(err, domain.ErrArchiveUnpackFailed.Error())
	}

	//nolint:gosec // archives come from the configured registry and are checksummed
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return zerr.Wrap(err, domain.ErrArchiveUnpackFailed.Error())
	}
	if err := out.Close(); err != nil {
		return zerr.Wrap(err, domain.ErrArchiveUnpackFailed.Error())
	}
	return nil
}
