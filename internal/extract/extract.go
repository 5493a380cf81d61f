// Package extract unpacks an uploaded Spotify export zip into a fresh
// temporary directory and locates the data files inside it. Exports
// often nest their JSON files one or two directories deep, so the
// directory actually containing the playlist catalog is returned
// separately from the extraction root.
package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"spotify-export-stats/internal/apperr"
)

const (
	// maxFileBytes bounds a single extracted file; real export files top
	// out in the tens of megabytes.
	maxFileBytes int64 = 100 << 20

	// maxTotalBytes bounds the whole archive after decompression.
	maxTotalBytes int64 = 500 << 20
)

// Unpack extracts an uploaded zip into a new directory under the OS temp
// dir. It returns the extraction root (delete this to clean up) and the
// directory containing the playlist catalog. The caller owns the root;
// on error nothing is left on disk.
func Unpack(data []byte) (extractRoot, dataDir string, err error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", "", fmt.Errorf("%w: not a zip archive", apperr.ErrBadUpload)
	}

	extractRoot = filepath.Join(os.TempDir(), "spotify-export-"+uuid.NewString())
	if err := os.MkdirAll(extractRoot, 0o700); err != nil {
		return "", "", fmt.Errorf("creating extraction dir: %w", err)
	}

	cleanup := func() {
		_ = os.RemoveAll(extractRoot)
	}

	var total int64
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		dest, err := safePath(extractRoot, f.Name)
		if err != nil {
			cleanup()
			return "", "", err
		}

		n, err := extractFile(f, dest)
		if err != nil {
			cleanup()
			return "", "", err
		}
		total += n
		if total > maxTotalBytes {
			cleanup()
			return "", "", fmt.Errorf("%w: archive too large", apperr.ErrBadUpload)
		}
	}

	dataDir, err = findDataDir(extractRoot)
	if err != nil {
		cleanup()
		return "", "", err
	}

	return extractRoot, dataDir, nil
}

// safePath joins an archive entry name under root, rejecting absolute
// paths and traversal outside the root.
func safePath(root, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: unsafe path %q in archive", apperr.ErrBadUpload, name)
	}
	return filepath.Join(root, cleaned), nil
}

func extractFile(f *zip.File, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return 0, fmt.Errorf("creating directory for %s: %w", f.Name, err)
	}

	src, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: opening %s: %v", apperr.ErrBadUpload, f.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", dest, err)
	}
	defer out.Close()

	// Copy one byte past the limit so over-large files are detected
	// rather than silently truncated.
	n, err := io.Copy(out, io.LimitReader(src, maxFileBytes+1))
	if err != nil {
		return n, fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	if n > maxFileBytes {
		return n, fmt.Errorf("%w: %s exceeds size limit", apperr.ErrBadUpload, f.Name)
	}
	return n, nil
}

// findDataDir walks the extraction root looking for the playlist
// catalog and returns its directory.
func findDataDir(root string) (string, error) {
	var dataDir string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == "Playlist1.json" || name == "Playlist1.json.json" {
			dataDir = filepath.Dir(path)
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return "", fmt.Errorf("scanning extracted files: %w", err)
	}
	if dataDir == "" {
		return "", fmt.Errorf("%w: no playlist catalog in archive", apperr.ErrBadUpload)
	}
	return dataDir, nil
}
