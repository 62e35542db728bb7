// Package artifacts manages the ephemeral files produced for each request:
// the stored original, the processed image and both histogram charts.
//
// Every request gets a fresh random id shared by its four artifacts. Writes go
// through a temporary file and a rename so readers never observe a partial
// file. A Janitor removes artifacts once they outlive their TTL.
package artifacts

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siroksgribogami/web-3/internal/histogram"
	"github.com/siroksgribogami/web-3/internal/imaging"
)

// ErrWrite is matched by every failure to store an artifact.
var ErrWrite = errors.New("artifact write failed")

// WriteError reports that an artifact could not be stored.
type WriteError struct {
	Name string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write artifact %s: %v", e.Name, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrWrite.
func (e *WriteError) Is(target error) bool { return target == ErrWrite }

// Artifact name prefixes. Only files carrying one of these are ever swept.
const (
	prefixOriginal      = "orig_"
	prefixProcessed     = "proc_"
	prefixHistOriginal  = "hist_orig_"
	prefixHistProcessed = "hist_proc_"
	tempPattern         = ".artifact-*.tmp"
)

// Set names the artifacts of one request.
type Set struct {
	ID            string
	Original      string
	Processed     string
	HistOriginal  string
	HistProcessed string
}

// NewID returns a random 32-character hex request id.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewSet returns artifact names for a fresh request id. Images use the given
// format's extension; histograms are always PNG.
func NewSet(format imaging.Format) Set {
	id := NewID()
	return Set{
		ID:            id,
		Original:      prefixOriginal + id + format.Ext(),
		Processed:     prefixProcessed + id + format.Ext(),
		HistOriginal:  prefixHistOriginal + id + imaging.PNG.Ext(),
		HistProcessed: prefixHistProcessed + id + imaging.PNG.Ext(),
	}
}

// Store writes artifacts into a directory served under a URL prefix.
type Store struct {
	dir         string
	urlPrefix   string
	jpegQuality int
}

// NewStore creates dir if needed and returns a store rooted there.
func NewStore(dir, urlPrefix string, jpegQuality int) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if urlPrefix == "" {
		urlPrefix = "/static"
	}
	return &Store{
		dir:         dir,
		urlPrefix:   "/" + strings.Trim(urlPrefix, "/"),
		jpegQuality: jpegQuality,
	}, nil
}

// Dir returns the directory artifacts are written to.
func (s *Store) Dir() string { return s.dir }

// Path returns the file system path of an artifact.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// URL returns the public URL of an artifact.
func (s *Store) URL(name string) string {
	return path.Join(s.urlPrefix, filepath.Base(name))
}

// WriteImage encodes img into the named artifact.
//
// Parameters:
//   - name: Artifact file name; directory components are stripped.
//   - img: The raster to store.
//   - f: Output format. JPEG uses the store's quality.
//
// Returns:
//   - error: A *WriteError matching ErrWrite if encoding or any file
//     operation fails.
//
// The image is written to a temporary file in the store directory and renamed
// into place, so readers never observe a partial artifact.
func (s *Store) WriteImage(name string, img image.Image, f imaging.Format) error {
	tmpFile, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return &WriteError{Name: name, Err: err}
	}
	cleanupTemp := true
	defer func() {
		_ = tmpFile.Close()
		if cleanupTemp {
			_ = os.Remove(tmpFile.Name())
		}
	}()

	if err := imaging.Encode(tmpFile, img, f, s.jpegQuality); err != nil {
		return &WriteError{Name: name, Err: err}
	}
	if err := tmpFile.Close(); err != nil {
		return &WriteError{Name: name, Err: err}
	}
	if err := os.Rename(tmpFile.Name(), s.Path(name)); err != nil {
		return &WriteError{Name: name, Err: err}
	}

	cleanupTemp = false
	return nil
}

// WriteHistogram renders the histogram chart of img into the named artifact.
// Failures match both ErrWrite and histogram.ErrIO.
func (s *Store) WriteHistogram(name string, img image.Image, title string) error {
	if err := histogram.RenderFile(img, s.Path(name), title); err != nil {
		return &WriteError{Name: name, Err: err}
	}
	return nil
}

// WriteSet stores the four artifacts of one request: both images in the
// format of their names and the histogram charts of each.
//
// Parameters:
//   - set: Names from NewSet.
//   - original, processed: The rasters before and after modulation.
//   - origTitle, procTitle: Histogram chart titles.
//
// Returns:
//   - error: The first *WriteError. Artifacts of set written before the
//     failure are removed, so a failed request leaves nothing behind.
func (s *Store) WriteSet(set Set, original, processed image.Image, origTitle, procTitle string) error {
	format := imaging.JPEG
	if strings.HasSuffix(set.Original, imaging.PNG.Ext()) {
		format = imaging.PNG
	}

	steps := []struct {
		name  string
		write func() error
	}{
		{set.Original, func() error { return s.WriteImage(set.Original, original, format) }},
		{set.Processed, func() error { return s.WriteImage(set.Processed, processed, format) }},
		{set.HistOriginal, func() error { return s.WriteHistogram(set.HistOriginal, original, origTitle) }},
		{set.HistProcessed, func() error { return s.WriteHistogram(set.HistProcessed, processed, procTitle) }},
	}

	var written []string
	for _, step := range steps {
		if err := step.write(); err != nil {
			s.Remove(written...)
			return err
		}
		written = append(written, step.name)
	}
	return nil
}

// Remove deletes the named artifacts, ignoring ones that do not exist.
func (s *Store) Remove(names ...string) {
	for _, name := range names {
		if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove artifact %s: %v", name, err)
		}
	}
}

// Writable reports whether a file can currently be created in the store.
func (s *Store) Writable() bool {
	f, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return false
	}
	_ = f.Close()
	return os.Remove(f.Name()) == nil
}

// Sweep removes artifacts and stale temporary files last modified before
// now-ttl. It returns the number of files removed; the error joins every
// failed removal.
func (s *Store) Sweep(now time.Time, ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list artifacts: %w", err)
	}

	cutoff := now.Add(-ttl)
	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !isSweepable(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed concurrently.
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func isSweepable(name string) bool {
	for _, prefix := range []string{prefixOriginal, prefixProcessed, prefixHistOriginal, prefixHistProcessed} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	// Temporary files of interrupted writes, ours and the histogram renderer's.
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
}
