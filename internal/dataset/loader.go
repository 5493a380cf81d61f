// Package dataset loads and memoizes the JSON files of one extracted
// Spotify export. One Loader is bound to one directory for its lifetime;
// each logical file is parsed on first access and served from memory
// afterwards, which matters for multi-megabyte playlist catalogs.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"spotify-export-stats/internal/apperr"
	"spotify-export-stats/internal/model"
)

// Logical names for the cached files, used for selective invalidation
// and introspection.
const (
	KeyPlaylists        = "playlists"
	KeyStreamingHistory = "streaming_history"
	KeyLibrary          = "library"
)

// Export zips name files with a doubled extension ("Playlist1.json.json");
// both spellings are accepted.
var (
	playlistFileNames = []string{"Playlist1.json", "Playlist1.json.json"}
	libraryFileNames  = []string{"YourLibrary.json", "YourLibrary.json.json"}
)

// streamingHistoryGlob matches both single and doubled extensions.
const streamingHistoryGlob = "StreamingHistory_music_*.json"

// Loader lazily parses and memoizes the data files of one export
// directory. Safe for concurrent use; concurrent first reads of the same
// logical file parse it only once. Failed loads are never memoized.
type Loader struct {
	dir    string
	logger *log.Logger

	mu              sync.Mutex
	playlists       *model.PlaylistsFile
	playlistsLoaded bool
	history         []model.StreamingEvent
	historyLoaded   bool
	library         *model.LibraryFile
	libraryLoaded   bool
}

// NewLoader creates a Loader bound to the given directory.
func NewLoader(dir string, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{dir: dir, logger: logger.With("dir", dir)}
}

// Dir returns the backing directory.
func (l *Loader) Dir() string { return l.dir }

// Playlists returns the parsed playlist catalog, loading it on first
// call. Returns apperr.ErrNotFound when the catalog file is absent and
// apperr.ErrMalformed when it cannot be parsed.
func (l *Loader) Playlists() (*model.PlaylistsFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.playlistsLoaded {
		return l.playlists, nil
	}

	path, err := l.findFile(playlistFileNames)
	if err != nil {
		return nil, err
	}

	var parsed model.PlaylistsFile
	if err := l.parseJSON(path, &parsed); err != nil {
		return nil, err
	}

	l.playlists = &parsed
	l.playlistsLoaded = true
	l.logger.Info("loaded playlist catalog", "playlists", len(parsed.Playlists))
	return l.playlists, nil
}

// StreamingHistory returns all streaming events, loading them on first
// call. Every file matching StreamingHistory_music_*.json is parsed and
// concatenated in filename order for deterministic results. Returns
// apperr.ErrNotFound when no history files exist.
func (l *Loader) StreamingHistory() ([]model.StreamingEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.historyLoaded {
		return l.history, nil
	}

	matches, err := filepath.Glob(filepath.Join(l.dir, streamingHistoryGlob))
	if err != nil {
		return nil, fmt.Errorf("globbing streaming history: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no streaming history files in %s", apperr.ErrNotFound, l.dir)
	}
	sort.Strings(matches)

	var events []model.StreamingEvent
	for _, path := range matches {
		var fileEvents []model.StreamingEvent
		if err := l.parseJSON(path, &fileEvents); err != nil {
			return nil, err
		}
		events = append(events, fileEvents...)
	}

	l.history = events
	l.historyLoaded = true
	l.logger.Info("loaded streaming history", "files", len(matches), "events", len(events))
	return l.history, nil
}

// Library returns the parsed saved-library file, loading it on first
// call.
func (l *Loader) Library() (*model.LibraryFile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.libraryLoaded {
		return l.library, nil
	}

	path, err := l.findFile(libraryFileNames)
	if err != nil {
		return nil, err
	}

	var parsed model.LibraryFile
	if err := l.parseJSON(path, &parsed); err != nil {
		return nil, err
	}

	l.library = &parsed
	l.libraryLoaded = true
	l.logger.Info("loaded library", "tracks", len(parsed.Tracks))
	return l.library, nil
}

// Clear drops the memoized value for the given logical name, or all
// memoized values when name is empty.
func (l *Loader) Clear(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if name == "" || name == KeyPlaylists {
		l.playlists = nil
		l.playlistsLoaded = false
	}
	if name == "" || name == KeyStreamingHistory {
		l.history = nil
		l.historyLoaded = false
	}
	if name == "" || name == KeyLibrary {
		l.library = nil
		l.libraryLoaded = false
	}
}

// CachedKeys returns the logical names that are currently memoized.
func (l *Loader) CachedKeys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var keys []string
	if l.playlistsLoaded {
		keys = append(keys, KeyPlaylists)
	}
	if l.historyLoaded {
		keys = append(keys, KeyStreamingHistory)
	}
	if l.libraryLoaded {
		keys = append(keys, KeyLibrary)
	}
	return keys
}

// findFile returns the first existing candidate file in the loader's
// directory, or ErrNotFound.
func (l *Loader) findFile(candidates []string) (string, error) {
	for _, name := range candidates {
		path := filepath.Join(l.dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s missing from %s", apperr.ErrNotFound, candidates[0], l.dir)
}

// parseJSON reads and unmarshals path into v, mapping failures onto the
// shared error kinds.
func (l *Loader) parseJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", apperr.ErrNotFound, path)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", apperr.ErrMalformed, filepath.Base(path), err)
	}
	return nil
}
