// Package tenant maps session identifiers to uploaded datasets. Each
// tenant owns exactly one extracted export directory and one dataset
// loader; the store ties their lifetimes together so deleting a tenant
// always removes its files and its cache in one step.
package tenant

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"spotify-export-stats/internal/apperr"
	"spotify-export-stats/internal/dataset"
)

// record holds one active tenant's resources. DataDir is the directory
// the loader reads from; ExtractRoot is the top-level temp directory
// removed on deletion (the data dir may be nested inside it).
type record struct {
	loader      *dataset.Loader
	dataDir     string
	extractRoot string
}

// Store is the process-wide registry of active tenants. Construct one at
// startup, hand it to the request handlers, and call DeleteAll on
// shutdown so no extracted files leak.
type Store struct {
	mu      sync.RWMutex
	tenants map[string]*record
	logger  *log.Logger
}

// NewStore creates an empty tenant store.
func NewStore(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		tenants: make(map[string]*record),
		logger:  logger,
	}
}

// Create registers a new tenant rooted at dataDir and returns its fresh,
// unguessable identifier. extractRoot is the directory removed when the
// tenant is deleted; pass "" to use dataDir.
func (s *Store) Create(dataDir, extractRoot string) (string, error) {
	id, err := generateTenantID()
	if err != nil {
		return "", fmt.Errorf("generating tenant id: %w", err)
	}
	if extractRoot == "" {
		extractRoot = dataDir
	}

	s.mu.Lock()
	s.tenants[id] = &record{
		loader:      dataset.NewLoader(dataDir, s.logger),
		dataDir:     dataDir,
		extractRoot: extractRoot,
	}
	s.mu.Unlock()

	s.logger.Info("created tenant", "data_dir", dataDir)
	return id, nil
}

// Resolve returns the dataset loader for an active tenant. Unknown and
// deleted ids both return apperr.ErrNotFound; the caller cannot tell the
// two apart. If the tenant's backing directory has vanished, the tenant
// is evicted and NotFound is returned rather than serving stale data.
func (s *Store) Resolve(id string) (*dataset.Loader, error) {
	s.mu.RLock()
	rec, ok := s.tenants[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown tenant", apperr.ErrNotFound)
	}

	if _, err := os.Stat(rec.dataDir); err != nil {
		s.logger.Warn("tenant data directory missing, evicting", "data_dir", rec.dataDir)
		s.Delete(id)
		return nil, fmt.Errorf("%w: tenant data missing", apperr.ErrNotFound)
	}

	return rec.loader, nil
}

// Delete removes a tenant, evicting its loader and recursively deleting
// its extraction directory. Idempotent: deleting an unknown or already
// deleted id is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	rec, ok := s.tenants[id]
	if ok {
		delete(s.tenants, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.removeStorage(rec)
	s.logger.Info("deleted tenant", "data_dir", rec.dataDir)
}

// DeleteAll removes every active tenant and its backing storage. Called
// at process shutdown.
func (s *Store) DeleteAll() {
	s.mu.Lock()
	records := make([]*record, 0, len(s.tenants))
	for _, rec := range s.tenants {
		records = append(records, rec)
	}
	s.tenants = make(map[string]*record)
	s.mu.Unlock()

	for _, rec := range records {
		s.removeStorage(rec)
	}
	if len(records) > 0 {
		s.logger.Info("deleted all tenants", "count", len(records))
	}
}

// Len returns the number of active tenants.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tenants)
}

func (s *Store) removeStorage(rec *record) {
	if err := os.RemoveAll(rec.extractRoot); err != nil {
		s.logger.Error("removing tenant storage", "path", rec.extractRoot, "err", err)
	}
}

// generateTenantID returns a cryptographically random identifier.
func generateTenantID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
