// Package search fuses the two retrieval mechanisms, literal text match
// against the city store and vector similarity against the city index,
// into one ranked, deduplicated result list.
package search

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/zen-systems/foodgate/pkg/storage"
	"github.com/zen-systems/foodgate/pkg/vector"
)

// ErrUnknownCity is returned for a city outside the supported set. It is
// a validation error: no store or index call is issued for it.
var ErrUnknownCity = errors.New("unknown city")

// Cities is the closed set of supported cities.
var Cities = map[string]bool{
	"ha_noi":      true,
	"ho_chi_minh": true,
	"da_nang":     true,
	"hai_phong":   true,
	"ha_long":     true,
	"thanh_hoa":   true,
}

// ValidateCity rejects cities outside the supported set.
func ValidateCity(city string) error {
	if !Cities[city] {
		return fmt.Errorf("%w: %q", ErrUnknownCity, city)
	}
	return nil
}

// Registry owns the per-city store and index handles. Each handle is
// created on first use and cached for the registry's lifetime; handles are
// read-mostly and shared by all requests.
type Registry struct {
	dataDir string

	mu      sync.Mutex
	stores  map[string]*storage.Store
	indexes map[string]*vector.Index
}

// NewRegistry creates a registry rooted at dataDir. Each city lives in
// dataDir/<city>/ with a food.db pack and an index.vec file.
func NewRegistry(dataDir string) *Registry {
	return &Registry{
		dataDir: dataDir,
		stores:  make(map[string]*storage.Store),
		indexes: make(map[string]*vector.Index),
	}
}

// Store returns the cached store for a city, opening it on first use.
func (r *Registry) Store(city string) (*storage.Store, error) {
	if err := ValidateCity(city); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[city]; ok {
		return s, nil
	}
	s, err := storage.Open(filepath.Join(r.dataDir, city, "food.db"))
	if err != nil {
		return nil, fmt.Errorf("open store for %s: %w", city, err)
	}
	r.stores[city] = s
	return s, nil
}

// Index returns the cached vector index for a city, loading it on first
// use.
func (r *Registry) Index(city string) (*vector.Index, error) {
	if err := ValidateCity(city); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.indexes[city]; ok {
		return idx, nil
	}
	idx, err := vector.LoadIndex(filepath.Join(r.dataDir, city, "index.vec"))
	if err != nil {
		return nil, fmt.Errorf("load index for %s: %w", city, err)
	}
	r.indexes[city] = idx
	return idx, nil
}

// AvailableCities lists the supported cities that actually have a pack on
// disk, sorted.
func (r *Registry) AvailableCities() []string {
	var cities []string
	for city := range Cities {
		if _, err := os.Stat(filepath.Join(r.dataDir, city, "food.db")); err == nil {
			cities = append(cities, city)
		}
	}
	sort.Strings(cities)
	return cities
}

// Close releases every open store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for city, s := range r.stores {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", city, err)
		}
		delete(r.stores, city)
	}
	return firstErr
}
