package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zen-systems/foodgate/pkg/food"
	"github.com/zen-systems/foodgate/pkg/storage"
	"github.com/zen-systems/foodgate/pkg/vector"
)

// Service runs literal, semantic and hybrid searches over the registry's
// city packs.
type Service struct {
	registry *Registry
	embedder vector.Embedder
	logger   *zap.Logger
}

// NewService creates a search service. The embedder is the semantic leg's
// oracle; it is only invoked for semantic and hybrid searches.
func NewService(registry *Registry, embedder vector.Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{registry: registry, embedder: embedder, logger: logger}
}

// TextSearch is the literal leg: LIKE match over shop and dish names,
// most-clicked first.
func (s *Service) TextSearch(ctx context.Context, city, keyword string, limit int) ([]food.Place, error) {
	store, err := s.registry.Store(city)
	if err != nil {
		return nil, err
	}
	return store.FindByText(ctx, keyword, limit)
}

// SemanticSearch is the vector leg: embed the query, score it against the
// city index, then resolve hit positions to stored places. Index position
// i maps to storage id i+1; positions the index reports as invalid
// (negative) are dropped.
func (s *Service) SemanticSearch(ctx context.Context, city, query string, topK int) ([]food.Place, error) {
	idx, err := s.registry.Index(city)
	if err != nil {
		return nil, err
	}
	store, err := s.registry.Store(city)
	if err != nil {
		return nil, err
	}

	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := idx.Search(vec, topK)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	ids := make([]int64, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 {
			continue
		}
		ids = append(ids, int64(h.Position)+1)
	}
	return store.FindByIDs(ctx, ids)
}

// HybridSearch fans out both legs concurrently and merges them: the
// literal leg requests topK results, the semantic leg topK/2; literal
// matches outrank semantic ones on duplicate ids; order within each leg is
// preserved; the merged list is truncated to topK. Neither leg's result is
// used until both have returned.
func (s *Service) HybridSearch(ctx context.Context, city, query string, topK int) ([]food.Place, error) {
	if err := ValidateCity(city); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, fmt.Errorf("hybrid search: top_k must be positive, got %d", topK)
	}

	var literal, semantic []food.Place
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		literal, err = s.TextSearch(gctx, city, query, topK)
		return err
	})
	g.Go(func() error {
		var err error
		semantic, err = s.SemanticSearch(gctx, city, query, topK/2)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := merge(literal, semantic, topK)
	s.logger.Debug("hybrid search",
		zap.String("city", city),
		zap.Int("literal", len(literal)),
		zap.Int("semantic", len(semantic)),
		zap.Int("merged", len(merged)))
	return merged, nil
}

// merge concatenates priority results before secondary ones, keeps the
// first occurrence of each id and truncates to topK. Stable: order within
// each source is preserved.
func merge(priority, secondary []food.Place, topK int) []food.Place {
	seen := make(map[int64]bool, len(priority)+len(secondary))
	merged := make([]food.Place, 0, topK)
	for _, p := range append(append([]food.Place{}, priority...), secondary...) {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		merged = append(merged, p)
		if len(merged) == topK {
			break
		}
	}
	return merged
}

// IncrementClick bumps a place's click counter. Unknown cities fail
// validation; missing ids surface storage.ErrNotFound.
func (s *Service) IncrementClick(ctx context.Context, city string, id int64) (int, error) {
	store, err := s.registry.Store(city)
	if err != nil {
		return 0, err
	}
	return store.IncrementClick(ctx, id)
}

// Store exposes a city's store for the insight reports. Callers get city
// validation for free.
func (s *Service) Store(city string) (*storage.Store, error) {
	return s.registry.Store(city)
}

// AvailableCities lists cities with a pack on disk.
func (s *Service) AvailableCities() []string {
	return s.registry.AvailableCities()
}

// Preload warms every available city's store and index. Failures are
// logged and skipped; a missing index must not take the process down.
func (s *Service) Preload() {
	for _, city := range s.registry.AvailableCities() {
		if _, err := s.registry.Store(city); err != nil {
			s.logger.Warn("preload store failed", zap.String("city", city), zap.Error(err))
			continue
		}
		if _, err := s.registry.Index(city); err != nil {
			s.logger.Warn("preload index failed", zap.String("city", city), zap.Error(err))
			continue
		}
		s.logger.Info("preloaded", zap.String("city", city))
	}
}
