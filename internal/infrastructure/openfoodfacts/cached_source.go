package openfoodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/ports/outbound"
	"github.com/alchemorsel/pantry/pkg/textkey"
)

const defaultCacheTTL = 10 * time.Minute

// CachedSource caches search results per query variant. Barcode lookups
// always go to the catalog so sync sees current data.
type CachedSource struct {
	next   outbound.CatalogSource
	cache  outbound.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSource wraps next with a search cache.
func NewCachedSource(next outbound.CatalogSource, cache outbound.CacheRepository, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedSource{next: next, cache: cache, ttl: ttl, logger: logger.Named("catalog-cache")}
}

var _ outbound.CatalogSource = (*CachedSource)(nil)

func (s *CachedSource) FetchProduct(ctx context.Context, barcode string) (*outbound.ExternalProduct, error) {
	return s.next.FetchProduct(ctx, barcode)
}

// SearchProducts serves a cached page when present. Cache failures fall
// through to the catalog; catalog failures are never cached.
func (s *CachedSource) SearchProducts(ctx context.Context, q outbound.ExternalQuery) ([]outbound.ExternalProduct, error) {
	key := searchKey(q)

	data, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var cached []outbound.ExternalProduct
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			return cached, nil
		}
		s.logger.Warn("Discarding unreadable cache entry", zap.String("key", key))
	case !errors.Is(err, outbound.ErrCacheMiss):
		s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	products, err := s.next.SearchProducts(ctx, q)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(products); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return products, nil
}

func searchKey(q outbound.ExternalQuery) string {
	kind, value := "terms", q.Terms
	if q.Brand != "" {
		kind, value = "brand", q.Brand
	}
	return fmt.Sprintf("off:search:%s:%d:%s", kind, q.PageSize, strings.TrimSpace(textkey.Normalize(value)))
}
