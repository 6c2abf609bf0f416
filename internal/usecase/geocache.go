package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"proveia-agent/internal/domain"
)

const (
	geocacheTTL     = 24 * time.Hour
	geocacheCleanup = time.Hour
)

// GeocodeStore is an optional persistent cache for geocoding results,
// shared across process instances.
type GeocodeStore interface {
	Get(ctx context.Context, query string) (domain.Location, bool, error)
	Put(ctx context.Context, query string, loc domain.Location) error
}

// CachingGeocoder wraps a Geocoder with an in-process cache and an optional
// persistent store. Caching is purely an optimization: failures of either
// cache tier fall through to the wrapped geocoder, and "not found" results
// are never cached, so a typo corrected later still resolves.
type CachingGeocoder struct {
	inner Geocoder
	mem   *cache.Cache
	store GeocodeStore
}

// NewCachingGeocoder creates the decorator. store may be nil to run with
// the in-process tier only.
func NewCachingGeocoder(inner Geocoder, store GeocodeStore) (*CachingGeocoder, error) {
	if inner == nil {
		return nil, errors.New("usecase: wrapped geocoder must not be nil")
	}
	return &CachingGeocoder{
		inner: inner,
		mem:   cache.New(geocacheTTL, geocacheCleanup),
		store: store,
	}, nil
}

func (g *CachingGeocoder) Geocode(ctx context.Context, text string) (domain.Location, error) {
	key := normalizeText(text)

	if cached, found := g.mem.Get(key); found {
		if loc, ok := cached.(domain.Location); ok {
			return loc, nil
		}
	}

	if g.store != nil {
		loc, found, err := g.store.Get(ctx, key)
		if err != nil {
			slog.Warn("geocode store read failed", "query", key, "err", err)
		} else if found {
			g.mem.Set(key, loc, cache.DefaultExpiration)
			return loc, nil
		}
	}

	loc, err := g.inner.Geocode(ctx, text)
	if err != nil {
		return domain.Location{}, err
	}

	g.mem.Set(key, loc, cache.DefaultExpiration)
	if g.store != nil {
		if err := g.store.Put(ctx, key, loc); err != nil {
			slog.Warn("geocode store write failed", "query", key, "err", err)
		}
	}
	return loc, nil
}
