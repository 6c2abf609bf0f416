package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"proveia-agent/internal/domain"
)

type mockGeocodeStore struct {
	entries   map[string]domain.Location
	getErr    error
	putErr    error
	putCalled int
}

func (m *mockGeocodeStore) Get(_ context.Context, query string) (domain.Location, bool, error) {
	if m.getErr != nil {
		return domain.Location{}, false, m.getErr
	}
	loc, ok := m.entries[query]
	return loc, ok, nil
}

func (m *mockGeocodeStore) Put(_ context.Context, query string, loc domain.Location) error {
	m.putCalled++
	if m.putErr != nil {
		return m.putErr
	}
	if m.entries == nil {
		m.entries = map[string]domain.Location{}
	}
	m.entries[query] = loc
	return nil
}

func TestCachingGeocoder_RequiresInner(t *testing.T) {
	_, err := NewCachingGeocoder(nil, nil)
	require.Error(t, err)
}

func TestCachingGeocoder_MemoryHitSkipsInner(t *testing.T) {
	inner := &mockGeocoder{loc: *monterrey()}
	g, err := NewCachingGeocoder(inner, nil)
	require.NoError(t, err)

	first, err := g.Geocode(context.Background(), "Monterrey")
	require.NoError(t, err)
	second, err := g.Geocode(context.Background(), "monterrey")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, inner.callCount, "normalized query must be served from cache")
}

func TestCachingGeocoder_NotFoundIsNeverCached(t *testing.T) {
	inner := &mockGeocoder{err: fmt.Errorf("geoapify: %w", domain.ErrLocationNotFound)}
	g, err := NewCachingGeocoder(inner, nil)
	require.NoError(t, err)

	_, err = g.Geocode(context.Background(), "xyzlandia")
	require.ErrorIs(t, err, domain.ErrLocationNotFound)
	_, err = g.Geocode(context.Background(), "xyzlandia")
	require.ErrorIs(t, err, domain.ErrLocationNotFound)
	require.Equal(t, 2, inner.callCount, "a failed lookup must go back to the geocoder")
}

func TestCachingGeocoder_StoreHitPopulatesMemory(t *testing.T) {
	inner := &mockGeocoder{loc: *monterrey()}
	store := &mockGeocodeStore{entries: map[string]domain.Location{
		"monterrey": *monterrey(),
	}}
	g, err := NewCachingGeocoder(inner, store)
	require.NoError(t, err)

	loc, err := g.Geocode(context.Background(), "Monterrey")
	require.NoError(t, err)
	require.Equal(t, "Monterrey", loc.Name)
	require.Zero(t, inner.callCount)

	_, err = g.Geocode(context.Background(), "Monterrey")
	require.NoError(t, err)
	require.Zero(t, inner.callCount)
}

func TestCachingGeocoder_StoreFailureFallsThrough(t *testing.T) {
	inner := &mockGeocoder{loc: *monterrey()}
	store := &mockGeocodeStore{getErr: errors.New("dynamodb unavailable"), putErr: errors.New("dynamodb unavailable")}
	g, err := NewCachingGeocoder(inner, store)
	require.NoError(t, err)

	loc, err := g.Geocode(context.Background(), "Monterrey")
	require.NoError(t, err)
	require.Equal(t, "Monterrey", loc.Name)
	require.Equal(t, 1, inner.callCount)
	require.Equal(t, 1, store.putCalled)
}

func TestCachingGeocoder_SuccessIsWrittenToStore(t *testing.T) {
	inner := &mockGeocoder{loc: *monterrey()}
	store := &mockGeocodeStore{}
	g, err := NewCachingGeocoder(inner, store)
	require.NoError(t, err)

	_, err = g.Geocode(context.Background(), "Monterrey")
	require.NoError(t, err)
	require.Contains(t, store.entries, "monterrey")
}
