package geocode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/deliveryops/internal/platform/cache"
)

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string]Location
	errs    map[string]error
	calls   []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) (Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	if err, ok := f.errs[query]; ok {
		return Location{}, err
	}
	if loc, ok := f.results[query]; ok {
		return loc, nil
	}
	return Location{}, ErrNotFound
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) ObserveGeocode(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[result]++
}

func newRedisCache(t *testing.T) (*cache.JSONCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewJSONCache(client, "geocode", time.Hour), mr
}

var rockland = Location{Lat: 44.1037, Lng: -69.1089}

func TestLocateFallsBackToLessSpecificQueries(t *testing.T) {
	store, _ := newRedisCache(t)
	searcher := &fakeSearcher{results: map[string]Location{"Rockland, ME": rockland}}
	rec := &countingRecorder{}
	g := NewCachedGeocoder(searcher, store, rec, nil)

	queries := Queries("Good Tern", "750 Main St", "Rockland", "ME", "04841")
	loc, err := g.Locate(context.Background(), queries...)
	require.NoError(t, err)
	assert.Equal(t, rockland, loc)
	assert.Equal(t, []string{"750 Main St, Rockland, ME 04841", "Rockland, ME"}, searcher.calls)
	assert.Equal(t, map[string]int{ResultMiss: 1, ResultHit: 1}, rec.counts)

	// Second pass is served from cache, misses included.
	loc, err = g.Locate(context.Background(), queries...)
	require.NoError(t, err)
	assert.Equal(t, rockland, loc)
	assert.Len(t, searcher.calls, 2)
	assert.Equal(t, 2, rec.counts[ResultCached])
}

func TestLocateAllMiss(t *testing.T) {
	store, _ := newRedisCache(t)
	g := NewCachedGeocoder(&fakeSearcher{}, store, nil, nil)
	_, err := g.Locate(context.Background(), "nowhere", "  ", "NOWHERE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocateSkipsDuplicateQueries(t *testing.T) {
	searcher := &fakeSearcher{}
	g := NewCachedGeocoder(searcher, nil, nil, nil)
	_, err := g.Locate(context.Background(), "Good  Tern", "good tern", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"Good  Tern"}, searcher.calls)
}

func TestLocateStopsOnSearchError(t *testing.T) {
	store, mr := newRedisCache(t)
	boom := errors.New("connection refused")
	searcher := &fakeSearcher{errs: map[string]error{"a": boom}, results: map[string]Location{"b": rockland}}
	rec := &countingRecorder{}
	g := NewCachedGeocoder(searcher, store, rec, nil)

	_, err := g.Locate(context.Background(), "a", "b")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, searcher.calls)
	assert.Equal(t, 1, rec.counts[ResultError])
	assert.Equal(t, []string{"geocode:version"}, mr.Keys(), "errors must not be cached")
}

func TestLocateWorksWhenRedisIsDown(t *testing.T) {
	store, mr := newRedisCache(t)
	mr.Close()
	searcher := &fakeSearcher{results: map[string]Location{"Rockland, ME": rockland}}
	g := NewCachedGeocoder(searcher, store, nil, nil)

	loc, err := g.Locate(context.Background(), "Rockland, ME")
	require.NoError(t, err)
	assert.Equal(t, rockland, loc)
}

func TestInvalidateForcesFreshLookup(t *testing.T) {
	store, _ := newRedisCache(t)
	searcher := &fakeSearcher{results: map[string]Location{"x": rockland}}
	g := NewCachedGeocoder(searcher, store, nil, nil)
	ctx := context.Background()

	_, err := g.Locate(ctx, "x")
	require.NoError(t, err)
	require.NoError(t, g.Invalidate(ctx))
	_, err = g.Locate(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, searcher.calls, 2)
}

func TestQueries(t *testing.T) {
	assert.Equal(t, []string{"750 Main St, Rockland, ME 04841", "Rockland, ME", "Good Tern"},
		Queries("Good Tern", "750 Main St", "Rockland", "ME", "04841"))
	assert.Equal(t, []string{"Portland, ME", "Rising Tide"}, Queries("Rising Tide", "", "Portland", "ME", ""))
	assert.Equal(t, []string{"Morse's"}, Queries("Morse's", "", "", "", ""))
	assert.Empty(t, Queries("", "", "", "", ""))
}
