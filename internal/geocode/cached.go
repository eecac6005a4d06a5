package geocode

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/odyssey-erp/deliveryops/internal/platform/cache"
)

// Result labels reported to the Recorder.
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultError  = "error"
	ResultCached = "cached"
)

// Searcher performs a single uncached lookup.
type Searcher interface {
	Search(ctx context.Context, query string) (Location, error)
}

// Recorder receives one observation per lookup.
type Recorder interface {
	ObserveGeocode(result string)
}

type entry struct {
	Found    bool     `json:"found"`
	Location Location `json:"location"`
}

// CachedGeocoder resolves fallback query chains, caching every answer
// including misses. Cached answers never touch the rate limiter.
type CachedGeocoder struct {
	searcher Searcher
	cache    *cache.JSONCache
	recorder Recorder
	logger   *slog.Logger
}

// NewCachedGeocoder wires a searcher to a cache. cache and recorder may be nil.
func NewCachedGeocoder(searcher Searcher, store *cache.JSONCache, recorder Recorder, logger *slog.Logger) *CachedGeocoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedGeocoder{searcher: searcher, cache: store, recorder: recorder, logger: logger}
}

// Locate tries each query in order and returns the first hit. Blank and
// repeated queries are skipped. It returns ErrNotFound when every query
// misses and stops at the first transport error.
func (g *CachedGeocoder) Locate(ctx context.Context, queries ...string) (Location, error) {
	seen := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		key := normalize(q)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		e, err := g.lookup(ctx, q, key)
		if err != nil {
			return Location{}, err
		}
		if e.Found {
			return e.Location, nil
		}
	}
	return Location{}, ErrNotFound
}

// Invalidate drops every cached answer.
func (g *CachedGeocoder) Invalidate(ctx context.Context) error {
	return g.cache.Bump(ctx)
}

func (g *CachedGeocoder) lookup(ctx context.Context, query, key string) (entry, error) {
	var (
		fresh     *entry
		searchErr error
	)
	loader := func(ctx context.Context) (any, error) {
		loc, err := g.searcher.Search(ctx, query)
		switch {
		case err == nil:
			fresh = &entry{Found: true, Location: loc}
		case errors.Is(err, ErrNotFound):
			fresh = &entry{}
		default:
			searchErr = err
			return nil, err
		}
		return *fresh, nil
	}

	var e entry
	cacheKey, err := g.cache.BuildKey(ctx, "q", key)
	if err == nil {
		var cached bool
		cached, err = g.cache.FetchJSON(ctx, cacheKey, &e, loader)
		if err == nil {
			g.observe(cached, e)
			return e, nil
		}
	}
	switch {
	case fresh != nil:
		g.logger.Warn("geocode cache write failed", slog.String("query", query), slog.Any("error", err))
		g.observe(false, *fresh)
		return *fresh, nil
	case searchErr != nil:
		g.record(ResultError)
		return entry{}, searchErr
	case ctx.Err() != nil:
		return entry{}, ctx.Err()
	}

	g.logger.Warn("geocode cache unavailable", slog.Any("error", err))
	if _, err := loader(ctx); err != nil {
		g.record(ResultError)
		return entry{}, err
	}
	g.observe(false, *fresh)
	return *fresh, nil
}

func (g *CachedGeocoder) observe(cached bool, e entry) {
	switch {
	case cached:
		g.record(ResultCached)
	case e.Found:
		g.record(ResultHit)
	default:
		g.record(ResultMiss)
	}
}

func (g *CachedGeocoder) record(result string) {
	if g.recorder != nil {
		g.recorder.ObserveGeocode(result)
	}
}

// Queries builds the fallback chain from most to least specific: the full
// street address, then "City, State", then the business name.
func Queries(name, line1, city, state, postalCode string) []string {
	var out []string
	locality := joinNonEmpty(", ", city, state)
	if strings.TrimSpace(line1) != "" {
		out = append(out, joinNonEmpty(", ", line1, city, joinNonEmpty(" ", state, postalCode)))
	}
	if locality != "" {
		out = append(out, locality)
	}
	if strings.TrimSpace(name) != "" {
		out = append(out, strings.TrimSpace(name))
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func normalize(query string) string {
	return cases.Fold().String(strings.Join(strings.Fields(query), " "))
}
