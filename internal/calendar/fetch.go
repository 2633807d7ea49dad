package calendar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"

	"feastsched/internal/localdate"
	appLog "feastsched/internal/log"
	"feastsched/internal/model"
)

var (
	// ErrUnavailable covers network failures and non-2xx responses.
	ErrUnavailable = errors.New("calendar provider unavailable")
	// ErrMalformed is returned when the provider payload cannot be decoded.
	ErrMalformed = errors.New("calendar payload malformed")
)

// rawFeast is the provider's wire shape.
type rawFeast struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Rank   float64  `json:"rank"`
	Colors []string `json:"colors"`
	Tags   []string `json:"tags,omitempty"`
}

// cacheEntry holds HTTP metadata for a cached calendar year.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher loads liturgical calendar years from the provider. Years are
// served from the memory cache; otherwise the provider is asked, with a
// disk-cached year revalidated by ETag/Last-Modified and served when the
// provider fails.
type Fetcher struct {
	client   *http.Client
	baseURL  string
	version  int
	cacheDir string
	cache    Cache
	group    singleflight.Group
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithCache replaces the default never-expiring memory cache.
func WithCache(c Cache) Option {
	return func(f *Fetcher) { f.cache = c }
}

// WithCacheDir enables the on-disk cache under dir.
func WithCacheDir(dir string) Option {
	return func(f *Fetcher) { f.cacheDir = dir }
}

// NewFetcher creates a Fetcher for {baseURL}/api/v{version}/calendar/{year}.
func NewFetcher(baseURL string, version int, opts ...Option) *Fetcher {
	if version <= 0 {
		version = 1
	}
	f := &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: baseURL,
		version: version,
		cache:   NewMemoryCache(0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchFeasts returns the feasts dated within [start, end] inclusive, sorted
// by date. Every calendar year touched by the range is loaded; any failure
// to load one of them fails the whole call.
func (f *Fetcher) FetchFeasts(ctx context.Context, start, end localdate.Date) ([]model.Feast, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("calendar: range end %s is before start %s", end, start)
	}

	out := make([]model.Feast, 0, start.DaysUntil(end)+1)
	for year := start.Year; year <= end.Year; year++ {
		feasts, err := f.Year(ctx, year)
		if err != nil {
			return nil, err
		}
		for _, fe := range feasts {
			if fe.Date.Within(start, end) {
				out = append(out, fe)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Year returns every feast of a calendar year. Concurrent callers share one
// load, which runs detached from their contexts and is bounded by the HTTP
// client timeout; a caller whose ctx ends stops waiting without aborting it.
func (f *Fetcher) Year(ctx context.Context, year int) ([]model.Feast, error) {
	if feasts, ok := f.cache.Get(year); ok {
		return feasts, nil
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(strconv.Itoa(year), func() (any, error) {
		feasts, err := f.loadYear(loadCtx, year)
		if err != nil {
			return nil, err
		}
		f.cache.Put(year, feasts)
		return feasts, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]model.Feast), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("calendar year %d: %w", year, ctx.Err())
	}
}

func (f *Fetcher) yearURL(year int) string {
	return fmt.Sprintf("%s/api/v%d/calendar/%d", f.baseURL, f.version, year)
}

func (f *Fetcher) loadYear(ctx context.Context, year int) ([]model.Feast, error) {
	if f.baseURL == "" {
		return nil, fmt.Errorf("%w: base URL is not configured", ErrUnavailable)
	}
	u := f.yearURL(year)

	var (
		cachePath string
		meta      cacheEntry
		cached    []model.Feast
		haveCache bool
	)
	if f.cacheDir != "" {
		cachePath = f.cachePathForURL(u)
		if body, err := f.loadCacheBody(cachePath); err == nil {
			feasts, derr := decodeYear(body)
			if derr == nil {
				cached, haveCache = feasts, true
				meta, _ = f.loadCacheMeta(cachePath)
			} else {
				appLog.Error("calendar disk cache unreadable; refetching", derr, "year", year)
			}
		}
	}

	// fallback serves the disk-cached year when the provider fails.
	fallback := func(cause error) ([]model.Feast, error) {
		if !haveCache {
			return nil, cause
		}
		appLog.Error("calendar fetch failed, using disk cache", cause, "year", year, "url", redactURL(u))
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if haveCache {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Info("calendar fetch start", "year", year, "url", redactURL(u), "conditional", haveCache)

	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(fmt.Errorf("%w: year %d: %v", ErrUnavailable, year, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && haveCache:
		appLog.Info("calendar year not modified; using disk cache", "year", year)
		return cached, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fallback(fmt.Errorf("%w: year %d: %s", ErrUnavailable, year, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fallback(fmt.Errorf("%w: year %d: %v", ErrUnavailable, year, err))
	}
	feasts, err := decodeYear(body)
	if err != nil {
		return fallback(fmt.Errorf("year %d: %w", year, err))
	}

	if cachePath != "" {
		meta := cacheEntry{
			URL:          u,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, meta, body); err != nil {
			// Log but still return the freshly fetched feasts.
			appLog.Error("calendar cache save failed", err, "year", year)
		}
	}

	appLog.Info("calendar fetch success", "year", year, "feasts", len(feasts))
	return feasts, nil
}

// decodeYear parses a provider payload. Entries with an unusable id are
// skipped; an undecodable body is ErrMalformed.
func decodeYear(body []byte) ([]model.Feast, error) {
	var raws []rawFeast
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	feasts := make([]model.Feast, 0, len(raws))
	for _, r := range raws {
		d, err := localdate.Parse(r.ID)
		if err != nil {
			appLog.Warn("calendar entry skipped", "id", r.ID, "title", r.Title, "reason", err.Error())
			continue
		}
		feasts = append(feasts, model.Feast{
			ID:     r.ID,
			Title:  norm.NFC.String(r.Title),
			Rank:   r.Rank,
			Colors: normalizeColors(r.Colors),
			Tags:   r.Tags,
			Date:   d,
		})
	}
	return feasts, nil
}

func (f *Fetcher) cachePathForURL(u string) string {
	sum := sha256.Sum256([]byte(u))
	// Use first 16 hex chars as directory name.
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func (f *Fetcher) loadCacheBody(cachePath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(cachePath, "body.json"))
}

func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body []byte) error {
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return err
	}
	metaFile := filepath.Join(cachePath, "meta.json")
	bodyFile := filepath.Join(cachePath, "body.json")

	// Write body first so meta never points at missing body.
	if err := os.WriteFile(bodyFile, body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(metaFile, data, 0o600)
}

// redactURL drops the query string and userinfo of a provider URL for
// logging, since some providers take API keys there.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "calendar://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + u.EscapedPath()
}
