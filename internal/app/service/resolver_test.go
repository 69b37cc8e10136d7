package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhoufan91/ZipLink/internal/app/analytics"
	"github.com/zhoufan91/ZipLink/internal/app/model"
)

const fallbackURL = "https://ziplink.example"

func newResolver(cache *memoryCache, repo *mockLinkRepository, queue *recordingQueue) *Resolver {
	return NewResolver(ResolverDeps{
		Cache:       cache,
		Links:       repo,
		Queue:       queue,
		Bots:        analytics.NewBotDetector(),
		Extractor:   analytics.NewExtractor(analytics.GeoOverride{}),
		FallbackURL: fallbackURL,
	})
}

func TestResolver_CacheHit(t *testing.T) {
	cache := newMemoryCache()
	cache.entries["aB3kXy9"] = "https://example.com/a"
	repo := &mockLinkRepository{
		getCodeFn: func(ctx context.Context, code string) (*model.Link, error) {
			t.Fatal("origin must not be consulted on a cache hit")
			return nil, nil
		},
	}
	queue := &recordingQueue{}

	outcome := newResolver(cache, repo, queue).Resolve(context.Background(), "aB3kXy9", noHeaders)

	assert.Equal(t, http.StatusTemporaryRedirect, outcome.Status)
	assert.Equal(t, "https://example.com/a", outcome.Location)
	assert.Equal(t, "public, max-age=60", outcome.CacheControl)
}

func TestResolver_CacheMissRepopulates(t *testing.T) {
	cache := newMemoryCache()
	originCalls := 0
	repo := &mockLinkRepository{
		getCodeFn: func(ctx context.Context, code string) (*model.Link, error) {
			originCalls++
			if originCalls > 1 {
				return nil, errors.New("origin consulted twice")
			}
			return &model.Link{ShortCode: code, URL: "https://example.com/a"}, nil
		},
	}
	queue := &recordingQueue{}
	resolver := newResolver(cache, repo, queue)

	outcome := resolver.Resolve(context.Background(), "aB3kXy9", noHeaders)
	require.Equal(t, http.StatusTemporaryRedirect, outcome.Status)
	require.Equal(t, "https://example.com/a", outcome.Location)

	// The cache write is detached from the request path.
	require.Eventually(t, func() bool { return cache.contains("aB3kXy9") },
		time.Second, 5*time.Millisecond, "cache should be repopulated after an origin hit")

	// Second resolve must be served from cache; the stub origin errors on reuse.
	outcome = resolver.Resolve(context.Background(), "aB3kXy9", noHeaders)
	assert.Equal(t, http.StatusTemporaryRedirect, outcome.Status)
	assert.Equal(t, "https://example.com/a", outcome.Location)
	assert.Equal(t, 1, originCalls)
}

func TestResolver_NotFound(t *testing.T) {
	resolver := newResolver(newMemoryCache(), &mockLinkRepository{}, &recordingQueue{})

	outcome := resolver.Resolve(context.Background(), "missing", noHeaders)

	assert.Equal(t, http.StatusFound, outcome.Status)
	assert.Equal(t, fallbackURL, outcome.Location)
	assert.Empty(t, outcome.CacheControl)
}

func TestResolver_MalformedCode(t *testing.T) {
	repo := &mockLinkRepository{
		getCodeFn: func(ctx context.Context, code string) (*model.Link, error) {
			t.Fatal("malformed codes must not reach the origin")
			return nil, nil
		},
	}
	resolver := newResolver(newMemoryCache(), repo, &recordingQueue{})

	for _, code := range []string{"", "a/b", "has space", "waytoolongcode", "semi;colon"} {
		outcome := resolver.Resolve(context.Background(), code, noHeaders)
		assert.Equal(t, http.StatusFound, outcome.Status, "code %q", code)
		assert.Equal(t, fallbackURL, outcome.Location, "code %q", code)
	}
}

func TestResolver_OriginFailureFallsBack(t *testing.T) {
	repo := &mockLinkRepository{
		getCodeFn: func(ctx context.Context, code string) (*model.Link, error) {
			return nil, errors.New("connection refused")
		},
	}
	resolver := newResolver(newMemoryCache(), repo, &recordingQueue{})

	outcome := resolver.Resolve(context.Background(), "aB3kXy9", noHeaders)

	assert.Equal(t, http.StatusFound, outcome.Status)
	assert.Equal(t, fallbackURL, outcome.Location)
}

func TestResolver_CacheFailureDegradesToOrigin(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = errors.New("redis unreachable")
	cache.setErr = errors.New("redis unreachable")
	repo := &mockLinkRepository{
		getCodeFn: func(ctx context.Context, code string) (*model.Link, error) {
			return &model.Link{ShortCode: code, URL: "https://example.com/a"}, nil
		},
	}
	resolver := newResolver(cache, repo, &recordingQueue{})

	outcome := resolver.Resolve(context.Background(), "aB3kXy9", noHeaders)

	assert.Equal(t, http.StatusTemporaryRedirect, outcome.Status)
	assert.Equal(t, "https://example.com/a", outcome.Location)
}

func TestResolver_PublishesClick(t *testing.T) {
	cache := newMemoryCache()
	cache.entries["aB3kXy9"] = "https://example.com/a"
	queue := &recordingQueue{}
	resolver := newResolver(cache, &mockLinkRepository{}, queue)

	headers := map[string]string{
		"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Referer":    "https://news.example/post",
	}
	outcome := resolver.Resolve(context.Background(), "aB3kXy9",
		func(name string) string { return headers[name] })
	require.Equal(t, http.StatusTemporaryRedirect, outcome.Status)

	require.Eventually(t, func() bool { return len(queue.published()) == 1 },
		time.Second, 5*time.Millisecond)

	rec := queue.published()[0]
	assert.Equal(t, "aB3kXy9", rec.ShortCode)
	assert.Equal(t, "https://news.example/post", rec.Referrer)
	assert.Equal(t, "Chrome", rec.Browser)
	assert.NotEmpty(t, rec.ClickedAt)
}

func TestResolver_BotSkipsAnalytics(t *testing.T) {
	cache := newMemoryCache()
	cache.entries["aB3kXy9"] = "https://example.com/a"
	queue := &recordingQueue{}
	resolver := newResolver(cache, &mockLinkRepository{}, queue)

	headers := map[string]string{
		"User-Agent": "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
	}
	outcome := resolver.Resolve(context.Background(), "aB3kXy9",
		func(name string) string { return headers[name] })

	// Bots still get the redirect, never a click record.
	assert.Equal(t, http.StatusTemporaryRedirect, outcome.Status)
	assert.Equal(t, "https://example.com/a", outcome.Location)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, queue.published())
}

func TestResolver_PublishFailureInvisible(t *testing.T) {
	cache := newMemoryCache()
	cache.entries["aB3kXy9"] = "https://example.com/a"
	queue := &recordingQueue{err: errors.New("jetstream down")}
	resolver := newResolver(cache, &mockLinkRepository{}, queue)

	outcome := resolver.Resolve(context.Background(), "aB3kXy9", noHeaders)

	assert.Equal(t, http.StatusTemporaryRedirect, outcome.Status)
	assert.Equal(t, "https://example.com/a", outcome.Location)
}

func TestResolver_Idempotent(t *testing.T) {
	cache := newMemoryCache()
	repo := &mockLinkRepository{
		getCodeFn: func(ctx context.Context, code string) (*model.Link, error) {
			return &model.Link{ShortCode: code, URL: "https://example.com/a"}, nil
		},
	}
	resolver := newResolver(cache, repo, &recordingQueue{})

	first := resolver.Resolve(context.Background(), "aB3kXy9", noHeaders)
	for i := 0; i < 5; i++ {
		next := resolver.Resolve(context.Background(), "aB3kXy9", noHeaders)
		assert.Equal(t, first.Location, next.Location)
		assert.Equal(t, first.Status, next.Status)
	}
}
