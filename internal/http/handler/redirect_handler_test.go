package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhoufan91/ZipLink/internal/app/analytics"
	"github.com/zhoufan91/ZipLink/internal/app/model"
	"github.com/zhoufan91/ZipLink/internal/app/repository"
	"github.com/zhoufan91/ZipLink/internal/app/service"
)

type staticLinks struct {
	links map[string]string
}

func (s *staticLinks) Create(ctx context.Context, link *model.Link) error { return nil }

func (s *staticLinks) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	url, ok := s.links[code]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	return &model.Link{ShortCode: code, URL: url}, nil
}

func (s *staticLinks) GetByURL(ctx context.Context, url string) (*model.Link, error) {
	return nil, repository.ErrLinkNotFound
}

func (s *staticLinks) List(ctx context.Context, limit, offset int) ([]model.Link, error) {
	return nil, nil
}

func (s *staticLinks) ListCodes(ctx context.Context) ([]string, error) { return nil, nil }

func (s *staticLinks) Delete(ctx context.Context, code string) error { return nil }

type nopCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func (c *nopCache) Get(ctx context.Context, code string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.entries[code]
	return url, ok, nil
}

func (c *nopCache) Set(ctx context.Context, code, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[code] = url
	return nil
}

func (c *nopCache) Delete(ctx context.Context, code string) error { return nil }

type nopQueue struct{}

func (nopQueue) Publish(ctx context.Context, record analytics.ClickRecord) (uint64, error) {
	return 1, nil
}

func redirectApp(links map[string]string) *fiber.App {
	resolver := service.NewResolver(service.ResolverDeps{
		Cache:       &nopCache{entries: map[string]string{}},
		Links:       &staticLinks{links: links},
		Queue:       nopQueue{},
		Bots:        analytics.NewBotDetector(),
		Extractor:   analytics.NewExtractor(analytics.GeoOverride{}),
		FallbackURL: "https://ziplink.example",
	})

	app := fiber.New()
	NewRedirectHandler(RedirectDeps{Resolver: resolver}).Register(app)
	return app
}

func TestRedirect_Resolved(t *testing.T) {
	app := redirectApp(map[string]string{"aB3kXy9": "https://example.com/a"})

	req := httptest.NewRequest(http.MethodGet, "/aB3kXy9", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "https://example.com/a", resp.Header.Get("Location"))
	assert.Equal(t, "public, max-age=60", resp.Header.Get("Cache-Control"))
}

func TestRedirect_UnknownCode(t *testing.T) {
	app := redirectApp(nil)

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://ziplink.example", resp.Header.Get("Location"))
}

func TestRedirect_Health(t *testing.T) {
	app := redirectApp(nil)

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "path %s", path)
	}
}
