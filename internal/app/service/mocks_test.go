package service

import (
	"context"
	"sync"

	"github.com/zhoufan91/ZipLink/internal/app/analytics"
	"github.com/zhoufan91/ZipLink/internal/app/model"
	"github.com/zhoufan91/ZipLink/internal/app/repository"
)

type mockLinkRepository struct {
	createFn    func(ctx context.Context, link *model.Link) error
	getCodeFn   func(ctx context.Context, code string) (*model.Link, error)
	getURLFn    func(ctx context.Context, url string) (*model.Link, error)
	listFn      func(ctx context.Context, limit, offset int) ([]model.Link, error)
	listCodesFn func(ctx context.Context) ([]string, error)
	deleteFn    func(ctx context.Context, code string) error
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	if m.getCodeFn != nil {
		return m.getCodeFn(ctx, code)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) GetByURL(ctx context.Context, url string) (*model.Link, error) {
	if m.getURLFn != nil {
		return m.getURLFn(ctx, url)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) List(ctx context.Context, limit, offset int) ([]model.Link, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkRepository) ListCodes(ctx context.Context) ([]string, error) {
	if m.listCodesFn != nil {
		return m.listCodesFn(ctx)
	}
	return nil, nil
}

func (m *mockLinkRepository) Delete(ctx context.Context, code string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, code)
	}
	return nil
}

type mockClickRepository struct {
	createFn func(ctx context.Context, click *model.Click) error
	countFn  func(ctx context.Context, code string) (int64, error)
}

func (m *mockClickRepository) Create(ctx context.Context, click *model.Click) error {
	if m.createFn != nil {
		return m.createFn(ctx, click)
	}
	return nil
}

func (m *mockClickRepository) CountByCode(ctx context.Context, code string) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, code)
	}
	return 0, nil
}

// memoryCache is a map-backed LinkCache with optional failure injection.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
	setErr  error
	delErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func (c *memoryCache) Get(ctx context.Context, code string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	url, ok := c.entries[code]
	return url, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, code, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[code] = url
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delErr != nil {
		return c.delErr
	}
	delete(c.entries, code)
	return nil
}

func (c *memoryCache) contains(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[code]
	return ok
}

// recordingQueue captures published click records.
type recordingQueue struct {
	mu      sync.Mutex
	err     error
	records []analytics.ClickRecord
}

func (q *recordingQueue) Publish(ctx context.Context, record analytics.ClickRecord) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return 0, q.err
	}
	q.records = append(q.records, record)
	return uint64(len(q.records)), nil
}

func (q *recordingQueue) published() []analytics.ClickRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]analytics.ClickRecord, len(q.records))
	copy(out, q.records)
	return out
}

func noHeaders(string) string { return "" }
