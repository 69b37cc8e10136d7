package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/zhoufan91/ZipLink/internal/app/cache"
	"github.com/zhoufan91/ZipLink/internal/app/model"
	"github.com/zhoufan91/ZipLink/internal/app/repository"
	"github.com/zhoufan91/ZipLink/internal/app/shortcode"
	"go.uber.org/zap"
)

const maxURLLength = 2048

// ErrInvalidURL signals that the destination URL failed validation.
var ErrInvalidURL = errors.New("destination must be a valid absolute http(s) URL of at most 2048 characters")

// LinkWithClicks pairs a link with its persisted click count.
type LinkWithClicks struct {
	model.Link
	ClickCount int64
}

// LinkService defines behaviour-level operations on links.
type LinkService interface {
	// CreateLink allocates a short code for url, or returns the existing link
	// when the URL is already bound. created reports which case occurred.
	CreateLink(ctx context.Context, url string) (link *model.Link, created bool, err error)
	GetLink(ctx context.Context, code string) (*model.Link, error)
	ListLinks(ctx context.Context, limit, offset int) ([]LinkWithClicks, error)
	DeleteLink(ctx context.Context, code string) error
}

// LinkServiceDeps groups collaborators for the link service.
type LinkServiceDeps struct {
	Logger    *zap.Logger
	Links     repository.LinkRepository
	Clicks    repository.ClickRepository
	Cache     cache.LinkCache
	Generator *shortcode.Generator
	Index     *shortcode.Index
}

type linkService struct {
	logger *zap.Logger
	links  repository.LinkRepository
	clicks repository.ClickRepository
	cache  cache.LinkCache
	gen    *shortcode.Generator
	index  *shortcode.Index
}

// NewLinkService returns a service implementation backed by the given dependencies.
func NewLinkService(deps LinkServiceDeps) LinkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		logger: logger,
		links:  deps.Links,
		clicks: deps.Clicks,
		cache:  deps.Cache,
		gen:    deps.Generator,
		index:  deps.Index,
	}
}

func (s *linkService) CreateLink(ctx context.Context, rawURL string) (*model.Link, bool, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, false, err
	}

	// A URL already bound keeps its code; bindings are one-to-one both ways.
	existing, err := s.links.GetByURL(ctx, rawURL)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrLinkNotFound) {
		return nil, false, fmt.Errorf("create link: lookup url: %w", err)
	}

	link, err := s.allocate(ctx, rawURL)
	if err != nil {
		return nil, false, err
	}

	// Warm the cache so the first redirect skips the origin; best effort.
	if cacheErr := s.cache.Set(ctx, link.ShortCode, link.URL); cacheErr != nil {
		s.logger.Warn("cache warm failed", zap.String("code", link.ShortCode), zap.Error(cacheErr))
	}

	return link, true, nil
}

// allocate draws codes until one inserts cleanly, bounded by the generator's
// retry budget. The bloom index answers the common "definitely unused" case
// without a database round trip; positives are settled by the unique
// constraint on insert.
func (s *linkService) allocate(ctx context.Context, rawURL string) (*model.Link, error) {
	for attempt := 0; attempt < shortcode.MaxAttempts; attempt++ {
		code := s.gen.Generate()

		if s.index != nil && s.index.MightContain(code) {
			if _, err := s.links.GetByCode(ctx, code); err == nil {
				s.logger.Warn("short code collision",
					zap.String("code", code),
					zap.Int("attempt", attempt+1))
				continue
			} else if !errors.Is(err, repository.ErrLinkNotFound) {
				return nil, fmt.Errorf("create link: check code: %w", err)
			}
		}

		link := &model.Link{ShortCode: code, URL: rawURL}
		if err := s.links.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrDuplicateCode) {
				// Lost the race for this code; draw again.
				s.logger.Warn("short code collision on insert",
					zap.String("code", code),
					zap.Int("attempt", attempt+1))
				continue
			}
			return nil, fmt.Errorf("create link: %w", err)
		}

		if s.index != nil {
			s.index.Add(code)
		}
		return link, nil
	}

	return nil, shortcode.ErrGenerationExhausted
}

func (s *linkService) GetLink(ctx context.Context, code string) (*model.Link, error) {
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, limit, offset int) ([]LinkWithClicks, error) {
	links, err := s.links.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	result := make([]LinkWithClicks, 0, len(links))
	for _, link := range links {
		count, err := s.clicks.CountByCode(ctx, link.ShortCode)
		if err != nil {
			return nil, fmt.Errorf("list links: count clicks for %s: %w", link.ShortCode, err)
		}
		result = append(result, LinkWithClicks{Link: link, ClickCount: count})
	}
	return result, nil
}

// DeleteLink removes the binding and invalidates the cache entry so the code
// stops resolving everywhere, not just after TTL expiry.
func (s *linkService) DeleteLink(ctx context.Context, code string) error {
	if err := s.links.Delete(ctx, code); err != nil {
		return fmt.Errorf("delete link: %w", err)
	}

	if err := s.cache.Delete(ctx, code); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("code", code), zap.Error(err))
	}
	return nil
}

func validateURL(rawURL string) error {
	if rawURL == "" || len(rawURL) > maxURLLength {
		return ErrInvalidURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return ErrInvalidURL
	}
	return nil
}
