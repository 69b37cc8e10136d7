package service

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/zhoufan91/ZipLink/internal/app/analytics"
	"github.com/zhoufan91/ZipLink/internal/app/cache"
	"github.com/zhoufan91/ZipLink/internal/app/repository"
	infraprom "github.com/zhoufan91/ZipLink/internal/infra/prometheus"
	"go.uber.org/zap"
)

const (
	// responseCacheControl is the response-level cache directive. It is
	// deliberately short-lived and independent of the Redis TTL so
	// intermediate HTTP caches cannot serve a stale redirect for long.
	responseCacheControl = "public, max-age=60"

	defaultOriginTimeout = 2 * time.Second
	detachedOpTimeout    = 5 * time.Second
)

// codePattern is the only accepted short-code shape. Anything else resolves
// to not-found so probing clients cannot distinguish invalid from absent.
var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{1,10}$`)

// Outcome is the redirect decision for one request. Location is always set;
// the resolver never surfaces an error page to a link follower.
type Outcome struct {
	Status       int
	Location     string
	CacheControl string
}

// ClickQueue is the enqueue half of the dispatch pipeline as seen by the
// resolver.
type ClickQueue interface {
	Publish(ctx context.Context, record analytics.ClickRecord) (uint64, error)
}

// ResolverDeps groups collaborators required by the Resolver.
type ResolverDeps struct {
	Logger        *zap.Logger
	Cache         cache.LinkCache
	Links         repository.LinkRepository
	Queue         ClickQueue
	Bots          analytics.BotDetector
	Extractor     *analytics.Extractor
	FallbackURL   string
	OriginTimeout time.Duration
}

// Resolver orchestrates the redirect path: cache-first lookup, origin
// fallback with repopulation, bot filtering and fire-and-forget analytics.
type Resolver struct {
	logger        *zap.Logger
	cache         cache.LinkCache
	links         repository.LinkRepository
	queue         ClickQueue
	bots          analytics.BotDetector
	extractor     *analytics.Extractor
	fallbackURL   string
	originTimeout time.Duration
}

// NewResolver creates a Resolver with the provided dependencies.
func NewResolver(deps ResolverDeps) *Resolver {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.OriginTimeout
	if timeout <= 0 {
		timeout = defaultOriginTimeout
	}
	return &Resolver{
		logger:        logger,
		cache:         deps.Cache,
		links:         deps.Links,
		queue:         deps.Queue,
		bots:          deps.Bots,
		extractor:     deps.Extractor,
		fallbackURL:   deps.FallbackURL,
		originTimeout: timeout,
	}
}

// Resolve turns a short code into a redirect outcome. It is idempotent,
// never mutates the system of record, and degrades every dependency failure
// into a fallback redirect.
func (r *Resolver) Resolve(ctx context.Context, code string, header analytics.HeaderFunc) Outcome {
	if !codePattern.MatchString(code) {
		infraprom.RedirectsTotal.WithLabelValues(infraprom.OutcomeInvalid).Inc()
		return r.fallback()
	}

	url, hit := r.lookupCache(ctx, code)
	if !hit {
		var outcome *Outcome
		url, outcome = r.lookupOrigin(ctx, code)
		if outcome != nil {
			return *outcome
		}
		// Repopulate off the critical path; a lost write only costs the next
		// request another origin lookup.
		go r.repopulate(code, url)
	}

	if !r.bots.IsBot(header("User-Agent")) {
		record := r.extractor.Extract(code, header)
		go r.publish(record)
	}

	infraprom.RedirectsTotal.WithLabelValues(infraprom.OutcomeResolved).Inc()
	return Outcome{
		Status:       http.StatusTemporaryRedirect,
		Location:     url,
		CacheControl: responseCacheControl,
	}
}

func (r *Resolver) lookupCache(ctx context.Context, code string) (string, bool) {
	url, ok, err := r.cache.Get(ctx, code)
	if err != nil {
		// Cache unavailability degrades to a miss, never to a failed redirect.
		infraprom.CacheLookups.WithLabelValues(infraprom.CacheError).Inc()
		r.logger.Warn("link cache read failed", zap.String("code", code), zap.Error(err))
		return "", false
	}
	if !ok {
		infraprom.CacheLookups.WithLabelValues(infraprom.CacheMiss).Inc()
		return "", false
	}
	infraprom.CacheLookups.WithLabelValues(infraprom.CacheHit).Inc()
	return url, true
}

// lookupOrigin consults the system of record. A non-nil Outcome terminates
// resolution (not-found or degraded origin).
func (r *Resolver) lookupOrigin(ctx context.Context, code string) (string, *Outcome) {
	originCtx, cancel := context.WithTimeout(ctx, r.originTimeout)
	defer cancel()

	link, err := r.links.GetByCode(originCtx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			infraprom.RedirectsTotal.WithLabelValues(infraprom.OutcomeNotFound).Inc()
			outcome := r.fallback()
			return "", &outcome
		}
		infraprom.RedirectsTotal.WithLabelValues(infraprom.OutcomeFallback).Inc()
		r.logger.Error("origin lookup failed", zap.String("code", code), zap.Error(err))
		outcome := r.fallback()
		return "", &outcome
	}
	return link.URL, nil
}

// fallback sends the visitor to the default landing destination. Validation
// failures, missing links and degraded dependencies all look the same here.
func (r *Resolver) fallback() Outcome {
	return Outcome{
		Status:   http.StatusFound,
		Location: r.fallbackURL,
	}
}

// repopulate runs detached from the request; it deliberately ignores caller
// cancellation because the warmed entry has value beyond this response.
func (r *Resolver) repopulate(code, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), detachedOpTimeout)
	defer cancel()

	if err := r.cache.Set(ctx, code, url); err != nil {
		r.logger.Warn("link cache repopulate failed", zap.String("code", code), zap.Error(err))
	}
}

// publish hands the click record to the queue without the response waiting
// on it. Failures are logged at this boundary and go no further.
func (r *Resolver) publish(record analytics.ClickRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), detachedOpTimeout)
	defer cancel()

	seq, err := r.queue.Publish(ctx, record)
	if err != nil {
		infraprom.PublishFailures.Inc()
		r.logger.Error("click publish failed", zap.String("code", record.ShortCode), zap.Error(err))
		return
	}
	r.logger.Debug("click enqueued",
		zap.String("code", record.ShortCode),
		zap.Uint64("dispatch_id", seq),
	)
}
