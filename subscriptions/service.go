// Package subscriptions verifies 1Sub subscription status, with an
// optional read-through cache over the verify endpoint.
package subscriptions

import (
	"context"
	"net/http"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-onesub/core"
	"github.com/goliatone/go-onesub/identity"
)

const verifyPath = "/tools/subscriptions/verify"

// Verification is the decoded subscription state for one user. Raw keeps
// the full response body for fields the struct does not surface.
type Verification struct {
	Active           bool
	PlanID           string
	PlanName         string
	Status           string
	ExpiresAt        string
	CreditsRemaining int
	OneSubUserID     string
	Raw              map[string]any
}

// Config carries the service dependencies. A nil Cache with CacheEnabled
// set builds the library's in-process cache with CacheTTL.
type Config struct {
	Requester    core.Requester
	Cache        repositorycache.CacheService
	CacheEnabled bool
	CacheTTL     time.Duration
	Logger       core.Logger
	Metrics      core.MetricsRecorder
}

// Service issues subscription verification calls. It is safe for
// concurrent use.
type Service struct {
	requester core.Requester
	cache     repositorycache.CacheService
	logger    core.Logger
	metrics   core.MetricsRecorder
	keys      *cacheKeySet
}

// New builds a Service from cfg.
func New(cfg Config) (*Service, error) {
	if cfg.Requester == nil {
		return nil, core.NewValidationError("subscriptions: requester is required")
	}

	cache := cfg.Cache
	if cache == nil && cfg.CacheEnabled {
		config := repositorycache.DefaultConfig()
		config.TTL = cfg.CacheTTL
		if config.TTL <= 0 {
			config.TTL = time.Minute
		}
		service, err := repositorycache.NewCacheService(config)
		if err != nil {
			return nil, core.ClientErrorMapper(err)
		}
		cache = service
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}

	return &Service{
		requester: cfg.Requester,
		cache:     cache,
		logger:    glog.Ensure(cfg.Logger),
		metrics:   metrics,
		keys:      newCacheKeySet(),
	}, nil
}

// Verify checks the subscription for id against the API, serving repeat
// lookups from the cache while the entry is fresh. A fetched result is
// cached under both the lookup key and the resolved 1Sub user id, so a
// later lookup by either form hits.
func (s *Service) Verify(ctx context.Context, id identity.Identifier) (Verification, error) {
	if err := id.Validate(); err != nil {
		return Verification{}, err
	}

	if s.cache == nil {
		return s.fetch(ctx, id)
	}

	logical := id.CacheKey()
	key := CacheKeyFor(logical)

	fetchedFresh := false
	verification, err := repositorycache.GetOrFetch(ctx, s.cache, key, func(ctx context.Context) (Verification, error) {
		fetchedFresh = true
		return s.fetch(ctx, id)
	})
	if err != nil {
		return Verification{}, err
	}
	if fetchedFresh {
		s.keys.remember(key)
		core.RecordCounter(ctx, s.metrics, "onesub.subscriptions.cache_misses", 1, nil)
		s.primeResolvedKey(ctx, verification, logical)
	} else {
		core.RecordCounter(ctx, s.metrics, "onesub.subscriptions.cache_hits", 1, nil)
	}
	return verification, nil
}

// VerifyByUserID verifies by the user's 1Sub id, the fastest lookup form.
func (s *Service) VerifyByUserID(ctx context.Context, oneSubUserID string) (Verification, error) {
	if strings.TrimSpace(oneSubUserID) == "" {
		return Verification{}, core.NewValidationError("User ID must be provided")
	}
	return s.Verify(ctx, identity.ByUserID(oneSubUserID))
}

// VerifyByToolUserID verifies by the caller's own user id.
func (s *Service) VerifyByToolUserID(ctx context.Context, toolUserID string) (Verification, error) {
	if strings.TrimSpace(toolUserID) == "" {
		return Verification{}, core.NewValidationError("Tool user ID must be provided")
	}
	return s.Verify(ctx, identity.ByToolUserID(toolUserID))
}

// VerifyByEmail hashes email and verifies by the hash.
func (s *Service) VerifyByEmail(ctx context.Context, email string) (Verification, error) {
	if strings.TrimSpace(email) == "" {
		return Verification{}, core.NewValidationError("Email must be provided")
	}
	return s.Verify(ctx, identity.ByEmail(email))
}

// IsActive reports whether the user holds an active subscription. Lookup
// failures are logged and reported as inactive rather than returned.
func (s *Service) IsActive(ctx context.Context, id identity.Identifier) bool {
	verification, err := s.Verify(ctx, id)
	if err != nil {
		core.LogDebug(ctx, s.logger, "subscription check failed", map[string]any{
			"error": err.Error(),
		})
		return false
	}
	return verification.Active
}

// InvalidateCache drops the cached verification for a 1Sub user id.
func (s *Service) InvalidateCache(ctx context.Context, oneSubUserID string) error {
	if s.cache == nil {
		return nil
	}
	key := CacheKeyFor(identity.SubscriptionCacheKey(oneSubUserID))
	s.keys.forget(key)
	return s.cache.Delete(ctx, key)
}

// ClearCache drops every cached verification this service has written.
func (s *Service) ClearCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, key := range s.keys.drain() {
		if err := s.cache.Delete(ctx, key); err != nil {
			core.LogDebug(ctx, s.logger, "cache invalidation failed", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
}

func (s *Service) fetch(ctx context.Context, id identity.Identifier) (Verification, error) {
	started := time.Now()
	body, err := s.requester.Request(ctx, http.MethodPost, verifyPath, id.Params())
	if err != nil {
		return Verification{}, err
	}
	core.RecordHistogram(ctx, s.metrics, "onesub.subscriptions.verify_ms", float64(time.Since(started).Milliseconds()), nil)
	return decodeVerification(body), nil
}

// primeResolvedKey re-homes a fresh verification under the resolved 1Sub
// user id when the lookup used a different identifier form.
func (s *Service) primeResolvedKey(ctx context.Context, verification Verification, logical string) {
	if verification.OneSubUserID == "" {
		return
	}
	resolved := identity.SubscriptionCacheKey(verification.OneSubUserID)
	if resolved == logical {
		return
	}
	key := CacheKeyFor(resolved)
	if err := s.cache.Delete(ctx, key); err != nil {
		core.LogDebug(ctx, s.logger, "cache invalidation failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
	if _, err := repositorycache.GetOrFetch(ctx, s.cache, key, func(context.Context) (Verification, error) {
		return verification, nil
	}); err != nil {
		return
	}
	s.keys.remember(key)
}

func decodeVerification(body map[string]any) Verification {
	return Verification{
		Active:           core.ReadBool(body, false, "active", "isActive"),
		PlanID:           core.ReadString(body, "plan", "planId"),
		PlanName:         core.ReadString(body, "planName", "plan_name"),
		Status:           core.ReadString(body, "status"),
		ExpiresAt:        core.ReadString(body, "expiresAt", "expires_at"),
		CreditsRemaining: core.ReadInt(body, 0, "creditsRemaining", "credits_remaining"),
		OneSubUserID:     core.ReadString(body, "oneSubUserId", "onesub_user_id"),
		Raw:              core.CopyMap(body),
	}
}
