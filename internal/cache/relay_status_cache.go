package cache

import (
	"context"
	"sync"
	"time"

	"github.com/codecom/codecom-api/pkg/logger"
	"github.com/codecom/codecom-api/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	relayStatusCacheKey  = "relay_status"
	relayStatusCacheName = "relay_status"
	defaultRelayTTL      = 5 * time.Minute
	relayVerifyTimeout   = 15 * time.Second
)

// Verifier checks the mail relay
type Verifier interface {
	Verify(ctx context.Context) error
}

// RelayStatus is the last known state of the mail relay
type RelayStatus struct {
	Configured bool      `json:"configured"`
	Reachable  bool      `json:"reachable"`
	Error      string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// RelayStatusCache keeps the relay verify result so health checks never dial
type RelayStatusCache struct {
	cache    *gocache.Cache
	verifier Verifier
	ttl      time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// NewRelayStatusCache creates a relay status cache. A nil verifier means the
// relay is not configured and every lookup reports so without probing.
func NewRelayStatusCache(verifier Verifier, ttl time.Duration) *RelayStatusCache {
	if ttl <= 0 {
		ttl = defaultRelayTTL
	}

	return &RelayStatusCache{
		cache:    gocache.New(ttl, 2*ttl),
		verifier: verifier,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Initialize verifies the relay once and stores the result.
// A failed check is logged but does not stop startup.
func (rc *RelayStatusCache) Initialize(ctx context.Context) RelayStatus {
	logger.Info("Verifying mail relay...")
	status := rc.refresh(ctx)

	switch {
	case !status.Configured:
		logger.Warn("Mail relay not configured, submissions will be rejected")
	case status.Reachable:
		logger.Info("Mail relay verified, ready to send emails")
	default:
		logger.Error("Mail relay verification failed", zap.String("error", status.Error))
	}
	return status
}

// Get returns the cached status or verifies the relay on a miss
func (rc *RelayStatusCache) Get(ctx context.Context) RelayStatus {
	if status, ok := rc.cached(); ok {
		metrics.CacheHits.WithLabelValues(relayStatusCacheName).Inc()
		return status
	}

	// Serialize verifies so concurrent health checks dial at most once
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if status, ok := rc.cached(); ok {
		metrics.CacheHits.WithLabelValues(relayStatusCacheName).Inc()
		return status
	}

	metrics.CacheMisses.WithLabelValues(relayStatusCacheName).Inc()
	logger.Debug("Relay status cache miss, probing relay")
	return rc.refresh(ctx)
}

// Invalidate drops the cached status
func (rc *RelayStatusCache) Invalidate() {
	rc.cache.Delete(relayStatusCacheKey)
}

func (rc *RelayStatusCache) cached() (RelayStatus, bool) {
	data, found := rc.cache.Get(relayStatusCacheKey)
	if !found {
		return RelayStatus{}, false
	}
	status, ok := data.(RelayStatus)
	if !ok {
		logger.Error("Invalid relay status cache data type")
		rc.cache.Delete(relayStatusCacheKey)
		return RelayStatus{}, false
	}
	return status, true
}

func (rc *RelayStatusCache) refresh(ctx context.Context) RelayStatus {
	status := RelayStatus{CheckedAt: rc.now()}

	if rc.verifier != nil {
		status.Configured = true

		verifyCtx, cancel := context.WithTimeout(ctx, relayVerifyTimeout)
		err := rc.verifier.Verify(verifyCtx)
		cancel()

		if err != nil {
			status.Error = err.Error()
		} else {
			status.Reachable = true
		}
	}

	rc.cache.Set(relayStatusCacheKey, status, rc.ttl)
	return status
}
