package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	appErrors "github.com/noah-isme/oficios-api/pkg/errors"
)

const defaultCacheTTL = 5 * time.Minute

// CacheStore persists JSON-encodable payloads by key. Get reports
// appErrors.ErrCacheMiss for absent keys.
type CacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheServiceParams configures a CacheService. A nil Store disables caching
// while still coalescing concurrent fills.
type CacheServiceParams struct {
	Store   CacheStore
	Metrics *MetricsService
	TTL     time.Duration
	Logger  *zap.Logger
}

// CacheService fronts read models that are expensive to compute. Store
// failures degrade to recomputation and never fail the caller.
type CacheService struct {
	store   CacheStore
	metrics *MetricsService
	ttl     time.Duration
	log     *zap.Logger
	flight  singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

// NewCacheService builds the service from params.
func NewCacheService(params CacheServiceParams) *CacheService {
	svc := &CacheService{
		store:       params.Store,
		metrics:     params.Metrics,
		ttl:         params.TTL,
		log:         params.Logger,
		generations: map[string]uint64{},
	}
	if svc.ttl <= 0 {
		svc.ttl = defaultCacheTTL
	}
	if svc.log == nil {
		svc.log = zap.NewNop()
	}
	return svc
}

// Enabled reports whether a backing store is configured.
func (s *CacheService) Enabled() bool {
	return s != nil && s.store != nil
}

// Remember decodes the cached value of key into dest, or runs fill once for
// all concurrent callers of key and stores its result. It returns dest on a
// hit and fill's result otherwise. Fill errors are returned and never cached,
// and a fill that overlaps a Delete of key is returned but not stored.
func (s *CacheService) Remember(ctx context.Context, key string, dest interface{}, ttl time.Duration, fill func(context.Context) (interface{}, error)) (interface{}, bool, error) {
	if s == nil {
		value, err := fill(ctx)
		return value, false, err
	}
	if s.lookup(ctx, key, dest) {
		return dest, true, nil
	}

	value, err, _ := s.flight.Do(key, func() (interface{}, error) {
		gen := s.generation(key)
		value, err := fill(ctx)
		if err == nil && s.generation(key) == gen {
			s.save(ctx, key, value, ttl)
		}
		return value, err
	})
	if err != nil {
		return nil, false, err
	}
	return value, false, nil
}

// Delete drops keys from the store. The error is returned for callers that
// care; the failure is already logged.
func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if s == nil || len(keys) == 0 {
		return nil
	}
	s.mu.Lock()
	for _, key := range keys {
		s.generations[key]++
		s.flight.Forget(key)
	}
	s.mu.Unlock()
	if !s.Enabled() {
		return nil
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.log.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}

func (s *CacheService) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[key]
}

func (s *CacheService) lookup(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.store.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.log.Warn("cache read failed, recomputing", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

func (s *CacheService) save(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	start := time.Now()
	err := s.store.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
