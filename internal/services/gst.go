package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/veldtops/fieldsuite-backend/internal/clients/rapidapi"
	"github.com/veldtops/fieldsuite-backend/internal/clients/redis"
	"github.com/veldtops/fieldsuite-backend/internal/data/db"
	"github.com/veldtops/fieldsuite-backend/internal/observability"
	"github.com/veldtops/fieldsuite-backend/internal/platform/envutil"
	"github.com/veldtops/fieldsuite-backend/internal/platform/logger"
)

// GSTService validates GSTINs offline and resolves registrations through the
// lookup vendor, cache-first. Registrations change rarely, so a day of cache
// is safe.
type GSTService interface {
	Lookup(ctx context.Context, gstin string) (*rapidapi.GSTINDetails, error)
	// Verify is the offline half only; org profile updates call it before
	// accepting a GSTIN.
	Verify(gstin string) error
}

type gstService struct {
	log    *logger.Logger
	client rapidapi.GSTClient
	cache  redis.KVCache // nil when Redis is not configured
	ttl    time.Duration

	mu    sync.Mutex
	local map[string]localGSTEntry
}

type localGSTEntry struct {
	details   rapidapi.GSTINDetails
	expiresAt time.Time
}

func NewGSTService(baseLog *logger.Logger, client rapidapi.GSTClient, cache redis.KVCache) GSTService {
	return &gstService{
		log:    baseLog.With("service", "GSTService"),
		client: client,
		cache:  cache,
		ttl:    envutil.Duration("GST_CACHE_TTL", 24*time.Hour),
		local:  make(map[string]localGSTEntry),
	}
}

func (s *gstService) Verify(gstin string) error {
	if !ValidGSTIN(gstin) {
		return db.ValidationError("invalid gstin")
	}
	return nil
}

func (s *gstService) Lookup(ctx context.Context, raw string) (*rapidapi.GSTINDetails, error) {
	gstin := NormalizeGSTIN(raw)
	if !ValidGSTIN(gstin) {
		return nil, db.ValidationError("invalid gstin")
	}

	if details := s.cached(ctx, gstin); details != nil {
		observability.Current().IncGSTLookup("cache")
		return details, nil
	}

	if s.client == nil {
		return nil, db.ValidationError("gst lookup is not configured")
	}
	details, err := s.client.LookupGSTIN(ctx, gstin)
	if err != nil {
		return nil, err
	}
	observability.Current().IncGSTLookup("provider")
	s.store(ctx, gstin, details)
	return details, nil
}

func gstCacheKey(gstin string) string { return "gst:" + gstin }

func (s *gstService) cached(ctx context.Context, gstin string) *rapidapi.GSTINDetails {
	if s.cache != nil {
		raw, found, err := s.cache.Get(ctx, gstCacheKey(gstin))
		if err != nil {
			s.log.Warn("GST cache read failed", "error", err)
		} else if found {
			var details rapidapi.GSTINDetails
			if err := json.Unmarshal(raw, &details); err == nil {
				return &details
			}
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.local[gstin]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(s.local, gstin)
		return nil
	}
	details := entry.details
	return &details
}

func (s *gstService) store(ctx context.Context, gstin string, details *rapidapi.GSTINDetails) {
	if details == nil {
		return
	}
	if s.cache != nil {
		raw, err := json.Marshal(details)
		if err == nil {
			if err := s.cache.Set(ctx, gstCacheKey(gstin), raw, s.ttl); err != nil {
				s.log.Warn("GST cache write failed", "error", err)
			}
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.local[gstin] = localGSTEntry{details: *details, expiresAt: time.Now().Add(s.ttl)}
}
