package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aidrelay/aidrelay-api/internal/dto"
	"github.com/aidrelay/aidrelay-api/internal/models"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
)

type directoryStore interface {
	Lookup(ctx context.Context, filter models.DirectoryFilter) ([]models.DirectoryEntry, error)
}

type directoryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// directoryCachePrefix namespaces every cached lookup so invalidation can
// target the directory without touching other keys.
const directoryCachePrefix = "directory:lookup:"

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// DirectoryConfig tunes the public directory lookup.
type DirectoryConfig struct {
	CacheTTL   time.Duration
	MaxResults int
}

// DirectoryService serves the public, unauthenticated group directory. It is
// read-only; group rows are maintained by the external admin system.
type DirectoryService struct {
	repo    directoryStore
	cache   directoryCache
	metrics cacheObserver
	logger  *zap.Logger
	cfg     DirectoryConfig
}

// NewDirectoryService constructs the directory service.
func NewDirectoryService(repo directoryStore, cache directoryCache, metrics cacheObserver, logger *zap.Logger, cfg DirectoryConfig) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.MaxResults <= 0 || cfg.MaxResults > 200 {
		cfg.MaxResults = 200
	}
	return &DirectoryService{repo: repo, cache: cache, metrics: metrics, logger: logger, cfg: cfg}
}

// Lookup returns verified groups matching the region and category filter.
// Results are cached per filter; the cache holds only the public projection
// that the endpoint serves anyway.
func (s *DirectoryService) Lookup(ctx context.Context, region string, categories []string) ([]dto.DirectoryEntryResponse, error) {
	for _, c := range categories {
		if !models.ValidCategory(c) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", c))
		}
	}

	key := s.cacheKey(region, categories)
	if s.cache != nil {
		start := time.Now()
		var cached []dto.DirectoryEntryResponse
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true, time.Since(start))
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false, time.Since(start))
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("directory cache read failed", zap.Error(err))
		}
	}

	entries, err := s.repo.Lookup(ctx, models.DirectoryFilter{
		Region:     region,
		Categories: categories,
		Limit:      s.cfg.MaxResults,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "directory lookup failed")
	}

	result := make([]dto.DirectoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, dto.DirectoryEntryResponse{
			ID:                   entry.ID,
			Name:                 entry.Name,
			ServiceArea:          entry.ServiceArea,
			BroadcastServiceArea: entry.BroadcastServiceArea,
			BroadcastCategories:  entry.BroadcastCategories,
			PublicKey:            base64.StdEncoding.EncodeToString(entry.PublicKey),
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("directory cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// InvalidateCache drops every cached lookup. Called when the external
// group-management system changes a listing, so stale directory pages do not
// outlive their TTL.
func (s *DirectoryService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.DeleteByPattern(ctx, directoryCachePrefix+"*"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate directory cache")
	}
	return nil
}

func (s *DirectoryService) cacheKey(region string, categories []string) string {
	sorted := append([]string(nil), categories...)
	sort.Strings(sorted)
	raw := strings.ToLower(region) + "|" + strings.Join(sorted, ",")
	sum := sha256.Sum256([]byte(raw))
	return directoryCachePrefix + hex.EncodeToString(sum[:8])
}
