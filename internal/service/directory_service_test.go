package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrelay/aidrelay-api/internal/models"
	appErrors "github.com/aidrelay/aidrelay-api/pkg/errors"
)

type directoryRepoStub struct {
	entries []models.DirectoryEntry
	err     error
	calls   int
}

func (s *directoryRepoStub) Lookup(ctx context.Context, filter models.DirectoryFilter) ([]models.DirectoryEntry, error) {
	s.calls++
	return s.entries, s.err
}

type memoryCacheStub struct {
	values   map[string][]byte
	sets     int
	patterns []string
}

func (s *memoryCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *memoryCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if s.values == nil {
		s.values = map[string][]byte{}
	}
	s.values[key] = raw
	s.sets++
	return nil
}

func (s *memoryCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.values {
		if strings.HasPrefix(key, prefix) {
			delete(s.values, key)
		}
	}
	return nil
}

func TestDirectoryLookupEncodesPublicKey(t *testing.T) {
	repo := &directoryRepoStub{entries: []models.DirectoryEntry{{
		ID:                  "grp-1",
		Name:                "Kieznetz Mitte",
		ServiceArea:         "Berlin",
		BroadcastCategories: pq.StringArray{"FOOD", "SHELTER"},
		PublicKey:           []byte{1, 2, 3, 4},
	}}}
	svc := NewDirectoryService(repo, nil, nil, nil, DirectoryConfig{})

	entries, err := svc.Lookup(context.Background(), "Berlin", []string{"FOOD"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}), entries[0].PublicKey)
}

func TestDirectoryLookupServesFromCache(t *testing.T) {
	repo := &directoryRepoStub{entries: []models.DirectoryEntry{{ID: "grp-1", PublicKey: []byte{1}}}}
	cache := &memoryCacheStub{}
	svc := NewDirectoryService(repo, cache, nil, nil, DirectoryConfig{CacheTTL: time.Minute})

	first, err := svc.Lookup(context.Background(), "Berlin", []string{"FOOD"})
	require.NoError(t, err)
	second, err := svc.Lookup(context.Background(), "Berlin", []string{"FOOD"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.sets)
}

func TestDirectoryLookupCacheKeyIgnoresCategoryOrder(t *testing.T) {
	repo := &directoryRepoStub{}
	cache := &memoryCacheStub{}
	svc := NewDirectoryService(repo, cache, nil, nil, DirectoryConfig{CacheTTL: time.Minute})

	_, err := svc.Lookup(context.Background(), "Berlin", []string{"FOOD", "MEDICAL"})
	require.NoError(t, err)
	_, err = svc.Lookup(context.Background(), "Berlin", []string{"MEDICAL", "FOOD"})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls)
}

func TestDirectoryInvalidateCacheForcesFreshLookup(t *testing.T) {
	repo := &directoryRepoStub{entries: []models.DirectoryEntry{{ID: "grp-1", PublicKey: []byte{1}}}}
	cache := &memoryCacheStub{}
	svc := NewDirectoryService(repo, cache, nil, nil, DirectoryConfig{CacheTTL: time.Minute})

	_, err := svc.Lookup(context.Background(), "Berlin", []string{"FOOD"})
	require.NoError(t, err)
	require.NoError(t, svc.InvalidateCache(context.Background()))
	_, err = svc.Lookup(context.Background(), "Berlin", []string{"FOOD"})
	require.NoError(t, err)

	assert.Equal(t, 2, repo.calls)
	assert.Equal(t, []string{"directory:lookup:*"}, cache.patterns)
}

func TestDirectoryInvalidateCacheWithoutCache(t *testing.T) {
	svc := NewDirectoryService(&directoryRepoStub{}, nil, nil, nil, DirectoryConfig{})
	assert.NoError(t, svc.InvalidateCache(context.Background()))
}

func TestDirectoryLookupRejectsUnknownCategory(t *testing.T) {
	svc := NewDirectoryService(&directoryRepoStub{}, nil, nil, nil, DirectoryConfig{})

	_, err := svc.Lookup(context.Background(), "Berlin", []string{"PETCARE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
