package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/medihub/medihub-api/internal/redis"
)

type Service struct {
	repo  Repository
	cache redisclient.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewService wraps the repository with a read-through cache for the single
// user reads. cache may be nil, in which case every read hits the store.
func NewService(repo Repository, cache redisclient.Cache, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl, log: log}
}

func entryKey(id uuid.UUID) string {
	return "directory:entry:" + id.String()
}

func doctorKey(id uuid.UUID) string {
	return "directory:doctor:" + id.String()
}

// Lookup resolves a user id to its display entry. Entries are cached with a
// short TTL; cache failures fall back to the store and are only logged.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (*Entry, error) {
	key := entryKey(id)

	var cached Entry
	if s.cacheRead(ctx, key, &cached) {
		return &cached, nil
	}

	e, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheWrite(ctx, key, e)
	return e, nil
}

// GetDoctor returns a public doctor profile, cached. This is the hot path
// behind the unauthenticated browse pages.
func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	key := doctorKey(id)

	var cached Doctor
	if s.cacheRead(ctx, key, &cached) {
		return &cached, nil
	}

	d, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheWrite(ctx, key, d)
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context, specialization string) ([]Doctor, error) {
	return s.repo.ListDoctors(ctx, specialization)
}

// Invalidate drops the cached views of a user. Called after a profile
// update so stale entries never outlive a change by more than one request.
func (s *Service) Invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}

	for _, key := range []string{entryKey(id), doctorKey(id)} {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("directory cache invalidation failed")
		}
	}
}

// cacheRead loads key into dst, reporting whether it succeeded. Misses are
// silent; real cache errors are logged and treated as misses.
func (s *Service) cacheRead(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redisclient.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("key", key).Msg("directory cache read failed")
		}
		return false
	}

	return json.Unmarshal(data, dst) == nil
}

func (s *Service) cacheWrite(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("directory cache write failed")
	}
}
