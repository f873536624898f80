// Package cache provides a read-through lookup cache in front of the policy
// repository. Lookups are the hot path of the portal (every operator search
// refetches the full policy list upstream), so results are cached per employee
// with a short TTL and concurrent lookups for the same employee are collapsed.
package cache

import (
	"context"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"claimflow/internal/platform/redis"
	"claimflow/internal/policy"
)

const keyPrefix = "claimflow:policy:employee:"

// Store wraps a policy.Repository with caching. It satisfies
// policy.Repository itself so callers stay oblivious.
type Store struct {
	repo   policy.Repository
	redis  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

func New(repo policy.Repository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{repo: repo, redis: client, ttl: ttl, logger: logger}
}

// FindByEmployee serves from redis when possible and collapses concurrent
// upstream fetches for the same employee. Empty results are never cached, so
// a freshly created policy shows up on the next lookup. Cache failures
// degrade to a direct fetch.
func (s *Store) FindByEmployee(ctx context.Context, employeeID string) (*policy.Policy, error) {
	if cached := s.fromCache(ctx, employeeID); cached != nil {
		return cached, nil
	}

	v, err, _ := s.group.Do(employeeID, func() (any, error) {
		found, err := s.repo.FindByEmployee(ctx, employeeID)
		if err != nil {
			return nil, err
		}
		if found != nil {
			s.toCache(ctx, employeeID, found)
		}
		return found, nil
	})
	if err != nil {
		return nil, err
	}
	p, _ := v.(*policy.Policy)
	return p, nil
}

// PatchBenefitUsage delegates the commit and invalidates the cached entry so
// the next lookup reflects the authoritative figure.
func (s *Store) PatchBenefitUsage(ctx context.Context, employeeID, benefitType string, newUsed float64) error {
	if err := s.repo.PatchBenefitUsage(ctx, employeeID, benefitType, newUsed); err != nil {
		return err
	}
	s.Invalidate(ctx, employeeID)
	return nil
}

// Invalidate drops the cached lookup for an employee.
func (s *Store) Invalidate(ctx context.Context, employeeID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, keyPrefix+employeeID).Err(); err != nil {
		s.logger.Warn("policy cache invalidation failed", "employee_id", employeeID, "error", err)
	}
}

func (s *Store) fromCache(ctx context.Context, employeeID string) *policy.Policy {
	if s.redis == nil {
		return nil
	}
	raw, err := s.redis.Get(ctx, keyPrefix+employeeID).Bytes()
	if err != nil {
		return nil
	}
	var p policy.Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn("corrupt policy cache entry", "employee_id", employeeID, "error", err)
		s.Invalidate(ctx, employeeID)
		return nil
	}
	return &p
}

func (s *Store) toCache(ctx context.Context, employeeID string, p *policy.Policy) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, keyPrefix+employeeID, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("policy cache write failed", "employee_id", employeeID, "error", err)
	}
}
