package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

const policyCacheKeyPrefix = "sla:policies:"

// CachedPolicyRepository is a redis read-through cache in front of the
// policy table. Policies are hot on the SLA check path and change rarely, so
// a short TTL is enough; any redis failure degrades to the source.
type CachedPolicyRepository struct {
	source SLAPolicyRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedPolicyRepository wraps a policy repository with caching.
func NewCachedPolicyRepository(source SLAPolicyRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedPolicyRepository {
	return &CachedPolicyRepository{source: source, client: client, ttl: ttl, logger: logger}
}

func (r *CachedPolicyRepository) ListActiveByOrganization(ctx context.Context, organizationID string) ([]domain.SLAPolicy, error) {
	key := policyCacheKeyPrefix + organizationID

	if r.client != nil {
		cached, err := r.client.Get(ctx, key).Bytes()
		if err == nil {
			var policies []domain.SLAPolicy
			if err := json.Unmarshal(cached, &policies); err == nil {
				return policies, nil
			}
		} else if err != redis.Nil {
			r.logger.Warn("policy cache read failed", zap.Error(err))
		}
	}

	policies, err := r.source.ListActiveByOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	if r.client != nil {
		if payload, err := json.Marshal(policies); err == nil {
			if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
				r.logger.Warn("policy cache write failed", zap.Error(err))
			}
		}
	}
	return policies, nil
}
