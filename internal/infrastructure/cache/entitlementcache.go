package cache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"formlens/internal/domain/metering"
	"formlens/internal/shared/logger"
)

// CachedEntitlement represents a team's resolved metric limits held in cache.
type CachedEntitlement struct {
	Limits      metering.LimitSet
	PeriodStart time.Time
	PeriodEnd   time.Time
	PlanTier    string
	// FreeTier is set when the team had no effective subscription at resolve
	// time and the limits are the free fallback.
	FreeTier bool
}

// EntitlementCache defines the interface for cached limit resolution
type EntitlementCache interface {
	GetEntitlement(ctx context.Context, teamID uint) (*CachedEntitlement, error)
	SetEntitlement(ctx context.Context, teamID uint, entitlement *CachedEntitlement) error
	InvalidateEntitlement(ctx context.Context, teamID uint) error
}

const (
	entitlementKeyPrefix = "team:entitlement:"
	baseEntitlementTTL   = 30 * time.Minute
	entitlementTTLJitter = 10 * time.Minute // TTL range: 30-40 min (anti-stampede)
	fieldPeriodStart     = "period_start"
	fieldPeriodEnd       = "period_end"
	fieldPlanTier        = "plan_tier"
	fieldFreeTier        = "free_tier"
	limitFieldPrefix     = "limit:"
)

// RedisEntitlementCache implements EntitlementCache using Redis Hash
type RedisEntitlementCache struct {
	client *redis.Client
	logger logger.Interface
}

// NewRedisEntitlementCache creates a new Redis-based entitlement cache
func NewRedisEntitlementCache(client *redis.Client, logger logger.Interface) *RedisEntitlementCache {
	return &RedisEntitlementCache{
		client: client,
		logger: logger,
	}
}

func (c *RedisEntitlementCache) key(teamID uint) string {
	return fmt.Sprintf("%s%d", entitlementKeyPrefix, teamID)
}

// GetEntitlement retrieves the cached limit set, or nil on a cache miss.
func (c *RedisEntitlementCache) GetEntitlement(ctx context.Context, teamID uint) (*CachedEntitlement, error) {
	key := c.key(teamID)

	result, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement from cache: %w", err)
	}

	if len(result) == 0 {
		return nil, nil // Cache miss
	}

	entitlement := &CachedEntitlement{
		Limits: make(metering.LimitSet),
	}

	for field, value := range result {
		if len(field) > len(limitFieldPrefix) && field[:len(limitFieldPrefix)] == limitFieldPrefix {
			metric := metering.MetricType(field[len(limitFieldPrefix):])
			limit, parseErr := strconv.ParseInt(value, 10, 64)
			if parseErr != nil {
				continue
			}
			entitlement.Limits[metric] = limit
		}
	}

	if periodStartStr, ok := result[fieldPeriodStart]; ok {
		periodStartUnix, _ := strconv.ParseInt(periodStartStr, 10, 64)
		entitlement.PeriodStart = time.Unix(periodStartUnix, 0).UTC()
	}

	if periodEndStr, ok := result[fieldPeriodEnd]; ok {
		periodEndUnix, _ := strconv.ParseInt(periodEndStr, 10, 64)
		entitlement.PeriodEnd = time.Unix(periodEndUnix, 0).UTC()
	}

	if planTier, ok := result[fieldPlanTier]; ok {
		entitlement.PlanTier = planTier
	}

	if freeTierStr, ok := result[fieldFreeTier]; ok {
		entitlement.FreeTier = freeTierStr == "1"
	}

	return entitlement, nil
}

// SetEntitlement stores the resolved limit set in cache
func (c *RedisEntitlementCache) SetEntitlement(ctx context.Context, teamID uint, entitlement *CachedEntitlement) error {
	key := c.key(teamID)

	fields := map[string]interface{}{
		fieldPeriodStart: entitlement.PeriodStart.Unix(),
		fieldPeriodEnd:   entitlement.PeriodEnd.Unix(),
		fieldPlanTier:    entitlement.PlanTier,
		fieldFreeTier:    boolToInt(entitlement.FreeTier),
	}
	for metric, limit := range entitlement.Limits {
		fields[limitFieldPrefix+metric.String()] = limit
	}

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key) // Drop stale limit fields from a previous plan
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, entitlementTTLWithJitter())

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set entitlement in cache: %w", err)
	}

	c.logger.Debugw("team entitlement cached",
		"team_id", teamID,
		"plan_tier", entitlement.PlanTier,
		"free_tier", entitlement.FreeTier,
	)

	return nil
}

// InvalidateEntitlement removes the cached limit set. Called whenever a
// webhook event changes the team's subscription state.
func (c *RedisEntitlementCache) InvalidateEntitlement(ctx context.Context, teamID uint) error {
	key := c.key(teamID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate entitlement cache: %w", err)
	}

	c.logger.Debugw("team entitlement cache invalidated",
		"team_id", teamID,
	)

	return nil
}

// entitlementTTLWithJitter returns a randomized TTL to prevent cache stampede.
func entitlementTTLWithJitter() time.Duration {
	jitter := time.Duration(rand.Int64N(int64(entitlementTTLJitter)))
	return baseEntitlementTTL + jitter
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
