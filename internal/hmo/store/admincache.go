package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"alapay/internal/hmo/models"
	id "alapay/pkg/domain"
)

// directory is the read side the cache decorates; satisfied by InMemory and
// Postgres.
type directory interface {
	FindByID(ctx context.Context, hmoID id.HMOID) (*models.HMO, error)
}

// AdminSetCache is a read-through Redis decorator over an HMO directory.
// The ownership gate runs on every HMO-scoped mutation, so the administrator
// set is cached with a short TTL. Cache failures fall through to the inner
// directory; the cache is best-effort, never authoritative.
type AdminSetCache struct {
	inner  directory
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewAdminSetCache wraps a directory with a Redis administrator-set cache.
func NewAdminSetCache(inner directory, client *redis.Client, ttl time.Duration, logger *slog.Logger) *AdminSetCache {
	return &AdminSetCache{inner: inner, client: client, ttl: ttl, logger: logger}
}

type cachedHMO struct {
	Name             string   `json:"name"`
	Status           string   `json:"status"`
	AdministratorIDs []string `json:"administrator_ids"`
}

func (c *AdminSetCache) FindByID(ctx context.Context, hmoID id.HMOID) (*models.HMO, error) {
	key := cacheKey(hmoID)

	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var cached cachedHMO
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return c.fromCache(hmoID, cached), nil
		}
		// Corrupt entry: drop it and reload from the directory.
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "hmo admin cache read failed, falling through",
			"hmo_id", hmoID.String(),
			"error", err,
		)
	}

	hmo, err := c.inner.FindByID(ctx, hmoID)
	if err != nil {
		return nil, err
	}

	c.fill(ctx, key, hmo)
	return hmo, nil
}

func (c *AdminSetCache) fromCache(hmoID id.HMOID, cached cachedHMO) *models.HMO {
	adminIDs := make([]id.UserID, 0, len(cached.AdministratorIDs))
	for _, raw := range cached.AdministratorIDs {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		adminIDs = append(adminIDs, id.UserID(parsed))
	}
	return &models.HMO{
		ID:               hmoID,
		Name:             cached.Name,
		Status:           models.HMOStatus(cached.Status),
		AdministratorIDs: adminIDs,
	}
}

func (c *AdminSetCache) fill(ctx context.Context, key string, hmo *models.HMO) {
	adminIDs := make([]string, 0, len(hmo.AdministratorIDs))
	for _, adminID := range hmo.AdministratorIDs {
		adminIDs = append(adminIDs, adminID.String())
	}
	payload, err := json.Marshal(cachedHMO{
		Name:             hmo.Name,
		Status:           string(hmo.Status),
		AdministratorIDs: adminIDs,
	})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "hmo admin cache write failed",
			"hmo_id", hmo.ID.String(),
			"error", err,
		)
	}
}

// Invalidate drops the cached administrator set, for provisioning flows that
// change HMO membership.
func (c *AdminSetCache) Invalidate(ctx context.Context, hmoID id.HMOID) error {
	return c.client.Del(ctx, cacheKey(hmoID)).Err()
}

func cacheKey(hmoID id.HMOID) string {
	return "hmo:admins:" + hmoID.String()
}
