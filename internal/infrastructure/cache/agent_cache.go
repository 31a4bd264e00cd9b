package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chatforge/internal/domain/models"
	"chatforge/internal/domain/repositories"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const agentCacheTTL = 5 * time.Minute

// CachedAgentRepository is a cache-aside decorator over the agent
// repository. Agent configs are read on every processed message but
// change rarely; cache misses and redis errors fall through to the
// inner repository.
type CachedAgentRepository struct {
	inner  repositories.AgentRepository
	client *RedisClient
	logger *slog.Logger
}

func NewCachedAgentRepository(inner repositories.AgentRepository, client *RedisClient, logger *slog.Logger) *CachedAgentRepository {
	return &CachedAgentRepository{
		inner:  inner,
		client: client,
		logger: logger,
	}
}

func agentKey(id uuid.UUID) string {
	return fmt.Sprintf("agent:%s", id)
}

func (c *CachedAgentRepository) GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	data, err := c.client.Get(ctx, agentKey(id)).Bytes()
	if err == nil {
		var agent models.Agent
		if err := json.Unmarshal(data, &agent); err == nil {
			return &agent, nil
		}
	} else if err != redis.Nil && c.logger != nil {
		c.logger.Warn("agent cache read failed", "error", err, "agent_id", id)
	}

	agent, err := c.inner.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(agent); err == nil {
		if err := c.client.Set(ctx, agentKey(id), data, agentCacheTTL).Err(); err != nil && c.logger != nil {
			c.logger.Warn("agent cache write failed", "error", err, "agent_id", id)
		}
	}

	return agent, nil
}

func (c *CachedAgentRepository) CreateAgent(ctx context.Context, agent *models.Agent) error {
	return c.inner.CreateAgent(ctx, agent)
}

func (c *CachedAgentRepository) GetAgentsByAccount(ctx context.Context, accountID int64) ([]*models.Agent, error) {
	return c.inner.GetAgentsByAccount(ctx, accountID)
}

func (c *CachedAgentRepository) UpdateAgent(ctx context.Context, agent *models.Agent) error {
	if err := c.inner.UpdateAgent(ctx, agent); err != nil {
		return err
	}
	c.invalidate(ctx, agent.ID)
	return nil
}

func (c *CachedAgentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedAgentRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	return c.inner.CountByAccount(ctx, accountID)
}

func (c *CachedAgentRepository) invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.client.Del(ctx, agentKey(id)).Err(); err != nil && c.logger != nil {
		c.logger.Warn("agent cache invalidation failed", "error", err, "agent_id", id)
	}
}
