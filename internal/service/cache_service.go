package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/tarpaulin-api/internal/models"
)

// CourseDetailCache is a cache-aside layer for course detail documents.
// A nil client disables caching; every method degrades to a no-op miss so
// callers never need to branch on cache availability.
type CourseDetailCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCourseDetailCache builds the cache layer.
func NewCourseDetailCache(client *redis.Client, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *CourseDetailCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseDetailCache{client: client, ttl: ttl, metrics: metrics, logger: logger}
}

func courseDetailKey(courseID int64) string {
	return fmt.Sprintf("course:detail:%d", courseID)
}

// Get returns the cached detail and whether it was present.
func (c *CourseDetailCache) Get(ctx context.Context, courseID int64) (*models.CourseDetail, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, courseDetailKey(courseID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("course detail cache read failed", zap.Error(err))
		}
		c.metrics.RecordCacheLookup(false)
		return nil, false
	}
	var detail models.CourseDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		c.logger.Warn("course detail cache decode failed", zap.Error(err))
		c.metrics.RecordCacheLookup(false)
		return nil, false
	}
	c.metrics.RecordCacheLookup(true)
	return &detail, true
}

// Set stores the detail document under the course's key.
func (c *CourseDetailCache) Set(ctx context.Context, detail *models.CourseDetail) {
	if c == nil || c.client == nil || detail == nil {
		return
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, courseDetailKey(detail.ID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("course detail cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached detail after a mutation.
func (c *CourseDetailCache) Invalidate(ctx context.Context, courseID int64) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, courseDetailKey(courseID)).Err(); err != nil {
		c.logger.Warn("course detail cache invalidation failed", zap.Error(err))
	}
}
