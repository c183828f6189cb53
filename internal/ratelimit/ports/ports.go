package ports

import (
	"context"
	"time"

	"ipvcore/internal/ratelimit/models"
)

// BucketStore counts requests per key inside a window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}
