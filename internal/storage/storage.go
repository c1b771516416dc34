// Package storage caches drug-information lookups so repeated scans of the
// same package do not hit the public API again.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hyperjump/pillbox/internal/models"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores drug information keyed by canonical medicine name.
type Cache interface {
	Get(ctx context.Context, key string) (*models.DrugInfo, error)
	// Set stores info under key. A zero ttl means the entry never expires.
	Set(ctx context.Context, key string, info *models.DrugInfo, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// Key folds a medicine name into a cache key.
func Key(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(now, expiresAt time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}
