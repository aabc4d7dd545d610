package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Dashboard cache keys
const dashboardKeyFmt = "dashboard:%s"

var client *redis.Client

// Init initializes the Redis connection. The service degrades gracefully
// when Redis is unavailable: every helper becomes a no-op miss.
func Init() error {
	host := os.Getenv("REDIS_SERVICE_HOST")
	if host == "" {
		host = "redis" // fallback to service name
	}
	port := os.Getenv("REDIS_SERVICE_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client (nil when degraded)
func GetClient() *redis.Client {
	return client
}

func dashboardKey(workspaceID uuid.UUID) string {
	return fmt.Sprintf(dashboardKeyFmt, workspaceID)
}

// GetDashboard loads a cached dashboard payload into dest. Returns false on
// miss or when Redis is down.
func GetDashboard(ctx context.Context, workspaceID uuid.UUID, dest interface{}) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, dashboardKey(workspaceID)).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		log.Printf("[Cache] corrupt dashboard entry for %s: %v", workspaceID, err)
		return false
	}
	return true
}

// SetDashboard stores a dashboard payload with a TTL.
func SetDashboard(ctx context.Context, workspaceID uuid.UUID, payload interface{}, ttl time.Duration) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := client.Set(ctx, dashboardKey(workspaceID), raw, ttl).Err(); err != nil {
		log.Printf("[Cache] dashboard set failed: %v", err)
	}
}

// InvalidateDashboard drops the cached dashboard after invoice or client
// mutations so the next read recomputes.
func InvalidateDashboard(ctx context.Context, workspaceID uuid.UUID) {
	if client == nil {
		return
	}
	if err := client.Del(ctx, dashboardKey(workspaceID)).Err(); err != nil {
		log.Printf("[Cache] dashboard invalidate failed: %v", err)
	}
}
