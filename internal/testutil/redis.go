//go:build integration

package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// TestDB is the Redis database integration tests write to.
const TestDB = 15

// RedisAddr returns the address of the test Redis (NEWTSIM_TEST_REDIS_ADDR,
// default localhost:6379).
func RedisAddr() string {
	if addr := os.Getenv("NEWTSIM_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// SkipIfNoRedis skips the test if the test Redis is not reachable.
func SkipIfNoRedis(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: TestDB})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", RedisAddr(), err)
	}
}

// RedisClient returns a client on the flushed test database.
func RedisClient(t *testing.T) *redis.Client {
	t.Helper()
	SkipIfNoRedis(t)
	client := redis.NewClient(&redis.Options{Addr: RedisAddr(), DB: TestDB})
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flushing DB %d: %v", TestDB, err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// ReadEntry reads the hash at "TABLE|key".
func ReadEntry(t *testing.T, client *redis.Client, table, key string) map[string]string {
	t.Helper()

	redisKey := table + "|" + key
	vals, err := client.HGetAll(context.Background(), redisKey).Result()
	if err != nil {
		t.Fatalf("reading %s: %v", redisKey, err)
	}
	return vals
}
