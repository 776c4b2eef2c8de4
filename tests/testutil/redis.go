package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	redisOnce      sync.Once
	redisAddr      string
	redisStartErr  error
	redisContainer testcontainers.Container
	redisDBMu      sync.Mutex
	redisNextDB    = 1
)

// NewRedisClient returns a client on a dedicated logical database of a shared
// redis:7 container. The database is flushed before use and the client is
// closed on cleanup. Skipped under -short.
func NewRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis-backed test in short mode")
	}

	redisOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		redisContainer, redisStartErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				Cmd:          []string{"redis-server", "--notify-keyspace-events", "Ex"},
				WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
			},
			Started: true,
		})
		if redisStartErr != nil {
			return
		}
		host, err := redisContainer.Host(ctx)
		if err != nil {
			redisStartErr = err
			return
		}
		port, err := redisContainer.MappedPort(ctx, "6379")
		if err != nil {
			redisStartErr = err
			return
		}
		redisAddr = fmt.Sprintf("%s:%s", host, port.Port())
	})
	require.NoError(t, redisStartErr, "Failed to start Redis container")

	redisDBMu.Lock()
	db := redisNextDB
	redisNextDB++
	if redisNextDB > 15 {
		redisNextDB = 1
	}
	redisDBMu.Unlock()

	client := redis.NewClient(&redis.Options{Addr: redisAddr, DB: db})
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}
