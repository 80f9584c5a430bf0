// Package testutil provides ephemeral Postgres/Redis containers for
// integration tests.
// Docker-test-environment pattern (opt-in env gate, t.Skip when disabled)
// but driven directly against the databases rather than a built application
// image, since the durable and distributed queues talk to Postgres/Redis
// directly rather than through an HTTP API.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// SkipUnlessDockerEnabled skips the test unless INDEXNODE_TEST_DOCKER=true,
// an explicit opt-in gate for container-backed tests.
func SkipUnlessDockerEnabled(t *testing.T) {
	t.Helper()
	if os.Getenv("INDEXNODE_TEST_DOCKER") != "true" {
		t.Skip("Docker-backed tests disabled (set INDEXNODE_TEST_DOCKER=true to enable)")
	}
}

// NewPostgres starts an ephemeral Postgres container and returns its DSN.
// The container is terminated via t.Cleanup.
func NewPostgres(t *testing.T) string {
	t.Helper()
	SkipUnlessDockerEnabled(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("indexnode_test"),
		postgres.WithUsername("indexnode"),
		postgres.WithPassword("indexnode"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to resolve postgres connection string: %v", err)
	}
	return dsn
}

// NewRedis starts an ephemeral Redis container and returns its connection
// URI (redis://host:port). The container is terminated via t.Cleanup.
func NewRedis(t *testing.T) string {
	t.Helper()
	SkipUnlessDockerEnabled(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	container, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to resolve redis connection string: %v", err)
	}
	return uri
}
