//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"piiguard/internal/core"
)

func TestRedisCacheIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	endpoint, err := ctr.Endpoint(ctx, "")
	require.NoError(t, err)

	c, err := NewRedisCache(ctx, RedisConfig{URL: "redis://" + endpoint, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	rec, err := core.ParseRecord(`{"email":"jXXXe@example.com","name":"JXXX SXXXX"}`)
	require.NoError(t, err)
	key, err := Key("test", rec)
	require.NoError(t, err)

	miss, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, miss)

	entry := &Entry{
		Redacted:    rec,
		IsPII:       true,
		Detections:  map[string]int{"email": 1, "full_name": 1},
		WeakSignals: []string{"full_name", "email"},
	}
	require.NoError(t, c.Set(ctx, key, entry))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsPII)
	assert.Equal(t, rec.Names(), got.Redacted.Names())
	assert.Equal(t, entry.Detections, got.Detections)
	assert.Equal(t, entry.WeakSignals, got.WeakSignals)
}
