package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piiguard/internal/core"
)

func sampleEntry() *Entry {
	return &Entry{
		Redacted:    core.Record{{Name: "phone", Value: "98XXXXXX10"}, {Name: "city", Value: "Pune"}},
		IsPII:       true,
		Detections:  map[string]int{"phone": 1},
		WeakSignals: []string{"email"},
	}
}

func TestLocalCache(t *testing.T) {
	t.Run("GetSetRoundTrip", func(t *testing.T) {
		c := NewLocalCache(0, 0)
		ctx := context.Background()

		got, err := c.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, c.Set(ctx, "k1", sampleEntry()))

		got, err = c.Get(ctx, "k1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, sampleEntry(), got)
	})

	t.Run("ReturnsCopies", func(t *testing.T) {
		c := NewLocalCache(0, 0)
		ctx := context.Background()
		entry := sampleEntry()
		require.NoError(t, c.Set(ctx, "k1", entry))

		entry.Redacted[0].Value = "mutated"
		entry.Detections["phone"] = 99

		got, err := c.Get(ctx, "k1")
		require.NoError(t, err)
		got.WeakSignals[0] = "mutated"

		again, err := c.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, sampleEntry(), again)
	})

	t.Run("Expiry", func(t *testing.T) {
		c := NewLocalCache(0, time.Minute)
		now := time.Unix(1000, 0)
		c.now = func() time.Time { return now }
		ctx := context.Background()

		require.NoError(t, c.Set(ctx, "k1", sampleEntry()))
		now = now.Add(30 * time.Second)
		got, _ := c.Get(ctx, "k1")
		assert.NotNil(t, got)

		now = now.Add(time.Minute)
		got, _ = c.Get(ctx, "k1")
		assert.Nil(t, got)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Bounded", func(t *testing.T) {
		c := NewLocalCache(2, 0)
		ctx := context.Background()
		for _, k := range []string{"a", "b", "c", "d"} {
			require.NoError(t, c.Set(ctx, k, sampleEntry()))
		}
		assert.Equal(t, 2, c.Len())

		// overwriting an existing key never evicts
		require.NoError(t, c.Set(ctx, "d", sampleEntry()))
		got, _ := c.Get(ctx, "d")
		assert.NotNil(t, got)
		assert.Equal(t, 2, c.Len())
	})
}

func TestKey(t *testing.T) {
	a, err := Key("r1", core.Record{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}})
	require.NoError(t, err)
	same, err := Key("r1", core.Record{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}})
	require.NoError(t, err)
	reordered, err := Key("r1", core.Record{{Name: "b", Value: "2"}, {Name: "a", Value: "1"}})
	require.NoError(t, err)
	typed, err := Key("r1", core.Record{{Name: "a", Value: json.Number("1")}, {Name: "b", Value: "2"}})
	require.NoError(t, err)
	rescoped, err := Key("r2", core.Record{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}})
	require.NoError(t, err)

	assert.Equal(t, a, same)
	assert.NotEqual(t, a, reordered)
	assert.NotEqual(t, a, typed)
	assert.NotEqual(t, a, rescoped)
	assert.NotEmpty(t, a)
}

func TestEntrySerialization(t *testing.T) {
	data, err := json.Marshal(sampleEntry())
	require.NoError(t, err)

	var got Entry
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, sampleEntry(), &got)
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), RedisConfig{URL: "not-a-url://"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis URL")
}
