package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withMiniredis points the shared client at an in-process redis and
// restores the previous client afterwards.
func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	server := miniredis.RunT(t)
	prev := Client
	InitRedis(server.Addr())
	require.NotNil(t, Client, "miniredis must be reachable")
	t.Cleanup(func() { Client = prev })
	return server
}

func TestInitRedisDisabledOnEmptyAddr(t *testing.T) {
	prev := Client
	t.Cleanup(func() { Client = prev })

	InitRedis("")
	assert.Nil(t, Client)
}

func TestInitRedisUnreachableDegrades(t *testing.T) {
	prev := Client
	t.Cleanup(func() { Client = prev })

	InitRedis("127.0.0.1:1")
	assert.Nil(t, Client, "an unreachable redis disables caching instead of failing")
}

func TestGetSetJSONRoundtrip(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Likes int    `json:"likes"`
	}

	var missing payload
	found, err := GetJSON(ctx, "nope", &missing)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, "k", payload{Name: "jane", Likes: 3}, EdgeTTL))

	var got payload
	found, err = GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "jane", Likes: 3}, got)

	Delete(ctx, "k")
	found, err = GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAsidePopulatesOnMiss(t *testing.T) {
	withMiniredis(t)
	ctx := context.Background()

	fetches := 0
	var v int
	fetch := func() error {
		fetches++
		v = 42
		return nil
	}

	require.NoError(t, Aside(ctx, "answer", &v, EdgeTTL, fetch))
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, fetches)

	// Second read is served from the cache.
	v = 0
	require.NoError(t, Aside(ctx, "answer", &v, EdgeTTL, fetch))
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, fetches)
}

func TestAsideFetchErrorSurfaces(t *testing.T) {
	withMiniredis(t)

	wantErr := errors.New("backend down")
	var v int
	err := Aside(context.Background(), "k", &v, EdgeTTL, func() error { return wantErr })
	require.ErrorIs(t, err, wantErr)

	found, getErr := GetJSON(context.Background(), "k", &v)
	require.NoError(t, getErr)
	assert.False(t, found, "a failed fetch must not be cached")
}

func TestHelpersNoOpWithoutClient(t *testing.T) {
	prev := Client
	Client = nil
	t.Cleanup(func() { Client = prev })
	ctx := context.Background()

	found, err := GetJSON(ctx, "k", new(int))
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, SetJSON(ctx, "k", 1, EdgeTTL))
	Delete(ctx, "k")

	// Aside degrades to a plain fetch.
	var v int
	require.NoError(t, Aside(ctx, "k", &v, EdgeTTL, func() error { v = 7; return nil }))
	assert.Equal(t, 7, v)
}

func TestEdgeKeys(t *testing.T) {
	assert.Equal(t, "edge:like:u1:p1", LikeKey("u1", "p1"))
	assert.Equal(t, "edge:follow:u1:u2", FollowKey("u1", "u2"))
	assert.Equal(t, "profile:username:jane", ProfileKey("jane"))
}
