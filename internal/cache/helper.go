package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLs for cached values.
const (
	// EdgeTTL bounds how long a cached like/follow edge status may lag a
	// toggle made elsewhere.
	EdgeTTL = 2 * time.Minute
	// ProfileTTL applies to cached profile lookups.
	ProfileTTL = 5 * time.Minute
)

// LikeKey is the cache key for actor's like edge on a post.
func LikeKey(actorID, postID string) string {
	return fmt.Sprintf("edge:like:%s:%s", actorID, postID)
}

// FollowKey is the cache key for actor's follow edge on a profile.
func FollowKey(actorID, targetID string) string {
	return fmt.Sprintf("edge:follow:%s:%s", actorID, targetID)
}

// ProfileKey is the cache key for a profile fetched by username.
func ProfileKey(username string) string {
	return fmt.Sprintf("profile:username:%s", username)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if Client == nil {
		return false, nil
	}
	s, err := Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if Client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Client.Set(ctx, key, b, ttl).Err()
}

// Delete removes the key; best-effort.
func Delete(ctx context.Context, key string) {
	if Client == nil {
		return
	}
	_ = Client.Del(ctx, key).Err()
}

// Aside tries Redis first, on miss it calls fetch (which should populate
// dest), then stores the result with ttl. Cache failures never surface;
// the fetch result wins.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := GetJSON(ctx, key, dest)
	if err == nil && found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	_ = SetJSON(ctx, key, dest, ttl)
	return nil
}
