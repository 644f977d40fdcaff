package cache

import (
	"fmt"
	"time"
)

const (
	OnlineUsersTTL = 90 * time.Second // Match the hub pong timeout
)

// UserCache mirrors presence into Redis so HTTP callers can answer online
// checks without reaching the hub. Authoritative presence lives in the
// in-process tracker; this mirror is best-effort.
type UserCache struct {
	redis *RedisCache
}

// NewUserCache creates a new user cache
func NewUserCache(redis *RedisCache) *UserCache {
	return &UserCache{redis: redis}
}

// SetUserOnline adds a user to the online users set
func (uc *UserCache) SetUserOnline(userID string) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	key := "online:users"
	if err := uc.redis.SetAdd(key, userID); err != nil {
		return err
	}

	// Set individual user key with TTL for auto-expiration
	userKey := fmt.Sprintf("online:%s", userID)
	return uc.redis.Set(userKey, []byte("1"), OnlineUsersTTL)
}

// SetUserOffline removes a user from the online users set
func (uc *UserCache) SetUserOffline(userID string) error {
	if uc == nil || uc.redis == nil {
		return nil
	}
	key := "online:users"
	if err := uc.redis.SetRemove(key, userID); err != nil {
		return err
	}

	userKey := fmt.Sprintf("online:%s", userID)
	return uc.redis.Delete(userKey)
}

// IsUserOnline checks if a user is online
func (uc *UserCache) IsUserOnline(userID string) bool {
	if uc == nil || uc.redis == nil {
		return false
	}
	userKey := fmt.Sprintf("online:%s", userID)
	return uc.redis.Exists(userKey)
}

// GetOnlineUsers returns all online user IDs
func (uc *UserCache) GetOnlineUsers() ([]string, error) {
	if uc == nil || uc.redis == nil {
		return nil, nil
	}
	return uc.redis.SetMembers("online:users")
}
