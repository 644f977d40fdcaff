package cache

import (
	"fmt"
	"time"

	"github.com/Samurd/erp-elite24studio-next-sub000/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// TTL constants for notification caching
const (
	NotificationListTTL = 2 * time.Minute
	UnreadCountTTL      = 1 * time.Minute
)

// NotificationCache caches the first page of a user's notification list and
// their unread count. Invalidated on every create and read mutation.
type NotificationCache struct {
	redis *RedisCache
}

// NewNotificationCache creates a new notification cache
func NewNotificationCache(redis *RedisCache) *NotificationCache {
	return &NotificationCache{redis: redis}
}

func listKey(userID string) string {
	return fmt.Sprintf("notif:list:%s", userID)
}

func unreadKey(userID string) string {
	return fmt.Sprintf("notif:unread:%s", userID)
}

// GetList retrieves the cached first page of notifications
func (nc *NotificationCache) GetList(userID string) ([]models.Notification, bool) {
	if nc == nil || nc.redis == nil {
		return nil, false
	}
	data, err := nc.redis.Get(listKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var notifications []models.Notification
	if err := msgpack.Unmarshal(data, &notifications); err != nil {
		return nil, false
	}
	return notifications, true
}

// SetList caches the first page of notifications
func (nc *NotificationCache) SetList(userID string, notifications []models.Notification) {
	if nc == nil || nc.redis == nil {
		return
	}
	data, err := msgpack.Marshal(notifications)
	if err != nil {
		return
	}
	_ = nc.redis.Set(listKey(userID), data, NotificationListTTL)
}

// GetUnreadCount retrieves the cached unread count
func (nc *NotificationCache) GetUnreadCount(userID string) (int64, bool) {
	if nc == nil || nc.redis == nil {
		return 0, false
	}
	data, err := nc.redis.Get(unreadKey(userID))
	if err != nil || data == nil {
		return 0, false
	}

	var count int64
	if err := msgpack.Unmarshal(data, &count); err != nil {
		return 0, false
	}
	return count, true
}

// SetUnreadCount caches the unread count
func (nc *NotificationCache) SetUnreadCount(userID string, count int64) {
	if nc == nil || nc.redis == nil {
		return
	}
	data, err := msgpack.Marshal(count)
	if err != nil {
		return
	}
	_ = nc.redis.Set(unreadKey(userID), data, UnreadCountTTL)
}

// Invalidate drops cached entries for a user
func (nc *NotificationCache) Invalidate(userID string) {
	if nc == nil || nc.redis == nil {
		return
	}
	_ = nc.redis.Delete(listKey(userID))
	_ = nc.redis.Delete(unreadKey(userID))
}
