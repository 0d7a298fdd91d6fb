// Package presence tracks online status in Redis. Online flags carry a
// TTL refreshed by the connection layer; last-seen stamps are written
// when a user goes offline.
package presence

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/dembasy/jokko/internal/apperrors"
	"github.com/dembasy/jokko/internal/events"
)

// Tracker reads and writes online state.
type Tracker struct {
	client *redis.Client
	bus    *events.Bus
	ttl    time.Duration
}

// NewTracker creates a tracker publishing presence transitions on bus.
// A nil bus disables publication.
func NewTracker(client *redis.Client, bus *events.Bus, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Tracker{client: client, bus: bus, ttl: ttl}
}

func onlineKey(userID string) string {
	return fmt.Sprintf("user:%s:online", userID)
}

func lastSeenKey(userID string) string {
	return fmt.Sprintf("user:%s:last_seen", userID)
}

// SetOnline marks userID online until the TTL lapses.
func (t *Tracker) SetOnline(ctx context.Context, userID string) error {
	err := t.client.Set(ctx, onlineKey(userID), "1", t.ttl).Err()
	if err != nil {
		return apperrors.Remote(err, "set user %s online", userID)
	}
	t.publish(userID, true)
	return nil
}

// Refresh extends the online TTL without publishing a transition.
func (t *Tracker) Refresh(ctx context.Context, userID string) error {
	err := t.client.Expire(ctx, onlineKey(userID), t.ttl).Err()
	if err != nil {
		return apperrors.Remote(err, "refresh presence for %s", userID)
	}
	return nil
}

// SetOffline clears the online flag and stamps last-seen.
func (t *Tracker) SetOffline(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	pipe := t.client.Pipeline()
	pipe.Del(ctx, onlineKey(userID))
	pipe.Set(ctx, lastSeenKey(userID), now.Format(time.RFC3339), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Remote(err, "set user %s offline", userID)
	}
	t.publish(userID, false)
	return nil
}

func (t *Tracker) publish(userID string, online bool) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(events.Event{
		Type:    events.PresenceChanged,
		Payload: events.PresencePayload{UserID: userID, Online: online},
	})
}

// IsOnline reports whether userID currently holds an online flag.
func (t *Tracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := t.client.Exists(ctx, onlineKey(userID)).Result()
	if err != nil {
		return false, apperrors.Remote(err, "check presence for %s", userID)
	}
	return n > 0, nil
}

// LastSeen returns the recorded last-seen time, or nil if none exists.
func (t *Tracker) LastSeen(ctx context.Context, userID string) (*time.Time, error) {
	val, err := t.client.Get(ctx, lastSeenKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Remote(err, "get last seen for %s", userID)
	}
	ts, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, apperrors.Remote(err, "parse last seen for %s", userID)
	}
	return &ts, nil
}
