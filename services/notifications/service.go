package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Queue item stored in Redis. The target group is resolved when the message
// is queued so a later group change does not redirect it.
type queuedMessage struct {
	GroupID   string    `json:"group_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	redisListKey  = "notifications:queue"
	flushInterval = 2 * time.Second
	batchSize     = 200
	// queued messages older than this are dropped instead of sent
	maxQueueAge = 24 * time.Hour
)

// ErrNoGroup is returned when no LINE group has been registered.
var ErrNoGroup = errors.New("no LINE group registered")

// Sender delivers a text message to a chat group.
type Sender interface {
	SendToGroup(ctx context.Context, groupID, text string) error
}

// GroupResolver returns the current target group id.
type GroupResolver interface {
	LineGroupID(ctx context.Context) string
}

// Service sends group notifications, optionally through a Redis queue.
// If Redis is disabled or unavailable messages are sent directly.
type Service struct {
	sender   Sender
	groups   GroupResolver
	redis    *redis.Client
	useRedis bool
	now      func() time.Time
}

func NewService(sender Sender, groups GroupResolver, rdb *redis.Client, useRedis bool) *Service {
	return &Service{
		sender:   sender,
		groups:   groups,
		redis:    rdb,
		useRedis: useRedis && rdb != nil,
		now:      time.Now,
	}
}

// Notify queues or sends text to the registered group.
func (s *Service) Notify(ctx context.Context, text string) error {
	groupID := s.groups.LineGroupID(ctx)
	if groupID == "" {
		return ErrNoGroup
	}
	msg := queuedMessage{GroupID: groupID, Text: text, CreatedAt: s.now().UTC()}

	if s.useRedis {
		b, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if err = s.redis.RPush(ctx, redisListKey, b).Err(); err == nil {
			return nil
		}
		logrus.WithError(err).Warn("[notif] Redis queue failed, falling back to direct send")
	}
	return s.sender.SendToGroup(ctx, msg.GroupID, msg.Text)
}

// StartWorker flushes the Redis queue every two seconds until stop is closed.
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		logrus.Info("[notif] Redis notifications disabled; worker not started")
		return
	}
	go func() {
		logrus.Info("[notif] Redis notification worker started")
		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()
		ctx := context.Background()
		for {
			select {
			case <-stop:
				logrus.Info("[notif] Worker stopping")
				return
			case <-ticker.C:
				s.flushBatch(ctx)
			}
		}
	}()
}

// flushBatch pops queued messages and sends them; it returns how many were sent.
func (s *Service) flushBatch(ctx context.Context) int {
	sent := 0
	// up to 5 sub-batches per tick
	for i := 0; i < 5; i++ {
		vals, err := s.redis.LRange(ctx, redisListKey, 0, int64(batchSize-1)).Result()
		if err != nil || len(vals) == 0 {
			return sent
		}
		// trim immediately to avoid duplicates (best-effort)
		if err = s.redis.LTrim(ctx, redisListKey, int64(len(vals)), -1).Err(); err != nil {
			logrus.WithError(err).Warn("[notif] LTrim failed")
		}
		for _, raw := range vals {
			var q queuedMessage
			if err := json.Unmarshal([]byte(raw), &q); err != nil {
				continue
			}
			if s.now().Sub(q.CreatedAt) > maxQueueAge {
				logrus.WithField("created_at", q.CreatedAt).Warn("[notif] Dropping stale message")
				continue
			}
			if err := s.sender.SendToGroup(ctx, q.GroupID, q.Text); err != nil {
				logrus.WithError(err).Warn("[notif] Send failed")
				continue
			}
			sent++
		}
		if len(vals) < batchSize {
			return sent
		}
	}
	return sent
}
