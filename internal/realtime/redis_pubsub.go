package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "meeting:"
	publishTimeout = 5 * time.Second
)

// redisPayload is the message published to Redis for cross-instance broadcast.
// Origin identifies the publishing instance; the hub already delivered the
// event to its own sockets, so the subscriber drops self-published messages.
type redisPayload struct {
	Origin string          `json:"origin"`
	Event  string          `json:"event"`
	Scope  Scope           `json:"scope"`
	Data   json.RawMessage `json:"data"`
	At     int64           `json:"at"`
}

// RedisPubSub bridges meeting room events over Redis pub/sub.
type RedisPubSub struct {
	client     *redis.Client
	logger     *zap.Logger
	instanceID string
}

// NewRedisPubSub creates a Redis pub/sub bridge for meeting events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, logger: logger, instanceID: uuid.NewString()}
}

// PublishMeetingEvent publishes an event to the meeting's Redis channel.
func (r *RedisPubSub) PublishMeetingEvent(meetingID uuid.UUID, event string, scope Scope, payload []byte) error {
	channel := channelPrefix + meetingID.String()
	body, err := json.Marshal(redisPayload{Origin: r.instanceID, Event: event, Scope: scope, Data: payload, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, channel, body).Err()
}

// decode unmarshals an incoming message and reports whether it should be
// delivered locally. Messages this instance published are not.
func (r *RedisPubSub) decode(raw []byte) (redisPayload, bool) {
	var p redisPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return redisPayload{}, false
	}
	if p.Origin == r.instanceID {
		return redisPayload{}, false
	}
	return p, true
}

// SubscribeMeeting subscribes to a meeting's Redis channel and calls handler
// for each message. Returns a cancel function to stop the subscription.
func (r *RedisPubSub) SubscribeMeeting(meetingID uuid.UUID, handler func(event string, scope Scope, payload []byte)) (cancel func(), err error) {
	channel := channelPrefix + meetingID.String()
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, channel)
	_, err = pubsub.Receive(ctx)
	if err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				p, deliver := r.decode([]byte(msg.Payload))
				if !deliver {
					continue
				}
				handler(p.Event, p.Scope, p.Data)
			}
		}
	}()
	cancel = func() { cancelCtx() }
	return cancel, nil
}
