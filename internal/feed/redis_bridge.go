package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/codingrush01/murlidhar-mobiles/internal/logger"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
	"github.com/codingrush01/murlidhar-mobiles/internal/xid"
)

// RedisBridge relays hub changes over a redis pub/sub channel so that every
// server process sees writes made by the others.
type RedisBridge struct {
	client  *redis.Client
	channel string
	origin  string
	hub     *Hub
	logger  *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

type envelope struct {
	Origin string       `json:"origin"`
	Change store.Change `json:"change"`
}

func NewRedisBridge(addr string, password string, db int, channel string, hub *Hub, log *zap.Logger) *RedisBridge {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisBridge{
		client:  client,
		channel: channel,
		origin:  xid.New("proc"),
		hub:     hub,
		logger:  logger.OrNop(log).Named("feed.redis"),
	}
}

func (b *RedisBridge) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Start subscribes to the channel and attaches the bridge as the hub relay.
func (b *RedisBridge) Start(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	b.mu.Lock()
	b.pubsub = pubsub
	b.done = make(chan struct{})
	b.mu.Unlock()

	b.hub.SetRelay(b.publish)
	go b.loop(pubsub.Channel(), b.done)
	return nil
}

func (b *RedisBridge) loop(messages <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for msg := range messages {
		b.handle(msg.Payload)
	}
}

func (b *RedisBridge) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("dropping malformed change", zap.Error(err))
		return
	}
	if env.Origin == b.origin || env.Change.Collection == "" {
		return
	}
	b.hub.Deliver(env.Change)
}

func (b *RedisBridge) encode(c store.Change) ([]byte, error) {
	return json.Marshal(envelope{Origin: b.origin, Change: c})
}

func (b *RedisBridge) publish(c store.Change) {
	payload, err := b.encode(c)
	if err != nil {
		b.logger.Warn("encode change", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("publish change",
			zap.String("collection", c.Collection),
			zap.String("id", c.ID),
			zap.Error(err),
		)
	}
}

func (b *RedisBridge) Close() error {
	b.hub.SetRelay(nil)

	b.mu.Lock()
	pubsub, done := b.pubsub, b.done
	b.pubsub = nil
	b.mu.Unlock()

	var errs []error
	if pubsub != nil {
		errs = append(errs, pubsub.Close())
		<-done
	}
	errs = append(errs, b.client.Close())
	return errors.Join(errs...)
}
