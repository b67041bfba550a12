package scan

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisSource consumes decoded payloads a camera bridge publishes over
// Redis pub/sub. On Start the capture Config is published to the bridge's
// control channel so the bridge decodes with the settings this terminal
// wants (frame rate, capture box, camera preference).
type RedisSource struct {
	rdb            *redis.Client
	channel        string
	controlChannel string
	cfg            Config
	codes          chan string

	mu  sync.Mutex
	sub *redis.PubSub
}

// NewRedisSource subscribes to the bridge's decode channel. The control
// channel is the decode channel with a ":config" suffix.
func NewRedisSource(rdb *redis.Client, channel string, cfg Config) *RedisSource {
	return &RedisSource{
		rdb:            rdb,
		channel:        channel,
		controlChannel: channel + ":config",
		cfg:            cfg,
		codes:          make(chan string),
	}
}

// Start subscribes and pushes the capture config to the bridge. Publishing
// the config is best effort: a bridge that is not listening yet will pick
// up defaults.
func (r *RedisSource) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return nil
	}
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	if payload, err := json.Marshal(r.cfg); err == nil {
		_ = r.rdb.Publish(ctx, r.controlChannel, payload).Err()
	}
	r.sub = sub
	go r.forward(ctx, sub)
	return nil
}

func (r *RedisSource) forward(ctx context.Context, sub *redis.PubSub) {
	for msg := range sub.Channel() {
		code := strings.TrimSpace(msg.Payload)
		if code == "" {
			continue
		}
		select {
		case r.codes <- code:
		case <-ctx.Done():
			return
		}
	}
}

// Stop closes the subscription until the next Start.
func (r *RedisSource) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		_ = r.sub.Close()
		r.sub = nil
	}
}

// Codes returns the decode stream.
func (r *RedisSource) Codes() <-chan string { return r.codes }
