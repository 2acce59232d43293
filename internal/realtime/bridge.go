package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
)

const (
	scopeAll    = "all"
	scopeAdmins = "admins"
	scopeUser   = "user"
)

// envelope is what travels over the pub/sub channel. Data is the encoded
// Event so every replica writes identical bytes to its sockets.
type envelope struct {
	Scope string          `json:"scope"`
	Email string          `json:"email,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// RedisBridge publishes events to a Redis channel and delivers whatever
// arrives on it to the local hub, so every API replica reaches its own
// connections. Events are queued and published by the goroutine Run
// starts; callers never wait on Redis.
type RedisBridge struct {
	hub      *Hub
	client   *redis.Client
	channel  string
	log      zerolog.Logger
	outbound chan envelope
}

const (
	bridgeQueueSize = 256
	publishTimeout  = 2 * time.Second
)

func NewRedisBridge(hub *Hub, client *redis.Client, channel string, log zerolog.Logger) *RedisBridge {
	return &RedisBridge{
		hub:      hub,
		client:   client,
		channel:  channel,
		log:      log,
		outbound: make(chan envelope, bridgeQueueSize),
	}
}

func (b *RedisBridge) BroadcastAll(event Event) {
	b.publish(scopeAll, "", event)
}

func (b *RedisBridge) BroadcastToAdmins(event Event) {
	b.publish(scopeAdmins, "", event)
}

func (b *RedisBridge) SendToUser(email string, event Event) {
	b.publish(scopeUser, email, event)
}

func (b *RedisBridge) publish(scope, email string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		b.log.Error().Err(err).Str("event", string(event.Type)).Msg("encode realtime event failed")
		return
	}
	env := envelope{Scope: scope, Email: email, Data: data}

	select {
	case b.outbound <- env:
	default:
		b.log.Warn().Str("event", string(event.Type)).Msg("realtime publish queue full, delivering locally")
		b.deliverLocal(env)
	}
}

func (b *RedisBridge) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-b.outbound:
			b.send(ctx, env)
		}
	}
}

// send publishes env, falling back to this replica's connections when Redis
// is unreachable.
func (b *RedisBridge) send(ctx context.Context, env envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		b.log.Error().Err(err).Msg("encode realtime envelope failed")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.log.Warn().Err(err).Str("scope", env.Scope).Msg("realtime publish failed, delivering locally")
		b.deliverLocal(env)
	}
}

// Run publishes queued events and relays channel messages to the hub until
// ctx is done. Publishing keeps going when the subscription fails.
func (b *RedisBridge) Run(ctx context.Context) error {
	go b.publishLoop(ctx)

	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.log.Info().Str("channel", b.channel).Msg("realtime bridge subscribed")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn().Err(err).Msg("discarding malformed realtime envelope")
				continue
			}
			b.deliverLocal(env)
		}
	}
}

func (b *RedisBridge) deliverLocal(env envelope) {
	if match := matcherFor(env); match != nil {
		b.hub.deliverRaw(env.Data, match)
	}
}

func matcherFor(env envelope) func(models.Identity) bool {
	switch env.Scope {
	case scopeAll:
		return func(models.Identity) bool { return true }
	case scopeAdmins:
		return models.Identity.IsAdmin
	case scopeUser:
		return func(id models.Identity) bool { return strings.EqualFold(id.Email, env.Email) }
	}
	return nil
}
