package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultInvalidationChannel is the Redis channel invalidations are published on.
	DefaultInvalidationChannel = "qrmenu:rbac:invalidate"

	invalidateAllTarget = "*"
	publishTimeout      = 2 * time.Second

	minRetryDelay = 500 * time.Millisecond
	maxRetryDelay = 30 * time.Second
)

var errSubscriptionClosed = errors.New("subscription closed")

// Broadcaster invalidates the local cache and tells other instances to do
// the same over Redis pub/sub. Delivery to other instances is best effort;
// they also re-resolve on every navigation.
type Broadcaster struct {
	client     *redis.Client
	channel    string
	local      Invalidator
	instanceID string

	retryDelay    time.Duration
	maxRetryDelay time.Duration

	readyOnce sync.Once
	ready     chan struct{}
}

// NewBroadcaster creates a Broadcaster publishing on channel.
func NewBroadcaster(client *redis.Client, channel string, local Invalidator) *Broadcaster {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}

	return &Broadcaster{
		client:     client,
		channel:    channel,
		local:      local,
		instanceID: uuid.NewString(),
		ready:      make(chan struct{}),

		retryDelay:    minRetryDelay,
		maxRetryDelay: maxRetryDelay,
	}
}

// Invalidate implements Invalidator.
func (b *Broadcaster) Invalidate(principalID uuid.UUID) {
	b.local.Invalidate(principalID)
	b.publish(principalID.String())
}

// InvalidateAll implements Invalidator.
func (b *Broadcaster) InvalidateAll() {
	b.local.InvalidateAll()
	b.publish(invalidateAllTarget)
}

func (b *Broadcaster) publish(target string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := b.client.Publish(ctx, b.channel, b.instanceID+" "+target).Err(); err != nil {
		log.Warn().Err(err).Str("channel", b.channel).Str("target", target).
			Msg("failed to publish permission invalidation")
	}
}

// Ready is closed once Run has subscribed.
func (b *Broadcaster) Ready() <-chan struct{} {
	return b.ready
}

// Run applies invalidations published by other instances until ctx is done.
// A lost or failed subscription is retried with exponential backoff.
func (b *Broadcaster) Run(ctx context.Context) error {
	delay := b.retryDelay

	for {
		subscribed := false

		err := b.listen(ctx, func() {
			subscribed = true
		})
		if ctx.Err() != nil {
			return nil
		}

		if subscribed {
			delay = b.retryDelay
		}

		log.Warn().Err(err).Str("channel", b.channel).Dur("retry_in", delay).
			Msg("permission invalidation listener interrupted")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay = min(delay*2, b.maxRetryDelay)
	}
}

func (b *Broadcaster) listen(ctx context.Context, onSubscribed func()) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// wait for the subscription confirmation
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	onSubscribed()
	b.readyOnce.Do(func() { close(b.ready) })

	log.Info().Str("channel", b.channel).Str("instance", b.instanceID).Msg("listening for permission invalidations")

	messages := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return errSubscriptionClosed
			}

			b.apply(msg.Payload)
		}
	}
}

func (b *Broadcaster) apply(payload string) {
	origin, target, found := strings.Cut(payload, " ")
	if !found || origin == b.instanceID {
		return
	}

	if target == invalidateAllTarget {
		b.local.InvalidateAll()
		return
	}

	principalID, err := uuid.Parse(target)
	if err != nil {
		log.Warn().Err(err).Str("payload", payload).Msg("ignoring malformed invalidation")
		return
	}

	b.local.Invalidate(principalID)
}
