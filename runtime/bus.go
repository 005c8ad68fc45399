package runtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"streamroom/domain/chat"
)

// Subscription is one consumer side of the Bus. Events delivers every
// message published after the subscription was created, in publish order.
// The channel is closed when the subscription is cancelled or evicted.
type Subscription struct {
	ID     uuid.UUID
	ch     chan chat.Message
	closed bool // guarded by the owning Bus mutex
}

func (s *Subscription) Events() <-chan chat.Message {
	return s.ch
}

// Bus fans out every published message to all current subscriptions.
//
// Publishing never blocks: a subscriber whose buffer is full is evicted by
// closing its channel, which ends its session through the normal leave
// path. Delivery is per-subscriber FIFO; there is no replay, new joiners
// recover earlier traffic from the History ring instead.
type Bus struct {
	mu         sync.Mutex
	log        *slog.Logger
	bufferSize int
	subs       map[uuid.UUID]*Subscription
}

func NewBus(log *slog.Logger, bufferSize int) *Bus {
	return &Bus{
		log:        log,
		bufferSize: bufferSize,
		subs:       make(map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers a new consumer. The subscription receives messages
// published after this call returns.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		ID: uuid.New(),
		ch: make(chan chat.Message, b.bufferSize),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes the consumer and closes its channel. Idempotent, so
// a subscriber evicted during Publish can still unsubscribe on its way out.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sub)
}

// Publish delivers msg to every current subscription. Messages are copied
// by value into each subscriber channel.
func (b *Bus) Publish(msg chat.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub.ch <- msg:
		default:
			b.log.Warn("Evicting slow bus subscriber", "subscription_id", sub.ID)
			b.removeLocked(sub)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) removeLocked(sub *Subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(b.subs, sub.ID)
	close(sub.ch)
}
