package event

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// Handler receives events on a subscription's own goroutine.
type Handler func(Event)

// BusConfig configures bus behavior.
type BusConfig struct {
	// BufferSize is the channel buffer size per subscription.
	// Default: 64
	BufferSize int

	// OnDrop is called when a subscriber's buffer is full and an event
	// is dropped.
	OnDrop func(evt Event, subscriberID string)
}

// Bus is an in-memory pub/sub bus. Publish never blocks: a subscriber
// that cannot keep up loses events rather than stalling the run that
// produced them.
type Bus struct {
	config BusConfig

	mu     sync.RWMutex
	subs   map[string]*Subscription
	nextID atomic.Int64
	closed atomic.Bool
}

// NewBus creates a local event bus.
func NewBus(config BusConfig) *Bus {
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}
	return &Bus{
		config: config,
		subs:   make(map[string]*Subscription),
	}
}

// Subscription is an active subscription. Events are delivered in
// publish order on a dedicated goroutine.
type Subscription struct {
	id      string
	types   map[Type]bool // nil = all types
	events  chan Event
	done    chan struct{}
	bus     *Bus
	once    sync.Once
}

// Subscribe creates a subscription for specific event types.
func (b *Bus) Subscribe(types []Type, handler Handler) *Subscription {
	var filter map[Type]bool
	if len(types) > 0 {
		filter = make(map[Type]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}
	return b.subscribe(filter, handler)
}

// SubscribeAll subscribes to all events.
func (b *Bus) SubscribeAll(handler Handler) *Subscription {
	return b.subscribe(nil, handler)
}

func (b *Bus) subscribe(filter map[Type]bool, handler Handler) *Subscription {
	sub := &Subscription{
		id:     "sub-" + strconv.FormatInt(b.nextID.Add(1), 10),
		types:  filter,
		events: make(chan Event, b.config.BufferSize),
		done:   make(chan struct{}),
		bus:    b,
	}

	go func() {
		for {
			select {
			case evt := <-sub.events:
				handler(evt)
			case <-sub.done:
				// Drain what was already buffered.
				for {
					select {
					case evt := <-sub.events:
						handler(evt)
					default:
						return
					}
				}
			}
		}
	}()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed.Load() {
		close(sub.done)
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes the subscription. Buffered events are still
// delivered before the handler goroutine exits.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
		close(s.done)
	})
}

// Publish delivers an event to all matching subscribers.
// Returns the number of subscribers the event was delivered to.
func (b *Bus) Publish(evt Event) int {
	if b.closed.Load() {
		return 0
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs {
		if sub.types != nil && !sub.types[evt.Type] {
			continue
		}
		select {
		case sub.events <- evt:
			delivered++
		default:
			if b.config.OnDrop != nil {
				b.config.OnDrop(evt, sub.id)
			}
		}
	}
	return delivered
}

// Close shuts down the bus and all subscriptions.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	return nil
}
