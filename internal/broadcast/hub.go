// Package broadcast delivers payload-less change signals to subscribers of one hub instance.
package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

var _ model.Publisher = (*Hub)(nil)

// Handler is invoked synchronously for every signal on the channel it subscribed to.
type Handler func(ch model.Channel)

// Hub is a typed publish/subscribe point. It is safe for concurrent use.
type Hub struct {
	mu       sync.RWMutex
	handlers map[model.Channel]map[uuid.UUID]Handler
	logger   *logger.Logger
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		handlers: make(map[model.Channel]map[uuid.UUID]Handler),
		logger:   logger,
	}
}

// Subscribe registers fn on ch and returns a func that removes it. Calling the
// returned func more than once is harmless.
func (h *Hub) Subscribe(ch model.Channel, fn Handler) func() {
	id := uuid.New()

	h.mu.Lock()
	subs, ok := h.handlers[ch]
	if !ok {
		subs = make(map[uuid.UUID]Handler)
		h.handlers[ch] = subs
	}
	subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.handlers[ch], id)
	}
}

// Publish delivers ch to every current subscriber before returning.
// A panicking handler is logged and does not stop delivery to the others.
func (h *Hub) Publish(ch model.Channel) {
	h.mu.RLock()
	subs := make([]Handler, 0, len(h.handlers[ch]))
	for _, fn := range h.handlers[ch] {
		subs = append(subs, fn)
	}
	h.mu.RUnlock()

	h.logger.Debug("Broadcast: publishing signal",
		"channel", string(ch),
		"subscribers", len(subs))

	for _, fn := range subs {
		h.deliver(ch, fn)
	}
}

func (h *Hub) deliver(ch model.Channel, fn Handler) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Broadcast: subscriber panicked",
				"channel", string(ch),
				"panic", r)
		}
	}()
	fn(ch)
}

// Subscribers returns the number of handlers registered on ch.
func (h *Hub) Subscribers(ch model.Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[ch])
}

type stream struct {
	mu     sync.Mutex
	out    chan model.Channel
	closed bool
}

func (s *stream) push(ch model.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- ch:
	default:
		// full: the reader still has an unread hint to re-read state
	}
}

func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	close(s.out)
}

// SubscribeStream forwards signals of the given channels into a buffered Go channel
// until ctx is done, then closes it. Signals are dropped while the buffer is full.
func (h *Hub) SubscribeStream(ctx context.Context, buffer int, channels ...model.Channel) <-chan model.Channel {
	if buffer < 1 {
		buffer = 1
	}
	if len(channels) == 0 {
		channels = model.Channels
	}

	s := &stream{out: make(chan model.Channel, buffer)}
	unsubs := make([]func(), 0, len(channels))
	for _, ch := range channels {
		unsubs = append(unsubs, h.Subscribe(ch, s.push))
	}

	go func() {
		<-ctx.Done()
		for _, unsub := range unsubs {
			unsub()
		}
		s.close()
	}()

	return s.out
}
