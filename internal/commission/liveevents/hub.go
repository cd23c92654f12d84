package liveevents

import (
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

// LiveEvent is one commission payment broadcast to the earner's listeners.
type LiveEvent struct {
	EarnerID snowflake.ID `json:"earner_id"`
	Amount   float64      `json:"amount"`
	Tier     int          `json:"tier"`
}

// Hub fans commission events out to per-earner subscriber streams. Delivery
// is deliver-or-drop: a slow or absent listener never blocks a publish.
type Hub struct {
	mu               sync.RWMutex
	streams          map[snowflake.ID]*stream
	bufferSize       int
	subscriberBuffer int
}

type stream struct {
	mu     sync.Mutex
	buffer []LiveEvent
	subs   map[uint64]chan LiveEvent
	nextID uint64
}

type Subscription struct {
	hub      *Hub
	earnerID snowflake.ID
	id       uint64
	ch       chan LiveEvent
	once     sync.Once
}

func NewHub() *Hub {
	return &Hub{
		streams:          make(map[snowflake.ID]*stream),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(earnerID snowflake.ID, event LiveEvent) {
	if h == nil || earnerID == 0 {
		return
	}
	h.mu.RLock()
	stream := h.streams[earnerID]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	stream.buffer = append(stream.buffer, event)
	if len(stream.buffer) > h.bufferSize {
		stream.buffer = stream.buffer[len(stream.buffer)-h.bufferSize:]
	}
	subs := make([]chan LiveEvent, 0, len(stream.subs))
	for _, ch := range stream.subs {
		subs = append(subs, ch)
	}
	stream.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *Hub) Subscribe(earnerID snowflake.ID) (*Subscription, []LiveEvent, error) {
	if h == nil {
		return nil, nil, errors.New("hub_unavailable")
	}
	if earnerID == 0 {
		return nil, nil, errors.New("invalid_earner_id")
	}

	stream := h.ensureStream(earnerID)
	stream.mu.Lock()
	if stream.subs == nil {
		stream.subs = make(map[uint64]chan LiveEvent)
	}
	id := stream.nextID
	stream.nextID++
	ch := make(chan LiveEvent, h.subscriberBuffer)
	stream.subs[id] = ch
	buffer := append([]LiveEvent(nil), stream.buffer...)
	stream.mu.Unlock()

	return &Subscription{
		hub:      h,
		earnerID: earnerID,
		id:       id,
		ch:       ch,
	}, buffer, nil
}

func (h *Hub) ensureStream(earnerID snowflake.ID) *stream {
	h.mu.RLock()
	current := h.streams[earnerID]
	h.mu.RUnlock()
	if current != nil {
		return current
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	current = h.streams[earnerID]
	if current == nil {
		current = &stream{subs: make(map[uint64]chan LiveEvent)}
		h.streams[earnerID] = current
	}
	return current
}

func (h *Hub) unsubscribe(earnerID snowflake.ID, id uint64) {
	if h == nil || earnerID == 0 {
		return
	}

	h.mu.RLock()
	stream := h.streams[earnerID]
	h.mu.RUnlock()
	if stream == nil {
		return
	}

	stream.mu.Lock()
	delete(stream.subs, id)
	remaining := len(stream.subs)
	stream.mu.Unlock()
	if remaining != 0 {
		return
	}

	h.mu.Lock()
	current := h.streams[earnerID]
	if current != stream {
		h.mu.Unlock()
		return
	}
	stream.mu.Lock()
	empty := len(stream.subs) == 0
	stream.mu.Unlock()
	if empty {
		delete(h.streams, earnerID)
	}
	h.mu.Unlock()
}

func (s *Subscription) Events() <-chan LiveEvent {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.earnerID, s.id)
	})
}
