package realtime

import (
	"encoding/json"
	"sync"

	"food-market/internal/metrics"
	"food-market/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Subscriber is one connected client. Frames queued for it are read from Messages.
type Subscriber struct {
	id   string
	send chan []byte
}

// ID returns the subscriber id used in logs.
func (s *Subscriber) ID() string {
	return s.id
}

// Messages yields encoded frames until the subscriber is removed.
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

// Hub tracks which subscribers sit in which store room. Delivery is at most
// once: a subscriber whose buffer is full misses the frame.
type Hub struct {
	mu          sync.RWMutex
	rooms       map[string]map[*Subscriber]struct{}
	memberships map[*Subscriber]map[string]struct{}
	bufferSize  int
	metrics     *metrics.Registry
	logger      zerolog.Logger
}

// NewHub creates a hub whose subscribers buffer up to bufferSize frames.
func NewHub(bufferSize int, m *metrics.Registry, logger zerolog.Logger) *Hub {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Hub{
		rooms:       make(map[string]map[*Subscriber]struct{}),
		memberships: make(map[*Subscriber]map[string]struct{}),
		bufferSize:  bufferSize,
		metrics:     m,
		logger:      logger.With().Str("component", "hub").Logger(),
	}
}

// Register creates a subscriber that is in no room yet.
func (h *Hub) Register() *Subscriber {
	sub := &Subscriber{
		id:   uuid.NewString(),
		send: make(chan []byte, h.bufferSize),
	}

	h.mu.Lock()
	h.memberships[sub] = make(map[string]struct{})
	h.mu.Unlock()

	h.metrics.SubscriberConnected()
	h.logger.Debug().Str("subscriber_id", sub.id).Msg("subscriber registered")
	return sub
}

// Join adds sub to the store's room. It reports false if sub was already removed.
func (h *Hub) Join(sub *Subscriber, storeID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms, ok := h.memberships[sub]
	if !ok {
		return false
	}

	room, ok := h.rooms[storeID]
	if !ok {
		room = make(map[*Subscriber]struct{})
		h.rooms[storeID] = room
	}
	room[sub] = struct{}{}
	rooms[storeID] = struct{}{}

	h.logger.Debug().Str("subscriber_id", sub.id).Str("store_id", storeID).Msg("subscriber joined room")
	return true
}

// Leave takes sub out of the store's room.
func (h *Hub) Leave(sub *Subscriber, storeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(sub, storeID)
}

func (h *Hub) leaveLocked(sub *Subscriber, storeID string) {
	if room, ok := h.rooms[storeID]; ok {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, storeID)
		}
	}
	if rooms, ok := h.memberships[sub]; ok {
		delete(rooms, storeID)
	}
}

// Remove drops sub from every room and closes its message channel. Safe to call twice.
func (h *Hub) Remove(sub *Subscriber) {
	h.mu.Lock()
	rooms, ok := h.memberships[sub]
	if !ok {
		h.mu.Unlock()
		return
	}
	for storeID := range rooms {
		h.leaveLocked(sub, storeID)
	}
	delete(h.memberships, sub)
	close(sub.send)
	h.mu.Unlock()

	h.metrics.SubscriberDisconnected()
	h.logger.Debug().Str("subscriber_id", sub.id).Msg("subscriber removed")
}

// Broadcast queues the event for every subscriber in the store's room and
// reports how many got it and how many were skipped because their buffer was full.
func (h *Hub) Broadcast(storeID string, event model.OrderEvent) (delivered, dropped int) {
	payload, err := json.Marshal(ServerMessage{Event: event.Event, StoreID: storeID, Order: event.Order})
	if err != nil {
		h.logger.Error().Err(err).Str("store_id", storeID).Msg("failed to encode order event")
		return 0, 0
	}

	h.mu.RLock()
	for sub := range h.rooms[storeID] {
		select {
		case sub.send <- payload:
			delivered++
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	h.metrics.Delivered(event.Event, delivered, dropped)
	if dropped > 0 {
		h.logger.Warn().
			Str("store_id", storeID).
			Str("event", event.Event).
			Int("dropped", dropped).
			Msg("slow subscribers missed event")
	}
	return delivered, dropped
}

// Send queues a reply for one subscriber. It reports false if the subscriber is
// gone or its buffer is full.
func (h *Hub) Send(sub *Subscriber, msg ServerMessage) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode reply")
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.memberships[sub]; !ok {
		return false
	}
	select {
	case sub.send <- payload:
		return true
	default:
		return false
	}
}

// RoomSize returns the number of subscribers in the store's room.
func (h *Hub) RoomSize(storeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[storeID])
}
