package services

import (
	"encoding/json"
	"sync"
	"time"

	"nutrition/models"

	"go.uber.org/zap"
)

// subscriberBuffer is how many messages a slow subscriber may lag behind
// before it is dropped.
const subscriberBuffer = 32

// Subscriber receives serialized food events on Send. FoodID 0 means all foods.
type Subscriber struct {
	FoodID int64
	Send   chan []byte

	once sync.Once
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.Send) })
}

// EventMessage is the JSON frame pushed to websocket subscribers.
type EventMessage struct {
	Kind   models.FoodEventKind `json:"kind"`
	FoodID int64                `json:"foodId"`
	Food   models.Food          `json:"food"`
	At     time.Time            `json:"at"`
}

type RealtimeHub struct {
	mu      sync.RWMutex
	clients map[*Subscriber]struct{}
	log     *zap.Logger
}

func NewRealtimeHub(log *zap.Logger) *RealtimeHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &RealtimeHub{clients: make(map[*Subscriber]struct{}), log: log}
}

// Subscribe registers a new subscriber for foodID (0 for every food).
func (h *RealtimeHub) Subscribe(foodID int64) *Subscriber {
	s := &Subscriber{FoodID: foodID, Send: make(chan []byte, subscriberBuffer)}
	h.mu.Lock()
	h.clients[s] = struct{}{}
	h.mu.Unlock()
	realtimeSubscribers.Inc()
	return s
}

// Unsubscribe removes s and closes its channel. Safe to call twice.
func (h *RealtimeHub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.clients[s]
	delete(h.clients, s)
	h.mu.Unlock()
	if ok {
		realtimeSubscribers.Dec()
	}
	s.close()
}

func (h *RealtimeHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish fans ev out without blocking; subscribers with a full buffer are dropped.
func (h *RealtimeHub) Publish(ev models.FoodEvent) {
	msg, err := json.Marshal(EventMessage{
		Kind:   ev.Kind,
		FoodID: ev.FoodID,
		Food:   ev.Snapshot,
		At:     ev.CreatedAt,
	})
	if err != nil {
		h.log.Error("encode realtime event", zap.Error(err))
		return
	}

	var slow []*Subscriber
	h.mu.RLock()
	for s := range h.clients {
		if s.FoodID != 0 && s.FoodID != ev.FoodID {
			continue
		}
		select {
		case s.Send <- msg:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.log.Warn("dropping slow realtime subscriber", zap.Int64("food_id", s.FoodID))
		h.Unsubscribe(s)
	}
}

// Close disconnects every subscriber.
func (h *RealtimeHub) Close() {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.clients))
	for s := range h.clients {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		h.Unsubscribe(s)
	}
}
