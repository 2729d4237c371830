package realtime

import (
	"log"
	"sync"

	"siraqemir/internal/models"
)

// Sink is the write side of a subscriber's connection.
type Sink interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Subscriber is one open change feed. Events are written by a dedicated
// goroutine, in publish order.
type Subscriber struct {
	UserID string
	sink   Sink
	queue  chan models.ChangeEvent
	once   sync.Once
}

// ChangeHub fans task change events out to the owner's open feeds only.
type ChangeHub struct {
	mu     sync.RWMutex
	owners map[string]map[*Subscriber]struct{}
	buffer int
}

func NewChangeHub(buffer int) *ChangeHub {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChangeHub{
		owners: make(map[string]map[*Subscriber]struct{}),
		buffer: buffer,
	}
}

func (h *ChangeHub) Register(userID string, sink Sink) *Subscriber {
	sub := &Subscriber{
		UserID: userID,
		sink:   sink,
		queue:  make(chan models.ChangeEvent, h.buffer),
	}
	h.mu.Lock()
	if h.owners[userID] == nil {
		h.owners[userID] = make(map[*Subscriber]struct{})
	}
	h.owners[userID][sub] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(sub)
	log.Printf("[realtime][register] user=%s feeds=%d", userID, h.Count(userID))
	return sub
}

// Unregister removes the feed and closes its connection. Safe to call twice.
func (h *ChangeHub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	if conns, ok := h.owners[sub.UserID]; ok {
		delete(conns, sub)
		if len(conns) == 0 {
			delete(h.owners, sub.UserID)
		}
	}
	sub.once.Do(func() { close(sub.queue) })
	h.mu.Unlock()

	_ = sub.sink.Close()
}

// Publish queues ev for every feed of the event's owner. A feed whose
// queue is full is dropped rather than allowed to stall publishers.
func (h *ChangeHub) Publish(ev models.ChangeEvent) {
	owner := ev.OwnerID()
	if owner == "" {
		log.Printf("[realtime][publish][skip] event %s without owner", ev.Type)
		return
	}

	var slow []*Subscriber
	h.mu.RLock()
	for sub := range h.owners[owner] {
		select {
		case sub.queue <- ev:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		log.Printf("[realtime][publish][drop] user=%s slow subscriber", owner)
		h.Unregister(sub)
	}
}

func (h *ChangeHub) writeLoop(sub *Subscriber) {
	for ev := range sub.queue {
		if err := sub.sink.WriteJSON(ev); err != nil {
			log.Printf("[realtime][write][err] user=%s: %v", sub.UserID, err)
			h.Unregister(sub)
		}
	}
}

// Count returns the number of open feeds for userID.
func (h *ChangeHub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owners[userID])
}

// Shutdown closes every feed.
func (h *ChangeHub) Shutdown() {
	h.mu.RLock()
	var all []*Subscriber
	for _, conns := range h.owners {
		for sub := range conns {
			all = append(all, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range all {
		h.Unregister(sub)
	}
}
