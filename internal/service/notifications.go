package service

import (
	"sync"

	"github.com/google/uuid"
)

const (
	NotificationVipActivated = "VIP_ACTIVATED"

	notificationBuffer = 8
)

type Message struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NotificationHub fans messages out to the open connections of a player.
type NotificationHub struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan Message]struct{}
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		subscribers: make(map[int64]map[chan Message]struct{}),
	}
}

// Subscribe registers a listener for userID. The returned func must be
// called to release it; it closes the channel.
func (h *NotificationHub) Subscribe(userID int64) (<-chan Message, func()) {
	ch := make(chan Message, notificationBuffer)

	h.mu.Lock()
	subs, ok := h.subscribers[userID]
	if !ok {
		subs = make(map[chan Message]struct{})
		h.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			delete(h.subscribers[userID], ch)
			if len(h.subscribers[userID]) == 0 {
				delete(h.subscribers, userID)
			}
			close(ch)
		})
	}
}

// Publish delivers msg to every listener of userID and returns how many
// received it. Slow listeners with a full buffer are skipped.
func (h *NotificationHub) Publish(userID int64, msg Message) int {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for ch := range h.subscribers[userID] {
		select {
		case ch <- msg:
			delivered++
		default:
		}
	}
	return delivered
}
