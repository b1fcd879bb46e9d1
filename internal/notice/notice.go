// Package notice carries user-facing notifications (the toasts a client
// shows) from the editor to whoever drains them.
package notice

import (
	"fmt"
	"sync"
	"time"
)

type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Error   Level = "error"
)

type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier receives notices.
type Notifier interface {
	Notify(level Level, format string, args ...any)
}

// Discard drops every notice.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Level, string, ...any) {}

// Queue is a bounded FIFO of notices; the oldest are dropped once full.
type Queue struct {
	mu    sync.Mutex
	limit int
	items []Notice
	now   func() time.Time
	// OnNotify, when set, sees every notice as it is queued.
	OnNotify func(Notice)
}

func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 50
	}
	return &Queue{limit: limit, now: time.Now}
}

func (q *Queue) Notify(level Level, format string, args ...any) {
	n := Notice{Level: level, Message: fmt.Sprintf(format, args...), Time: q.now()}
	q.mu.Lock()
	q.items = append(q.items, n)
	if over := len(q.items) - q.limit; over > 0 {
		q.items = append(q.items[:0:0], q.items[over:]...)
	}
	hook := q.OnNotify
	q.mu.Unlock()
	if hook != nil {
		hook(n)
	}
}

// Drain returns and clears the queued notices.
func (q *Queue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}
