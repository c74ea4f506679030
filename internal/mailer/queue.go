package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Queue sends messages from a background worker so callers never wait on
// SMTP. Delivery is best-effort: a full queue or a failed send drops the
// message after logging it.
type Queue struct {
	mailer *Mailer
	ch     chan Message
	rate   time.Duration
}

func NewQueue(m *Mailer, rate time.Duration, bufferSize int) *Queue {
	return &Queue{
		mailer: m,
		ch:     make(chan Message, bufferSize),
		rate:   rate,
	}
}

// Start processes queued messages at the configured rate until ctx is
// cancelled. Messages still queued are left for Drain.
func (q *Queue) Start(ctx context.Context) {
	ticker := time.NewTicker(q.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case msg := <-q.ch:
				q.deliver(msg)
			default:
				// no message ready; wait for next tick
			}
		}
	}
}

// Enqueue adds msg to the queue without blocking.
func (q *Queue) Enqueue(msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	default:
		return fmt.Errorf("mailer: queue full, message not queued")
	}
}

// SendStatusUpdate renders the notification and enqueues it.
func (q *Queue) SendStatusUpdate(u StatusUpdate) error {
	msg, err := u.Message()
	if err != nil {
		return err
	}
	return q.Enqueue(msg)
}

// Len reports how many messages are waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}

func (q *Queue) deliver(msg Message) {
	if err := q.mailer.send(msg); err != nil {
		slog.Error("mailer: message dropped", "to", msg.To, "subject", msg.Subject, "err", err)
	}
}

// Drain delivers every queued message without pacing. Call it once nothing
// can enqueue any more, after the HTTP server has shut down.
func (q *Queue) Drain() {
	for {
		select {
		case msg := <-q.ch:
			q.deliver(msg)
		default:
			return
		}
	}
}
