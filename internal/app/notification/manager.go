// Package notification provides the notification manager for broadcasting
// player notices and state changes to remote subscribers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vinylbox/internal/app/playback"
)

// Type identifies the payload of a notification.
type Type int

const (
	TypeNotice Type = iota // Transient user-facing message
	TypeState              // Full player state snapshot
)

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case TypeNotice:
		return "notice"
	case TypeState:
		return "state"
	default:
		return "unknown"
	}
}

// Notification is one broadcast message. Exactly one of Notice and State is set.
type Notification struct {
	SequenceNo uint64             `json:"sequenceNo"`
	Type       Type               `json:"type"`
	Notice     *playback.Notice   `json:"notice,omitempty"`
	State      *playback.Snapshot `json:"state,omitempty"`
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// StreamFunc adapts a function to Stream.
type StreamFunc func(*Notification) error

// Send calls f(n).
func (f StreamFunc) Send(n *Notification) error { return f(n) }

// ErrSendTimeout is returned when a channel subscriber does not receive in time.
var ErrSendTimeout = errors.New("notification send timed out")

const (
	defaultQueueSize   = 32
	defaultSendTimeout = 500 * time.Millisecond
)

// subscription represents a subscriber's subscription.
type subscription struct {
	id      string
	stream  Stream
	queue   chan *Notification
	ctx     context.Context
	cancel  context.CancelFunc
	sendMu  sync.Mutex    // Serializes stream.Send
	stopped chan struct{} // Closed when the pump has returned
}

// Manager manages notification subscriptions and broadcasting.
// Publishing never blocks: each subscriber has its own queue drained by a
// pump goroutine, and a full queue drops the notification for that subscriber.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
	wg            sync.WaitGroup
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   defaultSendTimeout,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		id:      uuid.New().String(),
		stream:  stream,
		queue:   make(chan *Notification, defaultQueueSize),
		ctx:     ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	m.subscriptions[sub.id] = sub

	m.wg.Add(1)
	go m.pump(sub)

	zlog.Debug().Msgf("notification: subscribed: id=%s subscribers=%d", sub.id, len(m.subscriptions))
	return sub.id
}

// SubscribeChan subscribes a channel. Notifications that cannot be delivered
// within the send timeout are dropped. The returned function unsubscribes.
func (m *Manager) SubscribeChan(ch chan<- *Notification) (string, func()) {
	id := m.Subscribe(StreamFunc(func(n *Notification) error {
		timer := time.NewTimer(m.sendTimeout)
		defer timer.Stop()
		select {
		case ch <- n:
			return nil
		case <-timer.C:
			return ErrSendTimeout
		}
	}))
	return id, func() { m.Unsubscribe(id) }
}

// Unsubscribe removes a subscription.
// It returns once no send to the subscriber's stream is in flight.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	sub.cancel()
	delete(m.subscriptions, subscriptionID)
	remaining := len(m.subscriptions)
	m.mu.Unlock()

	<-sub.stopped
	zlog.Debug().Msgf("notification: unsubscribed: id=%s subscribers=%d", subscriptionID, remaining)
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast stamps the notification with the next sequence number and queues
// it for every subscriber.
func (m *Manager) Broadcast(notification *Notification) {
	notification.SequenceNo = m.NextSequenceNo()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscriptions {
		select {
		case sub.queue <- notification:
		default:
			zlog.Warn().Msgf("notification: queue full, dropped: id=%s seq=%d", sub.id, notification.SequenceNo)
		}
	}
}

// PublishNotice broadcasts a notice.
func (m *Manager) PublishNotice(n playback.Notice) {
	m.Broadcast(&Notification{Type: TypeNotice, Notice: &n})
}

// PublishState broadcasts a state snapshot.
func (m *Manager) PublishState(s playback.Snapshot) {
	m.Broadcast(&Notification{Type: TypeState, State: &s})
}

// Send sends a notification to a specific subscriber, bypassing its queue.
func (m *Manager) Send(subscriptionID string, notification *Notification) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	sub.sendMu.Lock()
	defer sub.sendMu.Unlock()
	return sub.stream.Send(notification)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions and waits for the pumps to stop.
func (m *Manager) Close() {
	m.mu.Lock()
	for _, sub := range m.subscriptions {
		sub.cancel()
	}
	m.subscriptions = make(map[string]*subscription)
	m.mu.Unlock()

	m.wg.Wait()
}

// pump delivers queued notifications to one subscriber, one send at a time.
// A send that outlives the timeout is logged and waited for, so a stream never
// sees concurrent sends and none continues after the pump returns.
func (m *Manager) pump(sub *subscription) {
	defer m.wg.Done()
	defer close(sub.stopped)

	for {
		select {
		case <-sub.ctx.Done():
			return
		case n := <-sub.queue:
			m.deliver(sub, n)
		}
	}
}

func (m *Manager) deliver(sub *subscription, n *Notification) {
	done := make(chan error, 1)
	go func() {
		sub.sendMu.Lock()
		defer sub.sendMu.Unlock()
		done <- sub.stream.Send(n)
	}()

	timer := time.NewTimer(m.sendTimeout)
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
	case <-timer.C:
		zlog.Warn().Msgf("notification: slow subscriber: id=%s seq=%d", sub.id, n.SequenceNo)
		err = <-done
	}
	if err != nil {
		zlog.Debug().Err(err).Msgf("notification: send failed: id=%s seq=%d", sub.id, n.SequenceNo)
	}
}
