// Package dispatch implements the serialized, rate-limited outbound command
// queue. A single worker drains one item at a time, priority items first,
// FIFO within each class, with a minimum spacing between sends.
package dispatch

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/voicewarden/voicewarden/bot/api"
	"github.com/voicewarden/voicewarden/setup/config"
	"github.com/voicewarden/voicewarden/setup/jetstream"
	"github.com/voicewarden/voicewarden/setup/process"
)

const queueIdleTimeout = time.Second * 30

// A Precondition is re-evaluated immediately before a queued item is sent.
// Returning false discards the item: the room state may have changed while
// the item waited, e.g. a kick is pointless if the target already left.
type Precondition func() bool

// Item is one outbound command.
type Item struct {
	ID           string
	Command      string
	RoomID       string
	Priority     bool
	EnqueuedAt   time.Time
	Precondition Precondition
	// OriginEventID is the message that triggered this command, if any,
	// forwarded on the action-executed event for cleanup.
	OriginEventID string
}

// Sender is the injected send capability. Implementations must honour the
// context deadline.
type Sender interface {
	SendCommand(ctx context.Context, roomID, text string) (eventID string, err error)
}

// Queue is the outbound command queue. Enqueue never blocks the caller: it
// appends to a pending list and wakes the worker.
type Queue struct {
	process *process.ProcessContext
	cfg     *config.Dispatch
	sender  Sender
	js      nats.JetStreamContext // nil disables action-executed publishing
	topic   string

	running  atomic.Bool // is the queue worker running?
	disabled atomic.Bool // halts the worker without discarding items
	notify   chan struct{}

	pendingMutex    sync.Mutex
	pendingPriority []*Item
	pendingNormal   []*Item
}

// NewQueue creates the queue. js may be nil, in which case no
// action-executed events are published; topic must be the fully prefixed
// output subject otherwise.
func NewQueue(
	process *process.ProcessContext,
	cfg *config.Dispatch,
	sender Sender,
	js nats.JetStreamContext,
	topic string,
) *Queue {
	q := &Queue{
		process: process,
		cfg:     cfg,
		sender:  sender,
		js:      js,
		topic:   topic,
	}
	q.notify = make(chan struct{}, 1)
	q.disabled.Store(!cfg.StartEnabled())
	return q
}

// Enqueue adds an item to the back of its class and returns its ID. Commands
// containing a configured high-value substring are upgraded to priority
// regardless of what the caller asked for, so that ownership-establishing
// commands are never starved behind bulk moderation.
func (q *Queue) Enqueue(item Item) string {
	q.prepare(&item)
	q.pendingMutex.Lock()
	if item.Priority {
		q.pendingPriority = append(q.pendingPriority, &item)
	} else {
		q.pendingNormal = append(q.pendingNormal, &item)
	}
	q.pendingMutex.Unlock()
	q.updatePendingMetrics()
	q.wakeQueueAndNotify()
	return item.ID
}

// Unshift injects an item directly at the front of the priority class,
// bypassing normal ordering. For out-of-band urgent work only.
func (q *Queue) Unshift(item Item) string {
	item.Priority = true
	q.prepare(&item)
	q.pendingMutex.Lock()
	q.pendingPriority = append([]*Item{&item}, q.pendingPriority...)
	q.pendingMutex.Unlock()
	q.updatePendingMetrics()
	q.wakeQueueAndNotify()
	return item.ID
}

func (q *Queue) prepare(item *Item) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.EnqueuedAt = time.Now()
	if !item.Priority {
		for _, kw := range q.cfg.PriorityKeywords {
			if kw != "" && strings.Contains(item.Command, kw) {
				item.Priority = true
				break
			}
		}
	}
}

// SetEnabled enables or disables the worker. Disabling halts dispatch
// without discarding pending items; re-enabling resumes where it left off.
func (q *Queue) SetEnabled(enabled bool) {
	if enabled {
		q.disabled.Store(false)
		q.wakeQueueAndNotify()
	} else {
		q.disabled.Store(true)
	}
}

func (q *Queue) Enabled() bool {
	return !q.disabled.Load()
}

// PendingCounts returns the number of queued priority and normal items.
func (q *Queue) PendingCounts() (priority, normal int) {
	q.pendingMutex.Lock()
	defer q.pendingMutex.Unlock()
	return len(q.pendingPriority), len(q.pendingNormal)
}

// wakeQueueAndNotify ensures the worker is running and notifies it that
// there is pending work.
func (q *Queue) wakeQueueAndNotify() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
	if q.disabled.Load() {
		return
	}
	if !q.running.Load() {
		go q.backgroundSend()
	}
}

// checkNotificationsOnClose checks for any remaining notifications after the
// worker exits and restarts it if any arrived in the meantime.
func (q *Queue) checkNotificationsOnClose() {
	select {
	case <-q.notify:
		q.wakeQueueAndNotify()
	default:
	}
}

func (q *Queue) pop() *Item {
	q.pendingMutex.Lock()
	defer q.pendingMutex.Unlock()
	if len(q.pendingPriority) > 0 {
		item := q.pendingPriority[0]
		q.pendingPriority[0] = nil
		q.pendingPriority = q.pendingPriority[1:]
		return item
	}
	if len(q.pendingNormal) > 0 {
		item := q.pendingNormal[0]
		q.pendingNormal[0] = nil
		q.pendingNormal = q.pendingNormal[1:]
		return item
	}
	return nil
}

// backgroundSend is the worker goroutine. Only one runs at a time.
func (q *Queue) backgroundSend() {
	if !q.running.CompareAndSwap(false, true) {
		return
	}
	// The ordering here is intentional: the notification check must run
	// after the running flag has been cleared.
	defer q.checkNotificationsOnClose()
	defer q.running.Store(false)

	idleTimeout := time.NewTimer(queueIdleTimeout)
	defer idleTimeout.Stop()

	for {
		if q.disabled.Load() {
			// Halt without discarding: SetEnabled(true) restarts us.
			return
		}

		item := q.pop()
		if item == nil {
			if !idleTimeout.Stop() {
				select {
				case <-idleTimeout.C:
				default:
				}
			}
			idleTimeout.Reset(queueIdleTimeout)
			select {
			case <-q.notify:
				continue
			case <-idleTimeout.C:
				// The worker is idle so stop the goroutine. It'll get
				// restarted the next time an item is enqueued.
				return
			case <-q.process.Context().Done():
				return
			}
		}
		q.updatePendingMetrics()

		// Re-evaluate the precondition immediately before sending. A false
		// result discards the item with no side effects and no delay
		// penalty: the loop proceeds straight to the next item.
		if item.Precondition != nil && !item.Precondition() {
			logrus.WithFields(logrus.Fields{
				"item_id": item.ID,
				"room_id": item.RoomID,
			}).Debug("Dropping queued command, precondition no longer holds")
			commandsDropped.WithLabelValues("precondition").Inc()
			continue
		}

		ctx, cancel := context.WithTimeout(q.process.Context(), q.cfg.SendTimeout)
		eventID, err := q.sender.SendCommand(ctx, item.RoomID, item.Command)
		cancel()
		if err != nil {
			// No retry: a stuck or stale command is worse than a dropped
			// one. Log it and move on.
			logrus.WithError(err).WithFields(logrus.Fields{
				"item_id": item.ID,
				"room_id": item.RoomID,
			}).Warn("Failed to send command, dropping item")
			commandsDropped.WithLabelValues("send_failed").Inc()
		} else {
			commandsSent.Inc()
			q.publishActionExecuted(item, eventID)
		}

		// Enforce the inter-item spacing, measured from send completion
		// (or drop) to the next attempt.
		select {
		case <-time.After(q.cfg.SendInterval):
		case <-q.process.Context().Done():
			return
		}
	}
}

// publishActionExecuted emits the correlatable identifier of a sent command
// so downstream cleanup can run. This is a best-effort side effect, not a
// queue invariant.
func (q *Queue) publishActionExecuted(item *Item, eventID string) {
	if q.js == nil || q.topic == "" {
		return
	}
	payload, err := json.Marshal(api.ActionExecutedEvent{
		ItemID:        item.ID,
		RoomID:        item.RoomID,
		Command:       item.Command,
		SentEventID:   eventID,
		OriginEventID: item.OriginEventID,
	})
	if err != nil {
		return
	}
	msg := nats.NewMsg(q.topic)
	msg.Header.Set(jetstream.RoomIDHeader, item.RoomID)
	msg.Data = payload
	if _, err := q.js.PublishMsg(msg); err != nil {
		logrus.WithError(err).Warn("Failed to publish action-executed event")
	}
}

func (q *Queue) updatePendingMetrics() {
	priority, normal := q.PendingCounts()
	pendingCommands.WithLabelValues("priority").Set(float64(priority))
	pendingCommands.WithLabelValues("normal").Set(float64(normal))
}
