// Package task holds queue policy shared by the task service and runners: lease
// resolution and wakeup fan-out.
package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/target/mmk-bulkval/internal/domain/model"
)

// ErrWaiterRequired indicates a Wakeups hub was built without a waiter.
var ErrWaiterRequired = errors.New("wakeup waiter is required")

// Waiter blocks until a task of the given type may be available.
type Waiter interface {
	WaitForNotification(ctx context.Context, taskType model.TaskType) error
}

// Notifier hands out wakeup channels per task type.
type Notifier interface {
	Subscribe(taskType model.TaskType) (func(), <-chan struct{})
	StopAll()
}

// WakeupOptions configure a Wakeups hub.
type WakeupOptions struct {
	Waiter Waiter
	// Window bounds a single wait so subscribers are poked periodically even
	// without notifications.
	Window time.Duration
	// Backoff is slept after a failed wait.
	Backoff time.Duration
}

type topic struct {
	cancel context.CancelFunc
	subs   map[chan struct{}]struct{}
}

// Wakeups runs one waiter loop per subscribed task type and fans each wakeup out
// to every subscriber of that type. Delivery is lossy: a subscriber that has not
// drained its previous wakeup gets no second one.
type Wakeups struct {
	waiter  Waiter
	window  time.Duration
	backoff time.Duration

	mu     sync.Mutex
	topics map[model.TaskType]*topic
}

// NewWakeups constructs a hub.
func NewWakeups(opts WakeupOptions) (*Wakeups, error) {
	if opts.Waiter == nil {
		return nil, ErrWaiterRequired
	}
	w := &Wakeups{
		waiter:  opts.Waiter,
		window:  opts.Window,
		backoff: opts.Backoff,
		topics:  make(map[model.TaskType]*topic),
	}
	if w.window <= 0 {
		w.window = 30 * time.Second
	}
	if w.backoff <= 0 {
		w.backoff = 250 * time.Millisecond
	}
	return w, nil
}

// Subscribe registers a wakeup channel for taskType. The returned func unsubscribes
// and closes the channel; it is safe to call more than once.
func (w *Wakeups) Subscribe(taskType model.TaskType) (func(), <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tp := w.topics[taskType]
	if tp == nil {
		ctx, cancel := context.WithCancel(context.Background())
		tp = &topic{cancel: cancel, subs: make(map[chan struct{}]struct{})}
		w.topics[taskType] = tp
		go w.loop(ctx, taskType)
	}

	ch := make(chan struct{}, 1)
	tp.subs[ch] = struct{}{}

	var once sync.Once
	return func() { once.Do(func() { w.unsubscribe(taskType, ch) }) }, ch
}

func (w *Wakeups) unsubscribe(taskType model.TaskType, ch chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tp := w.topics[taskType]
	if tp == nil {
		return
	}
	if _, ok := tp.subs[ch]; !ok {
		return
	}
	delete(tp.subs, ch)
	closeDrained(ch)
	if len(tp.subs) == 0 {
		tp.cancel()
		delete(w.topics, taskType)
	}
}

// StopAll cancels every waiter loop and closes every subscriber channel.
func (w *Wakeups) StopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for taskType, tp := range w.topics {
		tp.cancel()
		for ch := range tp.subs {
			closeDrained(ch)
		}
		delete(w.topics, taskType)
	}
}

func (w *Wakeups) loop(ctx context.Context, taskType model.TaskType) {
	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, w.window)
		err := w.waiter.WaitForNotification(waitCtx, taskType)
		cancel()

		w.fanOut(taskType)

		if err == nil || ctx.Err() != nil {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.backoff):
		}
	}
}

func (w *Wakeups) fanOut(taskType model.TaskType) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tp := w.topics[taskType]
	if tp == nil {
		return
	}
	for ch := range tp.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// closeDrained empties any pending wakeup so receivers see the close immediately.
func closeDrained(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
	close(ch)
}

var _ Notifier = (*Wakeups)(nil)
