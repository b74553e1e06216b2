package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/logging"
)

const defaultPublishTimeout = 30 * time.Second

// Publisher accepts the payload of a fired task.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// Local runs timers in process and publishes fired payloads to a Publisher,
// usually an in-memory aging queue. Like an EventBridge one-shot schedule
// that deletes itself after completion, a task id is forgotten once its
// timer has fired and published.
type Local struct {
	pub            Publisher
	logger         logging.Logger
	publishTimeout time.Duration

	// ctx bounds every publish and is cancelled by Stop.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func NewLocal(pub Publisher, logger logging.Logger) *Local {
	ctx, cancel := context.WithCancel(context.Background())
	return &Local{
		pub:            pub,
		logger:         logger.With("module", "scheduler"),
		publishTimeout: defaultPublishTimeout,
		ctx:            ctx,
		cancel:         cancel,
		timers:         make(map[string]*time.Timer),
	}
}

func (l *Local) ScheduleOnce(ctx context.Context, taskID string, fireAt time.Time, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return ErrStopped
	}
	if _, ok := l.timers[taskID]; ok {
		return nil
	}

	body := append([]byte(nil), payload...)
	l.timers[taskID] = time.AfterFunc(time.Until(fireAt), func() { l.fire(taskID, body) })
	l.logger.Debug(ctx, "timer registered", "task_id", taskID, "fire_at", fireAt)
	return nil
}

func (l *Local) fire(taskID string, body []byte) {
	ctx, cancel := context.WithTimeout(l.ctx, l.publishTimeout)
	defer cancel()

	if err := l.pub.Publish(ctx, body); err != nil {
		l.logger.Error(ctx, "publish fired task", "task_id", taskID, "error", err)
	}

	l.mu.Lock()
	delete(l.timers, taskID)
	l.mu.Unlock()
}

// Stop cancels pending timers and aborts in-flight publishes. Later
// registrations fail with ErrStopped.
func (l *Local) Stop() {
	l.cancel()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	for _, t := range l.timers {
		t.Stop()
	}
}
