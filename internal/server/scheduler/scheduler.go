// Package scheduler registers one-shot deferred tasks. A fired task delivers
// its payload onto the aging queue.
package scheduler

import (
	"context"
	"time"
)

// Scheduler registers a one-shot timer named taskID. Registering a task id
// that already exists is not an error and does not create a second timer.
type Scheduler interface {
	ScheduleOnce(ctx context.Context, taskID string, fireAt time.Time, payload []byte) error
}
