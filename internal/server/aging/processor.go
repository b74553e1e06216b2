// Package aging consumes fired aging tasks from a queue and marks the
// referenced todo as aged. A message is acknowledged only after MarkAged
// succeeds; every failure leaves it for redelivery.
package aging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/metrics"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
)

// Marker is the aging callback of the todo service.
type Marker interface {
	MarkAged(ctx context.Context, id string) (*models.Todo, error)
}

// Processor handles one message body.
type Processor struct {
	marker  Marker
	logger  logging.Logger
	metrics *metrics.Metrics
}

func NewProcessor(marker Marker, logger logging.Logger, m *metrics.Metrics) *Processor {
	return &Processor{marker: marker, logger: logger.With("module", "aging"), metrics: m}
}

// Process decodes {"taskId": id} and marks the todo aged.
func (p *Processor) Process(ctx context.Context, body []byte) error {
	var task models.AgingTask
	if err := json.Unmarshal(body, &task); err != nil {
		p.metrics.AgingHandled(metrics.AgingBadInput)
		return fmt.Errorf("decode aging message: %w", err)
	}
	if task.TaskID == "" {
		p.metrics.AgingHandled(metrics.AgingBadInput)
		return fmt.Errorf("decode aging message: missing taskId")
	}

	if _, err := p.marker.MarkAged(ctx, task.TaskID); err != nil {
		p.metrics.AgingHandled(metrics.AgingFailed)
		p.logger.Warn(ctx, "aging failed, message left for redelivery", "task_id", task.TaskID, "error", err)
		return err
	}

	p.metrics.AgingHandled(metrics.AgingOK)
	return nil
}
