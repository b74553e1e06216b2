package aging

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/dmitrijs2005/gophtodo/internal/logging"
)

// SQSHandler is the Lambda entry point for an SQS event source.
type SQSHandler func(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error)

// NewSQSHandler processes each record of a batch. With partial batch
// responses enabled only failed records are reported for redelivery;
// otherwise any failure fails the whole invocation.
func NewSQSHandler(p *Processor, partial bool) SQSHandler {
	return func(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
		var resp events.SQSEventResponse
		var errs []error

		for _, rec := range ev.Records {
			if err := p.Process(logging.WithRequestID(ctx, rec.MessageId), []byte(rec.Body)); err != nil {
				resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
				errs = append(errs, fmt.Errorf("message %s: %w", rec.MessageId, err))
			}
		}

		if len(errs) > 0 && !partial {
			return events.SQSEventResponse{}, errors.Join(errs...)
		}
		return resp, nil
	}
}
