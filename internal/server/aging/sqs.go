package aging

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/dmitrijs2005/gophtodo/internal/logging"
)

const (
	maxBatch     = 10
	errorBackoff = time.Second
)

// SQSAPI is the subset of *sqs.Client used by the consumer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSConsumer long-polls the aging queue. Failed messages are not deleted
// and reappear after their visibility timeout.
type SQSConsumer struct {
	client    SQSAPI
	queueURL  string
	waitTime  time.Duration
	processor *Processor
	logger    logging.Logger
}

func NewSQSConsumer(client SQSAPI, queueURL string, waitTime time.Duration, p *Processor, logger logging.Logger) *SQSConsumer {
	return &SQSConsumer{
		client:    client,
		queueURL:  queueURL,
		waitTime:  waitTime,
		processor: p,
		logger:    logger.With("module", "sqs-consumer"),
	}
}

// Run polls until ctx is cancelled.
func (c *SQSConsumer) Run(ctx context.Context) error {
	c.logger.Info(ctx, "aging consumer started", "queue", c.queueURL)
	for {
		if ctx.Err() != nil {
			c.logger.Info(ctx, "aging consumer stopped")
			return nil
		}

		if _, err := c.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error(ctx, "receive failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
		}
	}
}

// PollOnce receives one batch and returns how many messages were acknowledged.
func (c *SQSConsumer) PollOnce(ctx context.Context) (int, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: maxBatch,
		WaitTimeSeconds:     int32(c.waitTime / time.Second),
	})
	if err != nil {
		return 0, err
	}

	acked := 0
	var errs []error
	for _, msg := range out.Messages {
		if err := c.handle(ctx, msg); err != nil {
			errs = append(errs, err)
			continue
		}
		acked++
	}
	if len(errs) > 0 {
		c.logger.Debug(ctx, "batch had failures", "failed", len(errs), "acked", acked, "error", errors.Join(errs...))
	}
	return acked, nil
}

func (c *SQSConsumer) handle(ctx context.Context, msg types.Message) error {
	ctx = logging.WithRequestID(ctx, aws.ToString(msg.MessageId))
	if err := c.processor.Process(ctx, []byte(aws.ToString(msg.Body))); err != nil {
		return err
	}
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.logger.Error(ctx, "delete message", "message_id", aws.ToString(msg.MessageId), "error", err)
		return err
	}
	return nil
}
