package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ebs "github.com/aws/aws-sdk-go-v2/service/scheduler"
	"github.com/aws/aws-sdk-go-v2/service/scheduler/types"

	"github.com/dmitrijs2005/gophtodo/internal/logging"
)

// atLayout is the timestamp form of an at() expression; it has no zone and
// is interpreted in ScheduleExpressionTimezone.
const atLayout = "2006-01-02T15:04:05"

// EventBridgeAPI is the subset of *scheduler.Client used here.
type EventBridgeAPI interface {
	CreateSchedule(ctx context.Context, in *ebs.CreateScheduleInput, optFns ...func(*ebs.Options)) (*ebs.CreateScheduleOutput, error)
}

// EventBridge registers schedules with EventBridge Scheduler that send the
// payload to an SQS queue and delete themselves after firing.
type EventBridge struct {
	client    EventBridgeAPI
	targetARN string
	roleARN   string
	group     string
	logger    logging.Logger
}

func NewEventBridge(client EventBridgeAPI, targetARN, roleARN, group string, logger logging.Logger) *EventBridge {
	return &EventBridge{
		client:    client,
		targetARN: targetARN,
		roleARN:   roleARN,
		group:     group,
		logger:    logger.With("module", "scheduler"),
	}
}

func (e *EventBridge) ScheduleOnce(ctx context.Context, taskID string, fireAt time.Time, payload []byte) error {
	in := &ebs.CreateScheduleInput{
		Name:                       aws.String(taskID),
		ScheduleExpression:         aws.String("at(" + fireAt.UTC().Format(atLayout) + ")"),
		ScheduleExpressionTimezone: aws.String("UTC"),
		FlexibleTimeWindow:         &types.FlexibleTimeWindow{Mode: types.FlexibleTimeWindowModeOff},
		ActionAfterCompletion:      types.ActionAfterCompletionDelete,
		Target: &types.Target{
			Arn:     aws.String(e.targetARN),
			RoleArn: aws.String(e.roleARN),
			Input:   aws.String(string(payload)),
		},
	}
	if e.group != "" {
		in.GroupName = aws.String(e.group)
	}

	_, err := e.client.CreateSchedule(ctx, in)
	if err != nil {
		var conflict *types.ConflictException
		if errors.As(err, &conflict) {
			e.logger.Debug(ctx, "schedule already exists", "task_id", taskID)
			return nil
		}
		return fmt.Errorf("create schedule: %w", err)
	}

	e.logger.Info(ctx, "schedule created", "task_id", taskID, "fire_at", fireAt.UTC())
	return nil
}
