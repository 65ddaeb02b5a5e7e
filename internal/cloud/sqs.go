package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/deaglo/apigateway/internal/core"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"github.com/deaglo/apigateway/internal/pkg/logger"
	"github.com/deaglo/apigateway/internal/pkg/metrics"
)

const MsgEnqueueFailed = "Failed to enqueue simulation"

var ErrQueueNotConfigured = errors.New("simulation queue url is not configured")

type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Queue publishes simulation jobs to the FIFO queue read by the core service.
type Queue struct {
	client sqsAPI
	url    string
}

func NewQueue(awsCfg aws.Config, url string) *Queue {
	return &Queue{client: sqs.NewFromConfig(awsCfg), url: url}
}

func newQueueWithClient(client sqsAPI, url string) *Queue {
	return &Queue{client: client, url: url}
}

// Enqueue sends msg with its group id. The result id doubles as the
// deduplication id, so a retried save never runs twice.
func (q *Queue) Enqueue(ctx context.Context, msg core.Message) error {
	if err := q.send(ctx, msg); err != nil {
		metrics.SimulationsEnqueued.WithLabelValues(msg.Type, "error").Inc()
		logger.LogError(ctx, err, "simulation enqueue failed",
			"type", msg.Type, "simulation_id", msg.SimulationID, "result_id", msg.ResultID)
		appErr := apperrors.Generic(MsgEnqueueFailed, nil, http.StatusInternalServerError)
		appErr.Cause = err
		return appErr
	}
	metrics.SimulationsEnqueued.WithLabelValues(msg.Type, "ok").Inc()
	logger.Info("simulation enqueued", "type", msg.Type, "simulation_id", msg.SimulationID, "result_id", msg.ResultID)
	return nil
}

func (q *Queue) send(ctx context.Context, msg core.Message) error {
	if q.url == "" {
		return ErrQueueNotConfigured
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:               aws.String(q.url),
		MessageBody:            aws.String(string(body)),
		MessageGroupId:         aws.String(msg.GroupID),
		MessageDeduplicationId: aws.String(msg.ResultID),
	})
	return err
}
