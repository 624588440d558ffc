package tracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/pkg/logger"
)

// SQSReceiver is the subset of the SQS client used by Consumer.
type SQSReceiver interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer drains the tracking queue into the event store.
type Consumer struct {
	sqsClient SQSReceiver
	queueURL  string
	store     Recorder
	done      chan struct{}
	log       *logger.Logger
}

func NewConsumer(sqsClient SQSReceiver, queueURL string, store Recorder) *Consumer {
	return &Consumer{
		sqsClient: sqsClient,
		queueURL:  queueURL,
		store:     store,
		done:      make(chan struct{}),
		log:       logger.With("component", "tracking_consumer"),
	}
}

func (c *Consumer) Start(ctx context.Context) {
	c.log.Info("SQS tracking consumer started", "queue", c.queueURL)
	go c.poll(ctx)
}

func (c *Consumer) Stop() {
	close(c.done)
}

func (c *Consumer) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		out, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("SQS receive error", "error", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range out.Messages {
			c.handle(ctx, msg)
		}
	}
}

// handle stores one message and deletes it unless storing failed, so a
// transient database error leaves it on the queue for redelivery.
func (c *Consumer) handle(ctx context.Context, msg types.Message) {
	var ev domain.LeadEvent
	if msg.Body == nil || json.Unmarshal([]byte(*msg.Body), &ev) != nil {
		c.log.Warn("SQS bad message, dropping")
		c.deleteMessage(ctx, msg.ReceiptHandle)
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	if err := c.store.Record(ctx, ev); err != nil {
		c.log.Error("SQS process error", "event_type", ev.Type, "error", err)
		return
	}
	c.deleteMessage(ctx, msg.ReceiptHandle)
}

func (c *Consumer) deleteMessage(ctx context.Context, handle *string) {
	if _, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	}); err != nil {
		c.log.Warn("SQS delete failed", "error", err)
	}
}
