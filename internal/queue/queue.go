// Package queue integrates with the message queue: receiving delivered
// batches and acknowledging records by deleting their source messages.
package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/auditlake/audit-archiver/internal/record"
)

// Deleter removes one delivered message from its queue.
type Deleter interface {
	Delete(ctx context.Context, queueURL, receiptHandle string) error
}

// Client wraps the SQS API for receiving and deleting messages.
type Client struct {
	api         *sqs.Client
	queueURL    string
	waitSeconds int32
	maxMessages int32
}

// ClientConfig configures the queue client.
type ClientConfig struct {
	QueueURL    string
	WaitSeconds int
	MaxMessages int
}

// NewClient creates a queue client using the default AWS credential chain.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	maxMessages := cfg.MaxMessages
	if maxMessages < 1 || maxMessages > 10 {
		maxMessages = 10
	}

	return &Client{
		api:         sqs.NewFromConfig(awsCfg),
		queueURL:    cfg.QueueURL,
		waitSeconds: int32(cfg.WaitSeconds),
		maxMessages: int32(maxMessages),
	}, nil
}

// Receive long-polls the configured queue for one delivered batch. An
// empty slice means the poll timed out with no messages.
func (c *Client) Receive(ctx context.Context) ([]record.RawMessage, error) {
	out, err := c.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.maxMessages,
		WaitTimeSeconds:     c.waitSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("receive from %s: %w", c.queueURL, err)
	}

	batch := make([]record.RawMessage, 0, len(out.Messages))
	for _, m := range out.Messages {
		batch = append(batch, record.RawMessage{
			Body:          aws.ToString(m.Body),
			MessageID:     aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			QueueURL:      c.queueURL,
		})
	}
	return batch, nil
}

// Delete removes one message by its receipt handle.
func (c *Client) Delete(ctx context.Context, queueURL, receiptHandle string) error {
	_, err := c.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message from %s: %w", queueURL, err)
	}
	return nil
}
