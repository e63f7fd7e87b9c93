package sqs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/wmachuca/localstack-studio/internal/domain"
)

// API is the slice of the SQS SDK client this package uses. Narrowing the
// dependency keeps the wrapper testable with in-memory fakes.
type API interface {
	ListQueues(ctx context.Context, params *awssqs.ListQueuesInput, optFns ...func(*awssqs.Options)) (*awssqs.ListQueuesOutput, error)
	GetQueueUrl(ctx context.Context, params *awssqs.GetQueueUrlInput, optFns ...func(*awssqs.Options)) (*awssqs.GetQueueUrlOutput, error)
	GetQueueAttributes(ctx context.Context, params *awssqs.GetQueueAttributesInput, optFns ...func(*awssqs.Options)) (*awssqs.GetQueueAttributesOutput, error)
	ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error)
	SendMessage(ctx context.Context, params *awssqs.SendMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error)
	DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error)
	CreateQueue(ctx context.Context, params *awssqs.CreateQueueInput, optFns ...func(*awssqs.Options)) (*awssqs.CreateQueueOutput, error)
	DeleteQueue(ctx context.Context, params *awssqs.DeleteQueueInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteQueueOutput, error)
	PurgeQueue(ctx context.Context, params *awssqs.PurgeQueueInput, optFns ...func(*awssqs.Options)) (*awssqs.PurgeQueueOutput, error)
}

// Client implements domain.QueueStore on top of the SQS API.
type Client struct {
	api API

	mu   sync.RWMutex
	urls map[string]string
}

var _ domain.QueueStore = (*Client)(nil)

func New(api API) *Client {
	return &Client{
		api:  api,
		urls: make(map[string]string),
	}
}

// ListQueues returns all queues sorted by creation timestamp, oldest first.
func (c *Client) ListQueues(ctx context.Context) ([]domain.QueueSummary, error) {
	out, err := c.api.ListQueues(ctx, &awssqs.ListQueuesInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}

	queues := make([]domain.QueueSummary, 0, len(out.QueueUrls))
	for _, url := range out.QueueUrls {
		name := queueNameFromURL(url)

		created := "0"
		attrs, err := c.api.GetQueueAttributes(ctx, &awssqs.GetQueueAttributesInput{
			QueueUrl:       aws.String(url),
			AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameCreatedTimestamp},
		})
		if err == nil {
			if v, ok := attrs.Attributes[string(types.QueueAttributeNameCreatedTimestamp)]; ok {
				created = v
			}
		}

		queues = append(queues, domain.QueueSummary{
			Name:             name,
			URL:              url,
			CreatedTimestamp: created,
		})
	}

	sort.SliceStable(queues, func(i, j int) bool {
		return parseTimestamp(queues[i].CreatedTimestamp) < parseTimestamp(queues[j].CreatedTimestamp)
	})

	return queues, nil
}

func (c *Client) GetQueueAttributes(ctx context.Context, name string) (domain.QueueAttributes, error) {
	url, err := c.queueURL(ctx, name)
	if err != nil {
		return domain.QueueAttributes{}, err
	}

	out, err := c.api.GetQueueAttributes(ctx, &awssqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(url),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameAll},
	})
	if err != nil {
		return domain.QueueAttributes{}, mapQueueErr(name, err)
	}

	attr := func(key types.QueueAttributeName, fallback string) string {
		if v, ok := out.Attributes[string(key)]; ok {
			return v
		}
		return fallback
	}

	return domain.QueueAttributes{
		Name:                          name,
		URL:                           url,
		ApproximateMessages:           attr(types.QueueAttributeNameApproximateNumberOfMessages, "0"),
		ApproximateMessagesNotVisible: attr(types.QueueAttributeNameApproximateNumberOfMessagesNotVisible, "0"),
		ApproximateMessagesDelayed:    attr(types.QueueAttributeNameApproximateNumberOfMessagesDelayed, "0"),
		CreatedTimestamp:              attr(types.QueueAttributeNameCreatedTimestamp, ""),
		LastModifiedTimestamp:         attr(types.QueueAttributeNameLastModifiedTimestamp, ""),
		VisibilityTimeout:             attr(types.QueueAttributeNameVisibilityTimeout, "30"),
		MessageRetentionPeriod:        attr(types.QueueAttributeNameMessageRetentionPeriod, "345600"),
		DelaySeconds:                  attr(types.QueueAttributeNameDelaySeconds, "0"),
		ReceiveMessageWaitTime:        attr(types.QueueAttributeNameReceiveMessageWaitTimeSeconds, "0"),
	}, nil
}

// ReceiveMessages long-polls the queue. Messages are returned with all system
// and user attributes; they stay in the queue until explicitly deleted.
func (c *Client) ReceiveMessages(ctx context.Context, queue string, p domain.ReceiveParams) ([]domain.Message, error) {
	url, err := c.queueURL(ctx, queue)
	if err != nil {
		return nil, err
	}

	out, err := c.api.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(url),
		MaxNumberOfMessages:         p.MaxNumberOfMessages,
		WaitTimeSeconds:             p.WaitTimeSeconds,
		VisibilityTimeout:           p.VisibilityTimeout,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameAll},
		MessageAttributeNames:       []string{"All"},
	})
	if err != nil {
		return nil, mapQueueErr(queue, err)
	}

	now := time.Now()
	messages := make([]domain.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		messages = append(messages, domain.Message{
			MessageID:         aws.ToString(m.MessageId),
			ReceiptHandle:     aws.ToString(m.ReceiptHandle),
			Body:              aws.ToString(m.Body),
			Attributes:        m.Attributes,
			MessageAttributes: fromSDKAttributes(m.MessageAttributes),
			ReceivedAt:        now,
		})
	}

	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, queue, body string, attrs map[string]domain.MessageAttribute, delaySeconds int32) (domain.SendResult, error) {
	url, err := c.queueURL(ctx, queue)
	if err != nil {
		return domain.SendResult{}, err
	}

	input := &awssqs.SendMessageInput{
		QueueUrl:     aws.String(url),
		MessageBody:  aws.String(body),
		DelaySeconds: delaySeconds,
	}
	if len(attrs) > 0 {
		input.MessageAttributes = toSDKAttributes(attrs)
	}

	out, err := c.api.SendMessage(ctx, input)
	if err != nil {
		return domain.SendResult{}, mapQueueErr(queue, err)
	}

	return domain.SendResult{
		MessageID:      aws.ToString(out.MessageId),
		MD5OfBody:      aws.ToString(out.MD5OfMessageBody),
		SequenceNumber: aws.ToString(out.SequenceNumber),
	}, nil
}

func (c *Client) DeleteMessage(ctx context.Context, queue, receiptHandle string) error {
	url, err := c.queueURL(ctx, queue)
	if err != nil {
		return err
	}

	_, err = c.api.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(url),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return mapQueueErr(queue, err)
	}
	return nil
}

func (c *Client) CreateQueue(ctx context.Context, name string, attributes map[string]string) (string, error) {
	input := &awssqs.CreateQueueInput{QueueName: aws.String(name)}
	if len(attributes) > 0 {
		input.Attributes = attributes
	}

	out, err := c.api.CreateQueue(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to create queue %q: %w", name, err)
	}

	url := aws.ToString(out.QueueUrl)
	c.mu.Lock()
	c.urls[name] = url
	c.mu.Unlock()

	return url, nil
}

func (c *Client) DeleteQueue(ctx context.Context, name string) error {
	url, err := c.queueURL(ctx, name)
	if err != nil {
		return err
	}

	if _, err := c.api.DeleteQueue(ctx, &awssqs.DeleteQueueInput{QueueUrl: aws.String(url)}); err != nil {
		return mapQueueErr(name, err)
	}

	c.mu.Lock()
	delete(c.urls, name)
	c.mu.Unlock()

	return nil
}

func (c *Client) PurgeQueue(ctx context.Context, name string) error {
	url, err := c.queueURL(ctx, name)
	if err != nil {
		return err
	}

	if _, err := c.api.PurgeQueue(ctx, &awssqs.PurgeQueueInput{QueueUrl: aws.String(url)}); err != nil {
		return mapQueueErr(name, err)
	}
	return nil
}

// queueURL resolves a queue name to its URL, caching the result. Queue URLs
// are stable for the queue's lifetime; the cache entry is dropped on delete.
func (c *Client) queueURL(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	url, ok := c.urls[name]
	c.mu.RUnlock()
	if ok {
		return url, nil
	}

	out, err := c.api.GetQueueUrl(ctx, &awssqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", mapQueueErr(name, err)
	}

	url = aws.ToString(out.QueueUrl)
	c.mu.Lock()
	c.urls[name] = url
	c.mu.Unlock()

	return url, nil
}

func mapQueueErr(name string, err error) error {
	var notFound *types.QueueDoesNotExist
	if errors.As(err, &notFound) {
		return fmt.Errorf("queue %q: %w", name, domain.ErrQueueNotFound)
	}
	return fmt.Errorf("queue %q: %w", name, err)
}

func queueNameFromURL(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 {
		return url[i+1:]
	}
	return url
}

func parseTimestamp(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func toSDKAttributes(attrs map[string]domain.MessageAttribute) map[string]types.MessageAttributeValue {
	out := make(map[string]types.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		dataType := v.DataType
		if dataType == "" {
			dataType = "String"
		}
		out[k] = types.MessageAttributeValue{
			DataType:    aws.String(dataType),
			StringValue: aws.String(v.StringValue),
		}
	}
	return out
}

func fromSDKAttributes(attrs map[string]types.MessageAttributeValue) map[string]domain.MessageAttribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]domain.MessageAttribute, len(attrs))
	for k, v := range attrs {
		out[k] = domain.MessageAttribute{
			DataType:    aws.ToString(v.DataType),
			StringValue: aws.ToString(v.StringValue),
		}
	}
	return out
}
