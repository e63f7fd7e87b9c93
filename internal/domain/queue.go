package domain

import "context"

// QueueSummary is one entry in the queue listing.
type QueueSummary struct {
	Name             string `json:"name"`
	URL              string `json:"url"`
	CreatedTimestamp string `json:"createdTimestamp"`
}

// QueueAttributes is the detail view of a single queue.
type QueueAttributes struct {
	Name                          string `json:"name"`
	URL                           string `json:"url"`
	ApproximateMessages           string `json:"approximateNumberOfMessages"`
	ApproximateMessagesNotVisible string `json:"approximateNumberOfMessagesNotVisible"`
	ApproximateMessagesDelayed    string `json:"approximateNumberOfMessagesDelayed"`
	CreatedTimestamp              string `json:"createdTimestamp"`
	LastModifiedTimestamp         string `json:"lastModifiedTimestamp"`
	VisibilityTimeout             string `json:"visibilityTimeout"`
	MessageRetentionPeriod        string `json:"messageRetentionPeriod"`
	DelaySeconds                  string `json:"delaySeconds"`
	ReceiveMessageWaitTime        string `json:"receiveMessageWaitTimeSeconds"`
}

// QueueStore is the queue-side backing store contract. The real
// implementation wraps the SQS API of a LocalStack endpoint.
type QueueStore interface {
	ListQueues(ctx context.Context) ([]QueueSummary, error)
	GetQueueAttributes(ctx context.Context, name string) (QueueAttributes, error)
	ReceiveMessages(ctx context.Context, queue string, p ReceiveParams) ([]Message, error)
	SendMessage(ctx context.Context, queue, body string, attrs map[string]MessageAttribute, delaySeconds int32) (SendResult, error)
	DeleteMessage(ctx context.Context, queue, receiptHandle string) error
	CreateQueue(ctx context.Context, name string, attributes map[string]string) (string, error)
	DeleteQueue(ctx context.Context, name string) error
	PurgeQueue(ctx context.Context, name string) error
}
