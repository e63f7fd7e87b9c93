package server

import (
	"context"

	"github.com/wmachuca/localstack-studio/internal/broadcast"
	"github.com/wmachuca/localstack-studio/internal/config"
	"github.com/wmachuca/localstack-studio/internal/domain"
)

// fakeQueueStore implements domain.QueueStore with overridable functions.
// Tests set only the calls they expect.
type fakeQueueStore struct {
	listQueues         func(ctx context.Context) ([]domain.QueueSummary, error)
	getQueueAttributes func(ctx context.Context, name string) (domain.QueueAttributes, error)
	receiveMessages    func(ctx context.Context, queue string, p domain.ReceiveParams) ([]domain.Message, error)
	sendMessage        func(ctx context.Context, queue, body string, attrs map[string]domain.MessageAttribute, delaySeconds int32) (domain.SendResult, error)
	deleteMessage      func(ctx context.Context, queue, receiptHandle string) error
	createQueue        func(ctx context.Context, name string, attributes map[string]string) (string, error)
	deleteQueue        func(ctx context.Context, name string) error
	purgeQueue         func(ctx context.Context, name string) error
}

func (f *fakeQueueStore) ListQueues(ctx context.Context) ([]domain.QueueSummary, error) {
	return f.listQueues(ctx)
}

func (f *fakeQueueStore) GetQueueAttributes(ctx context.Context, name string) (domain.QueueAttributes, error) {
	return f.getQueueAttributes(ctx, name)
}

func (f *fakeQueueStore) ReceiveMessages(ctx context.Context, queue string, p domain.ReceiveParams) ([]domain.Message, error) {
	return f.receiveMessages(ctx, queue, p)
}

func (f *fakeQueueStore) SendMessage(ctx context.Context, queue, body string, attrs map[string]domain.MessageAttribute, delaySeconds int32) (domain.SendResult, error) {
	return f.sendMessage(ctx, queue, body, attrs, delaySeconds)
}

func (f *fakeQueueStore) DeleteMessage(ctx context.Context, queue, receiptHandle string) error {
	return f.deleteMessage(ctx, queue, receiptHandle)
}

func (f *fakeQueueStore) CreateQueue(ctx context.Context, name string, attributes map[string]string) (string, error) {
	return f.createQueue(ctx, name, attributes)
}

func (f *fakeQueueStore) DeleteQueue(ctx context.Context, name string) error {
	return f.deleteQueue(ctx, name)
}

func (f *fakeQueueStore) PurgeQueue(ctx context.Context, name string) error {
	return f.purgeQueue(ctx, name)
}

// fakeTableStore implements domain.TableStore with overridable functions.
type fakeTableStore struct {
	listTables    func(ctx context.Context) ([]domain.TableSummary, error)
	describeTable func(ctx context.Context, name string) (domain.TableDescription, error)
	scanTable     func(ctx context.Context, name string, limit int32, exclusiveStartKey domain.Item) (domain.ScanPage, error)
	queryTable    func(ctx context.Context, name string, p domain.QueryParams) (domain.QueryPage, error)
	getItem       func(ctx context.Context, name string, key domain.Item) (domain.Item, error)
	putItem       func(ctx context.Context, name string, item domain.Item) error
	deleteItem    func(ctx context.Context, name string, key domain.Item) error
	createTable   func(ctx context.Context, p domain.CreateTableParams) (domain.CreateTableResult, error)
	deleteTable   func(ctx context.Context, name string) error
}

func (f *fakeTableStore) ListTables(ctx context.Context) ([]domain.TableSummary, error) {
	return f.listTables(ctx)
}

func (f *fakeTableStore) DescribeTable(ctx context.Context, name string) (domain.TableDescription, error) {
	return f.describeTable(ctx, name)
}

func (f *fakeTableStore) ScanTable(ctx context.Context, name string, limit int32, exclusiveStartKey domain.Item) (domain.ScanPage, error) {
	return f.scanTable(ctx, name, limit, exclusiveStartKey)
}

func (f *fakeTableStore) QueryTable(ctx context.Context, name string, p domain.QueryParams) (domain.QueryPage, error) {
	return f.queryTable(ctx, name, p)
}

func (f *fakeTableStore) GetItem(ctx context.Context, name string, key domain.Item) (domain.Item, error) {
	return f.getItem(ctx, name, key)
}

func (f *fakeTableStore) PutItem(ctx context.Context, name string, item domain.Item) error {
	return f.putItem(ctx, name, item)
}

func (f *fakeTableStore) DeleteItem(ctx context.Context, name string, key domain.Item) error {
	return f.deleteItem(ctx, name, key)
}

func (f *fakeTableStore) CreateTable(ctx context.Context, p domain.CreateTableParams) (domain.CreateTableResult, error) {
	return f.createTable(ctx, p)
}

func (f *fakeTableStore) DeleteTable(ctx context.Context, name string) error {
	return f.deleteTable(ctx, name)
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                "0",
		WSMaxConnections:    10,
		WSMaxPerIP:          5,
		WSConnectionsPerSec: 100,
		WSConnectionBurst:   10,
	}
}

func newTestServer(queues domain.QueueStore, tables domain.TableStore, hub *broadcast.Hub) *Server {
	return NewServer(testConfig(), queues, tables, hub)
}
