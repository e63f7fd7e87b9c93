package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/wmachuca/localstack-studio/internal/domain"
)

// API is the slice of the DynamoDB SDK client this package uses.
type API interface {
	ListTables(ctx context.Context, params *awsdynamodb.ListTablesInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.ListTablesOutput, error)
	DescribeTable(ctx context.Context, params *awsdynamodb.DescribeTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DescribeTableOutput, error)
	Scan(ctx context.Context, params *awsdynamodb.ScanInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error)
	Query(ctx context.Context, params *awsdynamodb.QueryInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *awsdynamodb.GetItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *awsdynamodb.PutItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *awsdynamodb.DeleteItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *awsdynamodb.CreateTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *awsdynamodb.DeleteTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DeleteTableOutput, error)
}

// Client implements domain.TableStore on top of the DynamoDB API.
type Client struct {
	api API
}

var _ domain.TableStore = (*Client)(nil)

func New(api API) *Client {
	return &Client{api: api}
}

// ListTables returns all tables with metadata, sorted by creation time.
// Tables whose describe call fails are listed with minimal info rather than
// dropped, so a half-broken emulator still renders a listing.
func (c *Client) ListTables(ctx context.Context) ([]domain.TableSummary, error) {
	out, err := c.api.ListTables(ctx, &awsdynamodb.ListTablesInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]domain.TableSummary, 0, len(out.TableNames))
	for _, name := range out.TableNames {
		desc, err := c.api.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err != nil || desc.Table == nil {
			tables = append(tables, domain.TableSummary{Name: name, Status: "UNKNOWN"})
			continue
		}

		table := desc.Table
		summary := domain.TableSummary{
			Name:      name,
			ItemCount: aws.ToInt64(table.ItemCount),
			SizeBytes: aws.ToInt64(table.TableSizeBytes),
			Status:    string(table.TableStatus),
		}
		if table.CreationDateTime != nil {
			summary.CreationDateTime = table.CreationDateTime.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
		tables = append(tables, summary)
	}

	sort.SliceStable(tables, func(i, j int) bool {
		return tables[i].CreationDateTime < tables[j].CreationDateTime
	})

	return tables, nil
}

func (c *Client) DescribeTable(ctx context.Context, name string) (domain.TableDescription, error) {
	out, err := c.api.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		return domain.TableDescription{}, mapTableErr(name, err)
	}
	table := out.Table
	if table == nil {
		return domain.TableDescription{}, fmt.Errorf("table %q: %w", name, domain.ErrTableNotFound)
	}

	attrTypes := make(map[string]string, len(table.AttributeDefinitions))
	attrDefs := make([]domain.AttributeDefinition, 0, len(table.AttributeDefinitions))
	for _, def := range table.AttributeDefinitions {
		attrTypes[aws.ToString(def.AttributeName)] = string(def.AttributeType)
		attrDefs = append(attrDefs, domain.AttributeDefinition{
			AttributeName: aws.ToString(def.AttributeName),
			AttributeType: string(def.AttributeType),
		})
	}

	desc := domain.TableDescription{
		Name:                 name,
		Status:               string(table.TableStatus),
		ItemCount:            aws.ToInt64(table.ItemCount),
		SizeBytes:            aws.ToInt64(table.TableSizeBytes),
		KeySchema:            fromKeySchema(table.KeySchema),
		AttributeDefinitions: attrDefs,
	}
	if table.CreationDateTime != nil {
		desc.CreationDateTime = table.CreationDateTime.UTC().Format("2006-01-02T15:04:05Z07:00")
	}

	for _, k := range table.KeySchema {
		elem := domain.KeyElement{
			Name: aws.ToString(k.AttributeName),
			Type: attrTypes[aws.ToString(k.AttributeName)],
		}
		switch k.KeyType {
		case types.KeyTypeHash:
			desc.PartitionKey = elem
		case types.KeyTypeRange:
			sortKey := elem
			desc.SortKey = &sortKey
		}
	}

	for _, gsi := range table.GlobalSecondaryIndexes {
		desc.GlobalSecondaryIndexes = append(desc.GlobalSecondaryIndexes, domain.SecondaryIndex{
			Name:      aws.ToString(gsi.IndexName),
			KeySchema: fromKeySchema(gsi.KeySchema),
		})
	}
	for _, lsi := range table.LocalSecondaryIndexes {
		desc.LocalSecondaryIndexes = append(desc.LocalSecondaryIndexes, domain.SecondaryIndex{
			Name:      aws.ToString(lsi.IndexName),
			KeySchema: fromKeySchema(lsi.KeySchema),
		})
	}

	return desc, nil
}

func (c *Client) ScanTable(ctx context.Context, name string, limit int32, exclusiveStartKey domain.Item) (domain.ScanPage, error) {
	input := &awsdynamodb.ScanInput{TableName: aws.String(name)}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}
	if len(exclusiveStartKey) > 0 {
		startKey, err := attributevalue.MarshalMap(exclusiveStartKey)
		if err != nil {
			return domain.ScanPage{}, fmt.Errorf("invalid exclusive start key: %w", err)
		}
		input.ExclusiveStartKey = startKey
	}

	out, err := c.api.Scan(ctx, input)
	if err != nil {
		return domain.ScanPage{}, mapTableErr(name, err)
	}

	items, err := decodeItems(out.Items)
	if err != nil {
		return domain.ScanPage{}, err
	}

	page := domain.ScanPage{
		Items:        items,
		Count:        out.Count,
		ScannedCount: out.ScannedCount,
	}
	if len(out.LastEvaluatedKey) > 0 {
		if page.LastEvaluatedKey, err = decodeItem(out.LastEvaluatedKey); err != nil {
			return domain.ScanPage{}, err
		}
	}

	return page, nil
}

func (c *Client) QueryTable(ctx context.Context, name string, p domain.QueryParams) (domain.QueryPage, error) {
	values, err := encodeExpressionValues(p.ExpressionAttributeValues)
	if err != nil {
		return domain.QueryPage{}, err
	}

	input := &awsdynamodb.QueryInput{
		TableName:                 aws.String(name),
		KeyConditionExpression:    aws.String(p.KeyConditionExpression),
		ExpressionAttributeValues: values,
	}
	if p.Limit > 0 {
		input.Limit = aws.Int32(p.Limit)
	}
	if p.IndexName != "" {
		input.IndexName = aws.String(p.IndexName)
	}
	if len(p.ExclusiveStartKey) > 0 {
		startKey, err := attributevalue.MarshalMap(p.ExclusiveStartKey)
		if err != nil {
			return domain.QueryPage{}, fmt.Errorf("invalid exclusive start key: %w", err)
		}
		input.ExclusiveStartKey = startKey
	}

	out, err := c.api.Query(ctx, input)
	if err != nil {
		return domain.QueryPage{}, mapTableErr(name, err)
	}

	items, err := decodeItems(out.Items)
	if err != nil {
		return domain.QueryPage{}, err
	}

	page := domain.QueryPage{Items: items, Count: out.Count}
	if len(out.LastEvaluatedKey) > 0 {
		if page.LastEvaluatedKey, err = decodeItem(out.LastEvaluatedKey); err != nil {
			return domain.QueryPage{}, err
		}
	}

	return page, nil
}

func (c *Client) GetItem(ctx context.Context, name string, key domain.Item) (domain.Item, error) {
	encodedKey, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, fmt.Errorf("invalid item key: %w", err)
	}

	out, err := c.api.GetItem(ctx, &awsdynamodb.GetItemInput{
		TableName: aws.String(name),
		Key:       encodedKey,
	})
	if err != nil {
		return nil, mapTableErr(name, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("table %q: %w", name, domain.ErrItemNotFound)
	}

	return decodeItem(out.Item)
}

func (c *Client) PutItem(ctx context.Context, name string, item domain.Item) error {
	encoded, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}

	if _, err := c.api.PutItem(ctx, &awsdynamodb.PutItemInput{
		TableName: aws.String(name),
		Item:      encoded,
	}); err != nil {
		return mapTableErr(name, err)
	}
	return nil
}

func (c *Client) DeleteItem(ctx context.Context, name string, key domain.Item) error {
	encodedKey, err := attributevalue.MarshalMap(key)
	if err != nil {
		return fmt.Errorf("invalid item key: %w", err)
	}

	if _, err := c.api.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
		TableName: aws.String(name),
		Key:       encodedKey,
	}); err != nil {
		return mapTableErr(name, err)
	}
	return nil
}

func (c *Client) CreateTable(ctx context.Context, p domain.CreateTableParams) (domain.CreateTableResult, error) {
	billingMode := types.BillingModePayPerRequest
	if p.BillingMode != "" {
		billingMode = types.BillingMode(p.BillingMode)
	}

	keySchema := make([]types.KeySchemaElement, 0, len(p.KeySchema))
	for _, k := range p.KeySchema {
		keySchema = append(keySchema, types.KeySchemaElement{
			AttributeName: aws.String(k.AttributeName),
			KeyType:       types.KeyType(k.KeyType),
		})
	}

	attrDefs := make([]types.AttributeDefinition, 0, len(p.AttributeDefinitions))
	for _, d := range p.AttributeDefinitions {
		attrDefs = append(attrDefs, types.AttributeDefinition{
			AttributeName: aws.String(d.AttributeName),
			AttributeType: types.ScalarAttributeType(d.AttributeType),
		})
	}

	out, err := c.api.CreateTable(ctx, &awsdynamodb.CreateTableInput{
		TableName:            aws.String(p.Name),
		KeySchema:            keySchema,
		AttributeDefinitions: attrDefs,
		BillingMode:          billingMode,
	})
	if err != nil {
		return domain.CreateTableResult{}, fmt.Errorf("failed to create table %q: %w", p.Name, err)
	}

	result := domain.CreateTableResult{Name: p.Name}
	if out.TableDescription != nil {
		result.ARN = aws.ToString(out.TableDescription.TableArn)
		result.Status = string(out.TableDescription.TableStatus)
	}
	return result, nil
}

func (c *Client) DeleteTable(ctx context.Context, name string) error {
	if _, err := c.api.DeleteTable(ctx, &awsdynamodb.DeleteTableInput{TableName: aws.String(name)}); err != nil {
		return mapTableErr(name, err)
	}
	return nil
}

func mapTableErr(name string, err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("table %q: %w", name, domain.ErrTableNotFound)
	}
	return fmt.Errorf("table %q: %w", name, err)
}

func fromKeySchema(schema []types.KeySchemaElement) []domain.KeySchemaElement {
	out := make([]domain.KeySchemaElement, 0, len(schema))
	for _, k := range schema {
		out = append(out, domain.KeySchemaElement{
			AttributeName: aws.ToString(k.AttributeName),
			KeyType:       string(k.KeyType),
		})
	}
	return out
}

func decodeItem(av map[string]types.AttributeValue) (domain.Item, error) {
	var item domain.Item
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return item, nil
}

func decodeItems(avs []map[string]types.AttributeValue) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(avs))
	for _, av := range avs {
		item, err := decodeItem(av)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func encodeExpressionValues(values map[string]any) (map[string]types.AttributeValue, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(values))
	for k, v := range values {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("invalid expression value %s: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}
