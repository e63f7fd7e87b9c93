package dynamo

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmachuca/localstack-studio/internal/domain"
)

type fakeAPI struct {
	listTables    func(ctx context.Context, params *awsdynamodb.ListTablesInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.ListTablesOutput, error)
	describeTable func(ctx context.Context, params *awsdynamodb.DescribeTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DescribeTableOutput, error)
	scan          func(ctx context.Context, params *awsdynamodb.ScanInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error)
	query         func(ctx context.Context, params *awsdynamodb.QueryInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error)
	getItem       func(ctx context.Context, params *awsdynamodb.GetItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.GetItemOutput, error)
	putItem       func(ctx context.Context, params *awsdynamodb.PutItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.PutItemOutput, error)
	deleteItem    func(ctx context.Context, params *awsdynamodb.DeleteItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DeleteItemOutput, error)
	createTable   func(ctx context.Context, params *awsdynamodb.CreateTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.CreateTableOutput, error)
	deleteTable   func(ctx context.Context, params *awsdynamodb.DeleteTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DeleteTableOutput, error)
}

func (f *fakeAPI) ListTables(ctx context.Context, params *awsdynamodb.ListTablesInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.ListTablesOutput, error) {
	return f.listTables(ctx, params, optFns...)
}

func (f *fakeAPI) DescribeTable(ctx context.Context, params *awsdynamodb.DescribeTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DescribeTableOutput, error) {
	return f.describeTable(ctx, params, optFns...)
}

func (f *fakeAPI) Scan(ctx context.Context, params *awsdynamodb.ScanInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error) {
	return f.scan(ctx, params, optFns...)
}

func (f *fakeAPI) Query(ctx context.Context, params *awsdynamodb.QueryInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error) {
	return f.query(ctx, params, optFns...)
}

func (f *fakeAPI) GetItem(ctx context.Context, params *awsdynamodb.GetItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.GetItemOutput, error) {
	return f.getItem(ctx, params, optFns...)
}

func (f *fakeAPI) PutItem(ctx context.Context, params *awsdynamodb.PutItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.PutItemOutput, error) {
	return f.putItem(ctx, params, optFns...)
}

func (f *fakeAPI) DeleteItem(ctx context.Context, params *awsdynamodb.DeleteItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DeleteItemOutput, error) {
	return f.deleteItem(ctx, params, optFns...)
}

func (f *fakeAPI) CreateTable(ctx context.Context, params *awsdynamodb.CreateTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.CreateTableOutput, error) {
	return f.createTable(ctx, params, optFns...)
}

func (f *fakeAPI) DeleteTable(ctx context.Context, params *awsdynamodb.DeleteTableInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DeleteTableOutput, error) {
	return f.deleteTable(ctx, params, optFns...)
}

func TestDescribeTable_ExtractsKeys(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	api := &fakeAPI{
		describeTable: func(_ context.Context, _ *awsdynamodb.DescribeTableInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.DescribeTableOutput, error) {
			return &awsdynamodb.DescribeTableOutput{
				Table: &types.TableDescription{
					TableName:   aws.String("orders"),
					TableStatus: types.TableStatusActive,
					ItemCount:   aws.Int64(42),
					KeySchema: []types.KeySchemaElement{
						{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
						{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
					},
					AttributeDefinitions: []types.AttributeDefinition{
						{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
						{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeN},
					},
					GlobalSecondaryIndexes: []types.GlobalSecondaryIndexDescription{
						{
							IndexName: aws.String("by-status"),
							KeySchema: []types.KeySchemaElement{
								{AttributeName: aws.String("status"), KeyType: types.KeyTypeHash},
							},
						},
					},
					CreationDateTime: &created,
				},
			}, nil
		},
	}

	client := New(api)
	desc, err := client.DescribeTable(context.Background(), "orders")
	require.NoError(t, err)

	assert.Equal(t, "ACTIVE", desc.Status)
	assert.Equal(t, int64(42), desc.ItemCount)
	assert.Equal(t, domain.KeyElement{Name: "pk", Type: "S"}, desc.PartitionKey)
	require.NotNil(t, desc.SortKey)
	assert.Equal(t, domain.KeyElement{Name: "sk", Type: "N"}, *desc.SortKey)
	require.Len(t, desc.GlobalSecondaryIndexes, 1)
	assert.Equal(t, "by-status", desc.GlobalSecondaryIndexes[0].Name)
	assert.Equal(t, "2024-03-01T12:00:00Z", desc.CreationDateTime)
}

func TestDescribeTable_NotFound(t *testing.T) {
	api := &fakeAPI{
		describeTable: func(_ context.Context, _ *awsdynamodb.DescribeTableInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.DescribeTableOutput, error) {
			return nil, &types.ResourceNotFoundException{}
		},
	}

	client := New(api)
	_, err := client.DescribeTable(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrTableNotFound)
}

func TestListTables_DescribeFailureYieldsMinimalEntry(t *testing.T) {
	api := &fakeAPI{
		listTables: func(_ context.Context, _ *awsdynamodb.ListTablesInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.ListTablesOutput, error) {
			return &awsdynamodb.ListTablesOutput{TableNames: []string{"broken"}}, nil
		},
		describeTable: func(_ context.Context, _ *awsdynamodb.DescribeTableInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.DescribeTableOutput, error) {
			return nil, assert.AnError
		},
	}

	client := New(api)
	tables, err := client.ListTables(context.Background())
	require.NoError(t, err)

	require.Len(t, tables, 1)
	assert.Equal(t, "broken", tables[0].Name)
	assert.Equal(t, "UNKNOWN", tables[0].Status)
}

func TestScanTable_DecodesItemsAndPagination(t *testing.T) {
	var gotInput *awsdynamodb.ScanInput

	api := &fakeAPI{
		scan: func(_ context.Context, params *awsdynamodb.ScanInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error) {
			gotInput = params
			return &awsdynamodb.ScanOutput{
				Items: []map[string]types.AttributeValue{
					{
						"id":    &types.AttributeValueMemberS{Value: "a1"},
						"count": &types.AttributeValueMemberN{Value: "3"},
					},
				},
				LastEvaluatedKey: map[string]types.AttributeValue{
					"id": &types.AttributeValueMemberS{Value: "a1"},
				},
				Count:        1,
				ScannedCount: 1,
			}, nil
		},
	}

	client := New(api)
	page, err := client.ScanTable(context.Background(), "orders", 50, domain.Item{"id": "a0"})
	require.NoError(t, err)

	assert.Equal(t, int32(50), aws.ToInt32(gotInput.Limit))
	require.Contains(t, gotInput.ExclusiveStartKey, "id")

	require.Len(t, page.Items, 1)
	assert.Equal(t, "a1", page.Items[0]["id"])
	assert.Equal(t, float64(3), page.Items[0]["count"])
	require.NotNil(t, page.LastEvaluatedKey)
	assert.Equal(t, "a1", page.LastEvaluatedKey["id"])
}

func TestQueryTable_EncodesExpressionValues(t *testing.T) {
	var gotInput *awsdynamodb.QueryInput

	api := &fakeAPI{
		query: func(_ context.Context, params *awsdynamodb.QueryInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.QueryOutput, error) {
			gotInput = params
			return &awsdynamodb.QueryOutput{Count: 0}, nil
		},
	}

	client := New(api)
	_, err := client.QueryTable(context.Background(), "orders", domain.QueryParams{
		KeyConditionExpression:    "id = :id",
		ExpressionAttributeValues: map[string]any{":id": "a1"},
		IndexName:                 "by-status",
		Limit:                     25,
	})
	require.NoError(t, err)

	assert.Equal(t, "id = :id", aws.ToString(gotInput.KeyConditionExpression))
	assert.Equal(t, "by-status", aws.ToString(gotInput.IndexName))
	assert.Equal(t, int32(25), aws.ToInt32(gotInput.Limit))

	val, ok := gotInput.ExpressionAttributeValues[":id"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "a1", val.Value)
}

func TestGetItem_NotFound(t *testing.T) {
	api := &fakeAPI{
		getItem: func(_ context.Context, _ *awsdynamodb.GetItemInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.GetItemOutput, error) {
			return &awsdynamodb.GetItemOutput{}, nil
		},
	}

	client := New(api)
	_, err := client.GetItem(context.Background(), "orders", domain.Item{"id": "missing"})
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestCreateTable_DefaultsBillingMode(t *testing.T) {
	var gotInput *awsdynamodb.CreateTableInput

	api := &fakeAPI{
		createTable: func(_ context.Context, params *awsdynamodb.CreateTableInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.CreateTableOutput, error) {
			gotInput = params
			return &awsdynamodb.CreateTableOutput{
				TableDescription: &types.TableDescription{
					TableArn:    aws.String("arn:aws:dynamodb:us-east-1:000:table/orders"),
					TableStatus: types.TableStatusCreating,
				},
			}, nil
		},
	}

	client := New(api)
	result, err := client.CreateTable(context.Background(), domain.CreateTableParams{
		Name:                 "orders",
		KeySchema:            []domain.KeySchemaElement{{AttributeName: "id", KeyType: "HASH"}},
		AttributeDefinitions: []domain.AttributeDefinition{{AttributeName: "id", AttributeType: "S"}},
	})
	require.NoError(t, err)

	assert.Equal(t, types.BillingModePayPerRequest, gotInput.BillingMode)
	assert.Equal(t, "CREATING", result.Status)
	assert.Equal(t, "arn:aws:dynamodb:us-east-1:000:table/orders", result.ARN)
}
