package domain

import "context"

// TableSummary is one entry in the table listing.
type TableSummary struct {
	Name             string `json:"name"`
	ItemCount        int64  `json:"itemCount"`
	SizeBytes        int64  `json:"sizeBytes"`
	Status           string `json:"status"`
	CreationDateTime string `json:"creationDateTime"`
}

// KeyElement names one attribute of a table's primary key or an index key.
type KeyElement struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// KeySchemaElement mirrors the DynamoDB key schema wire shape.
type KeySchemaElement struct {
	AttributeName string `json:"attributeName"`
	KeyType       string `json:"keyType"`
}

// AttributeDefinition mirrors the DynamoDB attribute definition wire shape.
type AttributeDefinition struct {
	AttributeName string `json:"attributeName"`
	AttributeType string `json:"attributeType"`
}

// SecondaryIndex describes a GSI or LSI on a table.
type SecondaryIndex struct {
	Name      string             `json:"name"`
	KeySchema []KeySchemaElement `json:"keySchema"`
}

// TableDescription is the detail view of a single table.
type TableDescription struct {
	Name                   string                `json:"name"`
	Status                 string                `json:"status"`
	ItemCount              int64                 `json:"itemCount"`
	SizeBytes              int64                 `json:"sizeBytes"`
	PartitionKey           KeyElement            `json:"partitionKey"`
	SortKey                *KeyElement           `json:"sortKey,omitempty"`
	KeySchema              []KeySchemaElement    `json:"keySchema"`
	AttributeDefinitions   []AttributeDefinition `json:"attributeDefinitions"`
	GlobalSecondaryIndexes []SecondaryIndex      `json:"globalSecondaryIndexes,omitempty"`
	LocalSecondaryIndexes  []SecondaryIndex      `json:"localSecondaryIndexes,omitempty"`
	CreationDateTime       string                `json:"creationDateTime"`
}

// Item is a DynamoDB item decoded to plain Go values.
type Item = map[string]any

// ScanPage is one page of scan results. LastEvaluatedKey, when non-nil, is
// the pagination token for the next page.
type ScanPage struct {
	Items            []Item `json:"items"`
	LastEvaluatedKey Item   `json:"lastEvaluatedKey,omitempty"`
	Count            int32  `json:"count"`
	ScannedCount     int32  `json:"scannedCount"`
}

// QueryPage is one page of query results.
type QueryPage struct {
	Items            []Item `json:"items"`
	LastEvaluatedKey Item   `json:"lastEvaluatedKey,omitempty"`
	Count            int32  `json:"count"`
}

// QueryParams describes a key-condition query.
type QueryParams struct {
	KeyConditionExpression    string
	ExpressionAttributeValues map[string]any
	IndexName                 string
	Limit                     int32
	ExclusiveStartKey         Item
}

// CreateTableParams describes a new table.
type CreateTableParams struct {
	Name                 string
	KeySchema            []KeySchemaElement
	AttributeDefinitions []AttributeDefinition
	BillingMode          string
}

// CreateTableResult reports a freshly created table.
type CreateTableResult struct {
	Name   string `json:"tableName"`
	ARN    string `json:"tableArn"`
	Status string `json:"status"`
}

// TableStore is the table-side backing store contract. The real
// implementation wraps the DynamoDB API of a LocalStack endpoint.
type TableStore interface {
	ListTables(ctx context.Context) ([]TableSummary, error)
	DescribeTable(ctx context.Context, name string) (TableDescription, error)
	ScanTable(ctx context.Context, name string, limit int32, exclusiveStartKey Item) (ScanPage, error)
	QueryTable(ctx context.Context, name string, p QueryParams) (QueryPage, error)
	GetItem(ctx context.Context, name string, key Item) (Item, error)
	PutItem(ctx context.Context, name string, item Item) error
	DeleteItem(ctx context.Context, name string, key Item) error
	CreateTable(ctx context.Context, p CreateTableParams) (CreateTableResult, error)
	DeleteTable(ctx context.Context, name string) error
}
