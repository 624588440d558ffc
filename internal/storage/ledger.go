package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignite/leadfunnel/internal/domain"
)

const (
	runPK        = "RELAY_RUN"
	runRetention = 90 * 24 * time.Hour
	skLayout     = "2006-01-02T15:04:05Z"
)

// DynamoAPI is the subset of *dynamodb.Client used here.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// RunItem is one relay run summary in DynamoDB. Items expire via TTL.
type RunItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"Data"`
	Sent      int    `dynamodbav:"Sent"`
	Failed    int    `dynamodbav:"Failed"`
	DryRun    bool   `dynamodbav:"DryRun"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// RunLedger records relay run summaries, newest retrievable first.
type RunLedger struct {
	client DynamoAPI
	table  string
	now    func() time.Time
}

// NewRunLedger creates a ledger on the given table.
func NewRunLedger(client DynamoAPI, table string) *RunLedger {
	return &RunLedger{client: client, table: table, now: time.Now}
}

// Record stores a summary of r.
func (l *RunLedger) Record(ctx context.Context, r *domain.RelayReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	item := RunItem{
		PK:        runPK,
		SK:        r.StartedAt.UTC().Format(skLayout) + "#" + r.RunID,
		Data:      string(data),
		Sent:      r.Sent,
		Failed:    r.Failed,
		DryRun:    r.DryRun,
		Timestamp: l.now().UTC().Format(time.RFC3339),
		TTL:       l.now().Add(runRetention).Unix(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshaling item: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting item to DynamoDB: %w", err)
	}
	return nil
}

// Recent returns up to limit run reports, newest first.
func (l *RunLedger) Recent(ctx context.Context, limit int) ([]domain.RelayReport, error) {
	if limit <= 0 {
		limit = 20
	}
	result, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.table),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: runPK},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("querying DynamoDB: %w", err)
	}

	reports := make([]domain.RelayReport, 0, len(result.Items))
	for _, av := range result.Items {
		var item RunItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			continue
		}
		var r domain.RelayReport
		if err := json.Unmarshal([]byte(item.Data), &r); err != nil {
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}
