// Package dynamostore is a reference implementation of store.Store backed
// by two DynamoDB tables: a "latest" table keyed by entry id for the
// startup snapshot, and a "changelog" table keyed by a monotonic seq for
// steady-state tailing.
package dynamostore

import (
	"context"
	"fmt"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/khalidsaidi/eldapo/model"
	"github.com/khalidsaidi/eldapo/store"
)

// DDBClient is the subset of *dynamodb.Client this adapter calls, narrowed
// to an interface so tests can substitute an in-memory mock.
type DDBClient interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store implements store.Store against DynamoDB.
type Store struct {
	client         DDBClient
	latestTable    string
	changelogTable string
}

// NewStore creates a dynamostore.Store. latestTable holds one row per
// entry id with its current projection; changelogTable holds one row per
// applied change, keyed by a monotonic numeric "seq" attribute.
func NewStore(client DDBClient, latestTable, changelogTable string) *Store {
	return &Store{client: client, latestTable: latestTable, changelogTable: changelogTable}
}

// latestRow is the wire shape of a row in the latest table.
type latestRow struct {
	ID          string              `dynamodbav:"id"`
	Rev         int64               `dynamodbav:"rev"`
	Type        string              `dynamodbav:"type"`
	Namespace   string              `dynamodbav:"namespace"`
	Name        string              `dynamodbav:"name"`
	Description string              `dynamodbav:"description"`
	Version     string              `dynamodbav:"version"`
	Attrs       map[string][]string `dynamodbav:"attrs"`
	Manifest    map[string]any      `dynamodbav:"manifest,omitempty"`
	Meta        map[string]any      `dynamodbav:"meta,omitempty"`
	CreatedAt   string              `dynamodbav:"created_at"`
	UpdatedAt   string              `dynamodbav:"updated_at"`
}

func (r latestRow) toEntry() model.Entry {
	return model.Entry{
		ID: r.ID, Rev: r.Rev, Type: r.Type, Namespace: r.Namespace,
		Name: r.Name, Description: r.Description, Version: r.Version,
		Attrs: r.Attrs, Manifest: r.Manifest, Meta: r.Meta,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// changeRow is the wire shape of a row in the changelog table.
type changeRow struct {
	Seq int64 `dynamodbav:"seq"`
	latestRow
}

// ListLatest pages the entire latest table via Scan.
func (s *Store) ListLatest(ctx context.Context) iter.Seq2[model.Entry, error] {
	return func(yield func(model.Entry, error) bool) {
		paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
			TableName: aws.String(s.latestTable),
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(model.Entry{}, fmt.Errorf("dynamostore: scan %s: %w", s.latestTable, err))
				return
			}
			for _, item := range page.Items {
				var row latestRow
				if err := attributevalue.UnmarshalMap(item, &row); err != nil {
					if !yield(model.Entry{}, fmt.Errorf("dynamostore: unmarshal latest row: %w", err)) {
						return
					}
					continue
				}
				if !yield(row.toEntry(), nil) {
					return
				}
			}
		}
	}
}

// MaxSeq reads the changelog table's highest seq via a descending,
// limit-1 Query against a GSI keyed purely on a constant partition and
// sorted by seq. Reference implementations may instead keep a separate
// counter row; either satisfies the contract.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.changelogTable),
		IndexName:              aws.String("by_seq"),
		KeyConditionExpression: aws.String("shard = :shard"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":shard": &types.AttributeValueMemberS{Value: "0"},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("dynamostore: query max seq: %w", err)
	}
	if len(out.Items) == 0 {
		return 0, nil
	}
	var row changeRow
	if err := attributevalue.UnmarshalMap(out.Items[0], &row); err != nil {
		return 0, fmt.Errorf("dynamostore: unmarshal changelog row: %w", err)
	}
	return row.Seq, nil
}

// NextChanges queries the changelog table's by_seq index for rows with
// seq > lastSeq, ascending, capped at batchSize.
func (s *Store) NextChanges(ctx context.Context, lastSeq int64, batchSize int) ([]store.ChangeRow, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.changelogTable),
		IndexName:              aws.String("by_seq"),
		KeyConditionExpression: aws.String("shard = :shard AND seq > :lastSeq"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":shard":   &types.AttributeValueMemberS{Value: "0"},
			":lastSeq": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", lastSeq)},
		},
		ScanIndexForward: aws.Bool(true),
		Limit:            aws.Int32(int32(batchSize)),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamostore: query next changes: %w", err)
	}

	rows := make([]store.ChangeRow, 0, len(out.Items))
	for _, item := range out.Items {
		var row changeRow
		if err := attributevalue.UnmarshalMap(item, &row); err != nil {
			return nil, fmt.Errorf("dynamostore: unmarshal changelog row: %w", err)
		}
		entry := row.toEntry()
		rows = append(rows, store.ChangeRow{Seq: row.Seq, Entry: &entry})
	}
	return rows, nil
}
