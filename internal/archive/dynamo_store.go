package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compliance/internal/compliance"
	"compliance/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ErrNotFound is returned when no snapshot exists for a submission.
var ErrNotFound = errors.New("snapshot not found")

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoStore archives finalized submissions, one item per submission keyed by submissionId.
type DynamoStore struct {
	client    DynamoAPI
	tableName string
}

func NewDynamoStore(client DynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

// NewDynamoStoreFromEnv loads the default AWS config. A non-empty endpoint targets
// DynamoDB Local or another compatible server.
func NewDynamoStoreFromEnv(ctx context.Context, region, endpoint, tableName string) (*DynamoStore, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewDynamoStore(client, tableName), nil
}

// Archive writes the snapshot. A later finalization of the same submission overwrites it.
func (s *DynamoStore) Archive(ctx context.Context, sub *model.Submission, assessment compliance.Assessment, finalizedAt time.Time) error {
	av, err := attributevalue.MarshalMap(NewSnapshot(sub, assessment, finalizedAt))
	if err != nil {
		return fmt.Errorf("failed to marshal submission snapshot: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put item in DynamoDB: %w", err)
	}
	return nil
}

// Get reads the snapshot of a submission.
func (s *DynamoStore) Get(ctx context.Context, submissionID string) (*SubmissionSnapshot, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"submissionId": submissionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var snap SubmissionSnapshot
	if err := attributevalue.UnmarshalMap(result.Item, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal submission snapshot: %w", err)
	}
	return &snap, nil
}
