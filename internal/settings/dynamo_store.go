package settings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/onlylikes/internal/models"
)

// DynamoAPI is the subset of the DynamoDB client the store needs.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type settingsItem struct {
	Profile string `dynamodbav:"profile"`
	models.Settings
	UpdatedAt int64 `dynamodbav:"updated_at"`
}

// DynamoStore keeps one item per profile, keyed by "profile".
type DynamoStore struct {
	db      DynamoAPI
	table   string
	profile string
}

func NewDynamoStore(db DynamoAPI, table, profile string) *DynamoStore {
	return &DynamoStore{db: db, table: table, profile: profile}
}

func (d *DynamoStore) Get(ctx context.Context) (models.Settings, error) {
	out, err := d.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"profile": &types.AttributeValueMemberS{Value: d.profile},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return models.DefaultSettings(), fmt.Errorf("[DynamoDB] failed to get settings: %w", err)
	}
	if len(out.Item) == 0 {
		return models.DefaultSettings(), nil
	}

	var item settingsItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return models.DefaultSettings(), fmt.Errorf("[DynamoDB] failed to unmarshal settings: %w", err)
	}
	return item.Settings.Normalize(), nil
}

func (d *DynamoStore) Set(ctx context.Context, s models.Settings) error {
	item, err := attributevalue.MarshalMap(settingsItem{
		Profile:   d.profile,
		Settings:  s.Normalize(),
		UpdatedAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] failed to marshal settings: %w", err)
	}

	if _, err := d.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("[DynamoDB] failed to put settings: %w", err)
	}

	slog.Info("[DynamoDB] Settings stored",
		slog.String("profile", d.profile),
		slog.String("provider", string(s.Provider)))
	return nil
}
