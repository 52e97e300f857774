package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/auth-sms-api/internal/domain"
	"github.com/oklog/ulid/v2"
)

// CodeRepo manages one-time SMS codes.
// PK: user_id, SK: code_id (ULID). The ULID sort key is time-ordered, so the
// rate-limit window count is a single key-condition query with a lower bound
// built from the cutoff timestamp — no GSI, no scan.
type CodeRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCodeRepo(client *dynamodb.Client, tableName string) *CodeRepo {
	return &CodeRepo{client: client, tableName: tableName}
}

func (r *CodeRepo) Put(ctx context.Context, c *domain.OneTimeCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Find returns the code record matching exactly (user, session, code), or
// ErrNotFound. All three must match; a code issued for another session never
// verifies.
func (r *CodeRepo) Find(ctx context.Context, userID, sessionID, code string) (*domain.OneTimeCode, error) {
	var lastKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("user_id = :uid"),
			FilterExpression:       aws.String("session_id = :sid AND code = :c"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
				":sid": &types.AttributeValueMemberS{Value: sessionID},
				":c":   &types.AttributeValueMemberS{Value: code},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, err
		}
		if len(out.Items) > 0 {
			var c domain.OneTimeCode
			if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
				return nil, err
			}
			return &c, nil
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		lastKey = out.LastEvaluatedKey
	}
	return nil, fmt.Errorf("code not found: %w", domain.ErrNotFound)
}

func (r *CodeRepo) Delete(ctx context.Context, userID, codeID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "code_id", codeID),
	})
	return err
}

// CountSince counts codes issued to a user since cutoff. The lower bound is
// the smallest ULID carrying the cutoff timestamp (zero entropy), so the key
// condition covers creation time exactly.
func (r *CodeRepo) CountSince(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	var min ulid.ULID
	if err := min.SetTime(ulid.Timestamp(cutoff)); err != nil {
		return 0, fmt.Errorf("cutoff out of ulid range: %w", err)
	}

	total := 0
	var lastKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			KeyConditionExpression: aws.String("user_id = :uid AND code_id >= :min"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: userID},
				":min": &types.AttributeValueMemberS{Value: min.String()},
			},
			Select:            types.SelectCount,
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		lastKey = out.LastEvaluatedKey
	}
	return total, nil
}
