package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-delivery-messaging/internal/domain"
)

// SessionRepo is the registry of live push sessions, keyed by session id and
// indexed by owner. Items carry a TTL so sessions whose client vanished without
// unsubscribing are eventually reaped by DynamoDB.
type SessionRepo struct {
	client    API
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

func NewSessionRepo(client API, tableName string, ttl time.Duration) *SessionRepo {
	return &SessionRepo{client: client, tableName: tableName, ttl: ttl, now: time.Now}
}

// Add upserts the session. Re-adding an id overwrites its owner (last write wins).
func (r *SessionRepo) Add(ctx context.Context, s *domain.PushSession) error {
	now := r.now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if r.ttl > 0 {
		s.ExpiresAt = now.Add(r.ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Remove deletes the session. Removing an unknown id succeeds.
func (r *SessionRepo) Remove(ctx context.Context, sessionID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldSessionID, sessionID),
	})
	return err
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*domain.PushSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldSessionID, sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.PushSession
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByUser returns every unexpired session the user owns. No sessions is not an error.
func (r *SessionRepo) ListByUser(ctx context.Context, userID string) ([]domain.PushSession, error) {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexUserID),
		KeyConditionExpression: aws.String("user_id = :uid"),
		// Items past their TTL linger until DynamoDB reaps them.
		FilterExpression: aws.String("attribute_not_exists(expires_at) OR expires_at = :zero OR expires_at > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid":  &types.AttributeValueMemberS{Value: userID},
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":now":  &types.AttributeValueMemberN{Value: strconv.FormatInt(r.now().Unix(), 10)},
		},
	})
	sessions := []domain.PushSession{}
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.PushSession
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		sessions = append(sessions, page...)
	}
	return sessions, nil
}
