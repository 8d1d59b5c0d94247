package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-delivery-messaging/internal/domain"
	"github.com/go-delivery-messaging/internal/pkg/id"
)

const staffAudience = "staff"

// MessageRepo is the message mailbox. Items are keyed by (audience, message_id) so
// every read hits the base table and can be strongly consistent: a message is
// visible as soon as Append returns. Items are written once; only "read" changes.
type MessageRepo struct {
	client          API
	tableName       string
	defaultPageSize int
	maxPageSize     int
	now             func() time.Time
}

func NewMessageRepo(client API, tableName string, defaultPageSize, maxPageSize int) *MessageRepo {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = defaultPageSize
	}
	return &MessageRepo{
		client:          client,
		tableName:       tableName,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		now:             time.Now,
	}
}

// audienceKey is the partition key value of a mailbox.
func audienceKey(f domain.MessageFilter) string {
	if f.ForEmployee {
		return staffAudience
	}
	return "user#" + f.RecipientID
}

func messageItem(m *domain.Message) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	f := domain.MessageFilter{ForEmployee: m.ForEmployee}
	if m.RecipientID != nil {
		f.RecipientID = *m.RecipientID
	}
	item[fieldAudience] = &types.AttributeValueMemberS{Value: audienceKey(f)}
	return item, nil
}

// Append stores m, assigning MessageID and CreatedAt when they are empty. The id
// is a ULID for the creation instant, so index order is creation order.
func (r *MessageRepo) Append(ctx context.Context, m *domain.Message) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	}
	if m.MessageID == "" {
		m.MessageID = id.NewAt(m.CreatedAt)
	}
	item, err := messageItem(m)
	if err != nil {
		return err
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(message_id)"),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("message %s already exists: %w", m.MessageID, domain.ErrConflict)
	}
	return err
}

// messageKey addresses a message inside the mailbox selected by f.
func messageKey(f domain.MessageFilter, messageID string) map[string]types.AttributeValue {
	return compositeKey(fieldAudience, audienceKey(f), fieldMessageID, messageID)
}

// Get reads a message from the mailbox selected by f. The read is strongly
// consistent, so a message is found as soon as Append returns. An id stored
// under another mailbox is ErrNotFound.
func (r *MessageRepo) Get(ctx context.Context, f domain.MessageFilter, messageID string) (*domain.Message, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            messageKey(f, messageID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("message not found: %w", domain.ErrNotFound)
	}
	var m domain.Message
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// SetRead flags the message as read and returns it. The update is conditional on
// the item existing, so an unknown id yields ErrNotFound instead of a new item.
// Marking an already read message again is a no-op.
func (r *MessageRepo) SetRead(ctx context.Context, f domain.MessageFilter, messageID string) (*domain.Message, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldRead: true})
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       messageKey(f, messageID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(message_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil, fmt.Errorf("message not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var m domain.Message
	if err := attributevalue.UnmarshalMap(out.Attributes, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// normalizeQuery applies the paging defaults and clamps.
func (r *MessageRepo) normalizeQuery(q domain.MessageQuery) domain.MessageQuery {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = r.defaultPageSize
	}
	if q.Limit > r.maxPageSize {
		q.Limit = r.maxPageSize
	}
	if q.Sort != domain.SortOldestFirst {
		q.Sort = domain.SortNewestFirst
	}
	return q
}

func (r *MessageRepo) queryInput(q domain.MessageQuery) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("audience = :a"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: audienceKey(q.Filter)},
		},
		ScanIndexForward: aws.Bool(q.Sort == domain.SortOldestFirst),
		ConsistentRead:   aws.Bool(true),
	}
	if q.Filter.UnreadOnly {
		in.FilterExpression = aws.String("#r = :false")
		in.ExpressionAttributeNames = map[string]string{"#r": fieldRead}
		in.ExpressionAttributeValues[":false"] = &types.AttributeValueMemberBOOL{Value: false}
	}
	return in
}

// Query returns one page of a mailbox and the total number of matching messages.
// Results are ordered by message_id, which is creation order.
// DynamoDB has no offset, so the first Offset matches are read and skipped.
func (r *MessageRepo) Query(ctx context.Context, q domain.MessageQuery) (*domain.MessagePage, error) {
	q = r.normalizeQuery(q)

	count, err := r.count(ctx, q)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.Message, 0, q.Limit)
	skipped := 0
	p := dynamodb.NewQueryPaginator(r.client, r.queryInput(q))
	for p.HasMorePages() && len(rows) < q.Limit {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			if skipped < q.Offset {
				skipped++
				continue
			}
			if len(rows) == q.Limit {
				break
			}
			var m domain.Message
			if err := attributevalue.UnmarshalMap(item, &m); err != nil {
				return nil, err
			}
			rows = append(rows, m)
		}
	}
	return &domain.MessagePage{Count: count, Rows: rows}, nil
}

func (r *MessageRepo) count(ctx context.Context, q domain.MessageQuery) (int, error) {
	in := r.queryInput(q)
	in.Select = types.SelectCount
	total := 0
	p := dynamodb.NewQueryPaginator(r.client, in)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
	}
	return total, nil
}
