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

	"github.com/go-auth-otp/internal/domain"
)

type ResetTokenRepo struct {
	client    API
	tableName string
}

func NewResetTokenRepo(client API, tableName string) *ResetTokenRepo {
	return &ResetTokenRepo{client: client, tableName: tableName}
}

func (r *ResetTokenRepo) Create(ctx context.Context, t *domain.PasswordResetToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal reset token: %w", err)
	}
	item[ttlAttribute] = &types.AttributeValueMemberN{Value: strconv.FormatInt(t.ExpiresAt.Unix(), 10)}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return mapErr("create reset token", err, domain.ErrConflict)
	}
	return nil
}

// GetActive returns the unused, unexpired token row, or domain.ErrNotFound.
// Expired items may linger until DynamoDB reaps them, so expiry is checked here.
func (r *ResetTokenRepo) GetActive(ctx context.Context, token string, now time.Time) (*domain.PasswordResetToken, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("token-index"),
		KeyConditionExpression:    aws.String("#t = :v"),
		ExpressionAttributeNames:  map[string]string{"#t": fieldToken},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: token}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("get reset token: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("get reset token: %w", domain.ErrNotFound)
	}
	var t domain.PasswordResetToken
	if err := attributevalue.UnmarshalMap(out.Items[0], &t); err != nil {
		return nil, fmt.Errorf("unmarshal reset token: %w", err)
	}
	if !t.Usable(now) {
		return nil, fmt.Errorf("get reset token: %w", domain.ErrNotFound)
	}
	return &t, nil
}

// MarkUsed flips an unused token to used. A token already used reports
// domain.ErrNotFound.
func (r *ResetTokenRepo) MarkUsed(ctx context.Context, id string, at time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldUsed: true, fieldUsedAt: at})
	if err != nil {
		return err
	}
	ue.Values[":unused"] = &types.AttributeValueMemberBOOL{Value: false}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldID, id),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(id) AND #f0 = :unused"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return mapErr("mark reset token used", err, domain.ErrNotFound)
	}
	return nil
}

// Release returns a claimed token to the unused state.
func (r *ResetTokenRepo) Release(ctx context.Context, id string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldID, id),
		UpdateExpression:         aws.String("SET #u = :unused REMOVE #ua"),
		ConditionExpression:      aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{"#u": fieldUsed, "#ua": fieldUsedAt},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":unused": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if err != nil {
		return mapErr("release reset token", err, domain.ErrNotFound)
	}
	return nil
}
