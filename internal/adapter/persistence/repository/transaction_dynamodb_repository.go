package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"realtypay/internal/domain/entities"
	"realtypay/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

const (
	transactionReferenceIndex = "transaction_reference-index"
	gatewayReferenceIndex     = "gateway_reference-index"
)

type transactionItem struct {
	ID               string `dynamodbav:"id"`
	Reference        string `dynamodbav:"transaction_reference"`
	GatewayReference string `dynamodbav:"gateway_reference,omitempty"`
	PayableType      string `dynamodbav:"payable_type,omitempty"`
	PayableID        int64  `dynamodbav:"payable_id,omitempty"`
	UserID           string `dynamodbav:"user_id"`
	Gateway          string `dynamodbav:"payment_gateway"`
	Amount           string `dynamodbav:"amount"`
	Currency         string `dynamodbav:"currency"`
	Status           string `dynamodbav:"status"`
	GatewayResponse  string `dynamodbav:"gateway_response,omitempty"`
	PaidAt           string `dynamodbav:"paid_at,omitempty"`
	CreatedAt        string `dynamodbav:"created_at"`
	UpdatedAt        string `dynamodbav:"updated_at"`
}

// TransactionDynamoRepository persists Transaction entities in DynamoDB.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: transaction_reference-index (PK: transaction_reference)
//   - GSI: gateway_reference-index (PK: gateway_reference)
//
// Status transitions are single conditional updates guarded by the stored
// status still being pending. A failed condition is not an error: it means
// another writer settled the transaction first, and the caller sees
// applied=false. That guard is what makes concurrent verify calls and
// duplicate webhook deliveries safe without locks.

type TransactionDynamoRepository struct {
	ddb       *dynamodb.Client
	tableName string
}

var _ interfaces.ITransactionRepository = (*TransactionDynamoRepository)(nil)

func NewTransactionDynamoRepository(ddb *dynamodb.Client, tableName string) *TransactionDynamoRepository {
	return &TransactionDynamoRepository{ddb: ddb, tableName: tableName}
}

func (r *TransactionDynamoRepository) Create(ctx context.Context, t entities.Transaction) (entities.Transaction, error) {
	it := toTransactionItem(t)
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return entities.Transaction{}, err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
	})
	if err != nil {
		return entities.Transaction{}, err
	}
	return t, nil
}

func (r *TransactionDynamoRepository) GetByReference(ctx context.Context, reference string) (entities.Transaction, error) {
	return r.queryIndex(ctx, transactionReferenceIndex, "transaction_reference", reference)
}

func (r *TransactionDynamoRepository) GetByGatewayReference(ctx context.Context, gatewayReference string) (entities.Transaction, error) {
	if gatewayReference == "" {
		return entities.Transaction{}, nil
	}
	return r.queryIndex(ctx, gatewayReferenceIndex, "gateway_reference", gatewayReference)
}

func (r *TransactionDynamoRepository) SetGatewayReference(ctx context.Context, id, gatewayReference string) (entities.Transaction, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		// Write-once: never overwrite a gateway reference already recorded.
		ConditionExpression: aws.String("attribute_exists(#id) AND attribute_not_exists(#gw_ref)"),
		UpdateExpression:    aws.String("SET #gw_ref = :gw_ref, #updated_at = :updated_at"),
		ExpressionAttributeNames: map[string]string{
			"#id":         "id",
			"#gw_ref":     "gateway_reference",
			"#updated_at": "updated_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":gw_ref":     &types.AttributeValueMemberS{Value: gatewayReference},
			":updated_at": &types.AttributeValueMemberS{Value: now},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			// Already set; return the stored state untouched.
			return r.getByID(ctx, id)
		}
		return entities.Transaction{}, err
	}
	return unmarshalTransaction(out.Attributes)
}

func (r *TransactionDynamoRepository) MarkSuccessful(ctx context.Context, id string, raw json.RawMessage, paidAt time.Time) (entities.Transaction, bool, error) {
	expr := "SET #status = :status, #paid_at = :paid_at, #updated_at = :updated_at"
	names := map[string]string{
		"#status":     "status",
		"#paid_at":    "paid_at",
		"#updated_at": "updated_at",
	}
	vals := map[string]types.AttributeValue{
		":status":  &types.AttributeValueMemberS{Value: string(entities.TransactionStatusSuccessful)},
		":paid_at": &types.AttributeValueMemberS{Value: paidAt.UTC().Format(time.RFC3339Nano)},
	}
	return r.transitionFromPending(ctx, id, expr, names, vals, raw)
}

func (r *TransactionDynamoRepository) MarkFailed(ctx context.Context, id string, raw json.RawMessage) (entities.Transaction, bool, error) {
	expr := "SET #status = :status, #updated_at = :updated_at"
	names := map[string]string{
		"#status":     "status",
		"#updated_at": "updated_at",
	}
	vals := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(entities.TransactionStatusFailed)},
	}
	return r.transitionFromPending(ctx, id, expr, names, vals, raw)
}

// transitionFromPending applies one guarded status transition. The condition
// `status = pending` is evaluated atomically by DynamoDB, so at most one of
// several racing writers moves the transaction out of pending; the rest get
// ConditionalCheckFailedException, reported here as applied=false.
func (r *TransactionDynamoRepository) transitionFromPending(
	ctx context.Context,
	id, updateExpr string,
	names map[string]string,
	vals map[string]types.AttributeValue,
	raw json.RawMessage,
) (entities.Transaction, bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	vals[":updated_at"] = &types.AttributeValueMemberS{Value: now}
	vals[":pending"] = &types.AttributeValueMemberS{Value: string(entities.TransactionStatusPending)}

	if len(raw) > 0 {
		updateExpr += ", #gateway_response = :gateway_response"
		names["#gateway_response"] = "gateway_response"
		vals[":gateway_response"] = &types.AttributeValueMemberS{Value: string(raw)}
	}

	out, err := r.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConditionExpression:       aws.String("attribute_exists(#id) AND #status = :pending"),
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeNames:  mergeNames(names, map[string]string{"#id": "id"}),
		ExpressionAttributeValues: vals,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return entities.Transaction{}, false, nil
		}
		return entities.Transaction{}, false, err
	}

	t, err := unmarshalTransaction(out.Attributes)
	if err != nil {
		return entities.Transaction{}, false, err
	}
	return t, true, nil
}

func (r *TransactionDynamoRepository) getByID(ctx context.Context, id string) (entities.Transaction, error) {
	out, err := r.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return entities.Transaction{}, err
	}
	if len(out.Item) == 0 {
		return entities.Transaction{}, nil
	}
	return unmarshalTransaction(out.Item)
}

func (r *TransactionDynamoRepository) queryIndex(ctx context.Context, index, attr, value string) (entities.Transaction, error) {
	out, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{
			"#k": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return entities.Transaction{}, err
	}
	if len(out.Items) == 0 {
		return entities.Transaction{}, nil
	}
	return unmarshalTransaction(out.Items[0])
}

func unmarshalTransaction(av map[string]types.AttributeValue) (entities.Transaction, error) {
	var it transactionItem
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return entities.Transaction{}, err
	}
	return fromTransactionItem(it), nil
}

func toTransactionItem(t entities.Transaction) transactionItem {
	it := transactionItem{
		ID:               t.ID,
		Reference:        t.Reference,
		GatewayReference: t.GatewayReference,
		PayableType:      t.PayableType,
		PayableID:        t.PayableID,
		UserID:           t.UserID,
		Gateway:          t.Gateway,
		Amount:           t.Amount.StringFixed(2),
		Currency:         t.Currency,
		Status:           string(t.Status),
		GatewayResponse:  string(t.GatewayResponse),
		CreatedAt:        t.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:        t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.PaidAt != nil {
		it.PaidAt = t.PaidAt.UTC().Format(time.RFC3339Nano)
	}
	return it
}

func fromTransactionItem(it transactionItem) entities.Transaction {
	createdAt, _ := time.Parse(time.RFC3339Nano, it.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, it.UpdatedAt)
	amount, _ := decimal.NewFromString(it.Amount)

	t := entities.Transaction{
		ID:               it.ID,
		Reference:        it.Reference,
		GatewayReference: it.GatewayReference,
		PayableType:      it.PayableType,
		PayableID:        it.PayableID,
		UserID:           it.UserID,
		Gateway:          it.Gateway,
		Amount:           amount,
		Currency:         it.Currency,
		Status:           entities.TransactionStatus(it.Status),
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}
	if it.GatewayResponse != "" {
		t.GatewayResponse = json.RawMessage(it.GatewayResponse)
	}
	if it.PaidAt != "" {
		if paidAt, err := time.Parse(time.RFC3339Nano, it.PaidAt); err == nil {
			t.PaidAt = &paidAt
		}
	}
	return t
}

func mergeNames(a, b map[string]string) map[string]string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
