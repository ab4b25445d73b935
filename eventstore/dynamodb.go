package eventstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ConditionalCheckFailed is the DynamoDB cancellation code for a failed
// conditional write.
const ConditionalCheckFailed = "ConditionalCheckFailed"

// DynamoDBStore is an event store implementation using DynamoDB. The
// table keys one item per (originator, version); a conditional write on
// the range key provides the optimistic-concurrency rejection.
type DynamoDBStore struct {
	tableName string
	hashKey   string
	rangeKey  string
	api       *dynamodb.Client
}

// GetDynamoDBStore returns a new DB store instance
func GetDynamoDBStore(tableName, partitionKey, rangeKey string, db *dynamodb.Client) *DynamoDBStore {
	return &DynamoDBStore{
		tableName: tableName,
		hashKey:   partitionKey,
		rangeKey:  rangeKey,
		api:       db,
	}
}

// Load implements the EventStore interface and reads records for a
// specific originator in version order.
func (s *DynamoDBStore) Load(ctx context.Context, originatorID string, fromVersion, toVersion int) (History, error) {
	input := &dynamodb.QueryInput{
		TableName:      aws.String(s.tableName),
		Select:         types.SelectAllAttributes,
		ConsistentRead: aws.Bool(true),
		ExpressionAttributeNames: map[string]string{
			"#key": s.hashKey,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": &types.AttributeValueMemberS{Value: originatorID},
		},
	}

	if toVersion > 0 {
		input.KeyConditionExpression = aws.String("#key = :key AND #partition BETWEEN :from AND :to")
		input.ExpressionAttributeNames["#partition"] = s.rangeKey
		input.ExpressionAttributeValues[":from"] = &types.AttributeValueMemberN{Value: strconv.Itoa(fromVersion)}
		input.ExpressionAttributeValues[":to"] = &types.AttributeValueMemberN{Value: strconv.Itoa(toVersion)}
	} else if fromVersion > 0 {
		input.KeyConditionExpression = aws.String("#key = :key AND #partition >= :from")
		input.ExpressionAttributeNames["#partition"] = s.rangeKey
		input.ExpressionAttributeValues[":from"] = &types.AttributeValueMemberN{Value: strconv.Itoa(fromVersion)}
	} else {
		input.KeyConditionExpression = aws.String("#key = :key")
	}

	out, err := s.api.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err = attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, err
	}

	history := make(History, 0, len(records))
	return append(history, records...), nil
}

// Save implements the EventStore interface and appends records in a
// single transaction, conditional on none of the versions existing yet.
func (s *DynamoDBStore) Save(ctx context.Context, originatorID string, records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	if len(records) > 25 {
		return errors.New("not implemented: can't save more than 25 events at a time")
	}

	sort.Sort(History(records))
	for i, r := range records {
		if r.Version != records[0].Version+i {
			return fmt.Errorf("%w: expected version %d for %s, got %d", ErrVersionConflict, records[0].Version+i, originatorID, r.Version)
		}
	}

	// the conditional writes only catch collisions; contiguity with the
	// stored sequence needs a consistent read of its tail. A batch that
	// starts at or below the stored last version falls through to the
	// conditional write, where an identical re-save stays idempotent.
	last, err := s.lastVersion(ctx, originatorID)
	if err != nil {
		return err
	}
	if last > 0 && records[0].Version > last+1 {
		return fmt.Errorf("%w: expected version %d for %s, got %d", ErrVersionConflict, last+1, originatorID, records[0].Version)
	}

	input := &dynamodb.TransactWriteItemsInput{}
	for _, e := range records {
		keyClause := map[string]types.AttributeValue{
			s.hashKey:  &types.AttributeValueMemberS{Value: originatorID},
			s.rangeKey: &types.AttributeValueMemberN{Value: strconv.Itoa(e.Version)},
		}

		twi := types.TransactWriteItem{
			Update: &types.Update{
				TableName: aws.String(s.tableName),
				Key:       keyClause,
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":r": &types.AttributeValueMemberB{Value: e.Data},
				},
				ConditionExpression: aws.String(
					fmt.Sprintf("attribute_not_exists(%s)", s.rangeKey),
				),
				UpdateExpression: aws.String("set event_data = :r"),
			},
		}
		input.TransactItems = append(input.TransactItems, twi)
	}

	_, err = s.api.TransactWriteItems(ctx, input)
	if err != nil {
		var txnCanceled *types.TransactionCanceledException
		if errors.As(err, &txnCanceled) {
			for _, reason := range txnCanceled.CancellationReasons {
				if reason.Code != nil && *reason.Code == ConditionalCheckFailed {
					return s.ensureIdempotent(ctx, originatorID, records...)
				}
			}
		}
		return err
	}
	return nil
}

// lastVersion reads the highest stored version for the originator, or 0
// when the sequence is empty.
func (s *DynamoDBStore) lastVersion(ctx context.Context, originatorID string) (int, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		ConsistentRead:         aws.Bool(true),
		ScanIndexForward:       aws.Bool(false),
		Limit:                  aws.Int32(1),
		KeyConditionExpression: aws.String("#key = :key"),
		ExpressionAttributeNames: map[string]string{
			"#key": s.hashKey,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": &types.AttributeValueMemberS{Value: originatorID},
		},
	})
	if err != nil {
		return 0, err
	}

	var records []Record
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return records[0].Version, nil
}

// ensureIdempotent treats re-saving records that are already stored
// byte-for-byte as a success; anything else is a genuine conflict.
func (s *DynamoDBStore) ensureIdempotent(ctx context.Context, originatorID string, records ...Record) error {
	version := records[len(records)-1].Version
	history, err := s.Load(ctx, originatorID, 0, version)
	if err != nil {
		return err
	}
	if len(history) < len(records) {
		return fmt.Errorf("%w: competing write for %s", ErrVersionConflict, originatorID)
	}

	recent := history[len(history)-len(records):]
	if !reflect.DeepEqual(recent, History(records)) {
		return fmt.Errorf("%w: competing write for %s", ErrVersionConflict, originatorID)
	}
	return nil
}
