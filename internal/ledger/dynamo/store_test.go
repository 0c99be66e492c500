package dynamo

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battleship-ledger/internal/ledger"
	"battleship-ledger/internal/ledger/ledgertest"
)

// fakeDynamo understands the two condition expressions the store sends.
type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI

	mu    sync.Mutex
	items map[string]map[string]*dynamodb.AttributeValue
	puts  int
}

func newFake() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]*dynamodb.AttributeValue)}
}

func (f *fakeDynamo) GetItemWithContext(_ aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[aws.StringValue(in.Key["PK"].S)]}, nil
}

func (f *fakeDynamo) PutItemWithContext(_ aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	pk := aws.StringValue(in.Item["PK"].S)
	cur, exists := f.items[pk]

	var ok bool
	switch cond := aws.StringValue(in.ConditionExpression); cond {
	case "attribute_not_exists(PK)":
		ok = !exists
	case "attribute_exists(PK) AND NextTurn = :expect":
		ok = exists && aws.StringValue(cur["NextTurn"].N) == aws.StringValue(in.ExpressionAttributeValues[":expect"].N)
	default:
		return nil, fmt.Errorf("unexpected condition %q", cond)
	}
	if !ok {
		return nil, awserr.New(dynamodb.ErrCodeConditionalCheckFailedException, "The conditional request failed", nil)
	}
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func TestStore(t *testing.T) {
	ledgertest.RunStoreTests(t, func(t *testing.T) ledger.Store {
		return New(newFake(), "games")
	})
}

func TestItemShape(t *testing.T) {
	fake := newFake()
	store := New(fake, "games")
	require.NoError(t, store.Create(context.Background(), "g1", ledger.ContractState{
		NextTurn: ledger.P2MustProcess,
		P1:       ledger.PlayerState{ID: "alice"},
	}))

	item := fake.items["GAME#g1"]
	require.NotNil(t, item)
	assert.Equal(t, "GAME#g1", aws.StringValue(item["SK"].S))
	assert.Equal(t, "GameItem", aws.StringValue(item["Type"].S))
	assert.Equal(t, "2", aws.StringValue(item["NextTurn"].N))
	assert.Contains(t, aws.StringValue(item["State"].S), `"alice"`)
}

type failingDynamo struct {
	dynamodbiface.DynamoDBAPI
}

func (failingDynamo) GetItemWithContext(aws.Context, *dynamodb.GetItemInput, ...request.Option) (*dynamodb.GetItemOutput, error) {
	return nil, awserr.New(dynamodb.ErrCodeProvisionedThroughputExceededException, "slow down", nil)
}

func (failingDynamo) PutItemWithContext(aws.Context, *dynamodb.PutItemInput, ...request.Option) (*dynamodb.PutItemOutput, error) {
	return nil, awserr.New(dynamodb.ErrCodeInternalServerError, "boom", nil)
}

func TestServiceErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	store := New(failingDynamo{}, "games")

	_, err := store.Get(ctx, "g1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ledger.ErrNotFound)

	err = store.Create(ctx, "g1", ledger.ContractState{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ledger.ErrGameExists)

	err = store.Swap(ctx, "g1", ledger.AwaitingP2Setup, ledger.ContractState{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ledger.ErrOutOfTurn)
}
