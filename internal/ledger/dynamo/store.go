// Package dynamo stores ledger records in DynamoDB, one item per game.
package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"battleship-ledger/internal/ledger"
)

// GameItem is the stored shape of a game record.
type GameItem struct {
	PK       string
	SK       string
	Type     string
	NextTurn uint32
	State    string
}

// Store keeps the dynamo client and the table name.
type Store struct {
	d         dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a dynamo store
func New(d dynamodbiface.DynamoDBAPI, tableName string) *Store {
	return &Store{d: d, tableName: tableName}
}

func gameKey(name string) map[string]*dynamodb.AttributeValue {
	k := aws.String(fmt.Sprintf("GAME#%s", name))
	return map[string]*dynamodb.AttributeValue{
		"PK": {S: k},
		"SK": {S: k},
	}
}

func isConditionFailure(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
}

// Get returns the game record, or ledger.ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (ledger.ContractState, error) {
	var state ledger.ContractState
	result, err := s.d.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            gameKey(name),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return state, fmt.Errorf("get game item: %w", err)
	}
	if len(result.Item) == 0 {
		return state, ledger.ErrNotFound
	}
	var gi GameItem
	if err := dynamodbattribute.UnmarshalMap(result.Item, &gi); err != nil {
		return state, fmt.Errorf("read game item: %w", err)
	}
	if err := json.Unmarshal([]byte(gi.State), &state); err != nil {
		return state, fmt.Errorf("decode game %s: %w", name, err)
	}
	return state, nil
}

func (s *Store) put(ctx context.Context, name string, state ledger.ContractState, cond string, values map[string]*dynamodb.AttributeValue) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("GAME#%s", name)
	av, err := dynamodbattribute.MarshalMap(GameItem{
		PK:       key,
		SK:       key,
		Type:     "GameItem",
		NextTurn: uint32(state.NextTurn),
		State:    string(raw),
	})
	if err != nil {
		return fmt.Errorf("marshal game item: %w", err)
	}
	input := &dynamodb.PutItemInput{
		Item:                av,
		TableName:           aws.String(s.tableName),
		ConditionExpression: aws.String(cond),
	}
	if len(values) > 0 {
		input.ExpressionAttributeValues = values
	}
	_, err = s.d.PutItemWithContext(ctx, input)
	return err
}

// Create writes a new record; the put is conditional on the key being unused.
func (s *Store) Create(ctx context.Context, name string, state ledger.ContractState) error {
	err := s.put(ctx, name, state, "attribute_not_exists(PK)", nil)
	if isConditionFailure(err) {
		return ledger.ErrGameExists
	}
	if err != nil {
		return fmt.Errorf("put game item: %w", err)
	}
	return nil
}

// Swap replaces the record only while NextTurn still equals expect.
func (s *Store) Swap(ctx context.Context, name string, expect ledger.NextTurn, state ledger.ContractState) error {
	err := s.put(ctx, name, state, "attribute_exists(PK) AND NextTurn = :expect", map[string]*dynamodb.AttributeValue{
		":expect": {N: aws.String(fmt.Sprintf("%d", uint32(expect)))},
	})
	if isConditionFailure(err) {
		if _, getErr := s.Get(ctx, name); getErr != nil {
			return getErr
		}
		return ledger.ErrOutOfTurn
	}
	if err != nil {
		return fmt.Errorf("put game item: %w", err)
	}
	return nil
}

var _ ledger.Store = (*Store)(nil)
