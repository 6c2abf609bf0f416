package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"proveia-agent/internal/domain"
)

const (
	pkPrefixGeo = "GEO#"

	// Geocoded coordinates are stable; a week keeps the table small while
	// still absorbing nearly all repeat lookups.
	ttlDuration = 7 * 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by GeocodeStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// GeocodeStore persists resolved geocode lookups in a DynamoDB table keyed
// by the normalized query text. Only successful resolutions are stored;
// the table's TTL attribute expires stale entries.
type GeocodeStore struct {
	api       dynamodbAPI
	tableName string
}

// geocodeItem is the table shape of one cached resolution.
type geocodeItem struct {
	PK        string  `dynamodbav:"PK"`
	Query     string  `dynamodbav:"query"`
	Latitude  float64 `dynamodbav:"latitude"`
	Longitude float64 `dynamodbav:"longitude"`
	Name      string  `dynamodbav:"name"`
	TTL       int64   `dynamodbav:"ttl"`
}

// NewGeocodeStore creates a store backed by the given table.
func NewGeocodeStore(api dynamodbAPI, tableName string) (*GeocodeStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &GeocodeStore{api: api, tableName: tableName}, nil
}

func geoPK(query string) string {
	return pkPrefixGeo + query
}

func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// Get returns the cached location for a query. found is false when the
// query has no entry; expired-but-not-yet-deleted entries are treated as
// missing.
func (s *GeocodeStore) Get(ctx context.Context, query string) (domain.Location, bool, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: geoPK(query)},
		},
	})
	if err != nil {
		return domain.Location{}, false, fmt.Errorf("repository: Get geocode: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Location{}, false, nil
	}

	var item geocodeItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return domain.Location{}, false, fmt.Errorf("repository: Get geocode unmarshal: %w", err)
	}
	if item.TTL > 0 && item.TTL < time.Now().Unix() {
		return domain.Location{}, false, nil
	}
	return domain.Location{
		Latitude:  item.Latitude,
		Longitude: item.Longitude,
		Name:      item.Name,
	}, true, nil
}

// Put writes or replaces the cached location for a query.
func (s *GeocodeStore) Put(ctx context.Context, query string, loc domain.Location) error {
	if strings.TrimSpace(query) == "" {
		return errors.New("repository: Put geocode: query must not be empty")
	}

	item, err := attributevalue.MarshalMap(geocodeItem{
		PK:        geoPK(query),
		Query:     query,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Name:      loc.Name,
		TTL:       ttlValue(),
	})
	if err != nil {
		return fmt.Errorf("repository: Put geocode marshal: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: Put geocode: %w", err)
	}
	return nil
}
