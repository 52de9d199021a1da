package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"

	"github.com/irops-ai/tower/pkg/config"
)

// DynamoAPI is the subset of the DynamoDB client the fetcher needs.
// Narrowed for testability.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// RetryPolicy bounds the transient-error retry loop.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxAttempts     int
}

// DefaultRetryPolicy returns the standard policy: 30s initial, doubling,
// at most 5 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{InitialInterval: 30 * time.Second, MaxAttempts: 5}
}

// DynamoFetcher implements Fetcher against DynamoDB. Table and index names
// are resolved through the store registry; callers never pass physical names.
type DynamoFetcher struct {
	client   DynamoAPI
	registry *config.StoreRegistry
	retry    RetryPolicy
	logger   *slog.Logger
}

// NewDynamoFetcher creates a fetcher over the given client and store layout.
func NewDynamoFetcher(client DynamoAPI, registry *config.StoreRegistry) *DynamoFetcher {
	return &DynamoFetcher{
		client:   client,
		registry: registry,
		retry:    DefaultRetryPolicy(),
		logger:   slog.Default().With("component", "store"),
	}
}

// WithRetryPolicy overrides the default retry policy.
func (f *DynamoFetcher) WithRetryPolicy(p RetryPolicy) *DynamoFetcher {
	f.retry = p
	return f
}

// Get fetches one item by primary key. The key map must contain the table's
// partition key attribute, and the sort key attribute when the table has one.
func (f *DynamoFetcher) Get(ctx context.Context, table string, key map[string]string) (Item, bool, error) {
	def, err := f.registry.Table(table)
	if err != nil {
		return nil, false, &StoreError{Op: "get", Table: table, Kind: KindValidation, Err: err}
	}
	if _, ok := key[def.PartitionKey]; !ok {
		return nil, false, &StoreError{Op: "get", Table: table, Kind: KindValidation,
			Err: fmt.Errorf("missing partition key attribute %q", def.PartitionKey)}
	}
	if def.SortKey != "" {
		if _, ok := key[def.SortKey]; !ok {
			return nil, false, &StoreError{Op: "get", Table: table, Kind: KindValidation,
				Err: fmt.Errorf("missing sort key attribute %q", def.SortKey)}
		}
	}

	attrKey := make(map[string]types.AttributeValue, len(key))
	for k, v := range key {
		attrKey[k] = &types.AttributeValueMemberS{Value: v}
	}

	var out *dynamodb.GetItemOutput
	err = f.withRetry(ctx, "get", table, func() error {
		var callErr error
		out, callErr = f.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(table),
			Key:       attrKey,
		})
		return callErr
	})
	if err != nil {
		return nil, false, err
	}
	if out.Item == nil {
		return nil, false, nil
	}
	return normalizeItem(out.Item), true, nil
}

// Query runs an indexed range-query against a symbolic index name. Results
// come back in the index sort order.
func (f *DynamoFetcher) Query(ctx context.Context, index string, partitionValue string, opts QueryOptions) ([]Item, error) {
	def, err := f.registry.Index(index)
	if err != nil {
		return nil, &StoreError{Op: "query", Table: index, Kind: KindValidation, Err: err}
	}

	keyCond := "#pk = :pv"
	names := map[string]string{"#pk": def.PartitionKey}
	values := map[string]types.AttributeValue{
		":pv": &types.AttributeValueMemberS{Value: partitionValue},
	}
	if opts.SortFrom != "" && def.SortKey != "" {
		keyCond += " AND #sk >= :sv"
		names["#sk"] = def.SortKey
		values[":sv"] = &types.AttributeValueMemberS{Value: opts.SortFrom}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(def.Table),
		IndexName:                 aws.String(def.IndexName),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}

	var items []Item
	err = f.withRetry(ctx, "query", index, func() error {
		items = items[:0]
		paginator := dynamodb.NewQueryPaginator(f.client, input)
		for paginator.HasMorePages() {
			page, pageErr := paginator.NextPage(ctx)
			if pageErr != nil {
				return pageErr
			}
			for _, raw := range page.Items {
				items = append(items, normalizeItem(raw))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Scan runs a filtered full-table scan. Expensive; logged at warning level so
// scans are visible in the audit of any run that used one.
func (f *DynamoFetcher) Scan(ctx context.Context, table string, attribute, value string) ([]Item, error) {
	if !f.registry.HasTable(table) {
		return nil, &StoreError{Op: "scan", Table: table, Kind: KindValidation,
			Err: fmt.Errorf("%w: %s", config.ErrTableNotFound, table)}
	}

	f.logger.WarnContext(ctx, "Full table scan requested",
		"table", table, "attribute", attribute)

	input := &dynamodb.ScanInput{
		TableName:        aws.String(table),
		FilterExpression: aws.String("#attr = :val"),
		ExpressionAttributeNames: map[string]string{
			"#attr": attribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":val": &types.AttributeValueMemberS{Value: value},
		},
	}

	var items []Item
	err := f.withRetry(ctx, "scan", table, func() error {
		items = items[:0]
		paginator := dynamodb.NewScanPaginator(f.client, input)
		for paginator.HasMorePages() {
			page, pageErr := paginator.NextPage(ctx)
			if pageErr != nil {
				return pageErr
			}
			for _, raw := range page.Items {
				items = append(items, normalizeItem(raw))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// withRetry runs op, retrying transient failures with exponential backoff.
// Non-transient failures are returned immediately as typed errors.
func (f *DynamoFetcher) withRetry(ctx context.Context, op, target string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.retry.InitialInterval
	policy.Multiplier = 2.0
	policy.MaxElapsedTime = 0 // attempts bound the loop, not wall time

	attempt := 0
	wrapped := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		kind := classify(err)
		serr := &StoreError{Op: op, Table: target, Kind: kind, Err: err}
		if kind != KindTransient {
			return backoff.Permanent(serr)
		}
		f.logger.WarnContext(ctx, "Transient store error, will retry",
			"op", op, "target", target, "attempt", attempt, "error", err)
		return serr
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(f.retry.MaxAttempts-1)), ctx)
	return backoff.Retry(wrapped, b)
}

// classify maps an AWS SDK error to a retry class.
func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindUnknown
	}

	var quota *types.ProvisionedThroughputExceededException
	if errors.As(err, &quota) {
		return KindQuotaExceeded
	}
	var unavailable *types.InternalServerError
	if errors.As(err, &unavailable) {
		return KindTransient
	}
	var missing *types.ResourceNotFoundException
	if errors.As(err, &missing) {
		return KindValidation
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceUnavailable":
			return KindTransient
		case "RequestLimitExceeded":
			return KindQuotaExceeded
		case "ValidationException":
			return KindValidation
		case "AccessDeniedException", "UnrecognizedClientException":
			return KindAccessDenied
		}
	}
	return KindUnknown
}
