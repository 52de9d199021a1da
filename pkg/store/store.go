// Package store implements the operational data plane: typed read access to
// the key/value store backing flight, crew, booking, maintenance, and airport
// records. Agents never see the store directly; the tool executor calls
// through the Fetcher interface with catalogue-resolved table and index names.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Item is one record, decoded to native Go values. Numeric attributes decode
// to float64, which survives a JSON round trip unchanged.
type Item map[string]any

// QueryOptions narrows an indexed query.
type QueryOptions struct {
	// SortFrom is an optional inclusive lower bound on the index sort key.
	// Ignored when the index has no sort key.
	SortFrom string
}

// Fetcher is the read interface over the operational store.
//
// Get reports a missing item via the boolean, not an error; absence of a
// record is a normal domain outcome the agent reasons about.
type Fetcher interface {
	Get(ctx context.Context, table string, key map[string]string) (Item, bool, error)
	Query(ctx context.Context, index string, partitionValue string, opts QueryOptions) ([]Item, error)
	Scan(ctx context.Context, table string, attribute, value string) ([]Item, error)
}

// ErrorKind classifies store failures for retry and reporting decisions.
type ErrorKind string

const (
	// KindTransient covers throttling and availability errors; retryable.
	KindTransient ErrorKind = "transient"
	// KindQuotaExceeded covers throughput and request quota exhaustion;
	// not retryable, backing off would hold the agent past its deadline.
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	// KindValidation covers malformed requests; not retryable.
	KindValidation ErrorKind = "validation"
	// KindAccessDenied covers authorization failures; not retryable.
	KindAccessDenied ErrorKind = "access_denied"
	// KindUnknown covers everything else; not retried.
	KindUnknown ErrorKind = "unknown"
)

// StoreError carries the failure classification alongside the operation that
// produced it.
type StoreError struct {
	Op    string // get, query, or scan
	Table string // table or symbolic index name
	Kind  ErrorKind
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s on %s (%s): %v", e.Op, e.Table, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable store failure.
func IsTransient(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == KindTransient
}
