// Package store defines the document-store contract the sync core is built
// on: collection-and-document addressed storage with point reads, per-document
// atomic writes, one-shot queries and query-filtered live subscriptions that
// deliver full result snapshots.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

var ErrNotFound = errors.New("document not found")

// Fields is the schemaless field set of a single document.
type Fields map[string]any

type serverTime struct{}

// ServerTime returns the sentinel resolved by the store backend to the actual
// commit time. Client clocks never enter createdAt/updatedAt ordering.
func ServerTime() any { return serverTime{} }

// IsServerTime reports whether v is the ServerTime sentinel.
func IsServerTime(v any) bool {
	_, ok := v.(serverTime)
	return ok
}

// Operators supported by Where. ArrayContains matches documents whose array
// field contains the value.
const (
	OpEqual         = "=="
	OpArrayContains = "array-contains"
)

type Where struct {
	Field string
	Op    string
	Value any
}

// Query selects documents from one collection. Results are ordered by
// OrderBy, with ties broken by document id so ordering is deterministic under
// identical timestamps.
type Query struct {
	Collection string
	Wheres     []Where
	OrderBy    string
	Ascending  bool
}

// Doc is a single document in a snapshot or query result.
type Doc struct {
	ID     string
	Fields Fields
}

// Decode unmarshals the document fields (plus its id under _id) into a struct
// with bson tags.
func (d Doc) Decode(v any) error {
	fields := make(Fields, len(d.Fields)+1)
	for k, val := range d.Fields {
		fields[k] = val
	}
	fields["_id"] = d.ID

	raw, err := bson.Marshal(fields)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, v)
}

// CancelFunc releases a subscription. It is idempotent, and after it returns
// the subscription's handler is never invoked again, even for deliveries that
// were in flight.
type CancelFunc func()

// SnapshotFunc receives the full current result set for a subscribed query.
// Each delivery replaces the previous one; the store computes the diff, the
// subscriber just overwrites its copy.
type SnapshotFunc func(docs []Doc)

// DocumentStore is the external document database as this system uses it.
// Implementations must deliver the initial snapshot before Subscribe returns
// and must keep per-scope delivery monotonic.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Doc, error)
	// Set writes all fields at id, creating the document if needed. With
	// merge, untouched fields survive; without, the document is replaced.
	Set(ctx context.Context, collection, id string, fields Fields, merge bool) error
	Update(ctx context.Context, collection, id string, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	// AddDoc creates a document with a store-assigned id.
	AddDoc(ctx context.Context, collection string, fields Fields) (string, error)
	Find(ctx context.Context, q Query) ([]Doc, error)
	Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (CancelFunc, error)
}
