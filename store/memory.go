package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process DocumentStore used when DB_IN_MEMORY is set
// and as the test double. Mutations and snapshot deliveries run under one
// mutex, so a cancelled subscription can never receive a late delivery.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]Fields
	subs        map[int]*memorySub
	nextSub     int

	// Clock is the authoritative commit time source. Tests may pin it.
	Clock func() time.Time
}

type memorySub struct {
	query Query
	fn    SnapshotFunc
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Fields),
		subs:        make(map[int]*memorySub),
		Clock:       time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, ok := s.collections[collection][id]
	if !ok {
		return Doc{}, ErrNotFound
	}
	return Doc{ID: id, Fields: cloneFields(fields)}, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, fields Fields, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	resolved := s.resolveServerTime(fields)

	if merge {
		existing, ok := coll[id]
		if !ok {
			existing = make(Fields)
			coll[id] = existing
		}
		for k, v := range resolved {
			existing[k] = v
		}
	} else {
		coll[id] = resolved
	}

	s.notify(collection)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range s.resolveServerTime(fields) {
		existing[k] = v
	}

	s.notify(collection)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[collection], id)
	s.notify(collection)
	return nil
}

func (s *MemoryStore) AddDoc(ctx context.Context, collection string, fields Fields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.collection(collection)[id] = s.resolveServerTime(fields)

	s.notify(collection)
	return id, nil
}

func (s *MemoryStore) Find(ctx context.Context, q Query) ([]Doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.run(q), nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (CancelFunc, error) {
	s.mu.Lock()

	key := s.nextSub
	s.nextSub++
	s.subs[key] = &memorySub{query: q, fn: fn}

	// Initial snapshot before Subscribe returns, still under the mutex so a
	// concurrent mutation cannot deliver ahead of it.
	fn(s.run(q))
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, key)
			s.mu.Unlock()
		})
	}
	return cancel, nil
}

// collection returns the named collection map, creating it if absent.
// Caller holds s.mu.
func (s *MemoryStore) collection(name string) map[string]Fields {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]Fields)
		s.collections[name] = coll
	}
	return coll
}

func (s *MemoryStore) resolveServerTime(fields Fields) Fields {
	now := s.Clock()
	resolved := make(Fields, len(fields))
	for k, v := range fields {
		if IsServerTime(v) {
			resolved[k] = now
		} else {
			resolved[k] = v
		}
	}
	return resolved
}

// notify re-runs every subscription against the mutated collection and
// delivers the full result set. Caller holds s.mu, so deliveries are ordered
// and never race with cancel.
func (s *MemoryStore) notify(collection string) {
	for _, sub := range s.subs {
		if sub.query.Collection != collection {
			continue
		}
		sub.fn(s.run(sub.query))
	}
}

func (s *MemoryStore) run(q Query) []Doc {
	var docs []Doc
	for id, fields := range s.collections[q.Collection] {
		if matches(fields, q.Wheres) {
			docs = append(docs, Doc{ID: id, Fields: cloneFields(fields)})
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		if q.OrderBy != "" {
			less, equal := compareField(docs[i].Fields[q.OrderBy], docs[j].Fields[q.OrderBy])
			if !equal {
				if q.Ascending {
					return less
				}
				return !less
			}
		}
		return docs[i].ID < docs[j].ID
	})
	return docs
}

func matches(fields Fields, wheres []Where) bool {
	for _, w := range wheres {
		switch w.Op {
		case OpEqual:
			if fields[w.Field] != w.Value {
				return false
			}
		case OpArrayContains:
			if !arrayContains(fields[w.Field], w.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func arrayContains(field, value any) bool {
	switch arr := field.(type) {
	case []string:
		for _, v := range arr {
			if v == value {
				return true
			}
		}
	case []any:
		for _, v := range arr {
			if v == value {
				return true
			}
		}
	}
	return false
}

func compareField(a, b any) (less, equal bool) {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv), av.Equal(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv, av == bv
		}
	case int:
		if bv, ok := b.(int); ok {
			return av < bv, av == bv
		}
	}
	return false, true
}

func cloneFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
