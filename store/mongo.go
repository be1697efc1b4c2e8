package store

import (
	"context"
	"errors"
	"sync"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskboard/sync-service/logging"
)

// MongoStore implements DocumentStore on MongoDB. Change streams provide the
// query-filtered change notification: every matching commit triggers a
// re-query, and the full result set is delivered as the next snapshot.
// Server-assigned timestamps come from $$NOW inside update pipelines, so the
// commit time is authoritative, never the client clock.
type MongoStore struct {
	db      *mongo.Database
	breaker *gobreaker.CircuitBreaker
}

func NewMongoStore(db *mongo.Database, breaker *gobreaker.CircuitBreaker) *MongoStore {
	return &MongoStore{db: db, breaker: breaker}
}

func (s *MongoStore) execute(op func() error) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, op()
	})
	return err
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Doc, error) {
	var raw bson.M
	var missing bool
	err := s.execute(func() error {
		err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
		if errors.Is(err, mongo.ErrNoDocuments) {
			missing = true
			return nil
		}
		return err
	})
	if err != nil {
		return Doc{}, err
	}
	if missing {
		return Doc{}, ErrNotFound
	}
	return docFromRaw(raw), nil
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, fields Fields, merge bool) error {
	var pipeline mongo.Pipeline
	if merge {
		pipeline = mongo.Pipeline{bson.D{{Key: "$set", Value: expressionDoc(fields)}}}
	} else {
		pipeline = mongo.Pipeline{bson.D{{Key: "$replaceWith", Value: expressionDoc(fields)}}}
	}

	return s.execute(func() error {
		_, err := s.db.Collection(collection).UpdateOne(
			ctx,
			bson.M{"_id": id},
			pipeline,
			options.Update().SetUpsert(true),
		)
		return err
	})
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	pipeline := mongo.Pipeline{bson.D{{Key: "$set", Value: expressionDoc(fields)}}}

	var matched int64
	err := s.execute(func() error {
		result, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, pipeline)
		if err != nil {
			return err
		}
		matched = result.MatchedCount
		return nil
	})
	if err != nil {
		return err
	}
	// Outside the breaker: a missing document is the caller's problem, not a
	// store failure.
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	return s.execute(func() error {
		_, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
}

func (s *MongoStore) AddDoc(ctx context.Context, collection string, fields Fields) (string, error) {
	id := primitive.NewObjectID().Hex()
	if err := s.Set(ctx, collection, id, fields, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MongoStore) Find(ctx context.Context, q Query) ([]Doc, error) {
	var docs []Doc
	err := s.execute(func() error {
		opts := options.Find().SetSort(sortSpec(q))
		cursor, err := s.db.Collection(q.Collection).Find(ctx, filterSpec(q), opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		var raws []bson.M
		if err := cursor.All(ctx, &raws); err != nil {
			return err
		}
		docs = make([]Doc, 0, len(raws))
		for _, raw := range raws {
			docs = append(docs, docFromRaw(raw))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *MongoStore) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (CancelFunc, error) {
	streamCtx, stop := context.WithCancel(context.Background())

	var stream *mongo.ChangeStream
	err := s.execute(func() error {
		var err error
		stream, err = s.db.Collection(q.Collection).Watch(streamCtx, mongo.Pipeline{})
		return err
	})
	if err != nil {
		stop()
		return nil, err
	}

	docs, err := s.Find(ctx, q)
	if err != nil {
		stop()
		stream.Close(context.Background())
		return nil, err
	}

	sub := &mongoSub{fn: fn}
	sub.deliver(docs)

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(streamCtx) {
			current, err := s.Find(streamCtx, q)
			if err != nil {
				logging.Logger.Warnf("Event ID: SNAPSHOT_REQUERY_FAILED, Description: Re-query after change event failed for collection %s: %v", q.Collection, err)
				continue
			}
			sub.deliver(current)
		}
	}()

	cancel := func() {
		// Mark closed before stopping the stream so an in-flight delivery is
		// filtered rather than racing the caller.
		sub.close()
		stop()
	}
	return cancel, nil
}

type mongoSub struct {
	mu     sync.Mutex
	closed bool
	fn     SnapshotFunc
}

func (s *mongoSub) deliver(docs []Doc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(docs)
}

func (s *mongoSub) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func docFromRaw(raw bson.M) Doc {
	fields := make(Fields, len(raw))
	var id string
	for k, v := range raw {
		if k == "_id" {
			if s, ok := v.(string); ok {
				id = s
			}
			continue
		}
		fields[k] = v
	}
	return Doc{ID: id, Fields: fields}
}

func filterSpec(q Query) bson.M {
	filter := bson.M{}
	for _, w := range q.Wheres {
		// Mongo matches array containment with plain equality, so both
		// operators translate to the same filter shape.
		filter[w.Field] = w.Value
	}
	return filter
}

func sortSpec(q Query) bson.D {
	dir := 1
	if q.OrderBy != "" && !q.Ascending {
		dir = -1
	}
	spec := bson.D{}
	if q.OrderBy != "" {
		spec = append(spec, bson.E{Key: q.OrderBy, Value: dir})
	}
	spec = append(spec, bson.E{Key: "_id", Value: 1})
	return spec
}

// expressionDoc rewrites fields for use inside an update pipeline: plain
// values are $literal-wrapped so strings starting with "$" stay data, and the
// server-time sentinel becomes $$NOW.
func expressionDoc(fields Fields) bson.M {
	doc := make(bson.M, len(fields))
	for k, v := range fields {
		if IsServerTime(v) {
			doc[k] = "$$NOW"
		} else {
			doc[k] = bson.M{"$literal": v}
		}
	}
	return doc
}
