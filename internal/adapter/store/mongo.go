package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

// MongoStore persists menu documents in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects, verifies the connection and ensures a unique index on "id".
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: domain.FieldID, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create menu id index: %w", err)
	}

	return &MongoStore{client: client, collection: coll}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// UpsertMenuItems writes every document with $set semantics keyed by "id".
// Fields stored earlier but absent from a document are kept.
func (s *MongoStore) UpsertMenuItems(ctx context.Context, docs []domain.MenuDocument) (int, error) {
	models := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		id, ok := doc.ID()
		if !ok {
			continue
		}
		set := bson.M{}
		for k, v := range doc {
			if k == domain.FieldInternalID {
				continue
			}
			set[k] = v
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{domain.FieldID: id}).
			SetUpdate(bson.M{"$set": set}).
			SetUpsert(true))
	}
	if len(models) == 0 {
		return 0, nil
	}

	res, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return 0, fmt.Errorf("upsert menu items: %w", err)
	}
	return int(res.MatchedCount + res.UpsertedCount), nil
}

// ListMenuItems returns every stored document in insertion order.
func (s *MongoStore) ListMenuItems(ctx context.Context) ([]domain.MenuDocument, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: domain.FieldInternalID, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode menu items: %w", err)
	}

	docs := make([]domain.MenuDocument, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, domain.MenuDocument(fromBSON(m).(map[string]any)))
	}
	return docs, nil
}

// fromBSON converts driver container types into plain maps and slices so the
// loader sees the same shapes as a freshly fetched menu.
func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = fromBSON(inner)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = fromBSON(inner)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = fromBSON(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = fromBSON(inner)
		}
		return out
	case int32:
		return int64(t)
	case primitive.DateTime:
		return t.Time().UTC()
	default:
		return v
	}
}
