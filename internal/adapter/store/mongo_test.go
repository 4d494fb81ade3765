package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/arturoeanton/restaurant-chatbot/internal/domain"
)

func TestMongoStore_UpsertMenuItems(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upserts by id with $set", func(mt *mtest.T) {
		s := &MongoStore{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 2},
			bson.E{Key: "nModified", Value: 1},
			bson.E{Key: "upserted", Value: bson.A{
				bson.D{{Key: "index", Value: 1}, {Key: "_id", Value: primitive.NewObjectID()}},
			}},
		))

		n, err := s.UpsertMenuItems(mt.Context(), []domain.MenuDocument{
			{"id": int64(1), "name": "Chicken Kottu", "price": int64(1300), "_id": "ignored"},
			{"id": int64(2), "name": "Mango Smoothie"},
			{"name": "no id"},
		})
		require.NoError(mt, err)
		assert.Equal(mt, 2, n)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)
		assert.True(mt, evt.Command.Lookup("ordered").Boolean())

		updates, ok := evt.Command.Lookup("updates").ArrayOK()
		require.True(mt, ok)
		values, err := updates.Values()
		require.NoError(mt, err)
		require.Len(mt, values, 2)

		first := values[0].Document()
		assert.True(mt, first.Lookup("upsert").Boolean())
		assert.Equal(mt, int64(1), first.Lookup("q", "id").Int64())
		assert.Equal(mt, "Chicken Kottu", first.Lookup("u", "$set", "name").StringValue())
		_, err = first.LookupErr("u", "$set", "_id")
		assert.Error(mt, err, "_id must not be overwritten")
	})

	mt.Run("nothing to write", func(mt *mtest.T) {
		s := &MongoStore{collection: mt.Coll}

		n, err := s.UpsertMenuItems(mt.Context(), []domain.MenuDocument{{"name": "no id"}})
		require.NoError(mt, err)
		assert.Equal(mt, 0, n)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("write error", func(mt *mtest.T) {
		s := &MongoStore{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    8000,
			Message: "quota exceeded",
			Name:    "AtlasError",
		}))

		_, err := s.UpsertMenuItems(mt.Context(), []domain.MenuDocument{{"id": int64(1), "name": "Kottu"}})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "upsert menu items")
	})
}

func TestMongoStore_ListMenuItems(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes driver types", func(mt *mtest.T) {
		s := &MongoStore{collection: mt.Coll}
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "id", Value: int32(1)},
				{Key: "name", Value: "Chicken Kottu"},
				{Key: "price", Value: int32(1300)},
				{Key: "categories", Value: bson.A{
					bson.D{{Key: "id", Value: int32(3)}, {Key: "name", Value: "Mains"}},
				}},
			},
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "id", Value: int32(2)},
				{Key: "name", Value: "Mango Smoothie"},
			},
		))

		docs, err := s.ListMenuItems(mt.Context())
		require.NoError(mt, err)
		require.Len(mt, docs, 2)

		assert.Equal(mt, int64(1300), docs[0]["price"])
		id, ok := docs[0].ID()
		require.True(mt, ok)
		assert.EqualValues(mt, 1, id)
		assert.Equal(mt, []any{map[string]any{"id": int64(3), "name": "Mains"}}, docs[0]["categories"])
		assert.Equal(mt, "Mango Smoothie", docs[1].Name())

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "find", evt.CommandName)
		assert.Equal(mt, int32(1), evt.Command.Lookup("sort", "_id").Int32())
	})

	mt.Run("find error", func(mt *mtest.T) {
		s := &MongoStore{collection: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Message: "not authorized",
			Name:    "Unauthorized",
		}))

		_, err := s.ListMenuItems(mt.Context())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "list menu items")
	})
}
