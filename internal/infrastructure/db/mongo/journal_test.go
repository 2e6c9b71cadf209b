package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

type journalEntry struct {
	Seq int `bson:"seq"`
}

func TestJournal_Load(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns newest documents oldest first", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + AuditCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "seq", Value: 3}},
			bson.D{{Key: "seq", Value: 2}},
			bson.D{{Key: "seq", Value: 1}},
		))

		j := NewJournal[journalEntry](mt.DB, AuditCollection)
		got, err := j.Load(context.Background(), 3)
		require.NoError(mt, err)
		assert.Equal(mt, []journalEntry{{Seq: 1}, {Seq: 2}, {Seq: 3}}, got)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "find", started.CommandName)
		sort, err := started.Command.LookupErr("sort")
		require.NoError(mt, err)
		assert.Equal(mt, int32(-1), sort.Document().Lookup("$natural").Int32())
		limit, err := started.Command.LookupErr("limit")
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), limit.Int64())
	})

	mt.Run("empty collection", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + AlertsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		j := NewJournal[journalEntry](mt.DB, AlertsCollection)
		got, err := j.Load(context.Background(), 10)
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})

	mt.Run("server error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 13, Name: "Unauthorized", Message: "not authorized",
		}))

		j := NewJournal[journalEntry](mt.DB, AuditCollection)
		_, err := j.Load(context.Background(), 10)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "load "+AuditCollection)
	})
}

func TestEnsureCappedCollection(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates capped collection", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, EnsureCappedCollection(context.Background(), mt.DB, AuditCollection, 1000))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "create", started.CommandName)
		assert.True(mt, started.Command.Lookup("capped").Boolean())
		assert.Equal(mt, int64(1000), started.Command.Lookup("max").Int64())
	})

	mt.Run("existing collection is tolerated", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: errNamespaceExists, Name: "NamespaceExists", Message: "collection already exists",
		}))

		assert.NoError(mt, EnsureCappedCollection(context.Background(), mt.DB, AlertsCollection, 500))
	})

	mt.Run("other errors are returned", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 13, Name: "Unauthorized", Message: "not authorized",
		}))

		err := EnsureCappedCollection(context.Background(), mt.DB, AlertsCollection, 500)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "create capped collection "+AlertsCollection)
	})
}
