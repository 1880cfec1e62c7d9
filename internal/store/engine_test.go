package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/plexo-core/internal/store"
	"github.com/angelmondragon/plexo-core/internal/store/storetest"
	"github.com/angelmondragon/plexo-core/pkg/config"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func newItem(id, owner string) *models.Item {
	return &models.Item{
		ID:           id,
		OwnerUserID:  owner,
		Title:        "Greenfield Denim Jacket",
		Category:     "Jacket",
		Authenticity: 82,
		Price:        decimal.NewNullDecimal(decimal.NewFromInt(150)),
		Brand:        strPtr("Greenfield"),
	}
}

func TestPutAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)

	item := newItem("item-1", "user-1")
	require.NoError(t, engine.Put(ctx, item))
	require.False(t, item.CreatedAt.IsZero())
	require.Equal(t, item.CreatedAt, item.UpdatedAt)

	var got models.Item
	require.NoError(t, engine.Get(ctx, enums.CollectionItems, "item-1", &got))
	require.Equal(t, "Greenfield Denim Jacket", got.Title)
	require.True(t, got.Price.Valid)
	require.True(t, got.Price.Decimal.Equal(decimal.NewFromInt(150)))
	require.NotNil(t, got.Brand)
	require.Equal(t, "Greenfield", *got.Brand)
	require.Nil(t, got.Model)
	require.False(t, got.Listed)
	require.Nil(t, got.ListedAt)
	require.True(t, got.CreatedAt.Equal(item.CreatedAt))
}

func TestPutUpsertsByPrimaryKey(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)

	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	engine.SetClock(func() time.Time { return first })
	item := newItem("item-1", "user-1")
	require.NoError(t, engine.Put(ctx, item))

	engine.SetClock(func() time.Time { return first.Add(time.Hour) })
	item.Title = "Renamed"
	require.NoError(t, engine.Put(ctx, item))

	var all []models.Item
	require.NoError(t, engine.GetAll(ctx, enums.CollectionItems, &all))
	require.Len(t, all, 1)
	require.Equal(t, "Renamed", all[0].Title)
	require.True(t, all[0].CreatedAt.Equal(first))
	require.True(t, all[0].UpdatedAt.Equal(first.Add(time.Hour)))

	engine.SetClock(func() time.Time { return first.Add(2 * time.Hour) })
	fresh := newItem("item-1", "user-1")
	require.NoError(t, engine.Put(ctx, fresh))

	var stored models.Item
	require.NoError(t, engine.Get(ctx, enums.CollectionItems, "item-1", &stored))
	require.True(t, stored.CreatedAt.Equal(first), "created_at survives an upsert")
	require.Equal(t, "Greenfield Denim Jacket", stored.Title)
}

func TestGetMissingIsNotFound(t *testing.T) {
	engine := storetest.NewEngine(t)
	var got models.User
	err := engine.Get(context.Background(), enums.CollectionUsers, "nobody", &got)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestGetRejectsMismatchedDestination(t *testing.T) {
	engine := storetest.NewEngine(t)
	var got models.User
	err := engine.Get(context.Background(), enums.CollectionItems, "item-1", &got)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestUniqueEmailConflict(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)

	require.NoError(t, engine.Put(ctx, &models.User{ID: "u1", Email: "m@plexo.ai", Name: "M", Interest: enums.InterestPhoto}))
	err := engine.Put(ctx, &models.User{ID: "u2", Email: "m@plexo.ai", Name: "N", Interest: enums.InterestArt})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	var byEmail models.User
	require.NoError(t, engine.GetByUniqueIndex(ctx, enums.CollectionUsers, store.IndexEmail, "m@plexo.ai", &byEmail))
	require.Equal(t, "u1", byEmail.ID)
}

func TestIndexLookups(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)

	require.NoError(t, engine.Put(ctx, newItem("b", "user-1")))
	require.NoError(t, engine.Put(ctx, newItem("a", "user-1")))
	require.NoError(t, engine.Put(ctx, newItem("c", "user-2")))

	var owned []models.Item
	require.NoError(t, engine.GetByIndex(ctx, enums.CollectionItems, store.IndexOwnerUserID, "user-1", &owned))
	require.Len(t, owned, 2)
	require.Equal(t, "a", owned[0].ID)
	require.Equal(t, "b", owned[1].ID)

	chat := &models.Chat{ID: "chat-1", UserID: "user-1", ContactID: "user-2", ContactName: "Alina"}
	require.NoError(t, engine.Put(ctx, chat))

	var found models.Chat
	require.NoError(t, engine.GetByUniqueIndex(ctx, enums.CollectionChats, store.IndexUserContactID, store.Composite{"user-1", "user-2"}, &found))
	require.Equal(t, "chat-1", found.ID)

	err := engine.GetByUniqueIndex(ctx, enums.CollectionChats, store.IndexUserContactID, store.Composite{"user-2", "user-1"}, &found)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestIndexMisuseIsValidationError(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)

	var items []models.Item
	err := engine.GetByIndex(ctx, enums.CollectionItems, "color", "red", &items)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "unknown index: %v", err)

	var users []models.User
	err = engine.GetByIndex(ctx, enums.CollectionUsers, store.IndexEmail, "x@y.z", &users)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "unique index used as non-unique: %v", err)

	var chat models.Chat
	err = engine.GetByUniqueIndex(ctx, enums.CollectionChats, store.IndexUserContactID, "user-1", &chat)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "composite without Composite: %v", err)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)

	require.NoError(t, engine.Put(ctx, newItem("item-1", "user-1")))
	require.NoError(t, engine.Delete(ctx, enums.CollectionItems, "item-1"))
	require.NoError(t, engine.Delete(ctx, enums.CollectionItems, "item-1"))

	var got models.Item
	err := engine.Get(ctx, enums.CollectionItems, "item-1", &got)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTransactionIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)

	require.NoError(t, engine.Put(ctx, &models.Chat{ID: "chat-1", UserID: "u1", ContactID: "u2"}))

	err := engine.Transaction(ctx,
		store.PutWrite(newItem("item-1", "u1")),
		store.DeleteWrite(enums.CollectionChats, "chat-1"),
		store.PutWrite(&models.Chat{ID: "chat-2", UserID: "u1", ContactID: "u3"}),
		store.PutWrite(&models.Chat{ID: "chat-3", UserID: "u1", ContactID: "u3"}),
	)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTransactionFailure), "got %v", err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict), "cause should be kept: %v", err)

	var item models.Item
	require.True(t, pkgerrors.IsCode(engine.Get(ctx, enums.CollectionItems, "item-1", &item), pkgerrors.CodeNotFound))

	var chats []models.Chat
	require.NoError(t, engine.GetAll(ctx, enums.CollectionChats, &chats))
	require.Len(t, chats, 1)
	require.Equal(t, "chat-1", chats[0].ID)
}

func TestTransactionCommitsAcrossCollections(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)

	require.NoError(t, engine.Transaction(ctx,
		store.PutWrite(newItem("item-1", "u1")),
		store.PutWrite(&models.Chat{ID: "chat-1", UserID: "u1", ContactID: "u2"}),
		store.PutWrite(&models.Message{ID: "m1", ChatID: "chat-1", Sender: enums.SenderRoleLocal, Text: "hi"}),
	))

	var msgs []models.Message
	require.NoError(t, engine.GetByIndex(ctx, enums.CollectionMessages, store.IndexChatID, "chat-1", &msgs))
	require.Len(t, msgs, 1)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)

	sentinel := pkgerrors.New(pkgerrors.CodeStateConflict, "already listed")
	err := engine.Update(ctx, "test_update", func(tx *store.Tx) error {
		if err := tx.Put(ctx, newItem("item-1", "u1")); err != nil {
			return err
		}
		var inTx models.Item
		if err := tx.Get(ctx, enums.CollectionItems, "item-1", &inTx); err != nil {
			return err
		}
		return sentinel
	})
	require.True(t, errors.Is(err, sentinel), "domain errors pass through unchanged: %v", err)

	var got models.Item
	require.True(t, pkgerrors.IsCode(engine.Get(ctx, enums.CollectionItems, "item-1", &got), pkgerrors.CodeNotFound))

	err = engine.Update(ctx, "test_update", func(tx *store.Tx) error {
		return errors.New("disk full")
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTransactionFailure), "got %v", err)
}

func TestMessageSequenceIsAssigned(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &models.Message{ID: "m1", ChatID: "c", Sender: enums.SenderRoleLocal, Text: "one", Timestamp: ts}
	second := &models.Message{ID: "m2", ChatID: "c", Sender: enums.SenderRoleRemote, Text: "two", Timestamp: ts}
	require.NoError(t, engine.Put(ctx, first))
	require.NoError(t, engine.Put(ctx, second))

	require.Equal(t, int64(1), first.Seq)
	require.Equal(t, int64(2), second.Seq)
	require.NotEmpty(t, first.DisplayTime)
}

func TestClearAllEmptiesEveryCollection(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)

	require.NoError(t, engine.Transaction(ctx,
		store.PutWrite(&models.User{ID: "u1", Email: "a@b.c", Name: "A", Interest: enums.InterestArt}),
		store.PutWrite(newItem("item-1", "u1")),
		store.PutWrite(&models.Chat{ID: "chat-1", UserID: "u1", ContactID: "u2"}),
		store.PutWrite(&models.Message{ID: "m1", ChatID: "chat-1", Sender: enums.SenderRoleLocal, Text: "hi"}),
	))
	require.NoError(t, engine.ClearAll(ctx))

	var users []models.User
	var items []models.Item
	var chats []models.Chat
	var msgs []models.Message
	require.NoError(t, engine.GetAll(ctx, enums.CollectionUsers, &users))
	require.NoError(t, engine.GetAll(ctx, enums.CollectionItems, &items))
	require.NoError(t, engine.GetAll(ctx, enums.CollectionChats, &chats))
	require.NoError(t, engine.GetAll(ctx, enums.CollectionMessages, &msgs))
	require.Empty(t, users)
	require.Empty(t, items)
	require.Empty(t, chats)
	require.Empty(t, msgs)
}

func TestClosedEngineIsUnavailable(t *testing.T) {
	ctx := context.Background()
	engine := storetest.NewEngine(t)
	require.NoError(t, engine.Close())

	var got models.Item
	err := engine.Get(ctx, enums.CollectionItems, "item-1", &got)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorageUnavailable), "got %v", err)

	err = engine.Put(ctx, newItem("item-1", "u1"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorageUnavailable), "got %v", err)
	require.True(t, pkgerrors.IsCode(engine.Ping(ctx), pkgerrors.CodeStorageUnavailable))
}

func TestInitFailureIsUnavailable(t *testing.T) {
	cfg := config.DBConfig{
		Driver:       config.DBDriverSQLite,
		DSN:          "file:" + filepath.Join(t.TempDir(), "no", "such", "dir", "plexo.db"),
		OpenAttempts: 2,
		OpenBackoff:  time.Millisecond,
	}
	_, err := store.Init(context.Background(), cfg, nil, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorageUnavailable), "got %v", err)
}
