package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"example.com/backstage/services/doctor/config"
	"example.com/backstage/services/doctor/internal/database"
	"example.com/backstage/services/doctor/internal/models"
	"example.com/backstage/services/doctor/internal/paging"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{Driver: database.DriverSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestGormStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore[models.Review](newTestDB(t))

	review := &models.Review{
		UserName:   "AAAAAAAAAA",
		Review:     "AAAAAAAAAA",
		ReviewedOn: models.NewLocalDate(time.Unix(0, 0).UTC()),
	}
	require.NoError(t, store.Create(ctx, review))
	assert.NotZero(t, review.ID)

	found, err := store.FindByID(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAAAA", found.UserName)
	assert.Equal(t, "1970-01-01", found.ReviewedOn.String())

	_, err = store.FindByID(ctx, review.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore[models.Reply](newTestDB(t))

	reply := &models.Reply{Reply: "AAAAAAAAAA"}
	require.NoError(t, store.Create(ctx, reply))

	reply.Reply = "BBBBBBBBBB"
	require.NoError(t, store.Update(ctx, reply.ID, reply))

	found, err := store.FindByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBBBB", found.Reply)

	missing := &models.Reply{ID: reply.ID + 1000, Reply: "x"}
	assert.ErrorIs(t, store.Update(ctx, missing.ID, missing), ErrNotFound)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "update of a missing id must not insert")
}

func TestGormStoreUpdateAfterDeleteDoesNotRecreate(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore[models.Review](newTestDB(t))

	review := &models.Review{UserName: "AAAAAAAAAA"}
	require.NoError(t, store.Create(ctx, review))
	require.NoError(t, store.Delete(ctx, review.ID))

	review.UserName = "BBBBBBBBBB"
	assert.ErrorIs(t, store.Update(ctx, review.ID, review), ErrNotFound)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGormStoreUpdateClearsDate(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore[models.Review](newTestDB(t))

	review := &models.Review{
		UserName:   "AAAAAAAAAA",
		ReviewedOn: models.NewLocalDate(time.Unix(0, 0).UTC()),
	}
	require.NoError(t, store.Create(ctx, review))

	unchanged := *review
	require.NoError(t, store.Update(ctx, review.ID, &unchanged), "saving identical values still matches the row")

	review.ReviewedOn = models.LocalDate{}
	require.NoError(t, store.Update(ctx, review.ID, review))

	found, err := store.FindByID(ctx, review.ID)
	require.NoError(t, err)
	assert.True(t, found.ReviewedOn.IsZero())
}

func TestGormStoreFindPageOrdersWithIDTieBreak(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore[models.Reply](newTestDB(t))

	for _, text := range []string{"b", "a", "b", "a"} {
		require.NoError(t, store.Create(ctx, &models.Reply{Reply: text}))
	}

	records, total, err := store.FindPage(ctx, paging.Of(0, 10, paging.SortOrder{Field: "reply", Direction: paging.Desc}))
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, records, 4)

	assert.Equal(t, []int64{1, 3, 2, 4}, ids(records))

	records, total, err = store.FindPage(ctx, paging.Of(1, 3, paging.SortOrder{Field: "id", Direction: paging.Desc}))
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []int64{1}, ids(records))
}

func TestGormStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore[models.PaymentSettings](newTestDB(t))

	settings := &models.PaymentSettings{Currency: "USD", Amount: 12.5}
	require.NoError(t, store.Create(ctx, settings))

	require.NoError(t, store.Delete(ctx, settings.ID))
	_, err := store.FindByID(ctx, settings.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, settings.ID))
}

func TestGormStoreFindBatch(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore[models.Reply](newTestDB(t))

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(ctx, &models.Reply{Reply: "r"}))
	}

	batch, err := store.FindBatch(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(batch))

	batch, err = store.FindBatch(ctx, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids(batch))

	batch, err = store.FindBatch(ctx, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func ids(replies []models.Reply) []int64 {
	out := make([]int64, len(replies))
	for i, r := range replies {
		out[i] = r.ID
	}
	return out
}
