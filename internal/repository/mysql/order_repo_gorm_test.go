package mysql

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingOrder(t *testing.T, ownerID uint64, itemIDs ...uint64) *domain.Order {
	t.Helper()
	var lines []domain.OrderLine
	for i, id := range itemIDs {
		lines = append(lines, domain.OrderLine{
			CatalogItemID: id,
			Name:          "item",
			Quantity:      int64(i + 1),
			UnitPrice:     decimal.RequireFromString("10.00"),
		})
	}
	o, err := domain.NewOrder(ownerID, lines, time.Now().UTC())
	require.NoError(t, err)
	return o
}

func TestOrderRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewOrderRepository(db)

	t.Run("Create persists order and lines together", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, db)

		o := pendingOrder(t, 1, 10, 11)
		require.NoError(t, repo.Create(ctx, o))
		require.NotZero(t, o.ID)

		got, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.Nil(t, got.CorrelationID)
		assert.True(t, got.Total.Equal(decimal.RequireFromString("30.00")), "total %s", got.Total)
		require.Len(t, got.Lines, 2)
		assert.True(t, domain.SumLines(got.Lines).Equal(got.Total))
	})

	t.Run("Create rolls back when a line cannot be written", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, db)

		o := pendingOrder(t, 2, 10, 11)
		o.Lines[0].ID = 77
		o.Lines[1].ID = 77

		err := repo.Create(ctx, o)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

		list, err := repo.FindByOwner(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, list, "no order row may survive a failed line insert")
	})

	t.Run("Transition is a compare-and-set", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, db)

		o := pendingOrder(t, 1, 10)
		require.NoError(t, repo.Create(ctx, o))

		var applied int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.Transition(ctx, o.ID, domain.StatusPending, domain.StatusPaid)
				assert.NoError(t, err)
				if ok {
					atomic.AddInt32(&applied, 1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), applied)

		ok, err := repo.Transition(ctx, o.ID, domain.StatusPending, domain.StatusCancelled)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.Transition(ctx, o.ID, domain.StatusPaid, domain.StatusRefunded)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Transition(ctx, o.ID, domain.StatusRefunded, domain.StatusPaid)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.Transition(ctx, 999999, domain.StatusPending, domain.StatusPaid)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("SetCorrelationID assigns once and stays unique", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, db)

		a := pendingOrder(t, 1, 10)
		b := pendingOrder(t, 1, 10)
		require.NoError(t, repo.Create(ctx, a))
		require.NoError(t, repo.Create(ctx, b))

		require.NoError(t, repo.SetCorrelationID(ctx, a.ID, "cs_test_a"))
		assert.ErrorIs(t, repo.SetCorrelationID(ctx, a.ID, "cs_test_b"), domain.ErrInvalidOrderState)
		assert.ErrorIs(t, repo.SetCorrelationID(ctx, b.ID, "cs_test_a"), domain.ErrInvalidOrderState)
		assert.ErrorIs(t, repo.SetCorrelationID(ctx, 999999, "cs_test_c"), domain.ErrOrderNotFound)

		got, err := repo.FindByCorrelationID(ctx, "cs_test_a")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, a.ID, got.ID)
	})
}

func TestCatalogAndCartRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.TruncateAll(t, db)

	items := []domain.MenuItem{
		{ID: 1, Name: "Soup", Price: decimal.RequireFromString("10.00"), Category: "starters", Available: true},
		{ID: 2, Name: "Bread", Price: decimal.RequireFromString("5.00"), Category: "starters", Available: true},
		{ID: 3, Name: "Old special", Price: decimal.RequireFromString("7.00"), Category: "mains", Available: true},
	}
	require.NoError(t, db.Create(&items).Error)
	require.NoError(t, db.Model(&domain.MenuItem{}).Where("id = ?", 3).Update("available", false).Error)

	catalog := NewCatalogRepository(db)
	got, err := catalog.FindAvailableByIDs(ctx, []uint64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, db.Create(&domain.CartItem{UserID: 9, MenuItemID: 1, Quantity: 2}).Error)
	require.NoError(t, NewCartRepository(db).Clear(ctx, 9))

	var n int64
	require.NoError(t, db.Model(&domain.CartItem{}).Where("user_id = ?", 9).Count(&n).Error)
	assert.Zero(t, n)
}
