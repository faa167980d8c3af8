package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/reallocation-service/internal/domain"
)

func record(t *testing.T, ref domain.ConsumerRef, materialID, allocated string) *domain.ConsumerRecord {
	t.Helper()
	r := domain.NewConsumerRecord(ref)
	require.NoError(t, r.SetAllocatedQuantity(materialID, decimal.RequireFromString(allocated)))
	return r
}

func TestConsumerStore_GetReturnsCopies(t *testing.T) {
	store := NewConsumerStore()
	store.Put(record(t, domain.WorkOrder("WO-A"), "M-1", "10"))
	ctx := context.Background()

	got, err := store.GetByID(ctx, domain.WorkOrder("WO-A"))
	require.NoError(t, err)
	require.NoError(t, got.SetAllocatedQuantity("M-1", decimal.NewFromInt(1)))

	again, err := store.GetByID(ctx, domain.WorkOrder("WO-A"))
	require.NoError(t, err)
	alloc, _ := again.Allocation("M-1")
	assert.True(t, alloc.AllocatedQuantity.Equal(decimal.NewFromInt(10)))

	_, err = store.GetByID(ctx, domain.WorkOrder("WO-B"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConsumerStore_UpdateChecksVersion(t *testing.T) {
	store := NewConsumerStore()
	seeded := store.Put(record(t, domain.WorkOrder("WO-A"), "M-1", "10"))
	ctx := context.Background()

	first := seeded.Clone()
	second := seeded.Clone()

	require.NoError(t, first.SetAllocatedQuantity("M-1", decimal.NewFromInt(7)))
	updated, err := store.Update(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, seeded.Version+1, updated.Version)

	require.NoError(t, second.SetAllocatedQuantity("M-1", decimal.NewFromInt(3)))
	_, err = store.Update(ctx, second)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	store.Delete(domain.WorkOrder("WO-A"))
	_, err = store.Update(ctx, updated)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConsumerStore_FindByMaterial(t *testing.T) {
	store := NewConsumerStore()
	store.Put(record(t, domain.WorkOrder("WO-B"), "M-1", "10"))
	store.Put(record(t, domain.InventoryPool(), "M-1", "50"))
	store.Put(record(t, domain.WorkOrder("WO-C"), "M-2", "5"))

	records, err := store.FindByMaterial(context.Background(), "M-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Consumer.IsInventoryPool())
	assert.Equal(t, "WO-B", records[1].Consumer.ID)

	none, err := store.FindByMaterial(context.Background(), "M-9")
	require.NoError(t, err)
	assert.Empty(t, none)

	assert.Equal(t, []string{"M-1", "M-2"}, store.MaterialIDs())
}

func TestReallocationStore_Lifecycle(t *testing.T) {
	store := NewReallocationStore()
	ctx := context.Background()

	first, err := domain.NewReallocationRequest("r-1", "M-1",
		domain.WorkOrder("WO-A"), domain.WorkOrder("WO-B"), decimal.NewFromInt(5), "", "alice")
	require.NoError(t, err)
	second, err := domain.NewReallocationRequest("r-2", "M-2",
		domain.InventoryPool(), domain.WorkOrder("WO-C"), decimal.NewFromInt(1), "", "alice")
	require.NoError(t, err)

	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))
	assert.Error(t, store.Create(ctx, first), "duplicate ids are rejected")

	missing, err := store.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, first.Reject("bob", "no"))
	require.NoError(t, store.Update(ctx, first))

	stored, err := store.GetByID(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReallocationStatusRejected, stored.Status)

	ghost, err := domain.NewReallocationRequest("r-9", "M-1",
		domain.WorkOrder("WO-A"), domain.WorkOrder("WO-B"), decimal.NewFromInt(1), "", "alice")
	require.NoError(t, err)
	assert.ErrorIs(t, store.Update(ctx, ghost), domain.ErrNotFound)

	all, err := store.List(ctx, domain.ReallocationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r-1", all[0].ID)

	pool := domain.InventoryPool()
	byConsumer, err := store.List(ctx, domain.ReallocationFilter{Consumer: &pool})
	require.NoError(t, err)
	require.Len(t, byConsumer, 1)
	assert.Equal(t, "r-2", byConsumer[0].ID)

	pending, err := store.List(ctx, domain.ReallocationFilter{Status: domain.ReallocationStatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r-2", pending[0].ID)
}

func TestMaterialCatalog(t *testing.T) {
	catalog := NewMaterialCatalog("M-1")
	catalog.Add("M-2")

	for id, want := range map[string]bool{"M-1": true, "M-2": true, "M-3": false} {
		ok, err := catalog.Exists(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, ok, id)
	}
}
