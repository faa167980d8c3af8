package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/reallocation-service/internal/domain"
	"github.com/wms-platform/reallocation-service/pkg/logging"
)

type failingConsumerStore struct {
	domain.ConsumerStore
}

func (failingConsumerStore) FindByMaterial(context.Context, string) ([]*domain.ConsumerRecord, error) {
	return nil, errors.New("store offline")
}

func TestGetConsumerAllocations(t *testing.T) {
	f := newFixture(t)
	f.seed(t, woB, "10", "10")
	f.seed(t, woA, "100", "20")
	f.seed(t, domain.InventoryPool(), "5", "0")
	service := NewAllocationQueryService(f.consumers, logging.NewNop())

	summaries, err := service.GetConsumerAllocations(context.Background(), material)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, "inventory-pool", summaries[0].Consumer)
	assert.Equal(t, "work-order:WO-A", summaries[1].Consumer)
	assert.Equal(t, "work-order:WO-B", summaries[2].Consumer)

	a := summaries[1]
	assert.Equal(t, "WO-A", a.ConsumerID)
	assert.True(t, a.RemainingQuantity.Equal(qty("80")))
	assert.True(t, a.CanReduce)
	assert.True(t, a.CanIncrease)

	assert.False(t, summaries[2].CanReduce, "fully used allocation cannot give anything up")
}

func TestGetConsumerAllocations_Errors(t *testing.T) {
	service := NewAllocationQueryService(newFixture(t).consumers, logging.NewNop())

	_, err := service.GetConsumerAllocations(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	empty, err := service.GetConsumerAllocations(context.Background(), "M-unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)

	offline := NewAllocationQueryService(failingConsumerStore{}, logging.NewNop())
	_, err = offline.GetConsumerAllocations(context.Background(), material)
	assert.ErrorContains(t, err, "store offline")
}
