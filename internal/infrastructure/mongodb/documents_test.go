package mongodb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/reallocation-service/internal/domain"
)

func TestDecimal128Conversion(t *testing.T) {
	for _, s := range []string{"0", "12.5", "0.001", "1500", "99999999.125"} {
		t.Run(s, func(t *testing.T) {
			d := decimal.RequireFromString(s)
			v, err := toDecimal128(d)
			require.NoError(t, err)

			back, err := fromDecimal128(v)
			require.NoError(t, err)
			assert.True(t, d.Equal(back), "want %s, got %s", d, back)
		})
	}
}

func TestReallocationDocumentKeepsConsumerRefsAndTrail(t *testing.T) {
	request, err := domain.NewReallocationRequest("r-1", "M-1",
		domain.WorkOrder("WO-A"), domain.InventoryPool(),
		decimal.RequireFromString("2.5"), "overstock", "alice")
	require.NoError(t, err)
	require.NoError(t, request.Reject("bob", "not now"))

	doc, err := toReallocationDocument(request)
	require.NoError(t, err)
	assert.Equal(t, "work-order:WO-A", doc.From)
	assert.Equal(t, "inventory-pool", doc.To)

	restored, err := doc.toDomain()
	require.NoError(t, err)
	assert.True(t, restored.From.Equal(domain.WorkOrder("WO-A")))
	assert.True(t, restored.To.IsInventoryPool())
	assert.True(t, restored.Quantity.Equal(request.Quantity))
	assert.Equal(t, domain.ReallocationStatusRejected, restored.Status)
	assert.Equal(t,
		[]domain.AuditAction{domain.AuditActionRequested, domain.AuditActionRejected},
		domain.Actions(restored.AuditTrail))
}
