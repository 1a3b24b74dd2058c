package models_test

import (
	"testing"

	"github.com/linemk/tribal-market/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanAdvanceTo(t *testing.T) {
	assert.True(t, models.OrderConfirmed.CanAdvanceTo(models.OrderShipped))
	assert.True(t, models.OrderShipped.CanAdvanceTo(models.OrderDelivered))

	// перескакивать и возвращаться нельзя
	assert.False(t, models.OrderPending.CanAdvanceTo(models.OrderShipped))
	assert.False(t, models.OrderConfirmed.CanAdvanceTo(models.OrderDelivered))
	assert.False(t, models.OrderDelivered.CanAdvanceTo(models.OrderShipped))
	assert.False(t, models.OrderCancelled.CanAdvanceTo(models.OrderConfirmed))
	assert.False(t, models.OrderConfirmed.CanAdvanceTo(models.OrderCancelled))
}

func TestOrderStatus_Cancellable(t *testing.T) {
	assert.True(t, models.OrderPending.Cancellable())
	assert.True(t, models.OrderConfirmed.Cancellable())
	assert.False(t, models.OrderShipped.Cancellable())
	assert.False(t, models.OrderDelivered.Cancellable())
	assert.False(t, models.OrderCancelled.Cancellable())
}

func TestArtwork_CanFulfil(t *testing.T) {
	a := &models.Artwork{IsAvailable: true, StockQuantity: 2}
	assert.True(t, a.CanFulfil(2))
	assert.False(t, a.CanFulfil(3))

	a.IsAvailable = false
	assert.False(t, a.CanFulfil(1))
}

func TestPage_Normalize(t *testing.T) {
	p := models.Page{Page: 0, Limit: 0}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, models.DefaultPageSize, p.Limit)

	p = models.Page{Page: 3, Limit: 500}.Normalize()
	assert.Equal(t, models.MaxPageSize, p.Limit)
	assert.Equal(t, 200, p.Offset())
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, models.RoleArtist.Valid())
	assert.False(t, models.Role("superuser").Valid())
}
