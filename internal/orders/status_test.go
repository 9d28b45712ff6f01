package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPaid, StatusPreparing, true},
		{StatusPaid, StatusCancelled, true},
		{StatusPreparing, StatusDelivering, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusDelivering, StatusDelivered, true},
		{StatusDelivered, StatusReceived, true},
		{StatusCancelled, StatusRefunded, true},

		{StatusPending, StatusPreparing, false},
		{StatusPending, StatusDelivered, false},
		{StatusDelivering, StatusCancelled, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusReceived, StatusCancelled, false},
		{StatusReceived, StatusPending, false},
		{StatusRefunded, StatusPending, false},
		{StatusPaid, StatusDelivered, false},
		{StatusDelivered, StatusDelivered, false},
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestCanCancel(t *testing.T) {
	cancellable := []Status{StatusPending, StatusPaid, StatusPreparing}
	for _, s := range cancellable {
		assert.Truef(t, CanCancel(s), "expected %s cancellable", s)
	}
	final := []Status{StatusDelivering, StatusDelivered, StatusReceived, StatusCancelled, StatusRefunded}
	for _, s := range final {
		assert.Falsef(t, CanCancel(s), "expected %s not cancellable", s)
	}
}

func TestRoleAllows(t *testing.T) {
	// Artisans only advance the fulfilment path.
	assert.True(t, RoleAllows(RoleArtisan, StatusPaid, StatusPreparing))
	assert.True(t, RoleAllows(RoleArtisan, StatusPreparing, StatusDelivering))
	assert.False(t, RoleAllows(RoleArtisan, StatusDelivering, StatusDelivered))
	assert.False(t, RoleAllows(RoleArtisan, StatusPending, StatusCancelled))
	assert.False(t, RoleAllows(RoleArtisan, StatusPending, StatusPaid))

	// Buyers cancel and confirm; they never drive fulfilment.
	assert.True(t, RoleAllows(RoleBuyer, StatusPending, StatusCancelled))
	assert.True(t, RoleAllows(RoleBuyer, StatusDelivering, StatusDelivered))
	assert.True(t, RoleAllows(RoleBuyer, StatusDelivered, StatusReceived))
	assert.False(t, RoleAllows(RoleBuyer, StatusPaid, StatusPreparing))
	assert.False(t, RoleAllows(RoleBuyer, StatusPending, StatusPaid))
	assert.False(t, RoleAllows(RoleBuyer, StatusCancelled, StatusRefunded))
}
