package statemachine

import (
	"testing"

	"restaurant-api/models"

	"github.com/stretchr/testify/assert"
)

func TestCustomerCancellation(t *testing.T) {
	cases := []struct {
		from    models.OrderStatus
		allowed bool
	}{
		{models.StatusPending, true},
		{models.StatusConfirmed, true},
		{models.StatusPreparing, true},
		{models.StatusReady, true},
		{models.StatusDelivered, false},
		{models.StatusCancelled, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from), func(t *testing.T) {
			err := CanTransition(tc.from, models.StatusCancelled, ActorCustomer)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []models.OrderStatus{models.StatusDelivered, models.StatusCancelled} {
		assert.Empty(t, ValidTransitionsFrom(terminal, ""))
		for _, to := range models.AllStatuses {
			for _, actor := range []Actor{ActorSystem, ActorAdmin, ActorCustomer} {
				assert.Error(t, CanTransition(terminal, to, actor), "%s -> %s by %s", terminal, to, actor)
			}
		}
	}
}

func TestAdminLifecycle(t *testing.T) {
	path := []models.OrderStatus{
		models.StatusPending,
		models.StatusConfirmed,
		models.StatusPreparing,
		models.StatusReady,
		models.StatusDelivered,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.NoError(t, CanTransition(path[i], path[i+1], ActorAdmin))
	}
}

func TestOnlyPaymentOrAdminConfirms(t *testing.T) {
	assert.NoError(t, CanTransition(models.StatusPending, models.StatusConfirmed, ActorSystem))
	assert.Error(t, CanTransition(models.StatusPending, models.StatusConfirmed, ActorCustomer))
	assert.Error(t, CanTransition(models.StatusConfirmed, models.StatusPreparing, ActorSystem))
}

func TestBackwardJumpsRejected(t *testing.T) {
	assert.Error(t, CanTransition(models.StatusDelivered, models.StatusPending, ActorAdmin))
	assert.Error(t, CanTransition(models.StatusReady, models.StatusPending, ActorAdmin))
	assert.Error(t, CanTransition(models.StatusPreparing, models.StatusPending, ActorAdmin))
	assert.NoError(t, CanTransition(models.StatusReady, models.StatusPreparing, ActorAdmin))
}

func TestRejectsUnknownAndSameStatus(t *testing.T) {
	err := CanTransition(models.StatusPending, models.OrderStatus("shipped"), ActorAdmin)
	assert.ErrorContains(t, err, "unknown order status")

	err = CanTransition(models.StatusReady, models.StatusReady, ActorAdmin)
	assert.ErrorContains(t, err, "already ready")
}

func TestErrorListsValidTargets(t *testing.T) {
	err := CanTransition(models.StatusPending, models.StatusDelivered, ActorCustomer)
	assert.ErrorContains(t, err, "Valid transitions from pending are: cancelled")
}

func TestGetAllTransitionsIsACopy(t *testing.T) {
	all := GetAllTransitions()
	all[0].To = models.StatusDelivered
	assert.NoError(t, CanTransition(models.StatusPending, models.StatusConfirmed, ActorSystem))
	assert.Equal(t, models.StatusConfirmed, GetAllTransitions()[0].To)
}
