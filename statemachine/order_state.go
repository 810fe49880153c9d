package statemachine

import (
	"fmt"
	"strings"

	"restaurant-api/models"
)

// Actor identifies who drives a transition
type Actor string

const (
	ActorSystem   Actor = "system" // payment capture
	ActorAdmin    Actor = "admin"
	ActorCustomer Actor = "customer"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor Actor              `json:"actor"`
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Payment capture confirms a pending order; staff may confirm by hand (cash, phone orders)
	{From: models.StatusPending, To: models.StatusConfirmed, Actor: ActorSystem},
	{From: models.StatusPending, To: models.StatusConfirmed, Actor: ActorAdmin},

	// Kitchen flow
	{From: models.StatusConfirmed, To: models.StatusPreparing, Actor: ActorAdmin},
	{From: models.StatusPreparing, To: models.StatusReady, Actor: ActorAdmin},
	{From: models.StatusReady, To: models.StatusDelivered, Actor: ActorAdmin},

	// Forward skips
	{From: models.StatusConfirmed, To: models.StatusReady, Actor: ActorAdmin},
	{From: models.StatusConfirmed, To: models.StatusDelivered, Actor: ActorAdmin},
	{From: models.StatusPreparing, To: models.StatusDelivered, Actor: ActorAdmin},

	// Corrections, one step back
	{From: models.StatusPreparing, To: models.StatusConfirmed, Actor: ActorAdmin},
	{From: models.StatusReady, To: models.StatusPreparing, Actor: ActorAdmin},

	// Cancellation from any non-terminal state
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorCustomer},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: ActorCustomer},
	{From: models.StatusPreparing, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusPreparing, To: models.StatusCancelled, Actor: ActorCustomer},
	{From: models.StatusReady, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusReady, To: models.StatusCancelled, Actor: ActorCustomer},
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// ValidTransitionsFrom returns the next states reachable by actor. An empty actor means any actor.
func ValidTransitionsFrom(status models.OrderStatus, actor Actor) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From != status || seen[t.To] {
			continue
		}
		if actor != "" && t.Actor != actor {
			continue
		}
		nexts = append(nexts, t.To)
		seen[t.To] = true
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor Actor) error {
	if !to.Valid() {
		return fmt.Errorf("unknown order status %q", to)
	}
	if from == to {
		return fmt.Errorf("order is already %s", from)
	}
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("invalid transition: %s -> %s is not allowed for %s. Valid transitions from %s are: %s",
		from, to, actor, from, describeValidFrom(from, actor))
}

func describeValidFrom(status models.OrderStatus, actor Actor) string {
	nexts := ValidTransitionsFrom(status, actor)
	if len(nexts) == 0 {
		return "none"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}
