package statemachine

import (
	"errors"
	"fmt"
	"strings"

	"pickup-kitchen/apperr"
	"pickup-kitchen/models"
)

var (
	ErrInvalidStatus     = fmt.Errorf("%w: unknown order status", apperr.ErrInvalidInput)
	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", apperr.ErrInvalidInput)
)

// Transition defines a forward step of the pickup lifecycle
type Transition struct {
	From models.OrderStatus `json:"from"`
	To   models.OrderStatus `json:"to"`
}

// validTransitions is the strict lifecycle: one step forward at a time,
// and cancel from anything that has not finished yet.
var validTransitions = []Transition{
	{From: models.StatusPlaced, To: models.StatusConfirmed},
	{From: models.StatusPlaced, To: models.StatusCancelled},
	{From: models.StatusConfirmed, To: models.StatusPreparing},
	{From: models.StatusConfirmed, To: models.StatusCancelled},
	{From: models.StatusPreparing, To: models.StatusOutForDelivery},
	{From: models.StatusPreparing, To: models.StatusCancelled},
	{From: models.StatusOutForDelivery, To: models.StatusDelivered},
	{From: models.StatusOutForDelivery, To: models.StatusCancelled},
}

type transitionKey struct {
	From models.OrderStatus
	To   models.OrderStatus
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To}] = true
	}
	return m
}()

// Policy decides whether an owner may write a status. The zero value is
// lenient: any known status can be written over any other.
type Policy struct {
	Strict bool
}

// Check validates moving an order from one status to another.
func (p Policy) Check(from, to models.OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, int(to))
	}
	if !p.Strict {
		return nil
	}
	return CanTransition(from, to)
}

// ValidTransitionsFrom returns all strict next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, t := range validTransitions {
		if t.From == status {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition checks the strict lifecycle table.
func CanTransition(from, to models.OrderStatus) error {
	if transitionMap[transitionKey{From: from, To: to}] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s, valid next states from %s: %s",
		ErrInvalidTransition, from, to, from, describeValidFrom(from))
}

// IsTransitionError reports whether err came from a rejected transition.
func IsTransitionError(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
