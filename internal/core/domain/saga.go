package domain

import (
	"errors"
	"fmt"
)

type SagaState string

const (
	SagaPending            SagaState = "pending"
	SagaProductCommitted   SagaState = "product_committed"
	SagaInventoryRequested SagaState = "inventory_requested"
	SagaCompensated        SagaState = "compensated"
	SagaFailedNeedsCleanup SagaState = "failed_needs_cleanup"
	SagaDone               SagaState = "done"
)

var ErrInvalidSagaTransition = errors.New("invalid saga transition")

var sagaTransitions = map[SagaState][]SagaState{
	SagaPending:            {SagaProductCommitted},
	SagaProductCommitted:   {SagaInventoryRequested, SagaDone},
	SagaInventoryRequested: {SagaDone, SagaCompensated, SagaFailedNeedsCleanup},
}

func (s SagaState) Terminal() bool {
	return len(sagaTransitions[s]) == 0
}

// CreationSaga tracks one product creation. It lives for a single request.
type CreationSaga struct {
	ProductID string
	State     SagaState
	History   []SagaState
}

func NewCreationSaga() *CreationSaga {
	return &CreationSaga{State: SagaPending, History: []SagaState{SagaPending}}
}

func (s *CreationSaga) Advance(next SagaState) error {
	for _, allowed := range sagaTransitions[s.State] {
		if allowed == next {
			s.State = next
			s.History = append(s.History, next)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidSagaTransition, s.State, next)
}

type SagaOutcome string

const (
	OutcomeSuccessWithInventory        SagaOutcome = "success_with_inventory"
	OutcomeSuccessWithoutInventory     SagaOutcome = "success_without_inventory"
	OutcomeSuccessWithUnknownInventory SagaOutcome = "success_with_unknown_inventory"
	OutcomeCompensatedFailure          SagaOutcome = "compensated_failure"
	OutcomeUncompensatedFailure        SagaOutcome = "uncompensated_failure"
)

func (o SagaOutcome) Succeeded() bool {
	switch o {
	case OutcomeSuccessWithInventory, OutcomeSuccessWithoutInventory, OutcomeSuccessWithUnknownInventory:
		return true
	}
	return false
}

// CreationResult describes a creation that got past the product write.
// Product is nil when the saga removed it again.
type CreationResult struct {
	Outcome   SagaOutcome
	State     SagaState
	Product   *Product
	Inventory *InventoryRecord
	Warning   string
}
