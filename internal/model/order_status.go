package model

// OrderStatus is the closed set of states a service order moves through.
type OrderStatus string

const (
	OrderPending          OrderStatus = "pending"
	OrderInProgress       OrderStatus = "in_progress"
	OrderAwaitingParts    OrderStatus = "awaiting_parts"
	OrderServicesFinished OrderStatus = "services_finished"
	OrderFinalized        OrderStatus = "finalized"
	OrderCancelled        OrderStatus = "cancelled"
)

// orderTransitions is the only place allowed moves are declared.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:          {OrderInProgress, OrderCancelled},
	OrderInProgress:       {OrderAwaitingParts, OrderServicesFinished, OrderCancelled},
	OrderAwaitingParts:    {OrderInProgress, OrderCancelled},
	OrderServicesFinished: {OrderFinalized, OrderInProgress, OrderCancelled},
	OrderFinalized:        {},
	OrderCancelled:        {},
}

// Valid reports whether s is one of the declared statuses.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Terminal reports whether no further transitions leave s.
func (s OrderStatus) Terminal() bool {
	return s == OrderFinalized || s == OrderCancelled
}

// CanTransitionTo reports whether s → next is in the transition table.
// Same-status requests are not transitions and return false.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
