package models

// OrderStatus is the lifecycle state of an order. Finalized is terminal.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFinalized OrderStatus = "finalized"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderFinalized},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return allowed(orderTransitions[s], next)
}

// EntryStatus is the approval state of an inventory entry. Approved and
// rejected are terminal.
type EntryStatus string

const (
	EntryPending  EntryStatus = "pending"
	EntryApproved EntryStatus = "approved"
	EntryRejected EntryStatus = "rejected"
)

var entryTransitions = map[EntryStatus][]EntryStatus{
	EntryPending: {EntryApproved, EntryRejected},
}

func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	return allowed(entryTransitions[s], next)
}

func allowed[S comparable](edges []S, next S) bool {
	for _, e := range edges {
		if e == next {
			return true
		}
	}
	return false
}
