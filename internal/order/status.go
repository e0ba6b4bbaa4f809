package order

type Status string

const (
	StatusPaid Status = "paid"
)

// CheckoutState tracks one checkout attempt from open cart to stored order.
type CheckoutState string

const (
	StateCartOpen                CheckoutState = "cart_open"
	StateSessionCreated          CheckoutState = "session_created"
	StateAbandoned               CheckoutState = "abandoned"
	StatePaymentFailed           CheckoutState = "payment_failed"
	StatePaymentCompletedPending CheckoutState = "payment_completed_pending"
	StateOrderMaterialized       CheckoutState = "order_materialized"
)

var transitions = map[CheckoutState][]CheckoutState{
	StateCartOpen:                {StateSessionCreated},
	StateSessionCreated:          {StateAbandoned, StatePaymentFailed, StatePaymentCompletedPending},
	StatePaymentCompletedPending: {StateOrderMaterialized},
}

func (s CheckoutState) CanTransitionTo(next CheckoutState) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s CheckoutState) Terminal() bool {
	return len(transitions[s]) == 0
}
