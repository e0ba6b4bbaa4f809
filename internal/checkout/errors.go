package checkout

import "fmt"

// ProviderError is a rejection or outage on the payment provider's side.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider: %s", e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }
