package payment

import (
	"context"

	"roadassist/internal/types"
)

// InitParams is what a gateway needs to open a payment intent.
type InitParams struct {
	Reference   string
	Amount      types.Money // minor units
	Email       string
	RequestID   types.ID
	CallbackURL string
}

// InitResult carries whatever the client needs to collect funds.
type InitResult struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
	AccessCode       string `json:"access_code,omitempty"`
}

// VerifyResult is the gateway's answer for a reference. Amounts are minor
// currency units, matching the internal representation.
type VerifyResult struct {
	Reference string
	Succeeded bool
	Amount    types.Money
	RequestID types.ID
	Method    string
}

// Gateway is the external payment collaborator boundary. Verify errors mean
// the gateway could not be asked (transport failure, timeout); a reachable
// gateway that declines the payment answers Succeeded = false, not an error.
type Gateway interface {
	Initialize(ctx context.Context, params InitParams) (InitResult, error)
	Verify(ctx context.Context, reference string) (VerifyResult, error)
}
