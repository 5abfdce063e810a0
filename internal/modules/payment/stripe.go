package payment

import (
	"context"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"roadassist/internal/types"
)

// StripeGateway collects funds through Stripe PaymentIntents. The intent id
// becomes the payment reference; verification retrieves the intent and maps
// its status onto the common VerifyResult.
type StripeGateway struct{}

func NewStripeGateway(apiKey string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{}
}

func (s *StripeGateway) Initialize(ctx context.Context, params InitParams) (InitResult, error) {
	p := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(params.Amount.Amount),
		Currency:     stripe.String(strings.ToLower(params.Amount.Currency)),
		ReceiptEmail: stripe.String(params.Email),
	}
	p.AddMetadata("request_id", string(params.RequestID))
	p.AddMetadata("reference", params.Reference)

	pi, err := paymentintent.New(p)
	if err != nil {
		return InitResult{}, err
	}
	return InitResult{Reference: pi.ID, AccessCode: pi.ClientSecret}, nil
}

func (s *StripeGateway) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	pi, err := paymentintent.Get(reference, nil)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		Reference: pi.ID,
		Succeeded: pi.Status == stripe.PaymentIntentStatusSucceeded,
		Amount:    types.Money{Amount: pi.Amount, Currency: strings.ToUpper(string(pi.Currency))},
		RequestID: types.ID(pi.Metadata["request_id"]),
		Method:    "card",
	}, nil
}
