package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"roadassist/internal/types"
)

// PaystackGateway talks to a reference-verify style gateway over HTTP:
// initialize opens a checkout session, verify reports the final result for a
// reference. Amounts on the wire are minor currency units.
type PaystackGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewPaystackGateway(baseURL, secretKey string, timeout time.Duration) *PaystackGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PaystackGateway{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

func (g *PaystackGateway) Initialize(ctx context.Context, params InitParams) (InitResult, error) {
	body, err := json.Marshal(map[string]any{
		"email":        params.Email,
		"amount":       params.Amount.Amount,
		"currency":     params.Amount.Currency,
		"reference":    params.Reference,
		"callback_url": params.CallbackURL,
		"metadata":     map[string]string{"request_id": string(params.RequestID)},
	})
	if err != nil {
		return InitResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return InitResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return InitResult{}, err
	}
	defer resp.Body.Close()

	var out struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return InitResult{}, err
	}
	if !out.Status {
		return InitResult{}, fmt.Errorf("gateway initialize declined: %s", out.Message)
	}
	return InitResult{
		Reference:        out.Data.Reference,
		AuthorizationURL: out.Data.AuthorizationURL,
		AccessCode:       out.Data.AccessCode,
	}, nil
}

func (g *PaystackGateway) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return VerifyResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return VerifyResult{}, err
	}
	defer resp.Body.Close()

	var out struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Status   string `json:"status"`
			Channel  string `json:"channel"`
			Metadata struct {
				RequestID string `json:"request_id"`
			} `json:"metadata"`
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return VerifyResult{}, err
	}
	if !out.Status {
		return VerifyResult{}, fmt.Errorf("gateway verify declined: %s", out.Message)
	}
	return VerifyResult{
		Reference: out.Data.Reference,
		Succeeded: out.Data.Status == "success",
		Amount:    types.Money{Amount: out.Data.Amount, Currency: out.Data.Currency},
		RequestID: types.ID(out.Data.Metadata.RequestID),
		Method:    out.Data.Channel,
	}, nil
}
