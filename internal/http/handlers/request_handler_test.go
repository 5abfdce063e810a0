// Integration tests for the API surface over in-memory stores.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	httptransport "roadassist/internal/http"
	"roadassist/internal/modules/matching"
	"roadassist/internal/modules/payment"
	"roadassist/internal/modules/pricing"
	"roadassist/internal/modules/provider"
	"roadassist/internal/modules/request"
	"roadassist/internal/types"

	"roadassist/internal/config"
)

type okGateway struct{}

func (okGateway) Initialize(_ context.Context, params payment.InitParams) (payment.InitResult, error) {
	return payment.InitResult{
		Reference:        params.Reference,
		AuthorizationURL: "https://checkout.example/" + params.Reference,
	}, nil
}

func (okGateway) Verify(_ context.Context, reference string) (payment.VerifyResult, error) {
	return payment.VerifyResult{Reference: reference, Succeeded: true, Method: "card"}, nil
}

// verifyGateway echoes a fixed amount so reconciliation can match it.
type verifyGateway struct {
	okGateway
	amount int64
}

func (g verifyGateway) Verify(_ context.Context, reference string) (payment.VerifyResult, error) {
	return payment.VerifyResult{
		Reference: reference,
		Succeeded: true,
		Amount:    types.Money{Amount: g.amount, Currency: "NGN"},
		Method:    "card",
	}, nil
}

type api struct {
	router    *gin.Engine
	requests  *request.Service
	providers *provider.Service
	setAmount func(amount int64)
}

func buildTestAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	providerStore := provider.NewMemStore()
	providerSvc := provider.NewService(providerStore, nil, nil)

	requestSvc := request.NewService(request.ServiceDeps{
		Store:    request.NewMemStore(),
		Pricing:  pricing.NewEngine(pricing.DefaultRates()),
		Releaser: providerSvc,
	})

	gw := &verifyGateway{}
	paymentSvc := payment.NewService(payment.ServiceDeps{
		Store:    payment.NewMemStore(),
		Gateway:  gw,
		Requests: requestSvc,
	})

	matchingSvc := matching.NewService(providerStore, requestSvc, nil,
		config.MatchingConfig{RadiusKm: 50}, nil)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Requests:  requestSvc,
		Providers: providerSvc,
		Matching:  matchingSvc,
		Payments:  paymentSvc,
	})
	return &api{
		router:    router,
		requests:  requestSvc,
		providers: providerSvc,
		setAmount: func(amount int64) { gw.amount = amount },
	}
}

func (a *api) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func createBody() map[string]any {
	return map[string]any{
		"user_id":      "user-1",
		"service_type": "towing",
		"lat":          6.52,
		"lng":          3.37,
		"vehicle":      map[string]any{"make": "Toyota", "model": "Corolla", "year": "2019"},
	}
}

func TestCreateRequest(t *testing.T) {
	a := buildTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/requests", createBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	out := decode[map[string]any](t, w)
	require.Equal(t, "pending_payment", out["status"])
	require.NotEmpty(t, out["id"])
	require.NotNil(t, out["amount"])
}

func TestCreateRequestValidation(t *testing.T) {
	a := buildTestAPI(t)

	body := createBody()
	body["service_type"] = "helicopter"
	w := a.do(t, http.MethodPost, "/api/requests", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body = createBody()
	delete(body, "vehicle")
	w = a.do(t, http.MethodPost, "/api/requests", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRequestNotFound(t *testing.T) {
	a := buildTestAPI(t)
	w := a.do(t, http.MethodGet, "/api/requests/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	a := buildTestAPI(t)

	// provider signs up near the breakdown site
	w := a.do(t, http.MethodPost, "/api/providers", map[string]any{
		"name":          "Tow Co",
		"service_types": []string{"towing"},
		"lat":           6.50,
		"lng":           3.35,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	providerID := decode[map[string]any](t, w)["id"].(string)

	// user raises a request
	w = a.do(t, http.MethodPost, "/api/requests", createBody())
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[map[string]any](t, w)
	requestID := created["id"].(string)
	amount := created["amount"].(map[string]any)["amount"].(float64)
	a.setAmount(int64(amount))

	// pay
	w = a.do(t, http.MethodPost, "/api/payments/initialize", map[string]any{
		"request_id": requestID,
		"email":      "user@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reference := decode[map[string]any](t, w)["reference"].(string)

	w = a.do(t, http.MethodPost, "/api/payments/webhook", map[string]any{"reference": reference})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "success", decode[map[string]any](t, w)["status"])

	// operator assigns, provider works the job
	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/admin/requests/%s/assign", requestID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, providerID, decode[map[string]any](t, w)["provider_id"])

	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/requests/%s/start", requestID), map[string]any{"provider_id": providerID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/requests/%s/complete", requestID), map[string]any{"provider_id": providerID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodGet, "/api/requests/"+requestID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "completed", decode[map[string]any](t, w)["status"])

	// provider is free again
	p, err := a.providers.Get(context.Background(), types.ID(providerID))
	require.NoError(t, err)
	require.Equal(t, provider.StatusActive, p.Status)
}

func TestCancelCompletedRequestConflicts(t *testing.T) {
	a := buildTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/requests", createBody())
	requestID := decode[map[string]any](t, w)["id"].(string)

	// operator forces it through to completed
	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/admin/requests/%s/force-status", requestID),
		map[string]any{"status": "completed", "admin_id": "admin-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/requests/%s/cancel", requestID),
		map[string]any{"user_id": "user-1"})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAssignWithoutProvidersConflicts(t *testing.T) {
	a := buildTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/requests", createBody())
	requestID := decode[map[string]any](t, w)["id"].(string)

	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/admin/requests/%s/force-status", requestID),
		map[string]any{"status": "pending", "admin_id": "admin-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/admin/requests/%s/assign", requestID), nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "no provider")
}

func TestPendingQueue(t *testing.T) {
	a := buildTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/requests", createBody())
	requestID := decode[map[string]any](t, w)["id"].(string)
	w = a.do(t, http.MethodPost, fmt.Sprintf("/api/admin/requests/%s/force-status", requestID),
		map[string]any{"status": "pending", "admin_id": "admin-1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodGet, "/api/admin/requests/pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), requestID)
}
