package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"roadassist/internal/modules/request"
	"roadassist/internal/observability"
	"roadassist/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	// ErrVerificationFailed means the gateway declined the payment or could
	// not be reached. The payment is marked failed; the request stays in
	// pending_payment so the user can retry.
	ErrVerificationFailed = errors.New("payment verification failed")
	// ErrConflict means another payment attempt won a concurrent initialize
	// race; the caller should re-fetch and use the surviving attempt.
	ErrConflict = errors.New("another payment attempt is already active")
)

// Requests is the slice of the request service the reconciler drives.
type Requests interface {
	Get(ctx context.Context, id types.ID) (*request.Request, error)
	MarkPaid(ctx context.Context, id types.ID) error
	SetAmountIfUnset(ctx context.Context, id types.ID, amount types.Money) error
}

type Service struct {
	store         Store
	gateway       Gateway
	requests      Requests
	logger        *zap.Logger
	callbackURL   string
	verifyTimeout time.Duration
}

type ServiceDeps struct {
	Store         Store
	Gateway       Gateway
	Requests      Requests
	Logger        *zap.Logger
	CallbackURL   string
	VerifyTimeout time.Duration
}

func NewService(deps ServiceDeps) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.VerifyTimeout <= 0 {
		deps.VerifyTimeout = 10 * time.Second
	}
	return &Service{
		store:         deps.Store,
		gateway:       deps.Gateway,
		requests:      deps.Requests,
		logger:        deps.Logger,
		callbackURL:   deps.CallbackURL,
		verifyTimeout: deps.VerifyTimeout,
	}
}

// Result is the reconciled state of a payment reference.
type Result struct {
	Reference string      `json:"reference"`
	RequestID types.ID    `json:"request_id"`
	Status    Status      `json:"status"`
	Amount    types.Money `json:"amount"`
}

// Initialize opens a payment for a request awaiting payment. Any earlier
// pending attempt for the request is superseded so the request keeps exactly
// one active payment.
func (s *Service) Initialize(ctx context.Context, requestID types.ID, email string) (InitResult, error) {
	if email == "" {
		return InitResult{}, ErrBadRequest
	}
	r, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return InitResult{}, err
	}
	if r.Status != request.StatusPendingPayment {
		return InitResult{}, request.ErrInvalidState
	}
	if r.Amount == nil {
		return InitResult{}, ErrBadRequest
	}

	if prev, err := s.store.GetActiveByRequest(ctx, requestID); err == nil && prev.Status == StatusPending {
		if _, err := s.store.MarkFailed(ctx, prev.Reference); err != nil {
			return InitResult{}, err
		}
	}

	reference := uuid.NewString()
	res, err := s.gateway.Initialize(ctx, InitParams{
		Reference:   reference,
		Amount:      *r.Amount,
		Email:       email,
		RequestID:   requestID,
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		return InitResult{}, err
	}
	if res.Reference != "" {
		reference = res.Reference
	} else {
		res.Reference = reference
	}

	now := time.Now()
	err = s.store.Create(ctx, &Payment{
		ID:        types.ID(uuid.NewString()),
		RequestID: requestID,
		Reference: reference,
		Amount:    *r.Amount,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Is(err, ErrDuplicate) {
		// lost an initialize race: the other attempt's row is authoritative
		return InitResult{}, ErrConflict
	}
	if err != nil {
		return InitResult{}, err
	}
	return res, nil
}

// Reconcile verifies a reference against the gateway and applies the result
// exactly once. It is safe under duplicate and out-of-order delivery: a
// reference that has already succeeded skips the gateway, but still re-drives
// the request side in case an earlier attempt committed the payment and then
// failed before advancing the request.
func (s *Service) Reconcile(ctx context.Context, reference string) (Result, error) {
	p, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return Result{}, err
	}
	if p.Status == StatusSuccess {
		if err := s.advanceRequest(ctx, p); err != nil {
			return Result{}, err
		}
		return resultOf(p), nil
	}

	vctx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	vr, err := s.gateway.Verify(vctx, reference)
	cancel()
	if err != nil {
		return s.fail(ctx, p, err)
	}
	if !vr.Succeeded {
		return s.fail(ctx, p, nil)
	}
	if vr.Amount != p.Amount {
		s.logger.Warn("verified amount mismatch",
			zap.String("reference", reference),
			zap.Int64("expected", p.Amount.Amount),
			zap.String("expected_currency", p.Amount.Currency),
			zap.Int64("verified", vr.Amount.Amount),
			zap.String("verified_currency", vr.Amount.Currency),
		)
		return s.fail(ctx, p, nil)
	}

	committed, err := s.store.MarkSuccess(ctx, reference, vr.Method)
	if err != nil {
		return Result{}, err
	}
	if !committed {
		// a concurrent reconciliation got there first
		cur, err := s.store.GetByReference(ctx, reference)
		if err != nil {
			return Result{}, err
		}
		if cur.Status == StatusSuccess {
			if err := s.advanceRequest(ctx, cur); err != nil {
				return Result{}, err
			}
		}
		return resultOf(cur), nil
	}

	if err := s.advanceRequest(ctx, p); err != nil {
		return Result{}, err
	}

	observability.ReconciliationsTotal.WithLabelValues(string(StatusSuccess)).Inc()
	p.Status = StatusSuccess
	return resultOf(p), nil
}

// advanceRequest moves the request out of pending_payment for a successful
// payment. Idempotent: a request that already advanced is left alone.
func (s *Service) advanceRequest(ctx context.Context, p *Payment) error {
	if err := s.requests.SetAmountIfUnset(ctx, p.RequestID, p.Amount); err != nil {
		s.logger.Warn("set amount failed", zap.String("request_id", string(p.RequestID)), zap.Error(err))
	}
	if err := s.requests.MarkPaid(ctx, p.RequestID); err != nil && !errors.Is(err, request.ErrInvalidState) {
		return err
	}
	return nil
}

func (s *Service) fail(ctx context.Context, p *Payment, cause error) (Result, error) {
	if _, err := s.store.MarkFailed(ctx, p.Reference); err != nil {
		return Result{}, err
	}
	observability.ReconciliationsTotal.WithLabelValues(string(StatusFailed)).Inc()
	p.Status = StatusFailed
	if cause != nil {
		return resultOf(p), errors.Join(ErrVerificationFailed, cause)
	}
	return resultOf(p), ErrVerificationFailed
}

func resultOf(p *Payment) Result {
	return Result{
		Reference: p.Reference,
		RequestID: p.RequestID,
		Status:    p.Status,
		Amount:    p.Amount,
	}
}
