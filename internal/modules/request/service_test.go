package request

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roadassist/internal/modules/pricing"
	"roadassist/internal/types"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// happy-path forward transitions
		{StatusPendingPayment, StatusPending, true},
		{StatusPending, StatusAccepted, true},
		{StatusAccepted, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		// cancellation is allowed up to and including accepted
		{StatusPendingPayment, StatusCancelled, true},
		{StatusPending, StatusCancelled, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusInProgress, StatusCancelled, false},
		{StatusCompleted, StatusCancelled, false},
		// no backward moves
		{StatusCompleted, StatusPending, false},
		{StatusPending, StatusPendingPayment, false},
		{StatusAccepted, StatusPending, false},
		{StatusInProgress, StatusAccepted, false},
		// no skipping
		{StatusPendingPayment, StatusAccepted, false},
		{StatusPending, StatusInProgress, false},
		{StatusPending, StatusCompleted, false},
		{StatusAccepted, StatusCompleted, false},
		// terminal states have no outgoing transitions
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCancelled, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

type fakeReleaser struct {
	mu       sync.Mutex
	released []types.ID
}

func (f *fakeReleaser) Release(ctx context.Context, id types.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, id)
	return nil
}

func newTestService(t *testing.T) (*Service, *MemStore, *fakeReleaser) {
	t.Helper()
	store := NewMemStore()
	rel := &fakeReleaser{}
	svc := NewService(ServiceDeps{
		Store:    store,
		Pricing:  pricing.NewEngine(pricing.DefaultRates()),
		Releaser: rel,
	})
	return svc, store, rel
}

func mustCreate(t *testing.T, svc *Service, userID types.ID) *Request {
	t.Helper()
	r, err := svc.Create(context.Background(), CreateCommand{
		UserID:      userID,
		ServiceType: ServiceTowing,
		Address:     "12 Marina Rd",
		Point:       &types.Point{Lat: 6.45, Lng: 3.40},
		Vehicle:     Vehicle{Make: "Toyota", Model: "Corolla", Year: "2018", Color: "silver"},
	})
	require.NoError(t, err)
	return r
}

func assertStatus(t *testing.T, svc *Service, id types.ID, want Status) {
	t.Helper()
	r, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, want, r.Status)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateCommand{ServiceType: ServiceTowing, Point: &types.Point{Lat: 1, Lng: 1}, Vehicle: Vehicle{Make: "a", Model: "b"}})
	require.ErrorIs(t, err, ErrBadRequest, "missing user id")

	_, err = svc.Create(ctx, CreateCommand{UserID: "u1", ServiceType: "jetpack", Point: &types.Point{Lat: 1, Lng: 1}, Vehicle: Vehicle{Make: "a", Model: "b"}})
	require.ErrorIs(t, err, ErrBadRequest, "unknown service type")

	_, err = svc.Create(ctx, CreateCommand{UserID: "u1", ServiceType: ServiceFuel, Point: &types.Point{Lat: 1, Lng: 1}})
	require.ErrorIs(t, err, ErrBadRequest, "missing vehicle snapshot")

	// no coordinates and no geocoder configured
	_, err = svc.Create(ctx, CreateCommand{UserID: "u1", ServiceType: ServiceFuel, Address: "somewhere", Vehicle: Vehicle{Make: "a", Model: "b"}})
	require.ErrorIs(t, err, ErrBadRequest)
}

func TestCreateSetsAmountOnce(t *testing.T) {
	svc, store, _ := newTestService(t)
	r := mustCreate(t, svc, "u_amount")

	require.NotNil(t, r.Amount)
	first := *r.Amount

	ok, err := store.SetAmount(context.Background(), r.ID, types.Money{Amount: 999, Currency: "NGN"})
	require.NoError(t, err)
	require.False(t, ok, "amount must not be overwritten")

	got, err := svc.Get(context.Background(), r.ID)
	require.NoError(t, err)
	require.Equal(t, first, *got.Amount)
}

func TestLifecycleHappyPath(t *testing.T) {
	svc, _, rel := newTestService(t)
	ctx := context.Background()

	r := mustCreate(t, svc, "u_happy")
	assertStatus(t, svc, r.ID, StatusPendingPayment)

	require.NoError(t, svc.MarkPaid(ctx, r.ID))
	assertStatus(t, svc, r.ID, StatusPending)

	require.NoError(t, svc.Assign(ctx, AssignCommand{RequestID: r.ID, ProviderID: "pr1"}))
	assertStatus(t, svc, r.ID, StatusAccepted)

	require.NoError(t, svc.Start(ctx, StartCommand{RequestID: r.ID, ProviderID: "pr1"}))
	assertStatus(t, svc, r.ID, StatusInProgress)

	require.NoError(t, svc.Complete(ctx, CompleteCommand{RequestID: r.ID, ProviderID: "pr1"}))
	assertStatus(t, svc, r.ID, StatusCompleted)

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProviderID)
	require.Equal(t, types.ID("pr1"), *got.ProviderID)
	require.Equal(t, []types.ID{"pr1"}, rel.released)
}

func TestInvalidTransitionsLeaveStateUnchanged(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r := mustCreate(t, svc, "u_invalid")

	// cannot assign or start before payment
	require.ErrorIs(t, svc.Assign(ctx, AssignCommand{RequestID: r.ID, ProviderID: "pr1"}), ErrInvalidState)
	assertStatus(t, svc, r.ID, StatusPendingPayment)

	require.NoError(t, svc.MarkPaid(ctx, r.ID))

	// cannot re-run the payment transition
	require.ErrorIs(t, svc.MarkPaid(ctx, r.ID), ErrInvalidState)
	assertStatus(t, svc, r.ID, StatusPending)

	require.NoError(t, svc.Assign(ctx, AssignCommand{RequestID: r.ID, ProviderID: "pr1"}))
	require.NoError(t, svc.Start(ctx, StartCommand{RequestID: r.ID, ProviderID: "pr1"}))

	// cancellation is not allowed once work has started
	err := svc.Cancel(ctx, CancelCommand{RequestID: r.ID, ActorType: "user", Reason: "changed my mind"})
	require.ErrorIs(t, err, ErrInvalidState)
	assertStatus(t, svc, r.ID, StatusInProgress)

	require.NoError(t, svc.Complete(ctx, CompleteCommand{RequestID: r.ID, ProviderID: "pr1"}))

	// completed is terminal
	require.ErrorIs(t, svc.Start(ctx, StartCommand{RequestID: r.ID, ProviderID: "pr1"}), ErrInvalidState)
	assertStatus(t, svc, r.ID, StatusCompleted)
}

func TestStartRequiresAssignedProvider(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r := mustCreate(t, svc, "u_actor")
	require.NoError(t, svc.MarkPaid(ctx, r.ID))
	require.NoError(t, svc.Assign(ctx, AssignCommand{RequestID: r.ID, ProviderID: "pr1"}))

	require.ErrorIs(t, svc.Start(ctx, StartCommand{RequestID: r.ID, ProviderID: "pr2"}), ErrBadRequest)
	assertStatus(t, svc, r.ID, StatusAccepted)
}

func TestCancelReleasesProvider(t *testing.T) {
	svc, _, rel := newTestService(t)
	ctx := context.Background()

	r := mustCreate(t, svc, "u_cancel_rel")
	require.NoError(t, svc.MarkPaid(ctx, r.ID))
	require.NoError(t, svc.Assign(ctx, AssignCommand{RequestID: r.ID, ProviderID: "pr9"}))

	require.NoError(t, svc.Cancel(ctx, CancelCommand{RequestID: r.ID, ActorType: "user", Reason: "user_cancel"}))
	assertStatus(t, svc, r.ID, StatusCancelled)
	require.Equal(t, []types.ID{"pr9"}, rel.released)
}

func TestConcurrentPaidVsCancel(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r := mustCreate(t, svc, "u_race")

	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		errs <- svc.MarkPaid(ctx, r.ID)
	}()
	go func() {
		defer wg.Done()
		<-start
		errs <- svc.Cancel(ctx, CancelCommand{RequestID: r.ID, ActorType: "user", Reason: "user_cancel"})
	}()
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		require.ErrorIs(t, err, ErrInvalidState)
	}
	require.Equal(t, 1, success, "exactly one of paid/cancel may win")

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Contains(t, []Status{StatusPending, StatusCancelled}, got.Status)
}

func TestEventsRecordedPerTransition(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	r := mustCreate(t, svc, "u_events")
	require.NoError(t, svc.MarkPaid(ctx, r.ID))
	require.NoError(t, svc.Assign(ctx, AssignCommand{RequestID: r.ID, ProviderID: "pr1"}))

	evts := store.Events()
	require.Len(t, evts, 3)
	require.Equal(t, StatusPendingPayment, evts[0].ToStatus)
	require.Equal(t, StatusPending, evts[1].ToStatus)
	require.Equal(t, StatusAccepted, evts[2].ToStatus)
	require.Equal(t, StatusPendingPayment, evts[1].FromStatus)
}

func TestForceStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r := mustCreate(t, svc, "u_force")

	// admin can jump outside the table
	require.NoError(t, svc.ForceStatus(ctx, ForceStatusCommand{RequestID: r.ID, Status: StatusAccepted, AdminID: "adm1"}))
	assertStatus(t, svc, r.ID, StatusAccepted)

	// idempotent when already there
	require.NoError(t, svc.ForceStatus(ctx, ForceStatusCommand{RequestID: r.ID, Status: StatusAccepted, AdminID: "adm1"}))

	require.ErrorIs(t, svc.ForceStatus(ctx, ForceStatusCommand{RequestID: r.ID, Status: "warp", AdminID: "adm1"}), ErrBadRequest)
}

func TestForceStatusToTerminalReleasesProvider(t *testing.T) {
	svc, _, rel := newTestService(t)
	ctx := context.Background()

	r := mustCreate(t, svc, "u_force_rel")
	require.NoError(t, svc.MarkPaid(ctx, r.ID))
	require.NoError(t, svc.Assign(ctx, AssignCommand{RequestID: r.ID, ProviderID: "pr_leak"}))

	require.NoError(t, svc.ForceStatus(ctx, ForceStatusCommand{RequestID: r.ID, Status: StatusCancelled, AdminID: "adm1"}))
	assertStatus(t, svc, r.ID, StatusCancelled)
	require.Equal(t, []types.ID{"pr_leak"}, rel.released,
		"provider should be released when its request is force-cancelled")

	// forced completion releases as well
	r2 := mustCreate(t, svc, "u_force_done")
	require.NoError(t, svc.MarkPaid(ctx, r2.ID))
	require.NoError(t, svc.Assign(ctx, AssignCommand{RequestID: r2.ID, ProviderID: "pr_done"}))
	require.NoError(t, svc.ForceStatus(ctx, ForceStatusCommand{RequestID: r2.ID, Status: StatusCompleted, AdminID: "adm1"}))
	require.Equal(t, []types.ID{"pr_leak", "pr_done"}, rel.released)
}

func TestCreateAcceptsZeroCoordinate(t *testing.T) {
	svc, _, _ := newTestService(t)

	// (0,0) is a real position, not an absent one
	r, err := svc.Create(context.Background(), CreateCommand{
		UserID:      "u_null_island",
		ServiceType: ServiceBattery,
		Point:       &types.Point{},
		Vehicle:     Vehicle{Make: "Honda", Model: "Civic"},
	})
	require.NoError(t, err)
	require.Equal(t, types.Point{}, r.Location.Point)
	assertStatus(t, svc, r.ID, StatusPendingPayment)
}

func TestExpirySweepCancelsStaleRequests(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stale := &Request{
		ID:          "req_stale",
		UserID:      "u_stale",
		ServiceType: ServiceBattery,
		Status:      StatusPendingPayment,
		Vehicle:     Vehicle{Make: "Honda", Model: "Civic"},
		CreatedAt:   time.Now().Add(-time.Hour),
		UpdatedAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Create(ctx, stale))
	fresh := mustCreate(t, svc, "u_fresh")

	go svc.RunExpirySweep(ctx, 30*time.Minute, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		r, err := svc.Get(context.Background(), stale.ID)
		return err == nil && r.Status == StatusCancelled
	}, time.Second, 10*time.Millisecond)

	assertStatus(t, svc, fresh.ID, StatusPendingPayment)
}
