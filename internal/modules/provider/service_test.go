package provider

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"roadassist/internal/types"
)

func register(t *testing.T, svc *Service, name string) *Provider {
	t.Helper()
	p, err := svc.Register(context.Background(), RegisterCommand{
		Name:         name,
		ServiceTypes: []string{"towing", "battery"},
		Location:     types.Point{Lat: 6.5, Lng: 3.3},
	})
	require.NoError(t, err)
	return p
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemStore(), nil, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterCommand{ServiceTypes: []string{"towing"}})
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.Register(ctx, RegisterCommand{Name: "Tow Co"})
	require.ErrorIs(t, err, ErrBadRequest)

	p := register(t, svc, "Tow Co")
	require.Equal(t, StatusActive, p.Status)
	require.NotEmpty(t, p.ID)
}

func TestSetAvailability(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()
	p := register(t, svc, "Tow Co")

	require.NoError(t, svc.SetAvailability(ctx, p.ID, false))
	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInactive, got.Status)

	require.NoError(t, svc.SetAvailability(ctx, p.ID, true))
	got, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, got.Status)

	require.ErrorIs(t, svc.SetAvailability(ctx, "missing", true), ErrNotFound)
}

func TestBusyProviderCannotChangeAvailability(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()
	p := register(t, svc, "Tow Co")

	claimed, err := store.Claim(ctx, p.ID, "req-1")
	require.NoError(t, err)
	require.True(t, claimed)

	require.ErrorIs(t, svc.SetAvailability(ctx, p.ID, false), ErrBusy)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusBusy, got.Status)
	require.NotNil(t, got.CurrentRequest)
	require.Equal(t, types.ID("req-1"), *got.CurrentRequest)
}

func TestClaimIsExclusive(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()
	p := register(t, svc, "Tow Co")

	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Claim(ctx, p.ID, "req-1")
			require.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins, "exactly one claim may win")
}

func TestReleaseReturnsProviderToActive(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()
	p := register(t, svc, "Tow Co")

	claimed, err := store.Claim(ctx, p.ID, "req-1")
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, svc.Release(ctx, p.ID))
	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, got.Status)
	require.Nil(t, got.CurrentRequest)

	// releasing an idle provider changes nothing
	require.NoError(t, svc.Release(ctx, p.ID))
	got, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, got.Status)
}

func TestUpdateLocation(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store, nil, nil)
	ctx := context.Background()
	p := register(t, svc, "Tow Co")

	next := types.Point{Lat: 6.6, Lng: 3.4}
	require.NoError(t, svc.UpdateLocation(ctx, p.ID, next))

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, next, got.Location)
}
