// Package request owns the ServiceRequest aggregate and its status lifecycle.
package request

import (
	"time"

	"roadassist/internal/types"
)

type ServiceType string

const (
	ServiceTowing  ServiceType = "towing"
	ServiceBattery ServiceType = "battery"
	ServiceTire    ServiceType = "tire"
	ServiceFuel    ServiceType = "fuel"
	ServiceLockout ServiceType = "lockout"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceTowing, ServiceBattery, ServiceTire, ServiceFuel, ServiceLockout:
		return true
	}
	return false
}

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPending        Status = "pending"
	StatusAccepted       Status = "accepted"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Location is where help is needed. Address is kept alongside the resolved
// coordinate for display and audit.
type Location struct {
	Address string      `json:"address"`
	Point   types.Point `json:"point"`
}

// Vehicle is snapshotted at creation time and never mutated afterwards.
type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  string `json:"year"`
	Color string `json:"color"`
}

type Request struct {
	ID            types.ID
	UserID        types.ID
	ProviderID    *types.ID
	ServiceType   ServiceType
	Status        Status
	StatusVersion int
	Location      Location
	Vehicle       Vehicle
	// Amount is set once (at creation or at payment success) and never
	// mutated afterwards.
	Amount    *types.Money
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event records one committed status transition for audit and replay.
type Event struct {
	ID         int64
	RequestID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	Reason     string
	CreatedAt  time.Time
}

// AllowedTransitions is the authoritative transition table. Anything absent
// here is rejected without touching the stored request.
var AllowedTransitions = map[Status][]Status{
	StatusPendingPayment: {StatusPending, StatusCancelled},
	StatusPending:        {StatusAccepted, StatusCancelled},
	StatusAccepted:       {StatusInProgress, StatusCancelled},
	StatusInProgress:     {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
