// Package provider manages the service-provider network: records,
// availability, and the atomic busy-flag claim the matcher relies on.
package provider

import (
	"time"

	"roadassist/internal/types"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusBusy     Status = "busy"
	StatusInactive Status = "inactive"
)

type Provider struct {
	ID           types.ID
	Name         string
	ServiceTypes []string
	Status       Status
	Location     types.Point
	Rating       float64
	// CurrentRequest is set while the provider is busy.
	CurrentRequest *types.ID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p *Provider) Offers(serviceType string) bool {
	for _, st := range p.ServiceTypes {
		if st == serviceType {
			return true
		}
	}
	return false
}
