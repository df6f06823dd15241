package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalSuspended ApprovalStatus = "suspended"
)

// PaymentPreference decides how a contractor is charged for leads.
type PaymentPreference string

const (
	PayPerLead      PaymentPreference = "pay_per_lead"
	PayOnCompletion PaymentPreference = "pay_on_completion"
)

// ServiceArea is a city/state pair a contractor works in.
type ServiceArea struct {
	City  string
	State string
}

// Matches applies the eligibility rule: city case-insensitive, state exact.
func (a ServiceArea) Matches(loc Location) bool {
	return strings.EqualFold(strings.TrimSpace(a.City), strings.TrimSpace(loc.City)) && a.State == loc.State
}

// Contractor is a service provider that receives leads.
type Contractor struct {
	ID                uuid.UUID
	BusinessName      string
	ContactEmail      string
	ApprovalStatus    ApprovalStatus
	PaymentPreference PaymentPreference
	CreditBalance     int
	ServiceAreas      []ServiceArea
	CreatedAt         time.Time
}

// Serves reports whether any of the contractor's service areas covers loc.
func (c Contractor) Serves(loc Location) bool {
	for _, area := range c.ServiceAreas {
		if area.Matches(loc) {
			return true
		}
	}
	return false
}
