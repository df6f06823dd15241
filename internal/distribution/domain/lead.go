package domain

import (
	"time"

	"github.com/google/uuid"
)

// Location is where the work is needed. City matching is case-insensitive, state is exact.
type Location struct {
	City       string
	State      string
	PostalCode *string
}

// Scope describes the requested insulation work.
type Scope struct {
	HomeSizeSqft    *int
	AreasNeeded     []string
	InsulationTypes []string
}

// Contact is the customer contact information attached to a lead.
type Contact struct {
	Name  string
	Email string
	Phone *string
}

// Lead is a customer service request. It is written by intake and read-only here.
type Lead struct {
	ID        uuid.UUID
	Location  Location
	Scope     Scope
	Contact   Contact
	CreatedAt time.Time
}
