package domain

import (
	"time"

	"github.com/google/uuid"
)

type CadenceKind string

const (
	CadenceReminder CadenceKind = "reminder"
	CadenceFollowup CadenceKind = "followup"
)

// CadenceRecord marks that one step of a cadence was sent for one assignment.
type CadenceRecord struct {
	ID           uuid.UUID
	AssignmentID uuid.UUID
	Cadence      CadenceKind
	StepKey      string
	SentAt       time.Time
}

// CadenceCandidate is an assignment eligible for a cadence, plus the data the message needs.
type CadenceCandidate struct {
	Assignment   Assignment
	ContactEmail string
	BusinessName string
	// SentSteps holds the step keys already recorded for this cadence.
	SentSteps map[string]bool
}
