package service

import (
	"context"

	"insulationpal_backend/internal/distribution/domain"

	"github.com/google/uuid"
)

// LeadSummary counts a lead's assignments by status.
type LeadSummary struct {
	LeadID uuid.UUID
	Counts domain.StatusCounts
	Active int
}

// ContractorSummary counts a contractor's assignments by status.
type ContractorSummary struct {
	ContractorID uuid.UUID
	Counts       domain.StatusCounts
	Active       int
}

func (s *Service) LeadSummary(ctx context.Context, leadID uuid.UUID) (LeadSummary, error) {
	if _, err := s.store.GetLead(ctx, leadID); err != nil {
		return LeadSummary{}, err
	}
	counts, err := s.store.CountByLead(ctx, leadID)
	if err != nil {
		return LeadSummary{}, err
	}
	return LeadSummary{LeadID: leadID, Counts: counts, Active: counts.Active()}, nil
}

func (s *Service) ContractorSummary(ctx context.Context, contractorID uuid.UUID) (ContractorSummary, error) {
	counts, err := s.store.CountByContractor(ctx, contractorID)
	if err != nil {
		return ContractorSummary{}, err
	}
	return ContractorSummary{ContractorID: contractorID, Counts: counts, Active: counts.Active()}, nil
}

// LeadAssignments lists every assignment of a lead, oldest first.
func (s *Service) LeadAssignments(ctx context.Context, leadID uuid.UUID) ([]domain.Assignment, error) {
	if _, err := s.store.GetLead(ctx, leadID); err != nil {
		return nil, err
	}
	return s.store.ListByLead(ctx, leadID)
}
