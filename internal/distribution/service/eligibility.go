package service

import (
	"context"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/distribution/ports"

	"github.com/google/uuid"
)

// ResolveEligible returns the contractors that may receive the lead, in
// distribution order, capped at the configured eligibility limit. An empty
// candidate list is a normal outcome.
func (s *Service) ResolveEligible(ctx context.Context, lead domain.Lead, exclude []uuid.UUID) (ports.EligibilityResult, error) {
	return s.store.FindEligible(ctx, ports.EligibilityQuery{
		LeadID:   lead.ID,
		Location: lead.Location,
		Exclude:  exclude,
		Limit:    s.settings.EligibilityCap,
	})
}
