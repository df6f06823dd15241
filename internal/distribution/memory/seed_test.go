package memory

import (
	"context"
	"testing"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/distribution/ports"
)

func TestSeedLoadsContractorsAndLeads(t *testing.T) {
	s := New()
	raw := []byte(`
contractors:
  - businessName: Attic Pros
    contactEmail: crew@example.com
    credits: 3
    serviceAreas:
      - {city: Austin, state: TX}
  - businessName: Suspended Co
    approvalStatus: suspended
    serviceAreas:
      - {city: Austin, state: TX}
leads:
  - location: {city: austin, state: TX, postalCode: "78701"}
`)
	if err := s.Seed(raw); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var lead domain.Lead
	for _, l := range s.state.leads {
		lead = l
	}
	res, err := s.FindEligible(context.Background(), ports.EligibilityQuery{LeadID: lead.ID, Location: lead.Location, Limit: 10})
	if err != nil {
		t.Fatalf("find eligible: %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].BusinessName != "Attic Pros" {
		t.Fatalf("expected only the approved contractor, got %+v", res.Candidates)
	}

	balance, err := s.GetBalance(context.Background(), res.Candidates[0].ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Consistent() || balance.Cached != 3 {
		t.Fatalf("expected consistent balance of 3, got %+v", balance)
	}
}

func TestSeedRejectsUnknownPaymentPreference(t *testing.T) {
	raw := []byte(`
contractors:
  - businessName: Odd
    paymentPreference: barter
`)
	if err := New().Seed(raw); err == nil {
		t.Fatal("expected error")
	}
}
