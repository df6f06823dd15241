package memory

import (
	"fmt"
	"os"
	"strings"
	"time"

	"insulationpal_backend/internal/distribution/domain"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type seedLocation struct {
	City       string `yaml:"city"`
	State      string `yaml:"state"`
	PostalCode string `yaml:"postalCode"`
}

type seedLead struct {
	ID           uuid.UUID    `yaml:"id"`
	Location     seedLocation `yaml:"location"`
	ContactName  string       `yaml:"contactName"`
	ContactEmail string       `yaml:"contactEmail"`
	CreatedAt    time.Time    `yaml:"createdAt"`
}

type seedContractor struct {
	ID                uuid.UUID      `yaml:"id"`
	BusinessName      string         `yaml:"businessName"`
	ContactEmail      string         `yaml:"contactEmail"`
	ApprovalStatus    string         `yaml:"approvalStatus"`
	PaymentPreference string         `yaml:"paymentPreference"`
	Credits           int            `yaml:"credits"`
	ServiceAreas      []seedLocation `yaml:"serviceAreas"`
	CreatedAt         time.Time      `yaml:"createdAt"`
}

type seedFile struct {
	Leads       []seedLead       `yaml:"leads"`
	Contractors []seedContractor `yaml:"contractors"`
}

// LoadSeed reads leads and contractors from a YAML file into the store:
//
//	contractors:
//	  - id: 6f1c...
//	    businessName: Attic Pros
//	    contactEmail: crew@example.com
//	    credits: 5
//	    serviceAreas: [{city: Austin, state: TX}]
//	leads:
//	  - id: 9a2b...
//	    location: {city: Austin, state: TX}
func (s *Store) LoadSeed(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	return s.Seed(raw)
}

// Seed decodes a YAML seed document. Missing ids are generated, approval defaults to approved.
func (s *Store) Seed(raw []byte) error {
	var doc seedFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode seed file: %w", err)
	}

	for _, sc := range doc.Contractors {
		c, err := sc.toDomain()
		if err != nil {
			return err
		}
		s.AddContractor(c)
	}
	for _, sl := range doc.Leads {
		id := sl.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		s.AddLead(domain.Lead{
			ID:        id,
			Location:  sl.Location.toDomain(),
			Contact:   domain.Contact{Name: sl.ContactName, Email: sl.ContactEmail},
			CreatedAt: sl.CreatedAt,
		})
	}
	return nil
}

func (sc seedContractor) toDomain() (domain.Contractor, error) {
	c := domain.Contractor{
		ID:                sc.ID,
		BusinessName:      sc.BusinessName,
		ContactEmail:      sc.ContactEmail,
		ApprovalStatus:    domain.ApprovalApproved,
		PaymentPreference: domain.PayPerLead,
		CreditBalance:     sc.Credits,
		CreatedAt:         sc.CreatedAt,
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if sc.ApprovalStatus != "" {
		c.ApprovalStatus = domain.ApprovalStatus(strings.ToLower(sc.ApprovalStatus))
	}
	if sc.PaymentPreference != "" {
		c.PaymentPreference = domain.PaymentPreference(strings.ToLower(sc.PaymentPreference))
	}
	if c.PaymentPreference != domain.PayPerLead && c.PaymentPreference != domain.PayOnCompletion {
		return domain.Contractor{}, fmt.Errorf("contractor %s: unknown payment preference %q", c.ID, sc.PaymentPreference)
	}
	if sc.Credits < 0 {
		return domain.Contractor{}, fmt.Errorf("contractor %s: credits must not be negative", c.ID)
	}
	for _, area := range sc.ServiceAreas {
		c.ServiceAreas = append(c.ServiceAreas, domain.ServiceArea{City: area.City, State: area.State})
	}
	return c, nil
}

func (l seedLocation) toDomain() domain.Location {
	loc := domain.Location{City: l.City, State: l.State}
	if l.PostalCode != "" {
		loc.PostalCode = &l.PostalCode
	}
	return loc
}
