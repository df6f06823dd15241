package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/distribution/memory"
	"insulationpal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type sentMessage struct {
	Recipient string
	Template  string
	Data      map[string]any
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (d *recordingDispatcher) Send(_ context.Context, recipient, templateID string, data map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return errors.New("smtp unavailable")
	}
	d.sent = append(d.sent, sentMessage{Recipient: recipient, Template: templateID, Data: data})
	return nil
}

func (d *recordingDispatcher) count(template string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, m := range d.sent {
		if m.Template == template {
			n++
		}
	}
	return n
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t          *testing.T
	store      *memory.Store
	dispatcher *recordingDispatcher
	clock      *testClock
	svc        *Service
	seq        int
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, DefaultSettings())
}

func newFixtureWith(t *testing.T, settings Settings) *fixture {
	t.Helper()
	f := &fixture{
		t:          t,
		store:      memory.New(),
		dispatcher: &recordingDispatcher{},
		clock:      &testClock{now: baseTime},
	}
	f.svc = New(f.store, f.dispatcher, nil, logger.Discard(), settings).WithClock(f.clock.Now)
	return f
}

func (f *fixture) lead(city, state string) domain.Lead {
	lead := domain.Lead{
		ID:        uuid.New(),
		Location:  domain.Location{City: city, State: state},
		Contact:   domain.Contact{Name: "Customer", Email: "customer@example.com"},
		CreatedAt: f.clock.Now(),
	}
	f.store.AddLead(lead)
	return lead
}

func (f *fixture) contractor(city, state string, credits int) domain.Contractor {
	return f.contractorWith(city, state, credits, domain.PayPerLead)
}

func (f *fixture) contractorWith(city, state string, credits int, pref domain.PaymentPreference) domain.Contractor {
	f.seq++
	c := domain.Contractor{
		ID:                uuid.New(),
		BusinessName:      "Contractor " + string(rune('A'+f.seq-1)),
		ContactEmail:      uuid.NewString()[:8] + "@contractors.example.com",
		ApprovalStatus:    domain.ApprovalApproved,
		PaymentPreference: pref,
		CreditBalance:     credits,
		ServiceAreas:      []domain.ServiceArea{{City: city, State: state}},
		CreatedAt:         baseTime.Add(-time.Duration(100-f.seq) * time.Minute),
	}
	f.store.AddContractor(c)
	return c
}

func (f *fixture) assignmentsOf(leadID uuid.UUID) []domain.Assignment {
	f.t.Helper()
	list, err := f.store.ListByLead(context.Background(), leadID)
	require.NoError(f.t, err)
	return list
}

func (f *fixture) activeCount(leadID uuid.UUID) int {
	f.t.Helper()
	counts, err := f.store.CountByLead(context.Background(), leadID)
	require.NoError(f.t, err)
	return counts.Active()
}

func (f *fixture) requireConsistentBalance(contractorID uuid.UUID) domain.Balance {
	f.t.Helper()
	balance, err := f.svc.Balance(context.Background(), contractorID)
	require.NoError(f.t, err)
	require.True(f.t, balance.Consistent(), "cached %d != ledger %d", balance.Cached, balance.Ledger)
	return balance
}

func byContractor(assignments []domain.Assignment) map[uuid.UUID]domain.Assignment {
	out := make(map[uuid.UUID]domain.Assignment, len(assignments))
	for _, a := range assignments {
		out[a.ContractorID] = a
	}
	return out
}
