package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"insulationpal_backend/internal/distribution/domain"
	"insulationpal_backend/internal/distribution/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatHistory(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	page := service.HistoryPage{
		Items: []domain.CreditTransaction{
			{Kind: domain.TransactionConsumption, Delta: -1, BalanceAfter: 4, Reference: "lead:abc", CreatedAt: now},
			{Kind: domain.TransactionPurchase, Delta: 5, BalanceAfter: 5, Reference: "pkg-5", CreatedAt: now.Add(-time.Hour)},
		},
		Total:    3,
		Page:     1,
		PageSize: 2,
	}

	var buf bytes.Buffer
	formatHistory(&buf, domain.Balance{Cached: 4, Ledger: 4}, page)

	out := buf.String()
	assert.Contains(t, out, "Balance: 4 credits (ledger 4)")
	assert.Contains(t, out, "REFERENCE")
	assert.Contains(t, out, "2026-03-02 09:30")
	assert.Contains(t, out, "consumption")
	assert.Contains(t, out, "-1")
	assert.Contains(t, out, "+5")
	assert.Contains(t, out, "2 of 3 transactions shown")
}

func TestDistributionViewJSON(t *testing.T) {
	leadID := uuid.New()
	result := service.DistributionResult{
		LeadID:           leadID,
		Created:          []domain.Assignment{{ID: uuid.New(), ContractorID: uuid.New(), Attempt: 2}},
		SkippedForCredit: 1,
		Shortfall:        2,
	}

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, distributionView(result)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, leadID.String(), decoded["leadId"])
	assert.EqualValues(t, 1, decoded["skippedForCredit"])
	assert.Len(t, decoded["assignmentsCreated"], 1)
}

func TestParseID(t *testing.T) {
	_, err := parseID("lead", "not-a-uuid")
	assert.EqualError(t, err, `invalid lead id "not-a-uuid"`)

	id := uuid.New()
	parsed, err := parseID("lead", id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseCreditsRejectsTrailingGarbage(t *testing.T) {
	credits, err := parseCredits("5")
	require.NoError(t, err)
	assert.Equal(t, 5, credits)

	for _, raw := range []string{"5abc", "5.0", " 5", ""} {
		_, err := parseCredits(raw)
		assert.Error(t, err, "input %q", raw)
	}
}
