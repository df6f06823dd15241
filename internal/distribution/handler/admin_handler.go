package handler

import (
	"insulationpal_backend/internal/distribution/transport"
	"insulationpal_backend/platform/apperr"
	"insulationpal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterAdminRoutes mounts operator routes: manual triggers, read models and
// the payment settlement callback.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads/:leadId/distribute", h.DistributeLead)
	rg.GET("/leads/:leadId/assignments", h.LeadAssignments)
	rg.GET("/leads/:leadId/assignments/summary", h.LeadSummary)
	rg.POST("/sweeps/expiry", h.RunExpirySweep)
	rg.POST("/cadences/reminders", h.RunReminders)
	rg.POST("/cadences/followups", h.RunFollowups)
	rg.GET("/contractors/:id/assignments/summary", h.ContractorSummary)
	rg.GET("/contractors/:id/transactions", h.ContractorTransactions)
	rg.GET("/contractors/:id/balance", h.ContractorBalance)
	rg.POST("/credits/settlements", h.SettleCredits)
}

func (h *Handler) DistributeLead(c *gin.Context) {
	leadID, ok := parseUUIDParam(c, "leadId")
	if !ok {
		return
	}

	result, err := h.svc.DistributeLead(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.DistributionResponse{
		LeadID:              result.LeadID,
		AssignmentsCreated:  transport.ToAssignmentResponses(result.Created),
		SkippedForCredit:    result.SkippedForCredit,
		Shortfall:           result.Shortfall,
		Closed:              result.Closed,
		NotificationsFailed: result.NotificationsFailed,
	})
}

func (h *Handler) LeadAssignments(c *gin.Context) {
	leadID, ok := parseUUIDParam(c, "leadId")
	if !ok {
		return
	}

	list, err := h.svc.LeadAssignments(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": transport.ToAssignmentResponses(list)})
}

func (h *Handler) LeadSummary(c *gin.Context) {
	leadID, ok := parseUUIDParam(c, "leadId")
	if !ok {
		return
	}

	summary, err := h.svc.LeadSummary(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToStatusSummary(summary.LeadID, summary.Counts))
}

func (h *Handler) RunExpirySweep(c *gin.Context) {
	result, err := h.svc.RunExpirySweep(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.SweepResponse{
		ExpiredCount:        result.ExpiredCount,
		ReassignedCount:     result.ReassignedCount,
		LeadsVisited:        result.LeadsVisited,
		NotificationsFailed: result.NotificationsFailed,
	})
}

func (h *Handler) RunReminders(c *gin.Context) {
	result, err := h.svc.RunReminderCadence(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.CadenceResponse{Sent: result.Sent, Skipped: result.Skipped, Failed: result.Failed})
}

func (h *Handler) RunFollowups(c *gin.Context) {
	result, err := h.svc.RunFollowupCadence(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.CadenceResponse{Sent: result.Sent, Skipped: result.Skipped, Failed: result.Failed})
}

func (h *Handler) ContractorSummary(c *gin.Context) {
	contractorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	summary, err := h.svc.ContractorSummary(c.Request.Context(), contractorID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToStatusSummary(summary.ContractorID, summary.Counts))
}

func (h *Handler) ContractorTransactions(c *gin.Context) {
	contractorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	h.transactions(c, contractorID)
}

func (h *Handler) ContractorBalance(c *gin.Context) {
	contractorID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	balance, err := h.svc.Balance(c.Request.Context(), contractorID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.BalanceResponse{
		ContractorID: balance.ContractorID,
		Balance:      balance.Cached,
		LedgerSum:    balance.Ledger,
		Consistent:   balance.Consistent(),
	})
}

func (h *Handler) SettleCredits(c *gin.Context) {
	var req transport.CreditSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	result, err := h.svc.Credit(c.Request.Context(), req.ContractorID, req.Credits, req.AmountCents, req.PackageRef)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.CreditSettlementResponse{
		Outcome:      result.Outcome.String(),
		BalanceAfter: result.BalanceAfter,
	})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return uuid.Nil, false
	}
	return id, true
}
