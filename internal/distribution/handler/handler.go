package handler

import (
	"net/http"

	"insulationpal_backend/internal/distribution/service"
	"insulationpal_backend/internal/distribution/transport"
	"insulationpal_backend/platform/apperr"
	"insulationpal_backend/platform/httpkit"
	"insulationpal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler serves contractor and customer requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new distribution handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterContractorRoutes mounts routes for authenticated contractors.
func (h *Handler) RegisterContractorRoutes(rg *gin.RouterGroup) {
	rg.POST("/assignments/:id/accept", h.Accept)
	rg.POST("/assignments/:id/quote", h.SubmitQuote)
	rg.POST("/assignments/:id/decline", h.Decline)
	rg.POST("/assignments/:id/complete", h.Complete)
	rg.GET("/contractors/me/assignments/summary", h.MySummary)
	rg.GET("/contractors/me/transactions", h.MyTransactions)
}

// RegisterCustomerRoutes mounts routes for the customer's winner selection.
func (h *Handler) RegisterCustomerRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads/:leadId/winner", h.ResolveWinner)
}

func (h *Handler) Accept(c *gin.Context) {
	contractorID, assignmentID, ok := h.contractorAndAssignment(c)
	if !ok {
		return
	}

	result, err := h.svc.AcceptAssignment(c.Request.Context(), contractorID, assignmentID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAssignmentResponse(result))
}

func (h *Handler) SubmitQuote(c *gin.Context) {
	contractorID, assignmentID, ok := h.contractorAndAssignment(c)
	if !ok {
		return
	}

	var req transport.SubmitQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	result, err := h.svc.SubmitQuote(c.Request.Context(), contractorID, assignmentID, req.AmountCents)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAssignmentResponse(result))
}

func (h *Handler) Decline(c *gin.Context) {
	contractorID, assignmentID, ok := h.contractorAndAssignment(c)
	if !ok {
		return
	}

	var req transport.DeclineAssignmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	result, err := h.svc.DeclineAssignment(c.Request.Context(), contractorID, assignmentID, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAssignmentResponse(result))
}

func (h *Handler) Complete(c *gin.Context) {
	contractorID, assignmentID, ok := h.contractorAndAssignment(c)
	if !ok {
		return
	}

	result, err := h.svc.CompleteAssignment(c.Request.Context(), contractorID, assignmentID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToAssignmentResponse(result))
}

func (h *Handler) MySummary(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	summary, err := h.svc.ContractorSummary(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToStatusSummary(summary.ContractorID, summary.Counts))
}

func (h *Handler) MyTransactions(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	h.transactions(c, identity.UserID())
}

func (h *Handler) ResolveWinner(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}

	var req transport.ResolveWinnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}
	mode, err := service.ParseWinnerMode(req.Mode)
	if httpkit.HandleError(c, err) {
		return
	}

	result, err := h.svc.ResolveWinner(c.Request.Context(), leadID, req.AssignmentID, mode)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if result.Outcome == service.ResolutionConflict {
		status = http.StatusConflict
	}
	httpkit.JSON(c, status, transport.ResolutionResponse{
		Outcome:             string(result.Outcome),
		Mode:                string(result.Mode),
		WinnerIDs:           transport.IDs(result.Winners),
		LoserIDs:            transport.IDs(result.Losers),
		NotificationsFailed: result.NotificationsFailed,
	})
}

func (h *Handler) transactions(c *gin.Context, contractorID uuid.UUID) {
	var req transport.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(err.Error()))
		return
	}

	page, err := h.svc.History(c.Request.Context(), contractorID, req.Page, req.PageSize)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.TransactionResponse, 0, len(page.Items))
	for _, txn := range page.Items {
		items = append(items, transport.ToTransactionResponse(txn))
	}
	totalPages := 0
	if page.PageSize > 0 {
		totalPages = (page.Total + page.PageSize - 1) / page.PageSize
	}
	httpkit.OK(c, transport.TransactionListResponse{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages,
	})
}

// contractorAndAssignment resolves the calling contractor and the :id param.
func (h *Handler) contractorAndAssignment(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, uuid.Nil, false
	}
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return uuid.Nil, uuid.Nil, false
	}
	return identity.UserID(), assignmentID, true
}
