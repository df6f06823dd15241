package webhook

import (
	"context"

	"insulationpal_backend/internal/distribution/service"
	"insulationpal_backend/platform/apperr"
	"insulationpal_backend/platform/httpkit"
	"insulationpal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Crediter records settled purchases.
type Crediter interface {
	Credit(ctx context.Context, contractorID uuid.UUID, credits int, amountCents *int64, packageRef string) (service.CreditResult, error)
}

type Handler struct {
	crediter Crediter
	val      *validator.Validator
}

func NewHandler(crediter Crediter, val *validator.Validator) *Handler {
	return &Handler{crediter: crediter, val: val}
}

// PaymentSettledRequest is sent by the payment provider once a credit package is paid.
type PaymentSettledRequest struct {
	ContractorID uuid.UUID `json:"contractorId" validate:"required"`
	Credits      int       `json:"credits" validate:"required,gt=0,lte=10000"`
	AmountCents  *int64    `json:"amountCents,omitempty" validate:"omitempty,gte=0"`
	PaymentRef   string    `json:"paymentRef" validate:"required,max=120"`
}

type PaymentSettledResponse struct {
	Outcome      string `json:"outcome"`
	BalanceAfter int    `json:"balanceAfter,omitempty"`
}

// HandlePaymentSettled credits the contractor. Provider retries of the same
// paymentRef answer 200 with outcome already_applied.
// POST /api/v1/webhook/payments
func (h *Handler) HandlePaymentSettled(c *gin.Context) {
	var req PaymentSettledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation("validation failed").WithDetails(err.Error()))
		return
	}

	result, err := h.crediter.Credit(c.Request.Context(), req.ContractorID, req.Credits, req.AmountCents, req.PaymentRef)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, PaymentSettledResponse{
		Outcome:      result.Outcome.String(),
		BalanceAfter: result.BalanceAfter,
	})
}
