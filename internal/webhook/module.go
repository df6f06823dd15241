// Package webhook receives payment settlement callbacks.
package webhook

import (
	apphttp "insulationpal_backend/internal/http"
	"insulationpal_backend/platform/validator"
)

// Module is the payment webhook module implementing http.Module.
type Module struct {
	handler *Handler
	secret  string
}

func NewModule(crediter Crediter, secret string, val *validator.Validator) *Module {
	return &Module{handler: NewHandler(crediter, val), secret: secret}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the signed, JWT-less payment callback.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhook")
	group.Use(SignatureAuthMiddleware(m.secret))
	group.POST("/payments", m.handler.HandlePaymentSettled)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
