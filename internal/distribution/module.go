// Package distribution provides the lead distribution bounded context module.
package distribution

import (
	"insulationpal_backend/internal/distribution/handler"
	"insulationpal_backend/internal/distribution/ports"
	"insulationpal_backend/internal/distribution/service"
	"insulationpal_backend/internal/events"
	apphttp "insulationpal_backend/internal/http"
	"insulationpal_backend/platform/httpkit"
	"insulationpal_backend/platform/logger"
	"insulationpal_backend/platform/validator"
)

// Module is the distribution bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the distribution service over the given store and dispatcher.
func NewModule(
	store ports.Store,
	dispatcher ports.Dispatcher,
	eventBus events.Bus,
	log *logger.Logger,
	settings service.Settings,
	val *validator.Validator,
) *Module {
	svc := service.New(store, dispatcher, eventBus, log, settings)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "distribution"
}

// Service returns the service layer for the scheduler and CLI.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts contractor, customer and admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	contractor := ctx.Protected.Group("", httpkit.RequireRole(httpkit.RoleContractor))
	if ctx.ResponseRateLimiter != nil {
		contractor.Use(ctx.ResponseRateLimiter.RateLimit())
	}
	m.handler.RegisterContractorRoutes(contractor)

	customer := ctx.Protected.Group("", httpkit.RequireRole(httpkit.RoleCustomer, httpkit.RoleAdmin))
	m.handler.RegisterCustomerRoutes(customer)

	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
