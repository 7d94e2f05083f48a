package router

import (
	"github.com/invoicing/backend/internal/interfaces/http/handler"
)

// Handlers bundles the HTTP handlers mounted by RegisterAPI.
type Handlers struct {
	Customer *handler.CustomerHandler
	Invoice  *handler.InvoiceHandler
	Payment  *handler.PaymentHandler
	Health   *handler.HealthHandler
}

// RegisterAPI queues the invoicing API groups on r. Call r.Setup afterwards.
func RegisterAPI(r *Router, h Handlers) []*DomainGroup {
	groups := []*DomainGroup{
		customerRoutes(h.Customer),
		invoiceRoutes(h.Invoice, h.Payment),
		paymentRoutes(h.Payment),
		healthRoutes(h.Health),
	}
	for _, g := range groups {
		r.Register(g)
	}
	return groups
}

func customerRoutes(h *handler.CustomerHandler) *DomainGroup {
	return NewDomainGroup("customers", "/customers").
		POST("", h.Create).
		GET("", h.List).
		GET("/:id", h.GetByID).
		PUT("/:id", h.Update).
		DELETE("/:id", h.Delete)
}

func invoiceRoutes(h *handler.InvoiceHandler, p *handler.PaymentHandler) *DomainGroup {
	g := NewDomainGroup("invoices", "/invoices").
		POST("", h.Create).
		GET("", h.List).
		GET("/:id", h.GetByID).
		PUT("/:id", h.UpdateDates).
		DELETE("/:id", h.Delete).
		POST("/:id/send", h.Send).
		POST("/:id/mark-paid", h.MarkAsPaid).
		POST("/:id/cancel", h.Cancel).
		GET("/:id/balance", h.GetBalance).
		POST("/:id/payments", p.Record).
		GET("/:id/payments", p.ListForInvoice)

	g.Group("line-items", "/:id/line-items").
		POST("", h.AddLineItem).
		PUT("/:item_id", h.UpdateLineItem).
		DELETE("/:item_id", h.RemoveLineItem)
	return g
}

func paymentRoutes(h *handler.PaymentHandler) *DomainGroup {
	return NewDomainGroup("payments", "/payments").
		GET("/:id", h.GetByID)
}

func healthRoutes(h *handler.HealthHandler) *DomainGroup {
	return NewDomainGroup("health", "").
		GET("/health", h.Health)
}
