package http

import "github.com/gin-gonic/gin"

func RegisterInvoiceRoutes(r gin.IRouter, handler *InvoiceHandler) {
	invoices := r.Group("/invoices")
	{
		invoices.POST("", handler.IssueInvoice)
		invoices.GET("/:id", handler.GetInvoice)
		invoices.POST("/:id/pay", handler.PayInvoice)
	}
}
