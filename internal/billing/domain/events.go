package domain

import (
	"time"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InvoiceIssued = "InvoiceIssuedEvent"
	InvoicePaid   = "InvoicePaidEvent"
)

const InvoiceTopic = "invoice"

type InvoiceIssuedEvent struct {
	sharedDomain.EventBase
	InvoiceID    uuid.UUID       `json:"invoiceId"`
	UserID       uuid.UUID       `json:"userId"`
	BillingEmail string          `json:"billingEmail"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

func (InvoiceIssuedEvent) EventType() string      { return InvoiceIssued }
func (e InvoiceIssuedEvent) PartitionKey() string { return e.InvoiceID.String() }

type InvoicePaidEvent struct {
	sharedDomain.EventBase
	InvoiceID    uuid.UUID       `json:"invoiceId"`
	UserID       uuid.UUID       `json:"userId"`
	BillingEmail string          `json:"billingEmail"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	PaidAt       time.Time       `json:"paidAt"`
}

func (InvoicePaidEvent) EventType() string      { return InvoicePaid }
func (e InvoicePaidEvent) PartitionKey() string { return e.InvoiceID.String() }

// RegisterEvents da de alta los eventos de facturación.
func RegisterEvents(r *sharedEvents.Registry) {
	sharedEvents.RegisterType[InvoiceIssuedEvent](r)
	sharedEvents.RegisterType[InvoicePaidEvent](r)
}
