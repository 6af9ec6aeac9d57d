package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EntityName = "invoice"

type InvoiceStatus string

const (
	StatusIssued InvoiceStatus = "issued"
	StatusPaid   InvoiceStatus = "paid"
)

// Invoice es el agregado raíz de facturación. Issue y Pay registran eventos.
type Invoice struct {
	sharedDomain.AggregateRoot `json:"-"`
	sharedDomain.AuditFields

	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	BillingEmail string          `json:"billing_email"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Status       InvoiceStatus   `json:"status"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
}

// IssueInvoice valida el importe y registra InvoiceIssuedEvent.
func IssueInvoice(userID uuid.UUID, billingEmail string, amount decimal.Decimal, currency string, now time.Time) (*Invoice, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInvoice)
	}
	billingEmail = strings.ToLower(strings.TrimSpace(billingEmail))
	if _, err := mail.ParseAddress(billingEmail); err != nil {
		return nil, fmt.Errorf("%w: invalid billing email %q", ErrInvalidInvoice, billingEmail)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInvoice)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be an ISO 4217 code", ErrInvalidInvoice)
	}

	inv := &Invoice{
		ID:           uuid.New(),
		UserID:       userID,
		BillingEmail: billingEmail,
		Amount:       amount.Round(2),
		Currency:     currency,
		Status:       StatusIssued,
	}
	inv.CreatedAt = now.UTC()

	inv.Record(InvoiceIssuedEvent{
		EventBase:    sharedDomain.NewEventBase(now),
		InvoiceID:    inv.ID,
		UserID:       inv.UserID,
		BillingEmail: inv.BillingEmail,
		Amount:       inv.Amount,
		Currency:     inv.Currency,
	})
	return inv, nil
}

// Pay falla con ErrInvoiceAlreadyPaid si ya estaba pagada.
func (i *Invoice) Pay(now time.Time) error {
	if i.Status == StatusPaid {
		return ErrInvoiceAlreadyPaid
	}
	paidAt := now.UTC()
	i.Status = StatusPaid
	i.PaidAt = &paidAt

	i.Record(InvoicePaidEvent{
		EventBase:    sharedDomain.NewEventBase(now),
		InvoiceID:    i.ID,
		UserID:       i.UserID,
		BillingEmail: i.BillingEmail,
		Amount:       i.Amount,
		Currency:     i.Currency,
		PaidAt:       paidAt,
	})
	return nil
}

func (i *Invoice) EntityName() string  { return EntityName }
func (i *Invoice) EntityID() uuid.UUID { return i.ID }

var (
	_ sharedDomain.Entity      = (*Invoice)(nil)
	_ sharedDomain.EventSource = (*Invoice)(nil)
	_ sharedDomain.Auditable   = (*Invoice)(nil)
)
