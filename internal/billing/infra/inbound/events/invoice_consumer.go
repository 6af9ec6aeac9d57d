package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	billingDomain "github.com/davicafu/habitflow/internal/billing/domain"
	"github.com/davicafu/habitflow/internal/notification"
	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
)

// InvoiceConsumer envía el recibo de pago. El ledger de notificaciones
// evita el doble envío cuando el outbox reentrega.
type InvoiceConsumer struct {
	notifier *notification.Notifier
	log      *zap.Logger
}

func NewInvoiceConsumer(notifier *notification.Notifier, logger *zap.Logger) *InvoiceConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceConsumer{notifier: notifier, log: logger}
}

func (c *InvoiceConsumer) Register(r *sharedEvents.Registry) error {
	return sharedEvents.Register[billingDomain.InvoicePaidEvent](r, c.SendReceipt)
}

func (c *InvoiceConsumer) SendReceipt(ctx context.Context, messageID uuid.UUID, evt billingDomain.InvoicePaidEvent) error {
	c.log.Debug("Enviando recibo",
		zap.String("invoice_id", evt.InvoiceID.String()),
		zap.String("message_id", messageID.String()))

	return c.notifier.SendOnce(ctx, billingDomain.ReceiptKey(messageID), notification.Message{
		Channel: notification.Email,
		To:      evt.BillingEmail,
		Subject: fmt.Sprintf("Recibo de la factura %s", evt.InvoiceID),
		Body: fmt.Sprintf("Hemos recibido tu pago de %s %s el %s.",
			evt.Amount.StringFixed(2), evt.Currency, evt.PaidAt.Format("2006-01-02")),
	})
}
