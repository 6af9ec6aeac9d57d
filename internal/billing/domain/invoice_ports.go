package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrInvoiceAlreadyPaid = errors.New("invoice already paid")
	ErrInvalidInvoice     = errors.New("invalid invoice")
)

type InvoiceRepository interface {
	// Debe devolver ErrInvoiceNotFound si no existe.
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
}

func ReceiptKey(msgID uuid.UUID) string {
	return fmt.Sprintf("receipt-email:%s", msgID)
}
