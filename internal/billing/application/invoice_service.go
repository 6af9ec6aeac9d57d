package application

import (
	"context"
	"fmt"
	"time"

	"github.com/davicafu/habitflow/internal/billing/domain"
	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService emite y cobra facturas. Los recibos los envía el consumidor
// del outbox, nunca la petición.
type InvoiceService struct {
	repo     domain.InvoiceRepository
	sessions sharedDomain.SessionFactory
	clock    func() time.Time
	log      *zap.Logger
}

func NewInvoiceService(repo domain.InvoiceRepository, sessions sharedDomain.SessionFactory, log *zap.Logger) *InvoiceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &InvoiceService{repo: repo, sessions: sessions, clock: time.Now, log: log}
}

func (s *InvoiceService) IssueInvoice(ctx context.Context, userID uuid.UUID, billingEmail string, amount decimal.Decimal, currency string) (*domain.Invoice, error) {
	inv, err := domain.IssueInvoice(userID, billingEmail, amount, currency, s.clock())
	if err != nil {
		return nil, err
	}

	session := s.sessions.NewSession()
	session.Add(inv)
	if err := session.Commit(ctx); err != nil {
		return nil, fmt.Errorf("issue invoice: %w", err)
	}

	s.log.Info("Factura emitida",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("amount", inv.Amount.StringFixed(2)),
		zap.String("currency", inv.Currency))
	return inv, nil
}

func (s *InvoiceService) PayInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.Pay(s.clock()); err != nil {
		return nil, err
	}

	session := s.sessions.NewSession()
	session.Update(inv)
	if err := session.Commit(ctx); err != nil {
		return nil, fmt.Errorf("pay invoice: %w", err)
	}
	return inv, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	return s.repo.GetByID(ctx, id)
}
