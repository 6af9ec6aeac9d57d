package notification

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type Channel string

const (
	SMS   Channel = "sms"
	Email Channel = "email"
)

var ErrNoRecipient = errors.New("notification has no recipient")

// Message es una notificación saliente ya renderizada.
type Message struct {
	Channel Channel
	To      string
	Subject string
	Body    string
}

// Sender entrega un mensaje por su canal (proveedor SMS, SMTP...).
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Ledger recuerda qué notificaciones ya salieron, por clave de idempotencia.
type Ledger interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// Notifier envía cada clave como mucho una vez mientras el ledger la recuerde.
// Si el proceso cae entre Send y Mark el mensaje puede repetirse.
type Notifier struct {
	sender Sender
	ledger Ledger
	log    *zap.Logger
}

func NewNotifier(sender Sender, ledger Ledger, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{sender: sender, ledger: ledger, log: log}
}

func (n *Notifier) SendOnce(ctx context.Context, key string, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	seen, err := n.ledger.Seen(ctx, key)
	if err != nil {
		return fmt.Errorf("ledger lookup %s: %w", key, err)
	}
	if seen {
		n.log.Info("Notificación duplicada ignorada", zap.String("key", key))
		return nil
	}

	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Channel, msg.To, err)
	}
	if err := n.ledger.Mark(ctx, key); err != nil {
		return fmt.Errorf("ledger mark %s: %w", key, err)
	}
	return nil
}
