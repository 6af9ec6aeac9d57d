package notification

import (
	"context"

	"go.uber.org/zap"
)

// LogSender escribe los mensajes en el log en vez de enviarlos.
// Es el sender por defecto mientras no haya proveedor configurado.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Info("📨 Notificación enviada",
		zap.String("channel", string(msg.Channel)),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

var _ Sender = (*LogSender)(nil)
