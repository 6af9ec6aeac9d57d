package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
	sharedBus "github.com/davicafu/habitflow/internal/shared/infra/platform/bus"
)

// MessageWriter es la parte de *kafka.Writer que usamos.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	writer MessageWriter
	log    *zap.Logger
}

func NewKafkaPublisher(writer MessageWriter, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{writer: writer, log: log}
}

// NewKafkaWriter crea un writer con reparto por hash de la key, así los
// eventos de un mismo agregado caen en la misma partición.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt sharedEvents.IntegrationEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal integration event %s: %w", evt.Type, err)
	}

	msg := kafka.Message{
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type)},
			{Key: "event-id", Value: []byte(evt.ID)},
		},
	}
	if evt.Key != "" {
		msg.Key = []byte(evt.Key)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("Error publishing to Kafka", zap.String("event_type", evt.Type), zap.Error(err))
		return err
	}

	p.log.Debug("Event published successfully",
		zap.String("event_type", evt.Type),
		zap.String("message_id", evt.ID))
	return nil
}

// Verificación estática
var _ sharedBus.Publisher = (*KafkaPublisher)(nil)
