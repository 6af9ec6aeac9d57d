package relayer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unicode/utf8"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	sharedDomainEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPollInterval   = 5 * time.Second
	defaultBatchSize      = 50
	defaultWorkers        = 4
	defaultHandlerTimeout = 30 * time.Second

	maxErrorLength       = 512
	errorTruncatedSuffix = "... (truncated)"
)

var ErrHandlerPanic = errors.New("event handler panicked")

// DispatchResult resume un ciclo de polling.
type DispatchResult struct {
	Fetched    int
	Delivered  int
	Failed     int // handler con error, el mensaje sigue pendiente
	MarkFailed int // no se pudo actualizar el estado en el store
}

// Dispatcher lee mensajes pendientes del outbox y los entrega a los handlers
// registrados con un número acotado de workers.
type Dispatcher struct {
	repo           sharedDomain.OutboxRepository
	registry       *sharedDomainEvents.Registry
	log            *zap.Logger
	interval       time.Duration
	batchSize      int
	workers        int
	handlerTimeout time.Duration
	clock          func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithPollInterval(d time.Duration) DispatcherOption {
	return func(w *Dispatcher) { w.interval = d }
}

func WithBatchSize(n int) DispatcherOption {
	return func(w *Dispatcher) { w.batchSize = n }
}

func WithWorkers(n int) DispatcherOption {
	return func(w *Dispatcher) { w.workers = n }
}

func WithHandlerTimeout(d time.Duration) DispatcherOption {
	return func(w *Dispatcher) { w.handlerTimeout = d }
}

func WithClock(clock func() time.Time) DispatcherOption {
	return func(w *Dispatcher) { w.clock = clock }
}

func NewDispatcher(
	repo sharedDomain.OutboxRepository,
	registry *sharedDomainEvents.Registry,
	log *zap.Logger,
	opts ...DispatcherOption,
) *Dispatcher {
	d := &Dispatcher{
		repo:     repo,
		registry: registry,
		log:      log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	if d.log == nil {
		d.log = zap.NewNop()
	}
	if d.interval <= 0 {
		d.interval = defaultPollInterval
	}
	if d.batchSize <= 0 {
		d.batchSize = defaultBatchSize
	}
	if d.workers <= 0 {
		d.workers = defaultWorkers
	}
	if d.handlerTimeout <= 0 {
		d.handlerTimeout = defaultHandlerTimeout
	}
	if d.clock == nil {
		d.clock = time.Now
	}
	return d
}

// Start bloquea hasta que ctx se cancela. El primer ciclo corre de inmediato;
// un ciclo en curso termina antes de salir.
func (d *Dispatcher) Start(ctx context.Context) {
	d.log.Info("🚀 Outbox dispatcher iniciado",
		zap.Duration("interval", d.interval),
		zap.Int("batch", d.batchSize),
		zap.Int("workers", d.workers),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		d.ProcessBatch(ctx)

		select {
		case <-ctx.Done():
			d.log.Info("🛑 Outbox dispatcher detenido.")
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch ejecuta un ciclo: fetch, reparto a los workers y espera.
// Nunca devuelve error; los fallos quedan en el log y en el propio outbox.
func (d *Dispatcher) ProcessBatch(ctx context.Context) DispatchResult {
	var res DispatchResult
	if ctx.Err() != nil {
		return res
	}

	msgs, err := d.repo.FetchPending(ctx, d.batchSize)
	if err != nil {
		d.log.Warn("⚠️ Error al obtener mensajes pendientes", zap.Error(err))
		return res
	}
	res.Fetched = len(msgs)
	if len(msgs) == 0 {
		return res
	}
	d.log.Debug(fmt.Sprintf("📬 %d mensajes encontrados para procesar", len(msgs)))

	var delivered, failed, markFailed atomic.Int32

	var g errgroup.Group
	g.SetLimit(d.workers)
	for _, msg := range msgs {
		// lo que no se llegó a repartir se queda para el siguiente arranque
		if ctx.Err() != nil {
			break
		}
		msg := msg
		g.Go(func() error {
			switch d.deliver(ctx, msg) {
			case outcomeDelivered:
				delivered.Add(1)
			case outcomeFailed:
				failed.Add(1)
			case outcomeHandlerFailedMarkFailed:
				failed.Add(1)
				markFailed.Add(1)
			case outcomeMarkFailed:
				markFailed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res.Delivered = int(delivered.Load())
	res.Failed = int(failed.Load())
	res.MarkFailed = int(markFailed.Load())

	d.log.Info("✅ Ciclo de outbox completado",
		zap.Int("fetched", res.Fetched),
		zap.Int("delivered", res.Delivered),
		zap.Int("failed", res.Failed),
		zap.Int("mark_failed", res.MarkFailed),
	)
	return res
}

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeFailed
	outcomeHandlerFailedMarkFailed
	outcomeMarkFailed
)

func (d *Dispatcher) deliver(ctx context.Context, msg sharedDomain.OutboxMessage) outcome {
	// el apagado no corta un handler a medias; sólo lo acota el timeout
	detached := context.WithoutCancel(ctx)
	hctx, cancel := context.WithTimeout(detached, d.handlerTimeout)
	defer cancel()

	fields := []zap.Field{
		zap.String("message_id", msg.ID.String()),
		zap.String("event_type", msg.Type),
	}

	if err := d.invoke(hctx, msg); err != nil {
		d.log.Warn("⚠️ Handler falló, se reintentará", append(fields, zap.Error(err))...)
		if mErr := d.repo.MarkFailed(detached, msg.ID, truncateError(err.Error())); mErr != nil {
			d.log.Error("No se pudo registrar el error del mensaje", append(fields, zap.Error(mErr))...)
			return outcomeHandlerFailedMarkFailed
		}
		return outcomeFailed
	}

	if err := d.repo.MarkProcessed(detached, msg.ID, d.clock().UTC()); err != nil {
		d.log.Warn("⚠️ No se pudo marcar mensaje como procesado", append(fields, zap.Error(err))...)
		return outcomeMarkFailed
	}
	d.log.Debug("Mensaje entregado y marcado", fields...)
	return outcomeDelivered
}

func (d *Dispatcher) invoke(ctx context.Context, msg sharedDomain.OutboxMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return d.registry.Dispatch(ctx, msg)
}

// truncateError acota el texto guardado en la columna error.
func truncateError(msg string) string {
	if len(msg) <= maxErrorLength {
		return msg
	}
	cut := maxErrorLength - len(errorTruncatedSuffix)
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + errorTruncatedSuffix
}
