package relayer

import (
	"context"
	"fmt"
	"time"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultCleanupSchedule  = "0 3 * * *"
	defaultCleanupBatchSize = 2000
	defaultCleanupPause     = 200 * time.Millisecond
	defaultRetention        = 72 * time.Hour
)

// CleanupJob borra por lotes los mensajes procesados más antiguos que la retención.
type CleanupJob struct {
	repo      sharedDomain.OutboxRepository
	log       *zap.Logger
	schedule  string
	batchSize int
	pause     time.Duration
	retention time.Duration
	clock     func() time.Time
}

type CleanupOption func(*CleanupJob)

func WithSchedule(spec string) CleanupOption {
	return func(j *CleanupJob) { j.schedule = spec }
}

func WithCleanupBatchSize(n int) CleanupOption {
	return func(j *CleanupJob) { j.batchSize = n }
}

func WithCleanupPause(d time.Duration) CleanupOption {
	return func(j *CleanupJob) { j.pause = d }
}

func WithRetention(d time.Duration) CleanupOption {
	return func(j *CleanupJob) { j.retention = d }
}

func WithCleanupClock(clock func() time.Time) CleanupOption {
	return func(j *CleanupJob) { j.clock = clock }
}

func NewCleanupJob(repo sharedDomain.OutboxRepository, log *zap.Logger, opts ...CleanupOption) *CleanupJob {
	j := &CleanupJob{repo: repo, log: log}
	for _, opt := range opts {
		if opt != nil {
			opt(j)
		}
	}

	if j.log == nil {
		j.log = zap.NewNop()
	}
	if j.schedule == "" {
		j.schedule = defaultCleanupSchedule
	}
	if j.batchSize <= 0 {
		j.batchSize = defaultCleanupBatchSize
	}
	if j.pause < 0 {
		j.pause = defaultCleanupPause
	}
	if j.retention <= 0 {
		j.retention = defaultRetention
	}
	if j.clock == nil {
		j.clock = time.Now
	}
	return j
}

// RunOnce borra lotes hasta que uno vuelve incompleto. Un error o la
// cancelación cortan la ejecución; lo borrado hasta ahí queda borrado.
func (j *CleanupJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.clock().UTC().Add(-j.retention)
	// el lote en curso termina aunque se cancele ctx
	storeCtx := context.WithoutCancel(ctx)

	var total int64
	for batch := 1; ; batch++ {
		if err := ctx.Err(); err != nil {
			j.log.Info("🛑 Limpieza de outbox interrumpida", zap.Int64("deleted", total))
			return total, err
		}

		n, err := j.repo.DeleteProcessedBefore(storeCtx, cutoff, j.batchSize)
		if err != nil {
			j.log.Error("❌ Error en limpieza de outbox",
				zap.Int("batch", batch),
				zap.Int64("deleted", total),
				zap.Error(err),
			)
			return total, fmt.Errorf("cleanup batch %d: %w", batch, err)
		}
		total += n

		if n < int64(j.batchSize) {
			break
		}

		select {
		case <-ctx.Done():
		case <-time.After(j.pause):
		}
	}

	j.log.Info("🧹 Limpieza de outbox completada",
		zap.Int64("deleted", total),
		zap.Time("cutoff", cutoff),
	)
	return total, nil
}

// NextRun devuelve la próxima ejecución programada después de t.
func (j *CleanupJob) NextRun(t time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(j.schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cleanup schedule %q: %w", j.schedule, err)
	}
	return sched.Next(t), nil
}

// Start programa RunOnce y bloquea hasta que ctx se cancela; si hay una
// ejecución en curso espera a que termine.
func (j *CleanupJob) Start(ctx context.Context) error {
	next, err := j.NextRun(j.clock())
	if err != nil {
		return err
	}

	logger := cronLogger{log: j.log.Sugar()}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(j.schedule, func() {
		_, _ = j.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", j.schedule, err)
	}

	c.Start()
	j.log.Info("🚀 Limpieza de outbox programada",
		zap.String("schedule", j.schedule),
		zap.Time("next_run", next),
		zap.Duration("retention", j.retention),
	)

	<-ctx.Done()
	<-c.Stop().Done()
	j.log.Info("🛑 Limpieza de outbox detenida.")
	return nil
}

// cronLogger adapta zap al logger de robfig/cron.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

var _ cron.Logger = cronLogger{}
