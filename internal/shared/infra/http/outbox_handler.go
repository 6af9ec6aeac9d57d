package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	"github.com/davicafu/habitflow/pkg/utils"
)

type StatsReader interface {
	Stats(ctx context.Context) (sharedDomain.OutboxStats, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// OpsHandler expone el estado del outbox y el health check.
type OpsHandler struct {
	stats StatsReader
	db    Pinger
	log   *zap.Logger
}

func NewOpsHandler(stats StatsReader, db Pinger, log *zap.Logger) *OpsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &OpsHandler{stats: stats, db: db, log: log}
}

func RegisterOpsRoutes(r gin.IRouter, h *OpsHandler) {
	r.GET("/health", h.Health)
	r.GET("/outbox/stats", h.OutboxStats)
}

// OutboxStats endpoint GET /outbox/stats
func (h *OpsHandler) OutboxStats(c *gin.Context) {
	stats, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("outbox stats failed", zap.Error(err))
		utils.SendInternalServerError(c)
		return
	}
	utils.SendSuccess(c, http.StatusOK, stats)
}

// Health endpoint GET /health
func (h *OpsHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn("⚠️ Health check: base de datos no disponible", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
