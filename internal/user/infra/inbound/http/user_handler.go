package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/habitflow/internal/user/application"
	"github.com/davicafu/habitflow/internal/user/domain"
	"github.com/davicafu/habitflow/pkg/utils"
)

// UserHandler encapsula los endpoints HTTP relacionados con User
type UserHandler struct {
	service *application.UserService
	log     *zap.Logger
}

func NewUserHandler(service *application.UserService, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{service: service, log: log}
}

// RegisterUser endpoint POST /users
func (h *UserHandler) RegisterUser(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required,email"`
		Nombre    string `json:"nombre" binding:"required"`
		Phone     string `json:"phone"`
		BirthDate string `json:"birth_date" binding:"required"` // ISO8601, ej: 2000-01-01
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		utils.SendBadRequest(c, "invalid birth_date format, use YYYY-MM-DD")
		return
	}

	user, err := h.service.RegisterUser(c.Request.Context(), req.Email, req.Nombre, req.Phone, birthDate)
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, user)
}

// GetUser endpoint GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, user)
}

// ChangeEmail endpoint PUT /users/:id/email
func (h *UserHandler) ChangeEmail(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	user, err := h.service.ChangeEmail(c.Request.Context(), id, req.Email)
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, user)
}

// DeleteUser endpoint DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		h.sendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *UserHandler) sendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		utils.SendNotFound(c, "user not found")
	case errors.Is(err, domain.ErrUserAlreadyExists):
		utils.SendConflict(c, "user already exists")
	case errors.Is(err, domain.ErrInvalidUser):
		utils.SendBadRequest(c, err.Error())
	default:
		h.log.Error("user request failed", zap.String("path", c.FullPath()), zap.Error(err))
		utils.SendInternalServerError(c)
	}
}
