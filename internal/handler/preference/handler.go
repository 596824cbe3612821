package preference

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/notify-api/internal/handler"
	"github.com/jwalitptl/notify-api/internal/middleware"
	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/service/preference"
	"github.com/jwalitptl/notify-api/pkg/errors"
)

type Handler struct {
	service preference.Service
}

func NewHandler(service preference.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prefs := r.Group("/preferences")
	{
		prefs.GET("", h.GetPreferences)
		prefs.PUT("", h.UpdatePreferences)
	}
}

func (h *Handler) GetPreferences(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	prefs, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(prefs))
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	var req model.UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	prefs, err := h.service.Update(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(prefs))
}

func respondError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Code == errors.ErrBadRequest {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(appErr.Message))
		return
	}
	c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
}
