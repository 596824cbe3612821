package notification

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/handler"
	"github.com/jwalitptl/notify-api/internal/livesync"
	"github.com/jwalitptl/notify-api/internal/middleware"
	"github.com/jwalitptl/notify-api/internal/service/notification"
	"github.com/jwalitptl/notify-api/pkg/errors"
)

type Handler struct {
	service notification.Service
	hub     *livesync.Hub
}

func NewHandler(service notification.Service, hub *livesync.Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.GET("/stream", h.Stream)
		notifications.POST("/:id/read", h.MarkRead)
		notifications.POST("/read-all", h.MarkAllRead)
	}
}

func (h *Handler) ListNotifications(c *gin.Context) {
	recipientID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid limit"))
			return
		}
		limit = parsed
	}

	result, err := h.service.List(c.Request.Context(), recipientID, notification.ListParams{
		Limit:      limit,
		Cursor:     c.Query("cursor"),
		UnreadOnly: c.Query("unread_only") == "true",
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) UnreadCount(c *gin.Context) {
	recipientID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), recipientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"unread": count}))
}

func (h *Handler) MarkRead(c *gin.Context) {
	recipientID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id, recipientID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	recipientID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	count, err := h.service.MarkAllRead(c.Request.Context(), recipientID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"marked": count}))
}

// Stream bridges the live-sync channel to SSE. The subscription carries no
// missed-event guarantee, so the stream opens with a "backfill" hint telling
// the client to list before trusting pushes; teardown happens on every exit
// path via the deferred Close.
func (h *Handler) Stream(c *gin.Context) {
	recipientID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing caller identity"))
		return
	}

	sub, err := h.hub.Subscribe(c.Request.Context(), recipientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to open stream"))
		return
	}
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.SSEvent("backfill", gin.H{"required": true})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case n, open := <-sub.C():
			if !open {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func respondError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		switch appErr.Code {
		case errors.ErrNotFound:
			c.JSON(http.StatusNotFound, handler.NewErrorResponse(appErr.Message))
			return
		case errors.ErrBadRequest:
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(appErr.Message))
			return
		}
	}
	c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
}
