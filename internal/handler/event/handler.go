package event

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/notify-api/internal/handler"
	"github.com/jwalitptl/notify-api/internal/model"
)

// Dispatcher hands a lifecycle event off to the fan-out pipeline.
type Dispatcher interface {
	DispatchEvent(ctx context.Context, event *model.TicketEvent)
}

// Handler ingests ticket lifecycle events from the ticket layer. The
// endpoint acknowledges with 202 as soon as the event is handed off;
// delivery runs detached and no delivery failure ever propagates back to
// the ticket action.
type Handler struct {
	dispatcher Dispatcher
}

func NewHandler(dispatcher Dispatcher) *Handler {
	registerEventTypeValidation()
	return &Handler{dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/events", h.IngestEvent)
}

func (h *Handler) IngestEvent(c *gin.Context) {
	var event model.TicketEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	h.dispatcher.DispatchEvent(c.Request.Context(), &event)

	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(gin.H{"accepted": true}))
}

func registerEventTypeValidation() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("eventtype", func(fl validator.FieldLevel) bool {
			switch model.EventType(fl.Field().String()) {
			case model.EventTicketCreated,
				model.EventTicketUpdated,
				model.EventCommentAdded,
				model.EventTicketResolved:
				return true
			}
			return false
		})
	}
}
