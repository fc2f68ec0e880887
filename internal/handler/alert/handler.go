package alert

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-directory/internal/handler"
	"github.com/jwalitptl/patient-directory/internal/service/notification"
)

type Handler struct {
	notifier notification.Service
}

func NewHandler(notifier notification.Service) *Handler {
	return &Handler{notifier: notifier}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	alert := r.Group("/alert")
	{
		alert.GET("", h.GetAlert)
		alert.DELETE("", h.DismissAlert)
	}
}

func (h *Handler) GetAlert(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.notifier.Alert()))
}

// DismissAlert hides the alert and cancels its pending auto-hide.
func (h *Handler) DismissAlert(c *gin.Context) {
	h.notifier.Dismiss()
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.notifier.Alert()))
}
