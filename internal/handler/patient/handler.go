package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-directory/internal/handler"
	"github.com/jwalitptl/patient-directory/internal/model"
	"github.com/jwalitptl/patient-directory/internal/service/patient"
)

// Fetcher is the part of the fetch orchestrator the handler needs.
type Fetcher interface {
	Refetch()
	Loading() bool
}

type Handler struct {
	service *patient.Service
	fetcher Fetcher
}

func NewHandler(service *patient.Service, fetcher Fetcher) *Handler {
	return &Handler{
		service: service,
		fetcher: fetcher,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.POST("", h.CreatePatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.POST("/refetch", h.Refetch)
		patients.GET("/status", h.Status)
	}
}

// ListPatients applies the optional q filter and returns the sanitized view.
func (h *Handler) ListPatients(c *gin.Context) {
	var patients []model.PatientRecord
	if q, ok := c.GetQuery("q"); ok {
		patients = h.service.SearchPatients(q)
	} else {
		patients = h.service.ListPatients()
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(patients))
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var form model.PatientForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.service.CreatePatient(c.Request.Context(), form)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	var form model.PatientForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	updated, err := h.service.UpdatePatient(c.Request.Context(), c.Param("id"), form)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) Refetch(c *gin.Context) {
	h.fetcher.Refetch()
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(gin.H{"loading": true}))
}

func (h *Handler) Status(c *gin.Context) {
	total, filtered := h.service.Counts()
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"loading":  h.fetcher.Loading(),
		"total":    total,
		"filtered": filtered,
	}))
}
