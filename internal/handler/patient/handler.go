package patient

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cupping-console/internal/handler"
	"github.com/jwalitptl/cupping-console/internal/model"
	"github.com/jwalitptl/cupping-console/internal/service/patient"
	"github.com/jwalitptl/cupping-console/internal/service/treatment"
	"github.com/jwalitptl/cupping-console/pkg/httputil"
)

type Handler struct {
	service    *patient.Service
	treatments *treatment.Service
}

func NewHandler(service *patient.Service, treatments *treatment.Service) *Handler {
	return &Handler{
		service:    service,
		treatments: treatments,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)

		patients.POST("/:id/schedule", h.SchedulePatient)
		patients.POST("/:id/start", h.StartSession)
		patients.POST("/:id/readings", h.SaveReading)
		patients.GET("/:id/readings", h.ListReadings)
		patients.POST("/:id/complete", h.CompleteTreatment)
		patients.POST("/:id/cancel", h.CancelPatient)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	rec, err := h.service.Intake(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, rec)
}

func (h *Handler) ListPatients(c *gin.Context) {
	var filters model.PatientFilters
	if err := handler.BindQuery(c, &filters); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	patients, err := h.service.List(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithList(c, patients, len(patients))
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	rec, err := h.service.Get(c.Request.Context(), id, handler.GenderHint(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rec)
}

func (h *Handler) SchedulePatient(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.ScheduleRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	rec, err := h.service.Schedule(c.Request.Context(), id, handler.GenderHint(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rec)
}

func (h *Handler) StartSession(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	rec, err := h.service.StartSession(c.Request.Context(), id, handler.GenderHint(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rec)
}

// SaveReading records the session and opens the pending payment.
func (h *Handler) SaveReading(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.SaveReadingRequest
	if err := handler.BindJSON(c, &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	res, err := h.treatments.SaveReading(c.Request.Context(), id, handler.GenderHint(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, res)
}

func (h *Handler) ListReadings(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	readings, err := h.treatments.ListByPatient(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithList(c, readings, len(readings))
}

func (h *Handler) CompleteTreatment(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	rec, err := h.service.Finish(c.Request.Context(), id, handler.GenderHint(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rec)
}

func (h *Handler) CancelPatient(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	var req model.CancelRequest
	if c.Request.ContentLength != 0 {
		if err := handler.BindJSON(c, &req); err != nil {
			httputil.RespondWithError(c, err)
			return
		}
	}

	rec, err := h.service.Cancel(c.Request.Context(), id, handler.GenderHint(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, rec)
}
