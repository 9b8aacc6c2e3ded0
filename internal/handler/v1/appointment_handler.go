package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/domain"
	"github.com/clinicbook/clinicbook-api/internal/domain/appointment"
	"github.com/clinicbook/clinicbook-api/internal/scheduling"
	"github.com/clinicbook/clinicbook-api/internal/service"
)

type AppointmentHandler struct {
	svc *service.AppointmentService
	log *zap.Logger
}

func NewAppointmentHandler(svc *service.AppointmentService, log *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, log: log}
}

func (h *AppointmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	appts := rg.Group("/appointments")
	{
		appts.POST("", h.create)
		appts.POST("/exact", h.createExact)
		appts.GET("", h.list)
		appts.GET("/:id", h.get)
		appts.PATCH("/:id", h.reschedule)
		appts.DELETE("/:id", h.cancel)
	}
	rg.GET("/doctors/:id/availability", h.availability)
}

type createAppointmentRequest struct {
	PatientID    uuid.UUID  `json:"patientId" binding:"required"`
	DoctorID     *uuid.UUID `json:"doctorId"`
	Specialty    string     `json:"specialty" binding:"required"`
	StartAt      time.Time  `json:"startAt" binding:"required"`
	DurationMins int        `json:"durationMins"`
	Notes        string     `json:"notes"`
}

type createExactAppointmentRequest struct {
	PatientID    uuid.UUID  `json:"patientId" binding:"required"`
	DoctorID     *uuid.UUID `json:"doctorId"`
	Specialty    string     `json:"specialty" binding:"required"`
	Date         string     `json:"date" binding:"required"` // YYYY-MM-DD
	Hour         int        `json:"hour"`
	Minute       int        `json:"minute"`
	Zone         string     `json:"zone"`
	DurationMins int        `json:"durationMins"`
	Notes        string     `json:"notes"`
}

type rescheduleAppointmentRequest struct {
	DoctorID     *uuid.UUID `json:"doctorId"`
	StartAt      *time.Time `json:"startAt"`
	DurationMins *int       `json:"durationMins"`
	Notes        *string    `json:"notes"`
}

type appointmentResponse struct {
	ID           uuid.UUID          `json:"id"`
	PatientID    uuid.UUID          `json:"patientId"`
	DoctorID     uuid.UUID          `json:"doctorId"`
	Specialty    domain.Specialty   `json:"specialty"`
	StartAt      time.Time          `json:"startAt"`
	EndAt        time.Time          `json:"endAt"`
	DurationMins int                `json:"durationMins"`
	Status       appointment.Status `json:"status"`
	Notes        string             `json:"notes,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

type bookingResponse struct {
	Appointment  appointmentResponse `json:"appointment"`
	AutoAdjusted bool                `json:"autoAdjusted"`
}

type availabilityResponse struct {
	DoctorID  uuid.UUID             `json:"doctorId"`
	Date      string                `json:"date"`
	Reserved  []appointmentResponse `json:"reserved"`
	Available []scheduling.Interval `json:"available"`
}

func toAppointmentResponse(a *appointment.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		Specialty:    a.Specialty,
		StartAt:      a.StartAt,
		EndAt:        a.EndAt,
		DurationMins: a.DurationMins(),
		Status:       a.Status,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (h *AppointmentHandler) create(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.svc.Book(c.Request.Context(), &appointment.CreateCommand{
		PatientID:    req.PatientID,
		DoctorID:     req.DoctorID,
		Specialty:    domain.Specialty(req.Specialty),
		StartAt:      req.StartAt,
		DurationMins: req.DurationMins,
		Notes:        req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, bookingResponse{
		Appointment:  toAppointmentResponse(res.Appointment),
		AutoAdjusted: res.AutoAdjusted,
	})
}

func (h *AppointmentHandler) createExact(c *gin.Context) {
	var req createExactAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date: expected YYYY-MM-DD"})
		return
	}

	res, err := h.svc.BookExact(c.Request.Context(), &appointment.CreateByDateCommand{
		PatientID:    req.PatientID,
		DoctorID:     req.DoctorID,
		Specialty:    domain.Specialty(req.Specialty),
		Date:         date,
		Hour:         req.Hour,
		Minute:       req.Minute,
		Zone:         req.Zone,
		DurationMins: req.DurationMins,
		Notes:        req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, bookingResponse{
		Appointment:  toAppointmentResponse(res.Appointment),
		AutoAdjusted: res.AutoAdjusted,
	})
}

func (h *AppointmentHandler) get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toAppointmentResponse(a))
}

func (h *AppointmentHandler) list(c *gin.Context) {
	q := &appointment.ListQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "pageSize", 20),
	}
	if raw := c.Query("patientId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid patientId: must be a valid UUID"})
			return
		}
		q.PatientID = &id
	}
	if raw := c.Query("doctorId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid doctorId: must be a valid UUID"})
			return
		}
		q.DoctorID = &id
	}
	if raw := c.Query("status"); raw != "" {
		st := appointment.Status(raw)
		if !st.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
			return
		}
		q.Status = &st
	}

	page, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	appts := make([]appointmentResponse, 0, len(page.Appointments))
	for _, a := range page.Appointments {
		appts = append(appts, toAppointmentResponse(a))
	}
	respondOK(c, gin.H{
		"appointments": appts,
		"totalCount":   page.TotalCount,
		"page":         page.Page,
		"pageSize":     page.PageSize,
		"totalPages":   page.TotalPages,
	})
}

func (h *AppointmentHandler) reschedule(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req rescheduleAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.svc.Reschedule(c.Request.Context(), id, &appointment.RescheduleCommand{
		DoctorID:     req.DoctorID,
		StartAt:      req.StartAt,
		DurationMins: req.DurationMins,
		Notes:        req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toAppointmentResponse(a))
}

func (h *AppointmentHandler) cancel(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toAppointmentResponse(a))
}

func (h *AppointmentHandler) availability(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	rawDate := c.Query("date")
	if rawDate == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "date is required"})
		return
	}
	date, err := time.Parse("2006-01-02", rawDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid date: expected YYYY-MM-DD"})
		return
	}

	day, err := h.svc.DailyAvailability(
		c.Request.Context(),
		id,
		date,
		c.Query("zone"),
		parseQueryInt(c, "slotMinutes", 0),
		parseQueryInt(c, "durationMins", 0),
	)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	reserved := make([]appointmentResponse, 0, len(day.Reserved))
	for _, a := range day.Reserved {
		reserved = append(reserved, toAppointmentResponse(a))
	}
	respondOK(c, availabilityResponse{
		DoctorID:  id,
		Date:      rawDate,
		Reserved:  reserved,
		Available: day.Available,
	})
}
