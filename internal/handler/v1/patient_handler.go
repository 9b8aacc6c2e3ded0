package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/domain/patient"
	"github.com/clinicbook/clinicbook-api/internal/service"
)

type PatientHandler struct {
	svc *service.PatientService
	log *zap.Logger
}

func NewPatientHandler(svc *service.PatientService, log *zap.Logger) *PatientHandler {
	return &PatientHandler{svc: svc, log: log}
}

func (h *PatientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	patients := rg.Group("/patients")
	{
		patients.POST("", h.create)
		patients.GET("", h.list)
		patients.GET("/:id", h.get)
		patients.PATCH("/:id", h.update)
		patients.DELETE("/:id", h.deactivate)
	}
}

type createPatientRequest struct {
	FirstName  string     `json:"firstName" binding:"required"`
	LastName   string     `json:"lastName" binding:"required"`
	Email      string     `json:"email" binding:"required,email"`
	NationalID string     `json:"nationalId" binding:"required"`
	BirthDate  *time.Time `json:"birthDate"`
	Phone      string     `json:"phone"`
}

type updatePatientRequest struct {
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	BirthDate *time.Time `json:"birthDate"`
	Phone     string     `json:"phone"`
}

type patientResponse struct {
	ID         uuid.UUID      `json:"id"`
	FirstName  string         `json:"firstName"`
	LastName   string         `json:"lastName"`
	Email      string         `json:"email"`
	NationalID string         `json:"nationalId"`
	BirthDate  *time.Time     `json:"birthDate,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	Status     patient.Status `json:"status"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func toPatientResponse(p *patient.Patient) patientResponse {
	return patientResponse{
		ID:         p.ID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		NationalID: p.NationalID,
		BirthDate:  p.BirthDate,
		Phone:      p.Phone,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (h *PatientHandler) create(c *gin.Context) {
	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.svc.Create(c.Request.Context(), &patient.CreateCommand{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		NationalID: req.NationalID,
		BirthDate:  req.BirthDate,
		Phone:      req.Phone,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toPatientResponse(p))
}

func (h *PatientHandler) get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPatientResponse(p))
}

func (h *PatientHandler) list(c *gin.Context) {
	q := &patient.ListQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "pageSize", 20),
	}
	if raw := c.Query("status"); raw != "" {
		st := patient.Status(raw)
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

	patients := make([]patientResponse, 0, len(page.Patients))
	for _, p := range page.Patients {
		patients = append(patients, toPatientResponse(p))
	}
	respondOK(c, gin.H{
		"patients":   patients,
		"totalCount": page.TotalCount,
		"page":       page.Page,
		"pageSize":   page.PageSize,
		"totalPages": page.TotalPages,
	})
}

func (h *PatientHandler) update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updatePatientRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.svc.Update(c.Request.Context(), id, &patient.UpdateCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		BirthDate: req.BirthDate,
		Phone:     req.Phone,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPatientResponse(p))
}

func (h *PatientHandler) deactivate(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.Deactivate(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPatientResponse(p))
}
