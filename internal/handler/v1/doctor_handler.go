package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/domain"
	"github.com/clinicbook/clinicbook-api/internal/domain/doctor"
	"github.com/clinicbook/clinicbook-api/internal/service"
)

type DoctorHandler struct {
	svc *service.DoctorService
	log *zap.Logger
}

func NewDoctorHandler(svc *service.DoctorService, log *zap.Logger) *DoctorHandler {
	return &DoctorHandler{svc: svc, log: log}
}

func (h *DoctorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	doctors := rg.Group("/doctors")
	{
		doctors.POST("", h.create)
		doctors.GET("", h.list)
		doctors.GET("/:id", h.get)
		doctors.PUT("/:id", h.update)
		doctors.DELETE("/:id", h.remove)
		doctors.GET("/specialty/:specialty", h.bySpecialty)
	}
}

type doctorRequest struct {
	FirstName     string `json:"firstName" binding:"required"`
	LastName      string `json:"lastName" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	LicenseNumber string `json:"licenseNumber" binding:"required"`
	Specialty     string `json:"specialty" binding:"required"`
	Phone         string `json:"phone"`
}

type doctorResponse struct {
	ID            uuid.UUID        `json:"id"`
	FirstName     string           `json:"firstName"`
	LastName      string           `json:"lastName"`
	Email         string           `json:"email"`
	LicenseNumber string           `json:"licenseNumber"`
	Specialty     domain.Specialty `json:"specialty"`
	Phone         string           `json:"phone,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func toDoctorResponse(d *doctor.Doctor) doctorResponse {
	return doctorResponse{
		ID:            d.ID,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		Email:         d.Email,
		LicenseNumber: d.LicenseNumber,
		Specialty:     d.Specialty,
		Phone:         d.Phone,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func (h *DoctorHandler) create(c *gin.Context) {
	var req doctorRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := h.svc.Create(c.Request.Context(), &doctor.CreateCommand{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		LicenseNumber: req.LicenseNumber,
		Specialty:     domain.Specialty(req.Specialty),
		Phone:         req.Phone,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toDoctorResponse(d))
}

func (h *DoctorHandler) get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	d, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toDoctorResponse(d))
}

func (h *DoctorHandler) list(c *gin.Context) {
	q := &doctor.ListQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "pageSize", 20),
	}
	if raw := c.Query("specialty"); raw != "" {
		sp := domain.Specialty(raw)
		if !sp.IsValid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid specialty"})
			return
		}
		q.Specialty = &sp
	}

	page, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	docs := make([]doctorResponse, 0, len(page.Doctors))
	for _, d := range page.Doctors {
		docs = append(docs, toDoctorResponse(d))
	}
	respondOK(c, gin.H{
		"doctors":    docs,
		"totalCount": page.TotalCount,
		"page":       page.Page,
		"pageSize":   page.PageSize,
		"totalPages": page.TotalPages,
	})
}

func (h *DoctorHandler) bySpecialty(c *gin.Context) {
	sp := domain.Specialty(c.Param("specialty"))
	if !sp.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid specialty"})
		return
	}

	docs, err := h.svc.FindBySpecialty(c.Request.Context(), sp)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]doctorResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDoctorResponse(d))
	}
	respondOK(c, out)
}

func (h *DoctorHandler) update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req doctorRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := h.svc.Update(c.Request.Context(), id, &doctor.UpdateCommand{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		LicenseNumber: req.LicenseNumber,
		Specialty:     domain.Specialty(req.Specialty),
		Phone:         req.Phone,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toDoctorResponse(d))
}

func (h *DoctorHandler) remove(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
