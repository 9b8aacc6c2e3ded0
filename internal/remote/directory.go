package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicbook/clinicbook-api/internal/domain"
	"github.com/clinicbook/clinicbook-api/internal/domain/doctor"
	"github.com/clinicbook/clinicbook-api/internal/domain/patient"
)

// Directory clients for deployments where patients and doctors live in
// sibling services instead of the local database. They speak the same
// data-envelope JSON the local API serves, and map 404s back to the domain
// sentinels so callers cannot tell the two directory kinds apart.

type PatientClient struct {
	client  *http.Client
	baseURL string
	log     *zap.Logger
}

func NewPatientClient(baseURL string, log *zap.Logger) *PatientClient {
	return &PatientClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		log:     log,
	}
}

func (c *PatientClient) Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	u := fmt.Sprintf("%s/api/v1/patients/%s", c.baseURL, id)
	if err := getJSON(ctx, c.client, c.log, u, &p, patient.ErrPatientNotFound); err != nil {
		return nil, err
	}
	return &p, nil
}

type DoctorClient struct {
	client  *http.Client
	baseURL string
	log     *zap.Logger
}

func NewDoctorClient(baseURL string, log *zap.Logger) *DoctorClient {
	return &DoctorClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		log:     log,
	}
}

func (c *DoctorClient) Get(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	var d doctor.Doctor
	u := fmt.Sprintf("%s/api/v1/doctors/%s", c.baseURL, id)
	if err := getJSON(ctx, c.client, c.log, u, &d, doctor.ErrDoctorNotFound); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DoctorClient) FindBySpecialty(ctx context.Context, sp domain.Specialty) ([]*doctor.Doctor, error) {
	u := fmt.Sprintf("%s/api/v1/doctors/specialty/%s", c.baseURL, url.PathEscape(string(sp)))
	var docs []*doctor.Doctor
	if err := getJSON(ctx, c.client, c.log, u, &docs, doctor.ErrNoDoctorForSpecialty); err != nil {
		return nil, err
	}
	return docs, nil
}

// getJSON performs one GET and decodes the service's data envelope. A 404
// becomes the caller's notFound sentinel; every other non-200 is an error.
func getJSON(ctx context.Context, client *http.Client, log *zap.Logger, u string, out any, notFound error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Error("directory request failed", zap.String("url", u), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return notFound
	default:
		log.Error("directory returned unexpected status",
			zap.String("url", u),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return json.Unmarshal(envelope.Data, out)
}
