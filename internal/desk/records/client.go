// Package records is the desk's client for the clinic-server HTTP API.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinica/clinic/internal/desk/session"
	"github.com/clinica/clinic/internal/domain/appointment"
	"github.com/clinica/clinic/internal/domain/consultation"
	"github.com/clinica/clinic/internal/domain/medication"
	"github.com/clinica/clinic/internal/domain/prescription"
)

// TokenSource returns the bearer token to send, or "" for none.
type TokenSource func() string

// Client talks to the records backend on behalf of the signed-in user.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
	logger  zerolog.Logger
}

// New returns a client whose requests time out after timeout.
func New(baseURL string, timeout time.Duration, token TokenSource, logger zerolog.Logger) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		token:   token,
		logger:  logger,
	}
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Data    []T  `json:"data"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

type AppointmentFilter struct {
	Date        string
	Status      string
	PhysicianID string
	PatientID   string
	Limit       int
}

type PrescriptionFilter struct {
	Status    string
	PatientID string
	Limit     int
}

type MedicationFilter struct {
	MinStock *int
	MaxStock *int
	Limit    int
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).Msg("records request")

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	switch dst := out.(type) {
	case nil:
		return nil
	case *[]byte:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		*dst = raw
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		return nil
	}
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil && len(body.Detail) > 0 {
		apiErr.Detail = body.Detail
	} else if text := strings.TrimSpace(string(raw)); text != "" {
		apiErr.Detail, _ = json.Marshal(text)
	}
	return apiErr
}

func withLimit(q url.Values, limit int) url.Values {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*session.Session, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID        string `json:"id"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Role      string `json:"role"`
			Email     string `json:"email"`
		} `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no token")
	}
	return &session.Session{
		Identity: session.Identity{
			ID:    resp.User.ID,
			Name:  strings.TrimSpace(resp.User.FirstName + " " + resp.User.LastName),
			Role:  resp.User.Role,
			Email: resp.User.Email,
		},
		Token: resp.AccessToken,
	}, nil
}

// ChangePassword changes the signed-in user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next, confirm string) error {
	body := map[string]string{"current_password": current, "new_password": next, "confirm_password": confirm}
	return c.do(ctx, http.MethodPut, "/api/auth/password", nil, body, nil)
}

func (c *Client) ListAppointments(ctx context.Context, f AppointmentFilter) (*Page[appointment.Appointment], error) {
	q := url.Values{}
	setIf(q, "date", f.Date)
	setIf(q, "status", f.Status)
	setIf(q, "physician_id", f.PhysicianID)
	setIf(q, "patient_id", f.PatientID)
	var page Page[appointment.Appointment]
	if err := c.do(ctx, http.MethodGet, "/api/appointments", withLimit(q, f.Limit), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status string) (*appointment.Appointment, error) {
	var a appointment.Appointment
	if err := c.do(ctx, http.MethodPut, "/api/appointments/"+id.String(), nil, map[string]string{"status": status}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/appointments/"+id.String(), nil, nil, nil)
}

func (c *Client) ListPrescriptions(ctx context.Context, f PrescriptionFilter) (*Page[prescription.Prescription], error) {
	q := url.Values{}
	setIf(q, "status", f.Status)
	setIf(q, "patient_id", f.PatientID)
	var page Page[prescription.Prescription]
	if err := c.do(ctx, http.MethodGet, "/api/prescriptions", withLimit(q, f.Limit), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) DownloadPrescriptionPDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var doc []byte
	if err := c.do(ctx, http.MethodGet, "/api/prescriptions/"+id.String()+"/pdf", nil, nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) ListMedications(ctx context.Context, f MedicationFilter) (*Page[medication.Medication], error) {
	q := url.Values{}
	if f.MinStock != nil {
		q.Set("min_stock", strconv.Itoa(*f.MinStock))
	}
	if f.MaxStock != nil {
		q.Set("max_stock", strconv.Itoa(*f.MaxStock))
	}
	var page Page[medication.Medication]
	if err := c.do(ctx, http.MethodGet, "/api/medications", withLimit(q, f.Limit), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreateConsultation(ctx context.Context, in *consultation.Consultation) (*consultation.Consultation, error) {
	var out consultation.Consultation
	if err := c.do(ctx, http.MethodPost, "/api/consultations", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
