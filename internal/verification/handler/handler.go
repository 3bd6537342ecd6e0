// Package handler exposes the verification workflow over HTTP: caregiver
// submission and status, the admin decision endpoint, and the review history.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"carelink/internal/audit"
	"carelink/internal/transport/http/shared"
	"carelink/internal/verification"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service_mock.go -package=mocks

// Service is the slice of the verification service the handlers need.
type Service interface {
	Submit(ctx context.Context, sitterID id.UserID, docs verification.Documents) (*verification.Request, error)
	Decide(ctx context.Context, requestID id.RequestID, reviewerID id.UserID, outcome verification.Outcome, reason string) (*verification.Request, error)
	CurrentStatus(ctx context.Context, sitterID id.UserID) (verification.Status, error)
	AuditTrail(ctx context.Context, sitterID id.UserID) ([]audit.Entry, error)
	Profile(ctx context.Context, sitterID id.UserID) (*verification.Profile, error)
	UpdateOwnedProfile(ctx context.Context, sitterID id.UserID, update verification.ProfileUpdate) (*verification.Profile, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the caregiver-facing routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verification", h.handleSubmit)
	r.Get("/verification/status", h.handleStatus)
	r.Get("/verification/history", h.handleHistory)
	r.Get("/verification/profile", h.handleGetProfile)
	r.Put("/verification/profile", h.handleUpdateProfile)
}

// RegisterAdmin mounts the decision endpoint.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/verification/{requestID}/decision", h.handleDecide)
}

type submitRequest struct {
	PrimaryDocument    string   `json:"primaryDocument"`
	SecondaryDocuments []string `json:"secondaryDocuments"`
}

type requestResponse struct {
	ID                 string     `json:"id"`
	SitterID           string     `json:"sitterId"`
	Status             string     `json:"status"`
	PrimaryDocument    string     `json:"primaryDocument"`
	SecondaryDocuments []string   `json:"secondaryDocuments,omitempty"`
	SubmittedAt        time.Time  `json:"submittedAt"`
	ReviewedAt         *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy         *string    `json:"reviewedBy,omitempty"`
	RejectionReason    string     `json:"rejectionReason,omitempty"`
}

func toRequestResponse(req *verification.Request) requestResponse {
	resp := requestResponse{
		ID:                 req.ID.String(),
		SitterID:           req.SitterID.String(),
		Status:             string(req.Status),
		PrimaryDocument:    req.Documents.Primary,
		SecondaryDocuments: req.Documents.Secondary,
		SubmittedAt:        req.SubmittedAt,
		ReviewedAt:         req.ReviewedAt,
		RejectionReason:    req.RejectionReason,
	}
	if req.ReviewedBy != nil {
		by := req.ReviewedBy.String()
		resp.ReviewedBy = &by
	}
	return resp
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	created, err := h.svc.Submit(r.Context(), requestcontext.UserID(r.Context()), verification.Documents{
		Primary:   req.PrimaryDocument,
		Secondary: req.SecondaryDocuments,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toRequestResponse(created))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.CurrentStatus(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

type auditEntryResponse struct {
	RequestID  string    `json:"requestId"`
	ReviewerID string    `json:"reviewerId"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.AuditTrail(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, auditEntryResponse{
			RequestID:  e.RequestID.String(),
			ReviewerID: e.ReviewerID.String(),
			Outcome:    string(e.Outcome),
			Reason:     e.Reason,
			Timestamp:  e.Timestamp,
		})
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

type profileResponse struct {
	SitterID           string   `json:"sitterId"`
	VerificationStatus string   `json:"verificationStatus"`
	RejectionReason    string   `json:"rejectionReason,omitempty"`
	PrimaryDocument    string   `json:"primaryDocument,omitempty"`
	SecondaryDocuments []string `json:"secondaryDocuments,omitempty"`
	Bio                string   `json:"bio,omitempty"`
	HourlyRate         *float64 `json:"hourlyRate,omitempty"`
	Availability       string   `json:"availability,omitempty"`
}

func toProfileResponse(p *verification.Profile) profileResponse {
	return profileResponse{
		SitterID:           p.SitterID.String(),
		VerificationStatus: string(p.Status),
		RejectionReason:    p.RejectionReason,
		PrimaryDocument:    p.Documents.Primary,
		SecondaryDocuments: p.Documents.Secondary,
		Bio:                p.Bio,
		HourlyRate:         p.HourlyRate,
		Availability:       p.Availability,
	}
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Profile(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}

type updateProfileRequest struct {
	Bio          *string  `json:"bio"`
	HourlyRate   *float64 `json:"hourlyRate"`
	Availability *string  `json:"availability"`
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	profile, err := h.svc.UpdateOwnedProfile(r.Context(), requestcontext.UserID(r.Context()), verification.ProfileUpdate{
		Bio:          req.Bio,
		HourlyRate:   req.HourlyRate,
		Availability: req.Availability,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}

type decisionRequest struct {
	Outcome         string `json:"outcome"`
	RejectionReason string `json:"rejectionReason"`
}

func (h *Handler) handleDecide(w http.ResponseWriter, r *http.Request) {
	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req decisionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	outcome, err := verification.ParseOutcome(req.Outcome)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reviewerID := requestcontext.UserID(r.Context())
	if reviewerID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing reviewer identity"))
		return
	}

	decided, err := h.svc.Decide(r.Context(), requestID, reviewerID, outcome, req.RejectionReason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toRequestResponse(decided))
}
