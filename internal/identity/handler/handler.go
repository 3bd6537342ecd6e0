// Package handler exposes the identity surface over HTTP: self profile,
// children, caregiver assignment, and the admin user listing.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"carelink/internal/identity"
	"carelink/internal/identity/service"
	"carelink/internal/transport/http/shared"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/requestcontext"
)

// Service is the slice of the identity service the handlers need.
type Service interface {
	Register(ctx context.Context, params service.RegisterParams) (*identity.User, error)
	GetUser(ctx context.Context, userID id.UserID) (*identity.User, error)
	UpdateProfile(ctx context.Context, userID id.UserID, update identity.ProfileUpdate) (*identity.User, error)
	ListUsers(ctx context.Context, roleFilter string, limit int) ([]*identity.User, error)
	Stats(ctx context.Context) (identity.Stats, error)

	CreateChild(ctx context.Context, parentID id.UserID, params service.ChildParams) (*identity.Child, error)
	GetChild(ctx context.Context, childID id.ChildID) (*identity.Child, error)
	ListChildren(ctx context.Context, parentID id.UserID) ([]*identity.Child, error)
	UpdateChild(ctx context.Context, childID id.ChildID, update identity.ChildUpdate) (*identity.Child, error)
	DeleteChild(ctx context.Context, childID id.ChildID) error
	AssignCaregiver(ctx context.Context, childID id.ChildID, caregiverID *id.UserID) (*identity.Child, error)
	GetInstructions(ctx context.Context, childID id.ChildID) (*identity.Instructions, error)
	UpdateInstructions(ctx context.Context, childID id.ChildID, params service.InstructionsParams) (*identity.Instructions, error)
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the authenticated identity routes. Auth middleware is
// applied by the router; admin routes additionally sit behind RequireRole.
func (h *Handler) Register(r chi.Router) {
	r.Post("/users/me", h.handleRegisterMe)
	r.Get("/users/me", h.handleGetMe)
	r.Put("/users/me", h.handleUpdateMe)

	r.Get("/children", h.handleListChildren)
	r.Post("/children", h.handleCreateChild)
	r.Get("/children/{childID}", h.handleGetChild)
	r.Put("/children/{childID}", h.handleUpdateChild)
	r.Delete("/children/{childID}", h.handleDeleteChild)
	r.Put("/children/{childID}/sitter", h.handleAssignSitter)
	r.Get("/children/{childID}/instructions", h.handleGetInstructions)
	r.Put("/children/{childID}/instructions", h.handleUpdateInstructions)
}

// RegisterAdmin mounts the admin-only routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/users", h.handleListUsers)
	r.Get("/users/{userID}", h.handleGetUser)
	r.Put("/users/{userID}", h.handleUpdateUser)
	r.Get("/stats", h.handleStats)
}

type userResponse struct {
	ID                string    `json:"id"`
	UserNumber        string    `json:"userNumber,omitempty"`
	Role              string    `json:"role"`
	Email             string    `json:"email"`
	DisplayName       string    `json:"displayName"`
	PhoneNumber       string    `json:"phoneNumber,omitempty"`
	PreferredLanguage string    `json:"preferredLanguage,omitempty"`
	Theme             string    `json:"theme,omitempty"`
	Bio               string    `json:"bio,omitempty"`
	HourlyRate        *float64  `json:"hourlyRate,omitempty"`
	Address           string    `json:"address,omitempty"`
	City              string    `json:"city,omitempty"`
	Country           string    `json:"country,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func toUserResponse(u *identity.User) userResponse {
	return userResponse{
		ID:                u.ID.String(),
		UserNumber:        u.Number.String(),
		Role:              u.Role.String(),
		Email:             u.Email,
		DisplayName:       u.DisplayName,
		PhoneNumber:       u.PhoneNumber,
		PreferredLanguage: u.PreferredLanguage,
		Theme:             u.Theme,
		Bio:               u.Bio,
		HourlyRate:        u.HourlyRate,
		Address:           u.Address,
		City:              u.City,
		Country:           u.Country,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

type childResponse struct {
	ID           string    `json:"id"`
	ParentID     string    `json:"parentId"`
	SitterID     *string   `json:"sitterId,omitempty"`
	Name         string    `json:"name"`
	Age          *int      `json:"age,omitempty"`
	ChildNumber  string    `json:"childNumber"`
	ParentNumber string    `json:"parentNumber"`
	SitterNumber string    `json:"sitterNumber,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toChildResponse(c *identity.Child) childResponse {
	resp := childResponse{
		ID:           c.ID.String(),
		ParentID:     c.ParentID.String(),
		Name:         c.Name,
		Age:          c.Age,
		ChildNumber:  c.ChildNumber.String(),
		ParentNumber: c.ParentNumber.String(),
		SitterNumber: c.SitterNumber.String(),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if c.SitterID != nil {
		sid := c.SitterID.String()
		resp.SitterID = &sid
	}
	return resp
}

type updateProfileRequest struct {
	DisplayName       *string  `json:"displayName"`
	PhoneNumber       *string  `json:"phoneNumber"`
	PreferredLanguage *string  `json:"preferredLanguage"`
	Theme             *string  `json:"theme"`
	Bio               *string  `json:"bio"`
	HourlyRate        *float64 `json:"hourlyRate"`
	Address           *string  `json:"address"`
	City              *string  `json:"city"`
	Country           *string  `json:"country"`
}

func (req updateProfileRequest) toUpdate() identity.ProfileUpdate {
	return identity.ProfileUpdate{
		DisplayName:       req.DisplayName,
		PhoneNumber:       req.PhoneNumber,
		PreferredLanguage: req.PreferredLanguage,
		Theme:             req.Theme,
		Bio:               req.Bio,
		HourlyRate:        req.HourlyRate,
		Address:           req.Address,
		City:              req.City,
		Country:           req.Country,
	}
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// handleRegisterMe creates the canonical user record for the authenticated
// caller. ID and role come from the token claims, never from the body.
func (h *Handler) handleRegisterMe(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.svc.Register(r.Context(), service.RegisterParams{
		UserID:      requestcontext.UserID(r.Context()),
		Role:        requestcontext.Role(r.Context()),
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) handleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.GetUser(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), requestcontext.UserID(r.Context()), req.toUpdate())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

type createChildRequest struct {
	Name string `json:"name"`
	Age  *int   `json:"age"`
}

func (h *Handler) handleCreateChild(w http.ResponseWriter, r *http.Request) {
	var req createChildRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	child, err := h.svc.CreateChild(r.Context(), requestcontext.UserID(r.Context()), service.ChildParams{
		Name: req.Name,
		Age:  req.Age,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toChildResponse(child))
}

func (h *Handler) handleListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.svc.ListChildren(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := make([]childResponse, 0, len(children))
	for _, c := range children {
		resp = append(resp, toChildResponse(c))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) childID(r *http.Request) (id.ChildID, error) {
	return id.ParseChildID(chi.URLParam(r, "childID"))
}

func (h *Handler) handleGetChild(w http.ResponseWriter, r *http.Request) {
	childID, err := h.childID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	child, err := h.svc.GetChild(r.Context(), childID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toChildResponse(child))
}

type updateChildRequest struct {
	Name *string `json:"name"`
	Age  *int    `json:"age"`
}

func (h *Handler) handleUpdateChild(w http.ResponseWriter, r *http.Request) {
	childID, err := h.childID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req updateChildRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	child, err := h.svc.UpdateChild(r.Context(), childID, identity.ChildUpdate{Name: req.Name, Age: req.Age})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toChildResponse(child))
}

func (h *Handler) handleDeleteChild(w http.ResponseWriter, r *http.Request) {
	childID, err := h.childID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.svc.DeleteChild(r.Context(), childID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignSitterRequest struct {
	// SitterID null or absent clears the assignment.
	SitterID *string `json:"sitterId"`
}

func (h *Handler) handleAssignSitter(w http.ResponseWriter, r *http.Request) {
	childID, err := h.childID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req assignSitterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	var caregiverID *id.UserID
	if req.SitterID != nil {
		sid, err := id.ParseUserID(*req.SitterID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		caregiverID = &sid
	}

	child, err := h.svc.AssignCaregiver(r.Context(), childID, caregiverID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toChildResponse(child))
}

type instructionsResponse struct {
	ChildID             string            `json:"childId"`
	ParentID            string            `json:"parentId"`
	FeedingSchedule     string            `json:"feedingSchedule,omitempty"`
	NapSchedule         string            `json:"napSchedule,omitempty"`
	Medication          string            `json:"medication,omitempty"`
	Allergies           string            `json:"allergies,omitempty"`
	EmergencyContacts   map[string]string `json:"emergencyContacts,omitempty"`
	SpecialInstructions string            `json:"specialInstructions,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

func toInstructionsResponse(i *identity.Instructions) instructionsResponse {
	return instructionsResponse{
		ChildID:             i.ChildID.String(),
		ParentID:            i.ParentID.String(),
		FeedingSchedule:     i.FeedingSchedule,
		NapSchedule:         i.NapSchedule,
		Medication:          i.Medication,
		Allergies:           i.Allergies,
		EmergencyContacts:   i.EmergencyContacts,
		SpecialInstructions: i.SpecialInstructions,
		CreatedAt:           i.CreatedAt,
		UpdatedAt:           i.UpdatedAt,
	}
}

func (h *Handler) handleGetInstructions(w http.ResponseWriter, r *http.Request) {
	childID, err := h.childID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	instr, err := h.svc.GetInstructions(r.Context(), childID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toInstructionsResponse(instr))
}

// updateInstructionsRequest replaces the whole care sheet; omitted fields
// clear their stored values.
type updateInstructionsRequest struct {
	FeedingSchedule     string            `json:"feedingSchedule"`
	NapSchedule         string            `json:"napSchedule"`
	Medication          string            `json:"medication"`
	Allergies           string            `json:"allergies"`
	EmergencyContacts   map[string]string `json:"emergencyContacts"`
	SpecialInstructions string            `json:"specialInstructions"`
}

func (h *Handler) handleUpdateInstructions(w http.ResponseWriter, r *http.Request) {
	childID, err := h.childID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req updateInstructionsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	instr, err := h.svc.UpdateInstructions(r.Context(), childID, service.InstructionsParams{
		FeedingSchedule:     req.FeedingSchedule,
		NapSchedule:         req.NapSchedule,
		Medication:          req.Medication,
		Allergies:           req.Allergies,
		EmergencyContacts:   req.EmergencyContacts,
		SpecialInstructions: req.SpecialInstructions,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toInstructionsResponse(instr))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	users, err := h.svc.ListUsers(r.Context(), r.URL.Query().Get("role"), limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.svc.GetUser(r.Context(), userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// handleUpdateUser lets admins edit profile fields. Role and userNumber are
// not part of the update shape, so they cannot be changed from here.
func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req updateProfileRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), userID, req.toUpdate())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

type statsResponse struct {
	TotalUsers           int `json:"totalUsers"`
	TotalParents         int `json:"totalParents"`
	TotalSitters         int `json:"totalSitters"`
	TotalAdmins          int `json:"totalAdmins"`
	PendingVerifications int `json:"pendingVerifications"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, statsResponse{
		TotalUsers:           stats.TotalUsers,
		TotalParents:         stats.TotalParents,
		TotalSitters:         stats.TotalSitters,
		TotalAdmins:          stats.TotalAdmins,
		PendingVerifications: stats.PendingVerifications,
	})
}
