package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/skillpath/skillpath/internal/auth"
	"github.com/skillpath/skillpath/internal/domain"
)

// ProfileHandler handles profile endpoints
type ProfileHandler struct {
	authService *auth.Service
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(authService *auth.Service) *ProfileHandler {
	return &ProfileHandler{authService: authService}
}

// CreateProfileRequest is the request body for profile creation. Blank
// name fields default to the session's metadata.
type CreateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// ProfileResponse is the response for profile data
type ProfileResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	CreatedAt string `json:"created_at"`
}

func profileResponse(profile *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        profile.ID.String(),
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Username:  profile.Username,
		AvatarURL: profile.AvatarURL,
		CreatedAt: profile.CreatedAt.Format(time.RFC3339),
	}
}

// Get returns the authenticated user's profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	profile, err := h.authService.Profile(r.Context(), session.UserID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		h.jsonError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		h.jsonError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]any{
		"profile": profileResponse(profile),
	})
}

// Create records the authenticated user's profile. Name fields default
// to the session's metadata when omitted.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FirstName == "" {
		req.FirstName = session.FirstName
	}
	if req.LastName == "" {
		req.LastName = session.LastName
	}

	profile := domain.NewProfile(session.UserID, req.FirstName, req.LastName)
	profile.Username = req.Username
	profile.AvatarURL = req.AvatarURL

	err := h.authService.CreateProfile(r.Context(), profile)
	if errors.Is(err, domain.ErrConflict) {
		h.jsonError(w, http.StatusConflict, "profile already exists")
		return
	}
	if err != nil {
		h.jsonError(w, http.StatusInternalServerError, "failed to create profile")
		return
	}

	h.jsonResponse(w, http.StatusCreated, map[string]any{
		"profile": profileResponse(profile),
	})
}

func (h *ProfileHandler) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ProfileHandler) jsonError(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
