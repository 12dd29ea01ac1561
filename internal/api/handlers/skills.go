package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/skillpath/skillpath/internal/auth"
	"github.com/skillpath/skillpath/internal/domain"
)

// SkillHandler handles saved-skill endpoints
type SkillHandler struct {
	authService *auth.Service
}

// NewSkillHandler creates a new skill handler
func NewSkillHandler(authService *auth.Service) *SkillHandler {
	return &SkillHandler{authService: authService}
}

// CreateSkillRequest is the request body for saving a finished draft
type CreateSkillRequest struct {
	SkillName    string   `json:"skill_name"`
	Duration     string   `json:"duration"`
	Achievements []string `json:"achievements"`
}

// SkillResponse is the response for skill data
type SkillResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Duration     string   `json:"duration"`
	Achievements []string `json:"achievements"`
	CreatedAt    string   `json:"created_at"`
}

func skillResponse(skill *domain.Skill) SkillResponse {
	achievements := skill.Achievements
	if achievements == nil {
		achievements = []string{}
	}
	return SkillResponse{
		ID:           skill.ID.String(),
		Name:         skill.Name,
		Duration:     skill.Duration,
		Achievements: achievements,
		CreatedAt:    skill.CreatedAt.Format(time.RFC3339),
	}
}

// Create persists a finished skill draft for the authenticated user
func (h *SkillHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	var req CreateSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SkillName == "" {
		h.jsonError(w, http.StatusBadRequest, "skill_name is required")
		return
	}

	draft := domain.NewSkillDraft(req.SkillName)
	draft.SetDuration(req.Duration)
	for _, name := range req.Achievements {
		draft.AddAchievement(name)
	}

	skill, err := h.authService.SaveSkill(r.Context(), session.UserID, draft)
	if err != nil {
		h.jsonError(w, http.StatusInternalServerError, "failed to save skill")
		return
	}

	h.jsonResponse(w, http.StatusCreated, map[string]any{
		"skill": skillResponse(skill),
	})
}

// List returns the authenticated user's saved skills, oldest first
func (h *SkillHandler) List(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	skills, err := h.authService.Skills(r.Context(), session.UserID)
	if err != nil {
		h.jsonError(w, http.StatusInternalServerError, "failed to list skills")
		return
	}

	responses := make([]SkillResponse, 0, len(skills))
	for _, skill := range skills {
		responses = append(responses, skillResponse(skill))
	}

	h.jsonResponse(w, http.StatusOK, map[string]any{
		"skills": responses,
	})
}

func (h *SkillHandler) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *SkillHandler) jsonError(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
