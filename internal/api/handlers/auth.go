package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/skillpath/skillpath/internal/auth"
	"github.com/skillpath/skillpath/internal/domain"
)

type contextKey string

// ContextKeySession holds the authenticated *domain.Session
const ContextKeySession contextKey = "session"

// SessionFromContext retrieves the authenticated session, if any.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(ContextKeySession).(*domain.Session)
	return s, ok
}

// SessionToken extracts a session token from the cookie or the
// Authorization header.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie("session"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *auth.Service
	cookieName   string
	cookieMaxAge int
	secureCookie bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, secureCookie bool, maxAge int) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		cookieName:   "session",
		cookieMaxAge: maxAge,
		secureCookie: secureCookie,
	}
}

// RegisterRequest is the request body for registration
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest carries the token from the verification link
type VerifyRequest struct {
	Token string `json:"token"`
}

// ResendRequest asks for a fresh verification token
type ResendRequest struct {
	Email string `json:"email"`
}

// UserResponse is the response for user data
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Verified  bool   `json:"verified"`
	CreatedAt string `json:"created_at"`
}

// SessionResponse is the response for session data
type SessionResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ExpiresAt string `json:"expires_at"`
}

func userResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Verified:  user.Verified,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func sessionResponse(session *domain.Session) SessionResponse {
	return SessionResponse{
		ID:        session.ID.String(),
		UserID:    session.UserID.String(),
		Email:     session.Email,
		FirstName: session.FirstName,
		LastName:  session.LastName,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	}
}

// Register handles account creation. The verification token is returned
// in the response body until outbound email delivery exists.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		h.jsonError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if len(req.Password) < 8 {
		h.jsonError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, token, err := h.authService.SignUp(r.Context(), auth.SignUpRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if errors.Is(err, auth.ErrEmailExists) {
		h.jsonError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		h.jsonError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	h.jsonResponse(w, http.StatusCreated, map[string]any{
		"user":               userResponse(user),
		"verification_token": token,
	})
}

// Verify confirms an account from a verification token and signs the
// user in.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" {
		h.jsonError(w, http.StatusBadRequest, "token is required")
		return
	}

	result, err := h.authService.Verify(r.Context(), req.Token)
	if errors.Is(err, auth.ErrInvalidToken) {
		h.jsonError(w, http.StatusUnauthorized, "invalid or expired verification token")
		return
	}
	if err != nil {
		h.jsonError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	h.setSessionCookie(w, result.Token)
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"user":    userResponse(result.User),
		"session": sessionResponse(result.Session),
		"token":   result.Token,
	})
}

// Resend issues a fresh verification token for an unverified account.
func (h *AuthHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req ResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		h.jsonError(w, http.StatusBadRequest, "email is required")
		return
	}

	token, err := h.authService.ResendVerification(r.Context(), req.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		h.jsonError(w, http.StatusNotFound, "no account with that email")
		return
	}
	if errors.Is(err, auth.ErrAlreadyVerified) {
		h.jsonError(w, http.StatusConflict, "email already verified")
		return
	}
	if err != nil {
		h.jsonError(w, http.StatusInternalServerError, "resend failed")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]any{
		"verification_token": token,
	})
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		h.jsonError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.jsonError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if errors.Is(err, auth.ErrNotVerified) {
		h.jsonError(w, http.StatusForbidden, "email not verified")
		return
	}
	if err != nil {
		h.jsonError(w, http.StatusInternalServerError, "login failed")
		return
	}

	h.setSessionCookie(w, result.Token)
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"user":    userResponse(result.User),
		"session": sessionResponse(result.Session),
		"token":   result.Token,
	})
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := SessionToken(r)
	if token == "" {
		h.jsonError(w, http.StatusBadRequest, "not logged in")
		return
	}

	if err := h.authService.SignOut(r.Context(), token); err != nil {
		// User wants to log out regardless
	}

	h.clearSessionCookie(w)
	h.jsonResponse(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// Me returns the current session
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := SessionToken(r)
	if token == "" {
		h.jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	session, err := h.authService.CurrentSession(r.Context(), token)
	if err != nil {
		h.clearSessionCookie(w)
		h.jsonError(w, http.StatusUnauthorized, "session expired")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]any{
		"session": sessionResponse(session),
	})
}

// Refresh extends the current session's lifetime
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := SessionToken(r)
	if token == "" {
		h.jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	session, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		h.clearSessionCookie(w)
		h.jsonError(w, http.StatusUnauthorized, "session expired")
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]any{
		"session": sessionResponse(session),
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   h.cookieMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *AuthHandler) jsonError(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
