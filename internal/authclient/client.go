package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillpath/skillpath/internal/domain"
	"github.com/skillpath/skillpath/internal/gate"
)

// Client is a typed HTTP client for the auth and profile endpoints of
// the daemon. It carries the session token across calls so it can act
// as the gate's session source.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Ensure Client satisfies the gate's injected handles
var (
	_ gate.SessionSource    = (*Client)(nil)
	_ gate.ProfileDirectory = (*Client)(nil)
	_ domain.SkillSaver     = (*Client)(nil)
)

// New creates a client for the daemon at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: newHTTPClient(),
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
		},
	}
}

// Token returns the session token held by the client.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken installs a previously persisted session token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// SignUpResult carries the outcome of account creation. The
// verification token stands in for the emailed link.
type SignUpResult struct {
	User              userPayload `json:"user"`
	VerificationToken string      `json:"verification_token"`
}

type userPayload struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Verified  bool   `json:"verified"`
}

type sessionPayload struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ExpiresAt string `json:"expires_at"`
}

type sessionEnvelope struct {
	Session sessionPayload `json:"session"`
	Token   string         `json:"token"`
}

// SignUp creates a new account.
func (c *Client) SignUp(ctx context.Context, email, password, firstName, lastName string) (*SignUpResult, error) {
	var result SignUpResult
	err := c.post(ctx, "/api/v1/auth/register", map[string]string{
		"email":      email,
		"password":   password,
		"first_name": firstName,
		"last_name":  lastName,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Verify confirms an account from its verification token and signs in.
func (c *Client) Verify(ctx context.Context, token string) (*domain.Session, error) {
	var envelope sessionEnvelope
	if err := c.post(ctx, "/api/v1/auth/verify", map[string]string{"token": token}, &envelope); err != nil {
		return nil, err
	}
	c.SetToken(envelope.Token)
	return parseSession(envelope.Session)
}

// ResendVerification asks for a fresh verification token.
func (c *Client) ResendVerification(ctx context.Context, email string) (string, error) {
	var result struct {
		VerificationToken string `json:"verification_token"`
	}
	if err := c.post(ctx, "/api/v1/auth/resend", map[string]string{"email": email}, &result); err != nil {
		return "", err
	}
	return result.VerificationToken, nil
}

// SignIn authenticates with email and password and stores the session
// token for subsequent calls.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	var envelope sessionEnvelope
	err := c.post(ctx, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &envelope)
	if err != nil {
		return nil, err
	}
	c.SetToken(envelope.Token)
	return parseSession(envelope.Session)
}

// SignOut invalidates the held session.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.post(ctx, "/api/v1/auth/logout", map[string]string{}, nil)
	c.SetToken("")
	return err
}

// CurrentSession resolves the held token to its session. An absent or
// rejected session is (nil, nil); only transport failures are errors.
func (c *Client) CurrentSession(ctx context.Context) (*domain.Session, error) {
	if c.Token() == "" {
		return nil, nil
	}

	var envelope sessionEnvelope
	err := c.get(ctx, "/api/v1/auth/me", &envelope)
	if isStatus(err, http.StatusUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return parseSession(envelope.Session)
}

// Refresh extends the held session's lifetime.
func (c *Client) Refresh(ctx context.Context) (*domain.Session, error) {
	var envelope sessionEnvelope
	if err := c.post(ctx, "/api/v1/auth/refresh", map[string]string{}, &envelope); err != nil {
		return nil, err
	}
	return parseSession(envelope.Session)
}

type profilePayload struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Profile retrieves the profile record for the signed-in user. The id
// is checked against the response.
func (c *Client) Profile(ctx context.Context, id string) (*domain.Profile, error) {
	var envelope struct {
		Profile profilePayload `json:"profile"`
	}
	err := c.get(ctx, "/api/v1/profile", &envelope)
	if isStatus(err, http.StatusNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	if id != "" && envelope.Profile.ID != id {
		return nil, domain.ErrProfileNotFound
	}
	return parseProfile(envelope.Profile)
}

// CreateProfile records a profile for the signed-in user.
func (c *Client) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	err := c.post(ctx, "/api/v1/profile", map[string]string{
		"first_name": profile.FirstName,
		"last_name":  profile.LastName,
		"username":   profile.Username,
		"avatar_url": profile.AvatarURL,
	}, nil)
	if isStatus(err, http.StatusConflict) {
		return domain.ErrConflict
	}
	return err
}

// SaveSkill persists a finished skill draft.
func (c *Client) SaveSkill(ctx context.Context, draft *domain.SkillDraft) (*domain.Skill, error) {
	var envelope struct {
		Skill struct {
			ID           string   `json:"id"`
			Name         string   `json:"name"`
			Duration     string   `json:"duration"`
			Achievements []string `json:"achievements"`
		} `json:"skill"`
	}
	err := c.post(ctx, "/api/v1/skills", map[string]any{
		"skill_name":   draft.SkillName,
		"duration":     draft.Duration,
		"achievements": draft.Achievements,
	}, &envelope)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(envelope.Skill.ID)
	if err != nil {
		return nil, fmt.Errorf("parse skill id: %w", err)
	}
	return &domain.Skill{
		ID:           id,
		Name:         envelope.Skill.Name,
		Duration:     envelope.Skill.Duration,
		Achievements: envelope.Skill.Achievements,
	}, nil
}

// Skills lists the signed-in user's saved skills.
func (c *Client) Skills(ctx context.Context) ([]*domain.Skill, error) {
	var envelope struct {
		Skills []struct {
			ID           string   `json:"id"`
			Name         string   `json:"name"`
			Duration     string   `json:"duration"`
			Achievements []string `json:"achievements"`
		} `json:"skills"`
	}
	if err := c.get(ctx, "/api/v1/skills", &envelope); err != nil {
		return nil, err
	}

	skills := make([]*domain.Skill, 0, len(envelope.Skills))
	for _, s := range envelope.Skills {
		id, err := uuid.Parse(s.ID)
		if err != nil {
			return nil, fmt.Errorf("parse skill id: %w", err)
		}
		skills = append(skills, &domain.Skill{
			ID:           id,
			Name:         s.Name,
			Duration:     s.Duration,
			Achievements: s.Achievements,
		})
	}
	return skills, nil
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

func isStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &StatusError{StatusCode: resp.StatusCode, Message: decodeErrorMessage(resp)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeErrorMessage handles both error body shapes the daemon emits:
// {"error":"message"} and {"error":{"code":...,"message":...}}.
func decodeErrorMessage(resp *http.Response) string {
	var raw struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil || len(raw.Error) == 0 {
		return http.StatusText(resp.StatusCode)
	}

	var message string
	if err := json.Unmarshal(raw.Error, &message); err == nil {
		return message
	}

	var structured struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw.Error, &structured); err == nil && structured.Message != "" {
		return structured.Message
	}
	return http.StatusText(resp.StatusCode)
}

func parseSession(payload sessionPayload) (*domain.Session, error) {
	id, err := uuid.Parse(payload.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse session user id: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339, payload.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("parse session expiry: %w", err)
	}

	return &domain.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	}, nil
}

func parseProfile(payload profilePayload) (*domain.Profile, error) {
	id, err := uuid.Parse(payload.ID)
	if err != nil {
		return nil, fmt.Errorf("parse profile id: %w", err)
	}
	return &domain.Profile{
		ID:        id,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		AvatarURL: payload.AvatarURL,
	}, nil
}
