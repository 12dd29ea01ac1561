package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/skillpath/skillpath/internal/domain"
	"github.com/skillpath/skillpath/internal/events"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrNotVerified        = errors.New("email not verified")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrInvalidToken       = errors.New("invalid verification token")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionNotFound    = errors.New("session not found")
)

// Publisher receives session-change notifications emitted by the
// service: sign-in, sign-out, token refresh.
type Publisher interface {
	Publish(ev events.Event)
}

// Service handles authentication and profile operations
type Service struct {
	repo          Repository
	publisher     Publisher
	sessionMaxAge time.Duration
	bcryptCost    int
}

// NewService creates a new auth service
func NewService(repo Repository, publisher Publisher, sessionMaxAge time.Duration) *Service {
	return &Service{
		repo:          repo,
		publisher:     publisher,
		sessionMaxAge: sessionMaxAge,
		bcryptCost:    bcrypt.DefaultCost,
	}
}

// SignUpRequest contains registration data, including the metadata
// carried onto sessions and later seeded into the profile record.
type SignUpRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// SignUp creates a new unverified account and returns the verification
// token that would be delivered by email.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*domain.User, string, error) {
	existing, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err == nil && existing != nil {
		return nil, "", ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := generateToken(32)
	if err != nil {
		return nil, "", err
	}
	if err := s.repo.SetVerificationToken(ctx, user.ID, token); err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// ResendVerification issues a fresh verification token for an
// unverified account. Retries are always user-initiated.
func (s *Service) ResendVerification(ctx context.Context, email string) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", domain.ErrUserNotFound
	}
	if user.Verified {
		return "", ErrAlreadyVerified
	}

	token, err := generateToken(32)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetVerificationToken(ctx, user.ID, token); err != nil {
		return "", err
	}
	return token, nil
}

// Verify confirms an account from its verification token and signs the
// user in, mirroring the email-link landing.
func (s *Service) Verify(ctx context.Context, token string) (*SignInResult, error) {
	user, err := s.repo.GetUserByVerificationToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	if !user.Verified {
		if err := s.repo.MarkVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		user.Verified = true
	}

	return s.startSession(ctx, user)
}

// SignInResult contains the outcome of a successful sign-in
type SignInResult struct {
	User    *domain.User
	Session *domain.Session
	Token   string
}

// SignIn authenticates a user with email and password and creates a
// session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		return nil, ErrNotVerified
	}

	return s.startSession(ctx, user)
}

func (s *Service) startSession(ctx context.Context, user *domain.User) (*SignInResult, error) {
	token, err := generateToken(32)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.sessionMaxAge),
		CreatedAt: time.Now(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.publish(events.Event{
		Type:      events.SignedIn,
		UserID:    user.ID.String(),
		SessionID: session.ID.String(),
	})

	return &SignInResult{User: user, Session: session, Token: token}, nil
}

// SignOut invalidates a session
func (s *Service) SignOut(ctx context.Context, token string) error {
	session, err := s.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return ErrSessionNotFound
	}

	if err := s.repo.DeleteSession(ctx, session.ID); err != nil {
		return err
	}

	s.publish(events.Event{
		Type:      events.SignedOut,
		UserID:    session.UserID.String(),
		SessionID: session.ID.String(),
	})
	return nil
}

// CurrentSession resolves a session token to the session with its user
// metadata attached. Expired sessions are deleted and reported.
func (s *Service) CurrentSession(ctx context.Context, token string) (*domain.Session, error) {
	session, err := s.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		_ = s.repo.DeleteSession(ctx, session.ID)
		return nil, ErrSessionExpired
	}

	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	session.Email = user.Email
	session.FirstName = user.FirstName
	session.LastName = user.LastName
	return session, nil
}

// Refresh extends a session's lifetime and notifies subscribers.
func (s *Service) Refresh(ctx context.Context, token string) (*domain.Session, error) {
	session, err := s.CurrentSession(ctx, token)
	if err != nil {
		return nil, err
	}

	session.ExpiresAt = time.Now().Add(s.sessionMaxAge)
	if err := s.repo.UpdateSessionExpiry(ctx, session.ID, session.ExpiresAt); err != nil {
		return nil, err
	}

	s.publish(events.Event{
		Type:      events.Refreshed,
		UserID:    session.UserID.String(),
		SessionID: session.ID.String(),
	})
	return session, nil
}

// Profile retrieves a profile record by user ID.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return s.repo.GetProfile(ctx, id)
}

// CreateProfile inserts a profile record. Inserting an existing ID
// reports domain.ErrConflict.
func (s *Service) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	return s.repo.CreateProfile(ctx, profile)
}

// SaveSkill persists a finished skill draft for a user.
func (s *Service) SaveSkill(ctx context.Context, userID uuid.UUID, draft *domain.SkillDraft) (*domain.Skill, error) {
	skill := domain.NewSkill(userID, draft)
	if err := s.repo.CreateSkill(ctx, skill); err != nil {
		return nil, err
	}
	return skill, nil
}

// Skills lists a user's saved skills.
func (s *Service) Skills(ctx context.Context, userID uuid.UUID) ([]*domain.Skill, error) {
	return s.repo.ListSkills(ctx, userID)
}

// CleanupExpiredSessions removes all expired sessions
func (s *Service) CleanupExpiredSessions(ctx context.Context) error {
	return s.repo.DeleteExpiredSessions(ctx)
}

func (s *Service) publish(ev events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(ev)
	}
}

// generateToken creates a cryptographically secure random token
func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
