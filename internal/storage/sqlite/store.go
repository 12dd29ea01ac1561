package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/skillpath/skillpath/internal/auth"
	"github.com/skillpath/skillpath/internal/domain"
)

// Store implements auth.Repository backed by SQLite.
type Store struct {
	db *DB
}

// Ensure Store implements auth.Repository
var _ auth.Repository = (*Store)(nil)

// NewStore creates a new SQLite-backed repository.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, password_hash, verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID.String(), user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.Verified, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrUserAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email. Absence is (nil, nil).
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, password_hash, verified, created_at, updated_at
		FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, password_hash, verified, created_at, updated_at
		FROM users WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	return user, err
}

// SetVerificationToken records the pending verification token for a user.
func (s *Store) SetVerificationToken(ctx context.Context, userID uuid.UUID, token string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET verification_token = ?, updated_at = ? WHERE id = ?`,
		token, time.Now(), userID.String(),
	)
	if err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	return nil
}

// GetUserByVerificationToken retrieves the user holding a verification
// token. Absence is (nil, nil).
func (s *Store) GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	user, err := s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, password_hash, verified, created_at, updated_at
		FROM users WHERE verification_token = ?`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// MarkVerified flags a user's email as confirmed and clears the token.
func (s *Store) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET verified = 1, verification_token = NULL, updated_at = ? WHERE id = ?`,
		time.Now(), userID.String(),
	)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// CreateSession inserts a new session.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		session.ID.String(), session.UserID.String(), session.Token,
		session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSessionByToken retrieves a session by token.
func (s *Store) GetSessionByToken(ctx context.Context, token string) (*domain.Session, error) {
	var (
		session       domain.Session
		idStr, uidStr string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, created_at
		FROM sessions WHERE token = ?`, token).Scan(
		&idStr, &uidStr, &session.Token, &session.ExpiresAt, &session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	if session.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	if session.UserID, err = uuid.Parse(uidStr); err != nil {
		return nil, fmt.Errorf("parse session user id: %w", err)
	}
	return &session, nil
}

// UpdateSessionExpiry extends a session's lifetime.
func (s *Store) UpdateSessionExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ? WHERE id = ?`, expiresAt, id.String())
	if err != nil {
		return fmt.Errorf("update session expiry: %w", err)
	}
	return nil
}

// DeleteSession removes a session.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions.
func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now())
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile record by user ID.
func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var (
		profile domain.Profile
		idStr   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, username, avatar_url, created_at, updated_at
		FROM profiles WHERE id = ?`, id.String()).Scan(
		&idStr, &profile.FirstName, &profile.LastName,
		&profile.Username, &profile.AvatarURL, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	if profile.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parse profile id: %w", err)
	}
	return &profile, nil
}

// CreateProfile inserts a profile record.
func (s *Store) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, first_name, last_name, username, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profile.ID.String(), profile.FirstName, profile.LastName,
		profile.Username, profile.AvatarURL, profile.CreatedAt, profile.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// CreateSkill inserts a saved skill.
func (s *Store) CreateSkill(ctx context.Context, skill *domain.Skill) error {
	achievements, err := json.Marshal(skill.Achievements)
	if err != nil {
		return fmt.Errorf("marshal achievements: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO skills (id, user_id, name, duration, achievements, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		skill.ID.String(), skill.UserID.String(), skill.Name,
		skill.Duration, string(achievements), skill.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert skill: %w", err)
	}
	return nil
}

// ListSkills returns a user's saved skills, oldest first.
func (s *Store) ListSkills(ctx context.Context, userID uuid.UUID) ([]*domain.Skill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, duration, achievements, created_at
		FROM skills WHERE user_id = ? ORDER BY created_at`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	var skills []*domain.Skill
	for rows.Next() {
		var (
			skill            domain.Skill
			idStr, uidStr    string
			achievementsJSON string
		)
		if err := rows.Scan(&idStr, &uidStr, &skill.Name, &skill.Duration, &achievementsJSON, &skill.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		if skill.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse skill id: %w", err)
		}
		if skill.UserID, err = uuid.Parse(uidStr); err != nil {
			return nil, fmt.Errorf("parse skill user id: %w", err)
		}
		if err := json.Unmarshal([]byte(achievementsJSON), &skill.Achievements); err != nil {
			return nil, fmt.Errorf("unmarshal achievements: %w", err)
		}
		skills = append(skills, &skill)
	}
	return skills, rows.Err()
}

func (s *Store) scanUser(row *sql.Row) (*domain.User, error) {
	var (
		user  domain.User
		idStr string
	)
	err := row.Scan(
		&idStr, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.Verified, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if user.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
