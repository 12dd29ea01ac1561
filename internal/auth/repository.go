package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillpath/skillpath/internal/domain"
)

// Repository defines the interface for auth data access. The SQLite
// store and the PostgreSQL repository both implement it.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SetVerificationToken(ctx context.Context, userID uuid.UUID, token string) error
	GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	MarkVerified(ctx context.Context, userID uuid.UUID) error

	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByToken(ctx context.Context, token string) (*domain.Session, error)
	UpdateSessionExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteExpiredSessions(ctx context.Context) error

	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	CreateProfile(ctx context.Context, profile *domain.Profile) error

	CreateSkill(ctx context.Context, skill *domain.Skill) error
	ListSkills(ctx context.Context, userID uuid.UUID) ([]*domain.Skill, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// Ensure PostgresRepository implements Repository
var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// CreateUser inserts a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, first_name, last_name, password_hash, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.Verified, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetUserByEmail retrieves a user by email
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, verified, created_at, updated_at
		FROM users WHERE email = $1
	`
	user := &domain.User{}
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.Verified, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, verified, created_at, updated_at
		FROM users WHERE id = $1
	`
	user := &domain.User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.Verified, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetVerificationToken records the pending verification token for a user
func (r *PostgresRepository) SetVerificationToken(ctx context.Context, userID uuid.UUID, token string) error {
	query := `UPDATE users SET verification_token = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, userID, token)
	return err
}

// GetUserByVerificationToken retrieves the user holding a verification token
func (r *PostgresRepository) GetUserByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, verified, created_at, updated_at
		FROM users WHERE verification_token = $1
	`
	user := &domain.User{}
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.Verified, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// MarkVerified flags a user's email as confirmed and clears the token
func (r *PostgresRepository) MarkVerified(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE users SET verified = TRUE, verification_token = NULL, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// CreateSession inserts a new session
func (r *PostgresRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID, session.UserID, session.Token, session.ExpiresAt, session.CreatedAt,
	)
	return err
}

// GetSessionByToken retrieves a session by token
func (r *PostgresRepository) GetSessionByToken(ctx context.Context, token string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, token, expires_at, created_at
		FROM sessions WHERE token = $1
	`
	session := &domain.Session{}
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&session.ID, &session.UserID, &session.Token, &session.ExpiresAt, &session.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateSessionExpiry extends a session's lifetime
func (r *PostgresRepository) UpdateSessionExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	query := `UPDATE sessions SET expires_at = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, expiresAt)
	return err
}

// DeleteSession removes a session
func (r *PostgresRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM sessions WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// DeleteExpiredSessions removes all expired sessions
func (r *PostgresRepository) DeleteExpiredSessions(ctx context.Context) error {
	query := `DELETE FROM sessions WHERE expires_at < NOW()`
	_, err := r.pool.Exec(ctx, query)
	return err
}

// GetProfile retrieves a profile record by user ID
func (r *PostgresRepository) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := `
		SELECT id, first_name, last_name, username, avatar_url, created_at, updated_at
		FROM profiles WHERE id = $1
	`
	profile := &domain.Profile{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&profile.ID, &profile.FirstName, &profile.LastName,
		&profile.Username, &profile.AvatarURL, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// CreateProfile inserts a profile record
func (r *PostgresRepository) CreateProfile(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, first_name, last_name, username, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query,
		profile.ID, profile.FirstName, profile.LastName,
		profile.Username, profile.AvatarURL, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// CreateSkill inserts a saved skill
func (r *PostgresRepository) CreateSkill(ctx context.Context, skill *domain.Skill) error {
	query := `
		INSERT INTO skills (id, user_id, name, duration, achievements, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		skill.ID, skill.UserID, skill.Name, skill.Duration, skill.Achievements, skill.CreatedAt,
	)
	return err
}

// ListSkills returns a user's saved skills, oldest first
func (r *PostgresRepository) ListSkills(ctx context.Context, userID uuid.UUID) ([]*domain.Skill, error) {
	query := `
		SELECT id, user_id, name, duration, achievements, created_at
		FROM skills WHERE user_id = $1 ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skills []*domain.Skill
	for rows.Next() {
		skill := &domain.Skill{}
		if err := rows.Scan(
			&skill.ID, &skill.UserID, &skill.Name,
			&skill.Duration, &skill.Achievements, &skill.CreatedAt,
		); err != nil {
			return nil, err
		}
		skills = append(skills, skill)
	}
	return skills, rows.Err()
}
