package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skillpath/skillpath/internal/domain"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewStore(db)
}

func testUser() *domain.User {
	now := time.Now()
	return &domain.User{
		ID:           uuid.New(),
		Email:        "ada@example.com",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		PasswordHash: "not-a-real-hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestStore_CreateAndGetUser(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := testUser()
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	byEmail, err := store.GetUserByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("failed to get user by email: %v", err)
	}
	if byEmail == nil {
		t.Fatal("expected user, got nil")
	}
	if byEmail.ID != user.ID {
		t.Errorf("expected ID %s, got %s", user.ID, byEmail.ID)
	}
	if byEmail.FirstName != "Ada" {
		t.Errorf("expected first name Ada, got %s", byEmail.FirstName)
	}

	byID, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("failed to get user by ID: %v", err)
	}
	if byID.Email != user.Email {
		t.Errorf("expected email %s, got %s", user.Email, byID.Email)
	}
}

func TestStore_GetUserByEmail_Absent(t *testing.T) {
	store := setupStore(t)

	user, err := store.GetUserByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
}

func TestStore_GetUserByID_NotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetUserByID(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestStore_CreateUser_DuplicateEmail(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := testUser()
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	dup := testUser()
	dup.ID = uuid.New()
	err := store.CreateUser(ctx, dup)
	if !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestStore_VerificationFlow(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := testUser()
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if err := store.SetVerificationToken(ctx, user.ID, "tok-123"); err != nil {
		t.Fatalf("failed to set verification token: %v", err)
	}

	found, err := store.GetUserByVerificationToken(ctx, "tok-123")
	if err != nil {
		t.Fatalf("failed to get user by token: %v", err)
	}
	if found == nil || found.ID != user.ID {
		t.Fatalf("expected user %s, got %+v", user.ID, found)
	}

	if err := store.MarkVerified(ctx, user.ID); err != nil {
		t.Fatalf("failed to mark verified: %v", err)
	}

	verified, err := store.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("failed to get user: %v", err)
	}
	if !verified.Verified {
		t.Error("expected user to be verified")
	}

	// Token is cleared on verification
	stale, err := store.GetUserByVerificationToken(ctx, "tok-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stale != nil {
		t.Errorf("expected token lookup to miss after verification, got %+v", stale)
	}
}

func TestStore_SessionLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := testUser()
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     "session-token",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	got, err := store.GetSessionByToken(ctx, "session-token")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.ID != session.ID || got.UserID != user.ID {
		t.Errorf("session mismatch: got %+v", got)
	}

	newExpiry := time.Now().Add(48 * time.Hour)
	if err := store.UpdateSessionExpiry(ctx, session.ID, newExpiry); err != nil {
		t.Fatalf("failed to update expiry: %v", err)
	}
	extended, err := store.GetSessionByToken(ctx, "session-token")
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if !extended.ExpiresAt.After(session.ExpiresAt) {
		t.Error("expected expiry to be extended")
	}

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}
	_, err = store.GetSessionByToken(ctx, "session-token")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStore_DeleteExpiredSessions(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := testUser()
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	expired := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     "expired",
		ExpiresAt: time.Now().Add(-time.Hour),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	live := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     "live",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	for _, s := range []*domain.Session{expired, live} {
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
	}

	if err := store.DeleteExpiredSessions(ctx); err != nil {
		t.Fatalf("failed to delete expired sessions: %v", err)
	}

	if _, err := store.GetSessionByToken(ctx, "expired"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected expired session to be gone, got %v", err)
	}
	if _, err := store.GetSessionByToken(ctx, "live"); err != nil {
		t.Errorf("expected live session to survive, got %v", err)
	}
}

func TestStore_ProfileCreateAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := testUser()
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	profile := domain.NewProfile(user.ID, user.FirstName, user.LastName)
	if err := store.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	got, err := store.GetProfile(ctx, user.ID)
	if err != nil {
		t.Fatalf("failed to get profile: %v", err)
	}
	if got.FirstName != "Ada" || got.LastName != "Lovelace" {
		t.Errorf("profile mismatch: got %+v", got)
	}
}

func TestStore_ProfileMissing(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetProfile(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestStore_ProfileDuplicate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := testUser()
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	profile := domain.NewProfile(user.ID, user.FirstName, user.LastName)
	if err := store.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	if err := store.CreateProfile(ctx, profile); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestStore_SkillsRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	user := testUser()
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	skill := &domain.Skill{
		ID:           uuid.New(),
		UserID:       user.ID,
		Name:         "Curling",
		Duration:     "2 years",
		Achievements: []string{"Regional bronze", "Club captain"},
		CreatedAt:    time.Now(),
	}
	if err := store.CreateSkill(ctx, skill); err != nil {
		t.Fatalf("failed to create skill: %v", err)
	}

	empty := &domain.Skill{
		ID:        uuid.New(),
		UserID:    user.ID,
		Name:      "Chess boxing",
		Duration:  "6 months",
		CreatedAt: time.Now().Add(time.Second),
	}
	if err := store.CreateSkill(ctx, empty); err != nil {
		t.Fatalf("failed to create skill: %v", err)
	}

	skills, err := store.ListSkills(ctx, user.ID)
	if err != nil {
		t.Fatalf("failed to list skills: %v", err)
	}
	if len(skills) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(skills))
	}
	if skills[0].Name != "Curling" {
		t.Errorf("expected Curling first, got %s", skills[0].Name)
	}
	if len(skills[0].Achievements) != 2 || skills[0].Achievements[0] != "Regional bronze" {
		t.Errorf("achievements mismatch: %v", skills[0].Achievements)
	}
	if len(skills[1].Achievements) != 0 {
		t.Errorf("expected no achievements, got %v", skills[1].Achievements)
	}

	other, err := store.ListSkills(ctx, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no skills for other user, got %d", len(other))
	}
}
