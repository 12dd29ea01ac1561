package gate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/skillpath/skillpath/internal/domain"
)

// ProfileDirectory is the injected handle to the profile records of
// the external data store.
type ProfileDirectory interface {
	Profile(ctx context.Context, id string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, profile *domain.Profile) error
}

// CompleteCallback runs the post-verification landing flow: re-query
// the session, ensure a profile record exists for it (created from the
// session's metadata when missing), and decide where to send the
// viewer. Any failure along the way lands on the sign-in entry point.
// There is no rollback for a session left without a profile; the flow
// re-runs on the next callback visit and heals itself there.
func CompleteCallback(ctx context.Context, source SessionSource, profiles ProfileDirectory) Decision {
	signIn := Decision{Action: ActionRedirect, Target: RouteSignIn, Replace: true}

	session, err := source.CurrentSession(ctx)
	if err != nil {
		slog.Warn("callback session lookup failed", "error", err)
		return signIn
	}
	if session == nil {
		return signIn
	}

	if err := ensureProfile(ctx, profiles, session); err != nil {
		slog.Error("profile creation failed after verified session", "user_id", session.UserID, "error", err)
		return signIn
	}

	return Decision{Action: ActionRedirect, Target: RouteProfile, Replace: true}
}

func ensureProfile(ctx context.Context, profiles ProfileDirectory, session *domain.Session) error {
	_, err := profiles.Profile(ctx, session.UserID.String())
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return err
	}

	return profiles.CreateProfile(ctx, domain.NewProfile(session.UserID, session.FirstName, session.LastName))
}
