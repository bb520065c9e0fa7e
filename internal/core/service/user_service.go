package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clubhub/user-service/internal/api/metrics"
	"github.com/clubhub/user-service/internal/core/domain"
	"github.com/clubhub/user-service/internal/core/ports"
)

type userService struct {
	repo     ports.UserRepository
	idp      ports.IdentityProvider
	notifier ports.Notifier
	log      zerolog.Logger
}

// NewUserService returns the UserService implementation coordinating the
// identity provider, the local repository and the notifier.
func NewUserService(
	repo ports.UserRepository,
	idp ports.IdentityProvider,
	notifier ports.Notifier,
	log zerolog.Logger,
) ports.UserService {
	return &userService{repo: repo, idp: idp, notifier: notifier, log: log}
}

// Create provisions a new account: uniqueness check, remote identity create,
// local persist, best-effort welcome mail. The remote identity and the local
// record share one id, so a persistence failure after the remote create
// triggers a compensating identity delete before the original error is
// returned. The compensating call is synchronous, best-effort and not
// retried; there is no two-phase commit between the two stores.
func (s *userService) Create(ctx context.Context, actor domain.Principal, in ports.CreateUserInput) (*domain.User, error) {
	// 1. Uniqueness. Fails before any remote or local side effect. Racing
	// creates that both pass this check are resolved by the store's unique
	// indexes, not by application-level locking.
	taken, err := s.repo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("create user: username check: %w", err)
	}
	if taken {
		return nil, &domain.AlreadyExistsError{Field: "username", Value: in.Username}
	}
	taken, err = s.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("create user: email check: %w", err)
	}
	if taken {
		return nil, &domain.AlreadyExistsError{Field: "email", Value: in.Email}
	}

	// 2. Remote create. Failure here is terminal; no local record exists yet.
	id, secret, err := s.idp.CreateIdentity(ctx, ports.NewIdentity{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      in.Role,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        id,
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// 3. Local persist. On failure, compensate by deleting the just-created
	// remote identity and re-raise the original error unwrapped. A failed
	// compensation must not mask the primary failure, so its error is only
	// logged and counted.
	if err := s.repo.Save(ctx, user); err != nil {
		s.log.Error().Err(err).
			Str("identity_id", id).
			Str("username", in.Username).
			Msg("local persistence failed, deleting remote identity")
		metrics.CompensationsTotal.Inc()
		if delErr := s.idp.DeleteIdentity(ctx, id); delErr != nil {
			s.log.Error().Err(delErr).
				Str("identity_id", id).
				Msg("compensating identity delete failed, remote identity orphaned")
			metrics.OrphanedIdentitiesTotal.Inc()
		}
		return nil, err
	}

	metrics.UsersCreatedTotal.WithLabelValues(string(in.Role)).Inc()
	s.log.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Str("actor", actor.Username).
		Msg("user created")

	// 4. Best-effort notification. Failure affects neither the stored state
	// nor the returned result.
	if mailErr := s.notifier.SendWelcome(ctx, user.Email, user.Username, secret); mailErr != nil {
		s.log.Warn().Err(mailErr).Str("user_id", user.ID).Msg("welcome email failed")
		metrics.WelcomeEmailsTotal.WithLabelValues("error").Inc()
	} else {
		metrics.WelcomeEmailsTotal.WithLabelValues("sent").Inc()
	}

	return user, nil
}

func (s *userService) Get(ctx context.Context, _ domain.Principal, id string) (*domain.User, error) {
	return s.findByID(ctx, id)
}

func (s *userService) List(ctx context.Context, _ domain.Principal) ([]*domain.User, error) {
	return s.repo.FindAll(ctx)
}

// Update pushes the non-nil fields to the identity provider first, then
// applies the same fields locally. If the remote update succeeds and the
// local save fails the two stores diverge; that divergence is logged and
// accepted. There is deliberately no compensation on this path.
func (s *userService) Update(ctx context.Context, actor domain.Principal, id string, in ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.idp.UpdateIdentity(ctx, id, ports.IdentityUpdate{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}); err != nil {
		return nil, err
	}

	mergeUpdate(user, in)
	user.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, user); err != nil {
		s.log.Error().Err(err).
			Str("user_id", id).
			Msg("local update failed after remote update, stores diverge")
		return nil, err
	}

	s.log.Info().Str("user_id", id).Str("actor", actor.Username).Msg("user updated")
	return user, nil
}

// ResetCredential sets a new permanent password in the identity provider.
// Credentials are never stored locally, so no local mutation occurs.
func (s *userService) ResetCredential(ctx context.Context, actor domain.Principal, id string, newPassword string) error {
	if _, err := s.findByID(ctx, id); err != nil {
		return err
	}
	if err := s.idp.ResetCredential(ctx, id, newPassword); err != nil {
		return err
	}
	s.log.Info().Str("user_id", id).Str("actor", actor.Username).Msg("credentials reset")
	return nil
}

// Delete removes the local record first, then best-effort deletes the remote
// identity. A silently failing remote delete leaves an orphaned identity;
// that is counted but never surfaced to the caller.
func (s *userService) Delete(ctx context.Context, actor domain.Principal, id string) error {
	if _, err := s.findByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if delErr := s.idp.DeleteIdentity(ctx, id); delErr != nil {
		s.log.Error().Err(delErr).
			Str("identity_id", id).
			Msg("remote identity delete failed, remote identity orphaned")
		metrics.OrphanedIdentitiesTotal.Inc()
	}
	s.log.Info().Str("user_id", id).Str("actor", actor.Username).Msg("user deleted")
	return nil
}

func (s *userService) findByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// mergeUpdate copies only the fields present in the request onto the stored
// user. Id, username, role and createdAt are never touched.
func mergeUpdate(user *domain.User, in ports.UpdateUserInput) {
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
}
