package users

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/yeonsu-dev/stagepass/internal/auth"
	"github.com/yeonsu-dev/stagepass/internal/domain"
	"github.com/yeonsu-dev/stagepass/internal/repository"
	"github.com/yeonsu-dev/stagepass/internal/uow"
)

const reasonSignupBonus = "signup bonus"

type Config struct {
	SignupBonus int64
}

type Service struct {
	store  repository.Store
	tokens *auth.TokenManager
	uow    *uow.UoW
	cfg    Config
}

func New(store repository.Store, tokens *auth.TokenManager, cfg Config) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		uow:    uow.New(store),
		cfg:    cfg,
	}
}

// Register creates a user, credits the signup bonus to the ledger and
// returns a signed token. The user row and the bonus entry commit together.
//
// Returns:
//   - string: the signed token.
//   - error: ErrDuplicatedIDOrUsername when loginID or username is taken.
func (s *Service) Register(ctx context.Context, loginID, password, username string) (string, error) {
	const op = "service.users.Register"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var user *domain.User

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		r repository.Repos,
		after func(uow.AfterCommit),
	) error {
		user, err = r.Users().Create(ctx, loginID, string(hash), username)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDuplicatedIDOrUsername
			}

			return err
		}

		if s.cfg.SignupBonus > 0 {
			if err := r.Ledger().Append(ctx, user.ID, s.cfg.SignupBonus, reasonSignupBonus, nil); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.tokens.Issue(auth.Principal{ID: user.ID, Username: user.Username})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// Login verifies the credentials and returns a signed token.
//
// Returns:
//   - string: the signed token.
//   - error: ErrUserNotFound or ErrPasswordNotMatch.
func (s *Service) Login(ctx context.Context, loginID, password string) (string, error) {
	const op = "service.users.Login"

	user, err := s.store.Users().GetByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", fmt.Errorf("%s: %w", op, ErrPasswordNotMatch)
	}

	token, err := s.tokens.Issue(auth.Principal{ID: user.ID, Username: user.Username})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// Profile returns the user's login id, display name and current point
// balance, computed by summing the ledger.
func (s *Service) Profile(ctx context.Context, userID int64) (*domain.Profile, error) {
	const op = "service.users.Profile"

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	balance, err := s.store.Ledger().Balance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &domain.Profile{
		LoginID:  user.LoginID,
		Username: user.Username,
		Point:    balance,
	}, nil
}
