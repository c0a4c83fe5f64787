package user

import (
	"context"
	"errors"
	"regexp"

	"tundra/internal/database"
	"tundra/internal/logger"
	apperrors "tundra/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Service struct {
	repo Repository
	log  logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.repoError(ctx, "Failed to list users", err)
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.repoError(ctx, "Failed to get user", err)
	}
	if u == nil {
		return nil, apperrors.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	if err := validateUserFields(req.Name, req.Email); err != nil {
		return nil, err
	}

	u, err := s.repo.Create(ctx, req.Name, req.Email)
	if err != nil {
		return nil, s.repoError(ctx, "Failed to create user", err)
	}

	s.log.InfowCtx(ctx, "User created", "user_id", u.ID, "email", u.Email)
	return u, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateUserRequest) (*User, error) {
	if err := validateUserFields(req.Name, req.Email); err != nil {
		return nil, err
	}

	u, err := s.repo.Update(ctx, id, req.Name, req.Email)
	if err != nil {
		return nil, s.repoError(ctx, "Failed to update user", err)
	}
	if u == nil {
		return nil, apperrors.ErrUserNotFound
	}

	s.log.InfowCtx(ctx, "User updated", "user_id", u.ID)
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.repoError(ctx, "Failed to delete user", err)
	}
	if !deleted {
		return apperrors.ErrUserNotFound
	}

	s.log.InfowCtx(ctx, "User deleted", "user_id", id)
	return nil
}

func validateUserFields(name, email string) error {
	if name == "" {
		return apperrors.ErrValidation.WithMessage("name is required")
	}
	if email == "" {
		return apperrors.ErrValidation.WithMessage("email is required")
	}
	if !emailPattern.MatchString(email) {
		return apperrors.ErrInvalidEmailFormat
	}
	return nil
}

func (s *Service) repoError(ctx context.Context, msg string, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	s.log.ErrorwCtx(ctx, msg, "error", err)
	if errors.Is(err, database.ErrNotConnected) || errors.Is(err, database.ErrClosed) {
		return apperrors.ErrDatabaseConnection.WithCause(err)
	}
	return apperrors.ErrInternal.WithCause(err)
}
