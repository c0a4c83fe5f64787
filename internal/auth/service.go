package auth

import (
	"context"
	"errors"
	"time"

	"tundra/internal/database"
	"tundra/internal/logger"
	"tundra/internal/token"
	apperrors "tundra/pkg/errors"
	"tundra/pkg/metrics"
)

// Service implements device-based login: the same call registers unknown
// devices and refreshes known ones.
type Service struct {
	repo   Repository
	tokens *token.Service
	log    logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, tokens *token.Service, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

// Login validates the fingerprint payload, then either refreshes the existing
// user keyed by device_id or registers a new one. The second return reports
// whether the device was already known.
func (s *Service) Login(ctx context.Context, req LoginRequest, clientIP string) (*LoginResponse, bool, error) {
	if msg := validateLoginRequest(req); msg != "" {
		s.log.WarnwCtx(ctx, "Login validation failed",
			"reason", msg,
			"device_id", req.DeviceID,
		)
		return nil, false, apperrors.ErrValidation.WithMessage(msg)
	}

	nowMillis := s.now().UnixMilli()

	user, err := s.repo.FindByDeviceID(ctx, req.DeviceID)
	if err != nil {
		return nil, false, s.repoError(ctx, "Failed to look up user by device", loginFailedMsg, err)
	}

	existing := user != nil
	if existing {
		if err := s.repo.UpdateLoginInfo(ctx, user.UserID, req, clientIP, nowMillis); err != nil {
			return nil, false, s.repoError(ctx, "Failed to update user login info", loginFailedMsg, err)
		}
		user.ClientVersion = req.ClientVersion
		user.ClientVersionInt = clientVersionInt(req.ClientVersion)
		user.OSVersion = req.OSVersion
		user.LastActiveTime = &nowMillis
		s.log.InfowCtx(ctx, "Existing user login",
			"user_id", user.UserID,
			"device_id", user.DeviceID,
		)
	} else {
		user, err = s.repo.Create(ctx, req, clientIP, nowMillis)
		if err != nil {
			return nil, false, s.repoError(ctx, "Failed to register user", loginFailedMsg, err)
		}
		s.log.InfowCtx(ctx, "New user registered and logged in",
			"user_id", user.UserID,
			"device_id", user.DeviceID,
		)
	}

	signed, err := s.tokens.Generate(user.UserID, user.DeviceID, user.AppID)
	if err != nil {
		s.log.ErrorwCtx(ctx, "Token generation failed during login",
			"error", err,
			"user_id", user.UserID,
		)
		return nil, false, apperrors.ErrInternal.WithMessage("Login failed due to internal error").WithCause(err)
	}
	metrics.AuthTokensIssuedTotal.Inc()

	return &LoginResponse{
		Token:     signed,
		User:      user,
		ExpiresIn: s.tokens.ExpirySeconds(),
	}, existing, nil
}

// CurrentUser loads the profile behind a verified token and re-checks that
// the token's user_id still matches the stored record for that device.
func (s *Service) CurrentUser(ctx context.Context, claims *token.Claims) (*AppUser, error) {
	user, err := s.repo.FindByDeviceID(ctx, claims.DeviceID)
	if err != nil {
		return nil, s.repoError(ctx, "Failed to load current user", "Failed to retrieve user information", err)
	}
	if user == nil {
		s.log.WarnwCtx(ctx, "User not found for authenticated token",
			"user_id", claims.UserID,
			"device_id", claims.DeviceID,
		)
		return nil, apperrors.ErrUserNotFound
	}
	if user.UserID != claims.UserID {
		s.log.WarnwCtx(ctx, "Token user mismatch",
			"token_user_id", claims.UserID,
			"stored_user_id", user.UserID,
			"device_id", claims.DeviceID,
		)
		return nil, apperrors.ErrInvalidToken.WithMessage("Invalid token")
	}

	return user, nil
}

const loginFailedMsg = "Login failed due to internal error"

func (s *Service) repoError(ctx context.Context, logMsg, publicMsg string, err error) error {
	s.log.ErrorwCtx(ctx, logMsg, "error", err)
	if errors.Is(err, database.ErrNotConnected) || errors.Is(err, database.ErrClosed) {
		return apperrors.ErrDatabaseConnection.WithCause(err)
	}
	return apperrors.ErrInternal.WithMessage(publicMsg).WithCause(err)
}
