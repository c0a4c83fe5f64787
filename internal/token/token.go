// Package token issues and validates the bearer tokens used by the auth
// endpoints. A token is either valid or rejected; callers never see partial
// validity.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tundra/internal/constants"
	"tundra/internal/logger"
)

// Claims is the identity payload carried by every token.
type Claims struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
	AppID    string `json:"app_id"`
	jwt.RegisteredClaims
}

type Service struct {
	secret    []byte
	expiresIn string
	log       logger.Logger
}

func NewService(secret, expiresIn string, log logger.Logger) (*Service, error) {
	if secret == "" {
		return nil, fmt.Errorf("token service: signing secret is required")
	}
	if expiresIn == "" {
		expiresIn = constants.DefaultJWTExpiresIn
	}

	return &Service{
		secret:    []byte(secret),
		expiresIn: expiresIn,
		log:       log,
	}, nil
}

// Generate signs a token for the given identity triple. It only fails on
// signer misconfiguration, which is a startup-time concern.
func (s *Service) Generate(userID, deviceID, appID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		DeviceID: deviceID,
		AppID:    appID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.ExpirySeconds()) * time.Second)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.log.Errorw("Token generation failed", "error", err, "user_id", userID)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.log.Infow("Token generated",
		"user_id", userID,
		"device_id", deviceID,
		"app_id", appID,
		"expires_in", s.expiresIn,
	)

	return signed, nil
}

// Verify parses and validates a token. Expired, malformed and bad-signature
// tokens all fold into the same nil outcome; the distinction only reaches
// the logs.
func (s *Service) Verify(tokenString string) *Claims {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.log.Warnw("Token expired", "error", err)
		} else {
			s.log.Warnw("Invalid token", "error", err)
		}
		return nil
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		s.log.Warnw("Token verification failed", "reason", "invalid claims")
		return nil
	}

	return claims
}

// ExpirySeconds converts the configured duration string (s/m/h/d suffixes)
// to seconds, defaulting to 7 days on anything unparseable.
func (s *Service) ExpirySeconds() int64 {
	if len(s.expiresIn) < 2 {
		return constants.DefaultJWTExpirySec
	}

	unit := s.expiresIn[len(s.expiresIn)-1]
	value, err := strconv.ParseInt(s.expiresIn[:len(s.expiresIn)-1], 10, 64)
	if err != nil || value < 0 {
		return constants.DefaultJWTExpirySec
	}

	switch unit {
	case 's':
		return value
	case 'm':
		return value * 60
	case 'h':
		return value * 60 * 60
	case 'd':
		return value * 24 * 60 * 60
	default:
		return constants.DefaultJWTExpirySec
	}
}
