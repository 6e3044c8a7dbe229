package auth

import (
	"context"
	"errors"
	"time"

	"github.com/congo-pay/wager_bank/internal/config"
	"github.com/congo-pay/wager_bank/internal/identity"
)

// Service issues and revokes signed tokens for authenticated users.
type Service struct {
	cfg    config.Config
	idRepo identity.Repository
}

// NewService builds a token service.
func NewService(cfg config.Config, idRepo identity.Repository) *Service {
	return &Service{cfg: cfg, idRepo: idRepo}
}

// TokenPair is returned on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues an access/refresh pair for an already authenticated user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	access, err := s.sign(user.ID, user.TokenVersion, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(user.ID, user.TokenVersion, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(s.cfg.AccessTokenTTL.Seconds())}, nil
}

func (s *Service) sign(userID string, version int, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := map[string]any{
		"sub": userID,
		"ver": version,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	return SignHS256(claims, []byte(secret))
}

// Verify checks an access token and returns the subject when its version is current.
func (s *Service) Verify(ctx context.Context, accessToken string) (string, error) {
	return s.verify(ctx, accessToken, s.cfg.JWTSecret)
}

// Refresh verifies the refresh token and returns a new access token if valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	sub, err := s.verify(ctx, refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	user, err := s.idRepo.FindByID(ctx, sub)
	if err != nil {
		return "", 0, err
	}
	signed, err := s.sign(sub, user.TokenVersion, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// Logout increments token version so older tokens become invalid.
func (s *Service) Logout(ctx context.Context, userID string) error {
	user, err := s.idRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.idRepo.UpdateTokenVersion(ctx, user.ID, user.TokenVersion+1)
}

func (s *Service) verify(ctx context.Context, token, secret string) (string, error) {
	claims, err := ParseAndVerifyHS256(token, []byte(secret))
	if err != nil {
		return "", err
	}
	sub, _ := claims["sub"].(string)
	verFloat, _ := claims["ver"].(float64)

	user, err := s.idRepo.FindByID(ctx, sub)
	if err != nil {
		return "", errors.New("user not found")
	}
	if user.TokenVersion != int(verFloat) {
		return "", errors.New("token invalidated")
	}
	return sub, nil
}
