package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/dmitrijs2005/eumgrid/internal/server/auth"
	"github.com/dmitrijs2005/eumgrid/internal/server/config"
	"github.com/dmitrijs2005/eumgrid/internal/server/refreshtokens"
	"github.com/dmitrijs2005/eumgrid/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Service struct {
	repo                         Repository
	refreshTokenRepo             refreshtokens.Repository
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewService(repo Repository, refreshTokenRepo refreshtokens.Repository, cfg *config.Config) *Service {
	return &Service{
		repo:                         repo,
		refreshTokenRepo:             refreshTokenRepo,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenTTL,
		refreshTokenValidityDuration: cfg.RefreshTokenTTL,
	}
}

func (s *Service) generateRefreshToken() (string, error) {
	return shared.MakeRandHexString(32)
}

func (s *Service) issue(ctx context.Context, user *User) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(user.ID, user.UserName, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.refreshTokenRepo.Create(ctx, user.ID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Login checks the password and issues a token pair. Unknown users and
// wrong passwords both yield shared.ErrorInvalidLoginPassword.
func (s *Service) Login(ctx context.Context, userName, password string) (*TokenPair, *User, error) {
	user, err := s.repo.GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, shared.ErrorInvalidLoginPassword
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, nil, shared.ErrorInvalidLoginPassword
	}

	tokens, err := s.issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return tokens, user, nil
}

// Refresh rotates refreshToken: the old token is revoked and a new pair
// issued. Unknown or expired tokens yield common.ErrRefreshTokenExpired.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, shared.ErrorNoRefreshToken
	}

	rt, err := s.refreshTokenRepo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRefreshTokenExpired
		}
		return nil, err
	}
	if err := s.refreshTokenRepo.Delete(ctx, refreshToken); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRefreshTokenExpired
		}
		return nil, err
	}
	return s.issue(ctx, user)
}

// Logout revokes refreshToken. An empty token is a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.refreshTokenRepo.Delete(ctx, refreshToken)
}

// Authenticate verifies an access token and returns its user id.
func (s *Service) Authenticate(accessToken string) (string, error) {
	return auth.GetUserIDFromToken(accessToken, s.jwtSecret)
}
