// Package services contains application services for the gridctl client.
// This file defines the authentication service: login against the backend,
// logout, and access to the current session user.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/eumgrid/internal/client/session"
	"github.com/dmitrijs2005/eumgrid/internal/client/transport"
	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/dmitrijs2005/eumgrid/internal/logging"
	"github.com/dmitrijs2005/eumgrid/internal/shared"
	"github.com/tidwall/gjson"
)

// ErrInvalidCredentials is returned when the backend rejects a login.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Doer is the part of transport.Transport the services need.
type Doer interface {
	Do(ctx context.Context, path string, in any) (*transport.Response, error)
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: exchange credentials for an access token and store it together
//     with the user record in the session.
//   - Logout: tell the backend (best effort) and always clear the session.
//   - WhoAmI: the user of the current session, or nil.
//   - SetUser: replace the session user without touching the token.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) (*session.User, error)
	Logout(ctx context.Context)
	WhoAmI() *session.User
	SetUser(u *session.User)
}

type authService struct {
	client  Doer
	session session.Accessor
	logger  logging.Logger
}

// NewAuthService constructs an AuthService posting through client and
// writing into s.
func NewAuthService(client Doer, s session.Accessor, logger logging.Logger) AuthService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &authService{client: client, session: s, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login wipes password once the request body has been built. When the
// response carries no userInfo the user id is read from the token claims.
func (a *authService) Login(ctx context.Context, username string, password []byte) (*session.User, error) {
	if username == "" {
		shared.WipeByteArray(password)
		return nil, fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	req := loginRequest{Username: username, Password: string(password)}
	shared.WipeByteArray(password)

	resp, err := a.client.Do(ctx, common.LoginPath, req)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, err
	}

	token, err := transport.AccessToken(resp.Body)
	if err != nil {
		return nil, err
	}

	user, err := userFromLogin(resp.Body, token)
	if err != nil {
		return nil, err
	}
	if user.UserName == "" {
		user.UserName = username
	}

	a.session.SetAccessToken(token)
	a.session.SetUser(user)
	a.logger.Info(ctx, "logged in", "user_id", user.UserID)
	return user, nil
}

func userFromLogin(body []byte, token string) (*session.User, error) {
	info := gjson.GetBytes(body, "userInfo")
	if !info.Exists() {
		info = gjson.GetBytes(body, "data.userInfo")
	}

	u := &session.User{}
	if info.IsObject() {
		if err := json.Unmarshal([]byte(info.Raw), u); err != nil {
			return nil, fmt.Errorf("decode userInfo: %w", err)
		}
	}
	if u.UserID == "" {
		id, err := session.UserIDFromToken(token)
		if err != nil {
			return nil, fmt.Errorf("login response carries no user id: %w", err)
		}
		u.UserID = id
	}
	return u, nil
}

func (a *authService) Logout(ctx context.Context) {
	if a.session.Snapshot().IsAuthenticated {
		if _, err := a.client.Do(ctx, common.LogoutPath, struct{}{}); err != nil {
			a.logger.Warn(ctx, "logout request failed", "error", err)
		}
	}
	a.session.Clear()
}

func (a *authService) WhoAmI() *session.User {
	return a.session.Snapshot().User
}

func (a *authService) SetUser(u *session.User) {
	a.session.SetUser(u)
}
