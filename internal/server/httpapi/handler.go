package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/dmitrijs2005/eumgrid/internal/server/procedures"
	"github.com/dmitrijs2005/eumgrid/internal/server/users"
	"github.com/dmitrijs2005/eumgrid/internal/shared"
	"github.com/dmitrijs2005/eumgrid/internal/wire"
)

const (
	loginPath    = common.LoginPath
	refreshPath  = common.RefreshPath
	logoutPath   = common.LogoutPath
	gridDataPath = common.GridDataPath
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string     `json:"accessToken"`
	UserInfo    users.Info `json:"userInfo"`
}

type gridResponse struct {
	Status    int            `json:"status"`
	Message   string         `json:"message"`
	Data      wire.Data      `json:"data"`
	Timestamp float64        `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"status": status, "message": msg})
}

func (s *HTTPServer) setRefreshCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshCookieName,
		Value:    token,
		Path:     s.route("/auth"),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func refreshCookie(r *http.Request) string {
	c, err := r.Cookie(common.RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, shared.ErrorInvalidRequestBody.Error())
		return
	}

	tokens, user, err := s.users.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrorInvalidLoginPassword) {
			s.logger.Info(ctx, "login rejected", "username", req.Username)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.logger.Error(ctx, "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.setRefreshCookie(w, tokens.RefreshToken, int(s.refreshTokenTTL.Seconds()))
	s.logger.Info(ctx, "Logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: tokens.AccessToken, UserInfo: user.Info()})
}

func (s *HTTPServer) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tokens, err := s.users.Refresh(ctx, refreshCookie(r))
	if err != nil {
		if errors.Is(err, shared.ErrorNoRefreshToken) || errors.Is(err, common.ErrRefreshTokenExpired) {
			s.setRefreshCookie(w, "", -1)
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.logger.Error(ctx, "refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.setRefreshCookie(w, tokens.RefreshToken, int(s.refreshTokenTTL.Seconds()))
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": tokens.AccessToken})
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Logout(r.Context(), refreshCookie(r)); err != nil {
		s.logger.Warn(r.Context(), "logout failed", "error", err)
	}
	s.setRefreshCookie(w, "", -1)
	writeJSON(w, http.StatusOK, map[string]any{"status": http.StatusOK, "message": "Logged out"})
}

func (s *HTTPServer) gridData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := UserIDFromContext(ctx)

	var req wire.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, shared.ErrorInvalidRequestBody.Error())
		return
	}
	if req.CallID == "" {
		writeError(w, http.StatusBadRequest, "callId is required")
		return
	}

	data, err := s.procs.Call(ctx, req.CallID, procedures.Call{
		Params: req.Parameters,
		Types:  req.ParameterTypes,
		UserID: userID,
	})
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, shared.ErrorUnknownProcedure):
			status = http.StatusNotFound
		case errors.Is(err, shared.ErrorParameterMismatch), errors.Is(err, common.ErrValidation):
			status = http.StatusBadRequest
		}
		s.logger.Warn(ctx, "procedure failed", "call_id", req.CallID, "user_id", userID, "error", err)
		writeError(w, status, err.Error())
		return
	}

	s.logger.Info(ctx, "procedure completed", "call_id", req.CallID, "user_id", userID, "rows", len(data.Rows))
	writeJSON(w, http.StatusOK, gridResponse{
		Status:    http.StatusOK,
		Message:   "OK",
		Data:      data,
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
		Metadata: map[string]any{
			"requestId": req.Metadata.RequestID,
			"userId":    userID,
			"source":    req.Metadata.Source,
		},
	})
}
