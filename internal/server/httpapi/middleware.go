package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/common"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// UserIDFromContext returns the user id set by requireAccessToken.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// requireAccessToken rejects requests without a valid bearer token with 401.
func (s *HTTPServer) requireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		accessToken, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || accessToken == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}

		userID, err := s.users.Authenticate(accessToken)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "token expired"
			}
			s.logger.Debug(r.Context(), "access token rejected", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

type loggingRecorder struct {
	http.ResponseWriter
	status int
}

func (r *loggingRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &loggingRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Info(r.Context(), "request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status,
			"request_id", r.Header.Get("X-Request-Id"), "duration", time.Since(start))
	})
}
