// Package transport is the authenticated HTTP client every API call goes
// through. It attaches the session's bearer token, and on a 401 asks the
// refresh.Coordinator for a new one and resends the request exactly once.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/client/refresh"
	"github.com/dmitrijs2005/eumgrid/internal/client/session"
	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/dmitrijs2005/eumgrid/internal/logging"
	"github.com/dmitrijs2005/eumgrid/internal/metrics"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// RequestIDHeader carries the per-call request id.
const RequestIDHeader = "X-Request-Id"

// noRenewal lists paths whose 401 is final. A 401 from the refresh endpoint
// would recurse; one from login means bad credentials.
var noRenewal = map[string]struct{}{
	common.RefreshPath: {},
	common.LoginPath:   {},
}

// Response is a successful (2xx) exchange.
type Response struct {
	Status int
	Body   []byte
}

// Transport is safe for concurrent use.
type Transport struct {
	baseURL string
	client  *http.Client
	session session.Accessor
	coord   *refresh.Coordinator

	logger       logging.Logger
	metrics      *metrics.Metrics
	onTerminated func(error)
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger used for request and renewal logs.
func WithLogger(l logging.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

// WithMetrics records per-request and renewal metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transport) { t.metrics = m }
}

// WithHTTPClient replaces the default client. Its Jar must be set for the
// refresh cookie to be sent.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

// WithOnTerminated registers the session-terminated signal.
func WithOnTerminated(fn func(error)) Option {
	return func(t *Transport) { t.onTerminated = fn }
}

// New builds a Transport for baseURL. Every exchange is bounded by timeout.
func New(baseURL string, timeout time.Duration, s session.Accessor, opts ...Option) (*Transport, error) {
	t := &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: s,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		t.client = &http.Client{Timeout: timeout, Jar: jar}
	}

	t.coord = refresh.New(s, t.renew,
		refresh.WithLogger(t.logger),
		refresh.WithMetrics(t.metrics),
		refresh.WithOnTerminated(t.onTerminated),
	)
	return t, nil
}

// Session returns the session the transport reads tokens from.
func (t *Transport) Session() session.Accessor {
	return t.session
}

// Coordinator returns the renewal coordinator shared by all requests.
func (t *Transport) Coordinator() *refresh.Coordinator {
	return t.coord
}

// Post marshals in, sends it to path and decodes a 2xx body into out.
// out may be nil.
func (t *Transport) Post(ctx context.Context, path string, in, out any) error {
	resp, err := t.Do(ctx, path, in)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Do sends in as a JSON POST to path. Non-2xx responses are returned as
// *StatusError, network failures as common.ErrUnavailable.
func (t *Transport) Do(ctx context.Context, path string, in any) (*Response, error) {
	return t.do(ctx, path, in, newRequestID())
}

func (t *Transport) do(ctx context.Context, path string, in any, requestID string) (*Response, error) {
	body, err := encode(in)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	retried := false
	token := t.coord.AcquireToken()

	for {
		status, data, err := t.send(ctx, path, body, token, requestID)
		if err != nil {
			err = mapError(err)
			t.logger.Error(ctx, "request failed",
				"path", path, "request_id", requestID, "duration", time.Since(start), "error", err)
			return nil, err
		}

		_, final := noRenewal[path]
		if status == http.StatusUnauthorized && !retried && !final {
			retried = true
			t.logger.Debug(ctx, "access token rejected, renewing", "path", path, "request_id", requestID)

			token, err = t.coord.ReportExpired(ctx, token)
			if err != nil {
				t.logger.Error(ctx, "request failed",
					"path", path, "request_id", requestID, "duration", time.Since(start), "error", err)
				return nil, err
			}
			continue
		}

		if status < 200 || status > 299 {
			serr := newStatusError(status, data)
			t.logger.Warn(ctx, "request rejected",
				"path", path, "status", status, "request_id", requestID,
				"duration", time.Since(start), "retried", retried, "message", serr.Message)
			return nil, serr
		}

		t.logger.Info(ctx, "request completed",
			"path", path, "status", status, "request_id", requestID,
			"duration", time.Since(start), "retried", retried)
		return &Response{Status: status, Body: data}, nil
	}
}

func (t *Transport) send(ctx context.Context, path string, body []byte, token, requestID string) (int, []byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.metrics.ObserveRequest(path, 0, time.Since(start))
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	t.metrics.ObserveRequest(path, resp.StatusCode, time.Since(start))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

// renew calls the refresh endpoint. The refresh credential travels in the
// cookie jar, so no bearer token is attached.
func (t *Transport) renew(ctx context.Context) (string, error) {
	requestID := newRequestID()
	status, data, err := t.send(ctx, common.RefreshPath, []byte("{}"), "", requestID)
	if err != nil {
		return "", mapError(err)
	}
	if status < 200 || status > 299 {
		return "", newStatusError(status, data)
	}
	return AccessToken(data)
}

// AccessToken extracts the access token from a login or refresh body,
// accepting both {"accessToken":...} and {"data":{"accessToken":...}}.
func AccessToken(body []byte) (string, error) {
	res := gjson.GetManyBytes(body, "accessToken", "data.accessToken")
	for _, r := range res {
		if s := r.String(); s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("response carries no access token")
}

func encode(in any) ([]byte, error) {
	switch v := in.(type) {
	case nil:
		return []byte("{}"), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", common.ErrValidation, err)
	}
	return b, nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
