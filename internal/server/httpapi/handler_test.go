package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/client/grid"
	"github.com/dmitrijs2005/eumgrid/internal/client/services"
	"github.com/dmitrijs2005/eumgrid/internal/client/session"
	"github.com/dmitrijs2005/eumgrid/internal/client/transport"
	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/dmitrijs2005/eumgrid/internal/logging"
	"github.com/dmitrijs2005/eumgrid/internal/metrics"
	"github.com/dmitrijs2005/eumgrid/internal/server/auth"
	"github.com/dmitrijs2005/eumgrid/internal/server/config"
	"github.com/dmitrijs2005/eumgrid/internal/server/procedures"
	"github.com/dmitrijs2005/eumgrid/internal/server/refreshtokens"
	"github.com/dmitrijs2005/eumgrid/internal/server/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	cfg    *config.Config
	srv    *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()

	repo := users.NewMemoryRepository()
	require.NoError(t, users.Seed(context.Background(), repo, []users.Account{
		{ID: "u1", UserName: "alice", Password: "pw", Roles: []string{"viewer"}},
	}, bcrypt.MinCost))
	us := users.NewService(repo, refreshtokens.NewMemoryRepository(), cfg)

	now := func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) }
	s := NewHTTPServer(cfg, logging.Nop(), us, procedures.Fixtures(now), metrics.New())

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{cfg: cfg, srv: srv, client: &http.Client{Jar: jar}}
}

func (e *testEnv) post(t *testing.T, path, token, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api"+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	resp, body := e.post(t, common.LoginPath, "", `{"username":"alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	return gjson.GetBytes(body, "accessToken").String()
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.post(t, common.LoginPath, "", `{"username":"alice","password":"pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, gjson.GetBytes(body, "accessToken").String())
	assert.Equal(t, "u1", gjson.GetBytes(body, "userInfo.userId").String())
	assert.Equal(t, "viewer", gjson.GetBytes(body, "userInfo.roles.0").String())

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == common.RefreshCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/api/auth", cookie.Path)
	assert.Len(t, cookie.Value, 64)
}

func TestLogin_Rejects(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.post(t, common.LoginPath, "", `{"username":"alice","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid login/password", gjson.GetBytes(body, "message").String())

	resp, _ = e.post(t, common.LoginPath, "", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGridData_RequiresToken(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.post(t, common.GridDataPath, "", `{"callId":"P_1010"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing token", gjson.GetBytes(body, "message").String())

	expired, err := auth.GenerateToken("u1", "alice", []byte(e.cfg.SecretKey), -time.Minute)
	require.NoError(t, err)
	resp, body = e.post(t, common.GridDataPath, expired, `{"callId":"P_1010"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "token expired", gjson.GetBytes(body, "message").String())

	resp, body = e.post(t, common.GridDataPath, "garbage", `{"callId":"P_1010"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid token", gjson.GetBytes(body, "message").String())
}

func TestGridData(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t)

	tests := []struct {
		name   string
		body   string
		status int
		check  func(t *testing.T, body []byte)
	}{
		{
			name:   "rows",
			body:   `{"callId":"P_1010","parameters":["20240101","20240103"],"parametertype":["S","S"],"metadata":{"source":"web","requestId":"REQ-1","userId":"u1"}}`,
			status: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.Equal(t, int64(3), gjson.GetBytes(body, "data.rows.#").Int())
				assert.Equal(t, "REQ-1", gjson.GetBytes(body, "metadata.requestId").String())
				assert.Equal(t, "u1", gjson.GetBytes(body, "metadata.userId").String())
				assert.Equal(t, gjson.Number, gjson.GetBytes(body, "timestamp").Type)
			},
		},
		{name: "unknown procedure", body: `{"callId":"P_404"}`, status: http.StatusNotFound},
		{name: "empty types skip the length check", body: `{"callId":"P_1010","parameters":["20240301"],"parametertype":[]}`, status: http.StatusOK},
		{name: "types without parameters", body: `{"callId":"P_1010","parameters":[],"parametertype":["S"]}`, status: http.StatusBadRequest},
		{name: "bad date", body: `{"callId":"P_1010","parameters":["soon"]}`, status: http.StatusBadRequest},
		{name: "missing callId", body: `{}`, status: http.StatusBadRequest},
		{name: "malformed", body: `[`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := e.post(t, common.GridDataPath, token, tt.body)
			require.Equal(t, tt.status, resp.StatusCode, string(body))
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestRefreshAndLogout(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	resp, body := e.post(t, common.RefreshPath, "", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	fresh := gjson.GetBytes(body, "accessToken").String()
	require.NotEmpty(t, fresh)

	resp, _ = e.post(t, common.GridDataPath, fresh, `{"callId":"P_1030"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = e.post(t, common.LogoutPath, "", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = e.post(t, common.RefreshPath, "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "no refresh token", gjson.GetBytes(body, "message").String())
}

func TestRefresh_RevokedToken(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api"+common.RefreshPath, nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: common.RefreshCookieName, Value: "deadbeef"})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMetricsAndHealth(t *testing.T) {
	e := newTestEnv(t)
	e.login(t)

	resp, err := e.client.Get(e.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = e.client.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "eumgrid_http_requests_total")
	assert.Contains(t, string(body), `path="/api/auth/login"`)
}

func TestRouting(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{name: "login requires POST", method: http.MethodGet, path: "/api" + common.LoginPath, status: http.StatusMethodNotAllowed},
		{name: "grid data requires POST", method: http.MethodGet, path: "/api" + common.GridDataPath, status: http.StatusMethodNotAllowed},
		{name: "health requires GET", method: http.MethodPost, path: "/healthz", status: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodPost, path: "/api/nope", status: http.StatusNotFound},
		{name: "path outside base", method: http.MethodPost, path: common.LoginPath, status: http.StatusNotFound},
		{name: "grid data checks token", method: http.MethodPost, path: "/api" + common.GridDataPath, status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, e.srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := e.client.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

// TestClientRenewsExpiredToken drives the real client stack against the
// server: an expired access token is renewed through the refresh cookie
// and the grid request is replayed.
func TestClientRenewsExpiredToken(t *testing.T) {
	e := newTestEnv(t)

	store := session.NewMemoryStore()
	tr, err := transport.New(e.srv.URL+"/api", 2*time.Second, store)
	require.NoError(t, err)

	authSvc := services.NewAuthService(tr, store, nil)
	user, err := authSvc.Login(context.Background(), "alice", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)

	expired, err := auth.GenerateToken("u1", "alice", []byte(e.cfg.SecretKey), -time.Minute)
	require.NoError(t, err)
	store.SetAccessToken(expired)

	g := grid.New(grid.NewAPI(tr, nil), grid.WithLocation(time.UTC))
	req := grid.RequestFactory{Session: store}.New("P_1010", []any{"20240101", "20240107"}, []string{"S", "S"})
	require.NoError(t, g.Load(context.Background(), req))

	assert.Len(t, g.Rows(), 7)
	assert.NotEqual(t, expired, store.Snapshot().AccessToken)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), g.Rows()[0]["sale_day"])

	authSvc.Logout(context.Background())
	assert.False(t, store.Snapshot().IsAuthenticated)
}
