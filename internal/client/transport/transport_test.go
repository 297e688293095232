package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/eumgrid/internal/client/session"
	"github.com/dmitrijs2005/eumgrid/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const dataPath = "/eum/stp/getGridData"

// fakeAPI accepts bearer token "new" on dataPath and hands out "new" from
// /auth/refresh when the refresh cookie set by /auth/login is present.
type fakeAPI struct {
	refreshCalls atomic.Int32
	dataCalls    atomic.Int32
	alwaysReject bool
	refreshFails bool

	mu          sync.Mutex
	lastBody    map[string]any
	tokensSeen  []string
	requestIDs  []string
	refreshAuth []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(common.LoginPath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: common.RefreshCookieName, Value: "rt-1", Path: "/", HttpOnly: true})
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"accessToken":"old","userInfo":{"userId":"u1","userName":"alice"}}`)
	})
	mux.HandleFunc(common.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		f.mu.Lock()
		f.refreshAuth = append(f.refreshAuth, r.Header.Get(common.AuthorizationHeaderName))
		f.mu.Unlock()

		c, err := r.Cookie(common.RefreshCookieName)
		if f.refreshFails || err != nil || c.Value != "rt-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"refresh token expired"}`)
			return
		}
		_, _ = io.WriteString(w, `{"accessToken":"new"}`)
	})
	mux.HandleFunc(dataPath, func(w http.ResponseWriter, r *http.Request) {
		f.dataCalls.Add(1)
		token := strings.TrimPrefix(r.Header.Get(common.AuthorizationHeaderName), common.BearerPrefix)

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.lastBody = body
		f.tokensSeen = append(f.tokensSeen, token)
		f.requestIDs = append(f.requestIDs, r.Header.Get(RequestIDHeader))
		f.mu.Unlock()

		if f.alwaysReject || token != "new" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"token expired"}`)
			return
		}
		_, _ = io.WriteString(w, `{"status":200,"message":"OK","data":{"n":1},"timestamp":1700000000.5,"metadata":{"requestId":"srv-1"}}`)
	})
	mux.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"callId is required"}`)
	})
	mux.HandleFunc("/plain-fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	return mux
}

func newTestTransport(t *testing.T, h http.Handler, opts ...Option) (*Transport, *session.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	tr, err := New(srv.URL+"/", 2*time.Second, store, opts...)
	require.NoError(t, err)
	return tr, store
}

// login obtains the refresh cookie and stores the expired token "old".
func login(t *testing.T, tr *Transport, store *session.MemoryStore) {
	t.Helper()
	resp, err := tr.Do(context.Background(), common.LoginPath, map[string]string{"username": "alice"})
	require.NoError(t, err)
	tok, err := AccessToken(resp.Body)
	require.NoError(t, err)
	store.SetAccessToken(tok)
	store.SetUser(&session.User{UserID: "u1"})
}

func TestTransport_ConcurrentExpiryRenewsOnce(t *testing.T) {
	const n = 8
	api := &fakeAPI{}
	tr, store := newTestTransport(t, api.handler())
	login(t, tr, store)

	var eg errgroup.Group
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			_, err := tr.Do(context.Background(), dataPath, nil)
			return err
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, int32(1), api.refreshCalls.Load())
	assert.Equal(t, "new", store.Snapshot().AccessToken)

	api.mu.Lock()
	defer api.mu.Unlock()
	var accepted int
	for _, tok := range api.tokensSeen {
		if tok == "new" {
			accepted++
		}
	}
	assert.Equal(t, n, accepted, "every request eventually succeeds with the renewed token")
	assert.Equal(t, []string{""}, api.refreshAuth, "refresh call carries no bearer token")
}

func TestTransport_NoSecondRetry(t *testing.T) {
	api := &fakeAPI{alwaysReject: true}
	tr, store := newTestTransport(t, api.handler())
	login(t, tr, store)

	_, err := tr.Do(context.Background(), dataPath, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusUnauthorized, serr.Code)
	assert.Equal(t, "token expired", serr.Message)

	assert.Equal(t, int32(2), api.dataCalls.Load())
	assert.Equal(t, int32(1), api.refreshCalls.Load())

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.requestIDs, 2)
	assert.Equal(t, api.requestIDs[0], api.requestIDs[1], "the resend keeps its request id")
}

func TestTransport_RefreshEndpointNeverRenews(t *testing.T) {
	api := &fakeAPI{refreshFails: true}
	tr, _ := newTestTransport(t, api.handler())

	_, err := tr.Do(context.Background(), common.RefreshPath, nil)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, int32(1), api.refreshCalls.Load())
	assert.False(t, tr.Coordinator().Refreshing())
}

func TestTransport_RenewalFailureTerminatesSession(t *testing.T) {
	api := &fakeAPI{refreshFails: true}
	var terminated atomic.Int32
	tr, store := newTestTransport(t, api.handler(), WithOnTerminated(func(error) { terminated.Add(1) }))
	login(t, tr, store)

	_, err := tr.Do(context.Background(), dataPath, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSessionTerminated)

	assert.False(t, store.Snapshot().IsAuthenticated)
	assert.Nil(t, store.Snapshot().User)
	assert.Equal(t, int32(1), api.dataCalls.Load(), "no resend after failed renewal")
	require.Eventually(t, func() bool { return terminated.Load() == 1 }, time.Second, time.Millisecond)
}

func TestTransport_ServerErrorPassesThrough(t *testing.T) {
	api := &fakeAPI{}
	tr, _ := newTestTransport(t, api.handler())

	_, err := tr.Do(context.Background(), "/fail", nil)
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusUnprocessableEntity, serr.Code)
	assert.Equal(t, "callId is required", serr.Message)
	assert.False(t, errors.Is(err, common.ErrUnauthorized))

	_, err = tr.Do(context.Background(), "/plain-fail", nil)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), serr.Message)
	assert.Zero(t, api.refreshCalls.Load())
}

func TestTransport_TimeoutIsUnavailable(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	srv := httptest.NewServer(slow)
	t.Cleanup(srv.Close)

	store := session.NewMemoryStore()
	store.SetAccessToken("old")
	tr, err := New(srv.URL, 50*time.Millisecond, store)
	require.NoError(t, err)

	_, err = tr.Do(context.Background(), dataPath, nil)
	require.ErrorIs(t, err, common.ErrUnavailable)
	assert.Equal(t, "old", store.Snapshot().AccessToken, "a timeout never triggers renewal")
}

func TestTransport_ConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	tr, err := New(url, time.Second, session.NewMemoryStore())
	require.NoError(t, err)

	_, err = tr.Do(context.Background(), dataPath, nil)
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestTransport_CallerCancellation(t *testing.T) {
	api := &fakeAPI{}
	tr, _ := newTestTransport(t, api.handler())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Do(ctx, dataPath, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, common.ErrUnavailable))
}

func TestTransport_PostDecodes(t *testing.T) {
	api := &fakeAPI{}
	tr, store := newTestTransport(t, api.handler())
	store.SetAccessToken("new")

	var out struct {
		Data struct {
			N int `json:"n"`
		} `json:"data"`
	}
	require.NoError(t, tr.Post(context.Background(), dataPath, map[string]any{"callId": "P_1"}, &out))
	assert.Equal(t, 1, out.Data.N)
	assert.Equal(t, "P_1", api.lastBody["callId"])
}

func TestTransport_EncodeFailureIsValidation(t *testing.T) {
	tr, _ := newTestTransport(t, (&fakeAPI{}).handler())
	err := tr.Post(context.Background(), dataPath, map[string]any{"bad": make(chan int)}, nil)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestAccessToken(t *testing.T) {
	tok, err := AccessToken([]byte(`{"accessToken":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, "a", tok)

	tok, err = AccessToken([]byte(`{"data":{"accessToken":"b"}}`))
	require.NoError(t, err)
	assert.Equal(t, "b", tok)

	_, err = AccessToken([]byte(`{"message":"nope"}`))
	require.Error(t, err)
}

func TestTransport_LoginRejectionNeverRenews(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == common.RefreshPath {
			t.Errorf("unexpected refresh")
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"invalid login/password"}`)
	})
	tr, store := newTestTransport(t, h)
	store.SetAccessToken("stale")

	_, err := tr.Do(context.Background(), common.LoginPath, map[string]string{"username": "x"})
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, "stale", store.Snapshot().AccessToken)
}
