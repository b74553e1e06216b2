package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/api"
	"github.com/dmitrijs2005/gophtodo/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakeRouter struct {
	got       api.Request
	requestID string
	resp      api.Response
}

func (f *fakeRouter) Handle(ctx context.Context, req api.Request) api.Response {
	f.got = req
	f.requestID, _ = logging.RequestID(ctx)
	return f.resp
}

func TestServeAPI_RequestID(t *testing.T) {
	router := &fakeRouter{resp: api.Response{StatusCode: http.StatusOK}}
	srv := New("", router, nil, "", time.Second, nopLogger{})

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-1", router.requestID)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/todos", nil))

	assert.NotEmpty(t, router.requestID)
	assert.NotEqual(t, "req-1", router.requestID)
	assert.Equal(t, router.requestID, rec.Header().Get("X-Request-Id"))
}

func TestServeAPI_TranslatesRequestAndResponse(t *testing.T) {
	router := &fakeRouter{resp: api.Response{
		StatusCode: http.StatusCreated,
		Headers:    map[string]string{"Content-Type": "application/json", "Access-Control-Allow-Origin": "*"},
		Body:       []byte(`{"id":"1"}`),
	}}
	ts := httptest.NewServer(New("", router, nil, "secret", time.Second, nopLogger{}).Handler())
	defer ts.Close()

	token, err := auth.GenerateToken(auth.Identity{Subject: "user-1", Email: "a@b.c"}, []byte("secret"), time.Hour)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/todos/?limit=5&cursor=abc", strings.NewReader(`{"title":"x"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"id":"1"}`, string(body))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.MethodPost, router.got.Method)
	assert.Equal(t, "/todos/", router.got.Path)
	assert.Equal(t, map[string]string{"limit": "5", "cursor": "abc"}, router.got.Query)
	assert.Equal(t, `{"title":"x"}`, string(router.got.Body))
	require.NotNil(t, router.got.Identity)
	assert.Equal(t, "user-1", router.got.Identity.Subject)
	assert.Equal(t, "a@b.c", router.got.Identity.Email)
}

func TestServeAPI_BadTokenIsAnonymous(t *testing.T) {
	router := &fakeRouter{resp: api.Response{StatusCode: http.StatusNoContent}}
	ts := httptest.NewServer(New("", router, nil, "secret", time.Second, nopLogger{}).Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/todos/1", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Nil(t, router.got.Identity)
}

func TestServeAPI_BodyTooLarge(t *testing.T) {
	router := &fakeRouter{}
	srv := New("", router, nil, "", time.Second, nopLogger{})

	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(strings.Repeat("a", maxBodyBytes+1)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"message":"request body too large"}`, rec.Body.String())
	assert.Empty(t, router.got.Method, "oversized body must not reach the api router")
}

func TestHandler_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("gophtodo_api_requests_total 1\n"))
	})
	router := &fakeRouter{}
	ts := httptest.NewServer(New("", router, metrics, "", time.Second, nopLogger{}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "gophtodo_api_requests_total")
	assert.Empty(t, router.got.Method, "metrics must not reach the api router")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	srv := New("127.0.0.1:0", &fakeRouter{}, nil, "", time.Second, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	srv := New("127.0.0.1:99999", &fakeRouter{}, nil, "", time.Second, nopLogger{})
	assert.Error(t, srv.Run(context.Background()))
}
