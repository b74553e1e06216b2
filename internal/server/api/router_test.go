package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/aging"
	"github.com/dmitrijs2005/gophtodo/internal/server/auth"
	"github.com/dmitrijs2005/gophtodo/internal/server/metrics"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/gophtodo/internal/server/repositories/todos"
	"github.com/dmitrijs2005/gophtodo/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakeScheduler struct {
	mu        sync.Mutex
	payloads  map[string][]byte
	requestID string
}

func (f *fakeScheduler) ScheduleOnce(ctx context.Context, taskID string, _ time.Time, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestID, _ = logging.RequestID(ctx)
	if f.payloads == nil {
		f.payloads = map[string][]byte{}
	}
	f.payloads[taskID] = payload
	return nil
}

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	router  *Router
	todos   *services.TodoService
	sched   *fakeScheduler
	metrics *metrics.Metrics
	reg     *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	var n int
	sched := &fakeScheduler{}
	clock := &stepClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := services.NewTodoService(todos.NewMemoryRepository(), sched, nopLogger{},
		services.WithClock(clock.Now),
		services.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
	profileSvc := services.NewProfileService(profiles.NewMemoryRepository(), nopLogger{})

	return &fixture{
		router:  NewRouter("todos", svc, profileSvc, nopLogger{}, m),
		todos:   svc,
		sched:   sched,
		metrics: m,
		reg:     reg,
	}
}

func (f *fixture) do(method, path, body string) Response {
	return f.router.Handle(context.Background(), Request{Method: method, Path: path, Body: []byte(body)})
}

func decodeTodo(t *testing.T, r Response) models.Todo {
	t.Helper()
	var todo models.Todo
	require.NoError(t, json.Unmarshal(r.Body, &todo))
	return todo
}

func decodeMessage(t *testing.T, r Response) string {
	t.Helper()
	var m message
	require.NoError(t, json.Unmarshal(r.Body, &m))
	return m.Message
}

func TestRouter_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp := f.do(http.MethodPost, "/todos", `{"title":"buy milk"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeTodo(t, resp)
	assert.Equal(t, "buy milk", created.Title)
	assert.False(t, created.Completed)
	assert.False(t, created.Aged)
	assert.Nil(t, created.DueDate)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	resp = f.do(http.MethodPut, "/todos/"+created.ID, `{"completed":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeTodo(t, resp)
	assert.True(t, updated.Completed)
	assert.Equal(t, "buy milk", updated.Title)
	assert.True(t, updated.UpdatedAt.After(created.CreatedAt))

	payload, ok := f.sched.payloads[common.AgingTaskPrefix+created.ID]
	require.True(t, ok)
	require.NoError(t, aging.NewProcessor(f.todos, nopLogger{}, f.metrics).Process(ctx, payload))

	resp = f.do(http.MethodGet, "/todos/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeTodo(t, resp)
	assert.True(t, got.Aged)
	assert.True(t, got.Completed)

	resp = f.do(http.MethodDelete, "/todos/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Body)
	assert.NotContains(t, resp.Headers, "Content-Type")

	resp = f.do(http.MethodGet, "/todos/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", decodeMessage(t, resp))

	resp = f.do(http.MethodDelete, "/todos/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_MalformedJSON(t *testing.T) {
	f := newFixture(t)

	resp := f.do(http.MethodPost, "/todos", `{"title": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid JSON", decodeMessage(t, resp))

	resp = f.do(http.MethodPost, "/todos", `["title"]`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid JSON", decodeMessage(t, resp))

	resp = f.do(http.MethodGet, "/todos", "")
	var page services.ListPage
	require.NoError(t, json.Unmarshal(resp.Body, &page))
	assert.Empty(t, page.Items)
}

func TestRouter_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"missing title", http.MethodPost, "/todos", `{}`},
		{"empty body", http.MethodPost, "/todos", ``},
		{"blank title", http.MethodPost, "/todos", `{"title":"   "}`},
		{"bad due date", http.MethodPost, "/todos", `{"title":"x","dueDate":"tomorrow"}`},
		{"no updatable fields", http.MethodPut, "/todos/id-1", `{"aged":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, decodeMessage(t, resp))
		})
	}
}

func TestRouter_UpdateMissing(t *testing.T) {
	f := newFixture(t)
	resp := f.do(http.MethodPut, "/todos/nope", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_ListPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		resp := f.do(http.MethodPost, "/todos/", fmt.Sprintf(`{"title":"t%d"}`, i))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	seen := map[string]bool{}
	cursor := ""
	for pages := 0; pages < 5; pages++ {
		q := map[string]string{"limit": "2"}
		if cursor != "" {
			q["cursor"] = cursor
		}
		resp := f.router.Handle(context.Background(), Request{Method: http.MethodGet, Path: "/todos", Query: q})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var page services.ListPage
		require.NoError(t, json.Unmarshal(resp.Body, &page))
		assert.LessOrEqual(t, len(page.Items), 2)
		for _, it := range page.Items {
			assert.False(t, seen[it.ID], "duplicate %s", it.ID)
			seen[it.ID] = true
		}
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}
	assert.Len(t, seen, 3)
}

func TestRouter_InvalidCursor(t *testing.T) {
	f := newFixture(t)
	resp := f.router.Handle(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/todos",
		Query:  map[string]string{"cursor": "%%%not-base64"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid cursor", decodeMessage(t, resp))
}

func TestRouter_RoutesAndCORS(t *testing.T) {
	f := newFixture(t)

	resp := f.do(http.MethodOptions, "/anything", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/other"},
		{http.MethodPatch, "/todos/id-1"},
		{http.MethodPost, "/todos/id-1"},
		{http.MethodGet, "/todos/id-1/extra"},
	}
	for _, tt := range tests {
		resp := f.do(tt.method, tt.path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, "%s %s", tt.method, tt.path)
		assert.Equal(t, "route not found", decodeMessage(t, resp))
		assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	}

	// preflight plus unmatched GET, PATCH and POST
	n, err := testutil.GatherAndCount(f.reg, "gophtodo_api_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

type failingTodos struct {
	TodoService
}

func (failingTodos) Get(context.Context, string) (*models.Todo, error) {
	return nil, errors.New("db error: connection refused")
}

func TestRouter_InternalError(t *testing.T) {
	r := NewRouter("todos", failingTodos{}, nil, nopLogger{}, nil)
	resp := r.Handle(context.Background(), Request{Method: http.MethodGet, Path: "/todos/x"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal error", decodeMessage(t, resp))
	assert.NotContains(t, string(resp.Body), "connection refused")
}

func TestRouter_Profile(t *testing.T) {
	f := newFixture(t)
	id := &auth.Identity{Subject: "user-1", Email: "a@b.c", EmailVerified: true}

	resp := f.do(http.MethodGet, "/profile", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", decodeMessage(t, resp))

	resp = f.router.Handle(context.Background(), Request{Method: http.MethodGet, Path: "/profile", Identity: id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"userId":"user-1","profile":null,"message":"Profile not found. Please create one."}`, string(resp.Body))

	resp = f.router.Handle(context.Background(), Request{
		Method:   http.MethodPost,
		Path:     "/profile",
		Identity: id,
		Body:     []byte(`{"displayName":"Ann","bio":"hi"}`),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p models.Profile
	require.NoError(t, json.Unmarshal(resp.Body, &p))
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "Ann", p.DisplayName)

	resp = f.router.Handle(context.Background(), Request{Method: http.MethodGet, Path: "/me", Identity: id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"userId":"user-1","email":"a@b.c","emailVerified":true,"message":"You are authenticated!"}`, string(resp.Body))
}

func TestFailure_CarriesEnvelopeHeaders(t *testing.T) {
	resp := Failure(http.StatusRequestEntityTooLarge, "request body too large")

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	for k, v := range corsHeaders {
		assert.Equal(t, v, resp.Headers[k])
	}
	assert.JSONEq(t, `{"message":"request body too large"}`, string(resp.Body))
}
