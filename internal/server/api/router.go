package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/metrics"
	"github.com/dmitrijs2005/gophtodo/internal/server/services"
)

// Route labels used for metrics.
const (
	routeCollection = "collection"
	routeItem       = "item"
	routeProfile    = "profile"
	routeMe         = "me"
	routePreflight  = "preflight"
	routeUnmatched  = "unmatched"
)

// Router dispatches on method and path shape: /{resource} and
// /{resource}/{id}, plus /profile and /me when a profile service is set.
type Router struct {
	resource string
	todos    TodoService
	profiles ProfileService
	logger   logging.Logger
	metrics  *metrics.Metrics
}

// NewRouter builds a router for the named collection. profiles may be nil,
// in which case the profile routes are not served.
func NewRouter(resource string, todos TodoService, profiles ProfileService, logger logging.Logger, m *metrics.Metrics) *Router {
	return &Router{
		resource: strings.Trim(resource, "/"),
		todos:    todos,
		profiles: profiles,
		logger:   logger.With("module", "api"),
		metrics:  m,
	}
}

// Handle never returns an error: every outcome is a Response.
func (r *Router) Handle(ctx context.Context, req Request) Response {
	start := time.Now()
	route, resp := r.dispatch(ctx, req)

	r.metrics.ObserveRequest(route, req.Method, resp.StatusCode, time.Since(start))
	r.logger.Info(ctx, "request", "method", req.Method, "path", req.Path, "status", resp.StatusCode)
	return resp
}

func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *Router) dispatch(ctx context.Context, req Request) (string, Response) {
	if req.Method == http.MethodOptions {
		return routePreflight, r.json(ctx, http.StatusOK, map[string]bool{"ok": true})
	}

	segs := segments(req.Path)

	if r.profiles != nil && len(segs) == 1 {
		switch {
		case segs[0] == "profile" && req.Method == http.MethodGet:
			return routeProfile, r.getProfile(ctx, req)
		case segs[0] == "profile" && req.Method == http.MethodPost:
			return routeProfile, r.saveProfile(ctx, req)
		case segs[0] == "me" && req.Method == http.MethodGet:
			return routeMe, r.me(ctx, req)
		}
	}

	if len(segs) == 0 || segs[0] != r.resource {
		return routeUnmatched, r.fail(ctx, http.StatusNotFound, "route not found")
	}

	switch {
	case len(segs) == 1 && req.Method == http.MethodGet:
		return routeCollection, r.list(ctx, req)
	case len(segs) == 1 && req.Method == http.MethodPost:
		return routeCollection, r.create(ctx, req)
	case len(segs) == 2 && req.Method == http.MethodGet:
		return routeItem, r.get(ctx, segs[1])
	case len(segs) == 2 && req.Method == http.MethodPut:
		return routeItem, r.update(ctx, segs[1], req)
	case len(segs) == 2 && req.Method == http.MethodDelete:
		return routeItem, r.delete(ctx, segs[1])
	}
	return routeUnmatched, r.fail(ctx, http.StatusNotFound, "route not found")
}

var errInvalidJSON = errors.New("invalid JSON")

// parseBody decodes a JSON object. An empty body is an empty object.
func parseBody(b []byte) (map[string]json.RawMessage, error) {
	body := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(b)) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return nil, errInvalidJSON
	}
	if body == nil {
		body = map[string]json.RawMessage{}
	}
	return body, nil
}

func (r *Router) list(ctx context.Context, req Request) Response {
	page, err := r.todos.List(ctx, services.ParseLimit(req.Query["limit"]), req.Query["cursor"])
	if err != nil {
		return r.failErr(ctx, err)
	}
	return r.json(ctx, http.StatusOK, page)
}

func (r *Router) get(ctx context.Context, id string) Response {
	todo, err := r.todos.Get(ctx, id)
	if err != nil {
		return r.failErr(ctx, err)
	}
	return r.json(ctx, http.StatusOK, todo)
}

func (r *Router) create(ctx context.Context, req Request) Response {
	body, err := parseBody(req.Body)
	if err != nil {
		return r.fail(ctx, http.StatusBadRequest, err.Error())
	}
	in, err := services.DecodeCreate(body)
	if err != nil {
		return r.failErr(ctx, err)
	}
	todo, err := r.todos.Create(ctx, in)
	if err != nil {
		return r.failErr(ctx, err)
	}
	return r.json(ctx, http.StatusCreated, todo)
}

func (r *Router) update(ctx context.Context, id string, req Request) Response {
	body, err := parseBody(req.Body)
	if err != nil {
		return r.fail(ctx, http.StatusBadRequest, err.Error())
	}
	patch, err := services.DecodePatch(body)
	if err != nil {
		return r.failErr(ctx, err)
	}
	todo, err := r.todos.Update(ctx, id, patch)
	if err != nil {
		return r.failErr(ctx, err)
	}
	return r.json(ctx, http.StatusOK, todo)
}

func (r *Router) delete(ctx context.Context, id string) Response {
	if err := r.todos.Delete(ctx, id); err != nil {
		return r.failErr(ctx, err)
	}
	return noContent()
}

func (r *Router) getProfile(ctx context.Context, req Request) Response {
	if req.Identity == nil {
		return r.failErr(ctx, common.ErrorUnauthorized)
	}
	userID := req.Identity.Subject

	p, err := r.profiles.Get(ctx, userID)
	if errors.Is(err, common.ErrorNotFound) {
		return r.json(ctx, http.StatusOK, map[string]any{
			"userId":  userID,
			"profile": nil,
			"message": "Profile not found. Please create one.",
		})
	}
	if err != nil {
		return r.failErr(ctx, err)
	}
	return r.json(ctx, http.StatusOK, p)
}

func (r *Router) saveProfile(ctx context.Context, req Request) Response {
	if req.Identity == nil {
		return r.failErr(ctx, common.ErrorUnauthorized)
	}
	body, err := parseBody(req.Body)
	if err != nil {
		return r.fail(ctx, http.StatusBadRequest, err.Error())
	}
	in, err := services.DecodeProfile(body)
	if err != nil {
		return r.failErr(ctx, err)
	}
	p, err := r.profiles.Save(ctx, req.Identity.Subject, in)
	if err != nil {
		return r.failErr(ctx, err)
	}
	return r.json(ctx, http.StatusOK, p)
}

func (r *Router) me(ctx context.Context, req Request) Response {
	if req.Identity == nil {
		return r.failErr(ctx, common.ErrorUnauthorized)
	}
	return r.json(ctx, http.StatusOK, map[string]any{
		"userId":        req.Identity.Subject,
		"email":         req.Identity.Email,
		"emailVerified": req.Identity.EmailVerified,
		"message":       "You are authenticated!",
	})
}
