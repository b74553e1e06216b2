package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophtodo/internal/common"
)

// corsHeaders go on every response.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type,Authorization",
	"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
}

type message struct {
	Message string `json:"message"`
}

func headers() map[string]string {
	h := make(map[string]string, len(corsHeaders)+1)
	for k, v := range corsHeaders {
		h[k] = v
	}
	return h
}

func (r *Router) json(ctx context.Context, status int, body any) Response {
	b, err := json.Marshal(body)
	if err != nil {
		r.logger.Error(ctx, "encode response", "error", err)
		status = http.StatusInternalServerError
		b = []byte(`{"message":"internal error"}`)
	}
	h := headers()
	h["Content-Type"] = "application/json"
	return Response{StatusCode: status, Headers: h, Body: b}
}

// Failure is the error envelope for a transport that rejects a request
// before it reaches the router.
func Failure(status int, msg string) Response {
	b, _ := json.Marshal(message{Message: msg})
	h := headers()
	h["Content-Type"] = "application/json"
	return Response{StatusCode: status, Headers: h, Body: b}
}

func noContent() Response {
	return Response{StatusCode: http.StatusNoContent, Headers: headers()}
}

func (r *Router) fail(ctx context.Context, status int, msg string) Response {
	return r.json(ctx, status, message{Message: msg})
}

// failErr maps service errors to status codes. Anything unrecognised is a
// store or infrastructure fault: it is logged in full and reported as 500.
func (r *Router) failErr(ctx context.Context, err error) Response {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return r.fail(ctx, http.StatusBadRequest, verr.Message)
	case errors.Is(err, common.ErrorDecode):
		return r.fail(ctx, http.StatusBadRequest, "invalid cursor")
	case errors.Is(err, common.ErrorNotFound):
		return r.fail(ctx, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorUnauthorized):
		return r.fail(ctx, http.StatusUnauthorized, "Unauthorized")
	default:
		r.logger.Error(ctx, "request failed", "error", err)
		return r.fail(ctx, http.StatusInternalServerError, "internal error")
	}
}
