package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/auth"
)

// APIGatewayHandler is the Lambda entry point for an HTTP API (payload v2).
type APIGatewayHandler func(ctx context.Context, ev events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// NewAPIGatewayHandler adapts the router. Identity comes from the JWT
// authorizer claims; the function never sees the raw token.
func NewAPIGatewayHandler(r *Router) APIGatewayHandler {
	return func(ctx context.Context, ev events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		ctx = logging.WithRequestID(ctx, ev.RequestContext.RequestID)

		body := []byte(ev.Body)
		if ev.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(ev.Body)
			if err != nil {
				return toAPIGateway(r.fail(ctx, http.StatusBadRequest, "invalid JSON")), nil
			}
			body = decoded
		}

		resp := r.Handle(ctx, Request{
			Method:   ev.RequestContext.HTTP.Method,
			Path:     requestPath(ev),
			Query:    ev.QueryStringParameters,
			Body:     body,
			Identity: identityFromEvent(ev),
		})
		return toAPIGateway(resp), nil
	}
}

// requestPath strips a named stage prefix; the $default stage has none.
func requestPath(ev events.APIGatewayV2HTTPRequest) string {
	path := ev.RawPath
	if path == "" {
		path = ev.RequestContext.HTTP.Path
	}
	if stage := ev.RequestContext.Stage; stage != "" && stage != "$default" {
		if rest, ok := strings.CutPrefix(path, "/"+stage); ok && (rest == "" || rest[0] == '/') {
			path = rest
		}
	}
	return path
}

func identityFromEvent(ev events.APIGatewayV2HTTPRequest) *auth.Identity {
	a := ev.RequestContext.Authorizer
	if a == nil || a.JWT == nil {
		return nil
	}
	return auth.IdentityFromClaims(a.JWT.Claims)
}

func toAPIGateway(resp Response) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}
}
