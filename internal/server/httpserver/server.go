// Package httpserver exposes the api router over net/http together with the
// Prometheus scrape endpoint.
package httpserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophtodo/internal/logging"
	"github.com/dmitrijs2005/gophtodo/internal/server/api"
	"github.com/dmitrijs2005/gophtodo/internal/server/auth"
)

const (
	maxBodyBytes    = 1 << 20
	requestIDHeader = "X-Request-Id"
)

// Router is satisfied by *api.Router.
type Router interface {
	Handle(ctx context.Context, req api.Request) api.Response
}

type Server struct {
	address         string
	router          Router
	metrics         http.Handler
	secret          []byte
	shutdownTimeout time.Duration
	logger          logging.Logger
}

// New builds a server. A nil metrics handler disables /metrics; an empty
// secret disables bearer token parsing so every caller is anonymous.
func New(address string, router Router, metrics http.Handler, secret string, shutdownTimeout time.Duration, l logging.Logger) *Server {
	return &Server{
		address:         address,
		router:          router,
		metrics:         metrics,
		secret:          []byte(secret),
		shutdownTimeout: shutdownTimeout,
		logger:          l.With("module", "http_server"),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	mux.HandleFunc("/", s.serveAPI)
	return mux
}

func (s *Server) serveAPI(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx := logging.WithRequestID(r.Context(), requestID)
	w.Header().Set(requestIDHeader, requestID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.write(ctx, w, api.Failure(http.StatusRequestEntityTooLarge, "request body too large"))
		return
	}

	query := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	resp := s.router.Handle(ctx, api.Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		Query:    query,
		Body:     body,
		Identity: s.identity(ctx, r),
	})
	s.write(ctx, w, resp)
}

func (s *Server) write(ctx context.Context, w http.ResponseWriter, resp api.Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			s.logger.Warn(ctx, "write response", "error", err)
		}
	}
}

// identity returns nil for a missing or rejected token.
func (s *Server) identity(ctx context.Context, r *http.Request) *auth.Identity {
	if len(s.secret) == 0 {
		return nil
	}
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil
	}
	id, err := auth.ParseToken(token, s.secret)
	if err != nil {
		s.logger.Debug(ctx, "bearer token rejected", "error", err)
		return nil
	}
	return id
}

func (s *Server) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}
