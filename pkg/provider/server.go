// Package provider serves any paging.DataSource over HTTP as a paginated image collection.
//
// Endpoints:
//
//	GET /images?offset=N&limit=M  one page as {"records":[...],"total_count":T}
//	GET /healthz                  liveness, plus a Ping of the source when it supports one
//	GET /metrics                  Prometheus metrics
//
// Every page response also carries the collection size in the X-Total-Count header.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/provider-paging/pkg/metrics"
	"github.com/Sternrassler/provider-paging/pkg/paging"
)

const (
	// MaxLimit is the largest page a single request may ask for.
	MaxLimit = paging.MaxLimit

	// TotalCountHeader carries the collection size on every page response.
	TotalCountHeader = "X-Total-Count"

	// DefaultFetchTimeout bounds a single data source call.
	DefaultFetchTimeout = 10 * time.Second
)

var validate = validator.New()

// Pinger is implemented by sources that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PageQuery is the validated query of a page request.
type PageQuery struct {
	Offset int `validate:"gte=0"`
	Limit  int `validate:"min=1,max=100"`
}

// Options configures a Server.
type Options struct {
	// Name labels the source in logs.
	Name string

	// FetchTimeout bounds a single data source call (default: DefaultFetchTimeout).
	FetchTimeout time.Duration
}

// Server exposes a data source over HTTP.
type Server struct {
	source  paging.DataSource
	options Options
	router  chi.Router
	logger  zerolog.Logger
}

// New builds the router for source.
func New(source paging.DataSource, opts Options) (*Server, error) {
	if source == nil {
		return nil, errors.New("data source cannot be nil")
	}
	if opts.Name == "" {
		opts.Name = "images"
	}
	if opts.FetchTimeout == 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}

	s := &Server{
		source:  source,
		options: opts,
		logger:  log.With().Str("component", "provider").Str("source", opts.Name).Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Get("/images", s.handleImages)
	r.Handle("/metrics", metrics.Handler())

	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Provider listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("Provider shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// ParsePageQuery reads offset and limit from the request query.
// A missing offset means 0 and a missing limit means paging.DefaultLimit.
func ParsePageQuery(r *http.Request) (PageQuery, error) {
	q := PageQuery{Offset: 0, Limit: paging.DefaultLimit}

	values := r.URL.Query()
	if raw := values.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("offset: %w", err)
		}
		q.Offset = n
	}
	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("limit: %w", err)
		}
		q.Limit = n
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	q, err := ParsePageQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.options.FetchTimeout)
	defer cancel()

	result, err := s.source.FetchPage(ctx, paging.PageRequest{Offset: q.Offset, Limit: q.Limit})
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("offset", q.Offset).
			Int("limit", q.Limit).
			Msg("Data source fetch failed")
		writeError(w, http.StatusInternalServerError, "fetch failed")
		return
	}
	if result == nil {
		result = &paging.FetchResult{}
	}
	if result.Records == nil {
		result.Records = []paging.Record{}
	}

	servedRecordsTotal.Add(float64(len(result.Records)))

	w.Header().Set(TotalCountHeader, strconv.Itoa(result.TotalCount))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.source.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
