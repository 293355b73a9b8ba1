// Package api exposes a prospect session over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/niche"
	"github.com/sells-group/prospect-cli/internal/paginate"
	"github.com/sells-group/prospect-cli/internal/prospect"
	"github.com/sells-group/prospect-cli/internal/rank"
	"github.com/sells-group/prospect-cli/internal/verdict"
)

// Server wires HTTP routes to a prospect.Service.
type Server struct {
	svc            *prospect.Service
	catalog        *niche.Catalog
	metrics        *Metrics
	allowedOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. Defaults to "*".
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithMetrics replaces the server's metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a Server.
func NewServer(svc *prospect.Service, catalog *niche.Catalog, opts ...Option) *Server {
	s := &Server{
		svc:            svc,
		catalog:        catalog,
		allowedOrigins: []string{"*"},
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.instrument)

	r.Get("/health", s.handleHealth)
	r.Get("/niches", s.handleNiches)
	r.Post("/search", s.handleSearch)
	r.Post("/search/more", s.handleMore)
	r.Post("/classify", s.handleClassify)
	r.Post("/enrich", s.handleEnrich)
	r.Get("/results", s.handleResults)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNiches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.All())
}

type searchRequest struct {
	Query    string  `json:"query"`
	Location string  `json:"location"`
	Niche    *string `json:"niche"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Niche != nil {
		if !s.setNiche(w, *req.Niche) {
			return
		}
	}

	out, err := s.svc.Search(r.Context(), req.Query, req.Location)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.Searches.Inc()
	s.metrics.ListingsFetched.Add(float64(out.Added))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMore(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.LoadMore(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.ListingsFetched.Add(float64(out.Added))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Classify(r.Context())
	if err != nil {
		s.metrics.ClassifyBatches.WithLabelValues("failed").Inc()
		s.fail(w, r, err)
		return
	}
	if out.Requested > 0 {
		s.metrics.ClassifyBatches.WithLabelValues("ok").Inc()
	}
	s.metrics.VerdictsApplied.Add(float64(out.Applied))
	writeJSON(w, http.StatusOK, out)
}

type enrichRequest struct {
	Keys []string `json:"keys"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	out, err := s.svc.Enrich(r.Context(), req.Keys...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.EnrichmentResult.WithLabelValues("enriched").Add(float64(out.Enriched))
	s.metrics.EnrichmentResult.WithLabelValues("cached").Add(float64(out.Cached))
	s.metrics.EnrichmentResult.WithLabelValues("skipped").Add(float64(out.Skipped))
	s.metrics.EnrichmentResult.WithLabelValues("failed").Add(float64(out.Failed))
	writeJSON(w, http.StatusOK, out)
}

type resultsResponse struct {
	Generation prospect.Generation `json:"generation"`
	Niche      string              `json:"niche,omitempty"`
	Mode       rank.Mode           `json:"mode"`
	Pagination paginate.State      `json:"pagination"`
	Results    []rank.Ranked       `json:"results"`
}

// handleResults returns the ranked view. A niche parameter that differs from
// the active niche switches it first.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	mode, err := rank.ParseMode(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := s.svc.Session()
	if r.URL.Query().Has("niche") {
		id := r.URL.Query().Get("niche")
		cur := session.Niche()
		if cur == nil || cur.ID != id {
			if !s.setNiche(w, id) {
				return
			}
		}
	}

	resp := resultsResponse{
		Generation: session.Generation(),
		Pagination: session.Pagination(),
		Results:    s.svc.View(mode),
	}
	n := session.Niche()
	if n != nil {
		resp.Niche = n.ID
	}
	resp.Mode = mode
	if resp.Mode == "" {
		resp.Mode = rank.ModeQuality
		if n != nil {
			resp.Mode = rank.ModeRelevance
		}
	}
	if resp.Results == nil {
		resp.Results = []rank.Ranked{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// setNiche activates the niche with id, or clears it for "". It writes a 400
// and reports false for an unknown id.
func (s *Server) setNiche(w http.ResponseWriter, id string) bool {
	if id == "" {
		s.svc.Session().SetNiche(nil)
		return true
	}
	n, ok := s.catalog.Get(id)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown niche "+strconv.Quote(id))
		return false
	}
	s.svc.Session().SetNiche(n)
	return true
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, prospect.ErrEmptyQuery),
		errors.Is(err, prospect.ErrUnknownListing),
		errors.Is(err, verdict.ErrNoNiche):
		return http.StatusBadRequest
	case errors.Is(err, paginate.ErrNoContinuation),
		errors.Is(err, prospect.ErrNoSearch),
		errors.Is(err, prospect.ErrStaleGeneration),
		errors.Is(err, prospect.ErrNicheChanged):
		return http.StatusConflict
	case errors.Is(err, prospect.ErrNoClassifier),
		errors.Is(err, prospect.ErrNoEnricher):
		return http.StatusServiceUnavailable
	case errors.Is(err, verdict.ErrMalformedResponse):
		return http.StatusBadGateway
	}
	return http.StatusBadGateway
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	zap.L().Warn("api: request failed",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
