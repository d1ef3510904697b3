// Package api provides the HTTP server consumed by the dashboard.
//
// It exposes the chain engine's operations — chain snapshots, filtered
// and sorted views, grouped aggregates, top-N slices, contract
// explanations — plus market news and WebSocket refresh notifications.
package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/michaelwaves/optionscope/internal/chain"
	"github.com/michaelwaves/optionscope/internal/config"
	"github.com/michaelwaves/optionscope/internal/datasource"
	"github.com/michaelwaves/optionscope/internal/query"
	"github.com/michaelwaves/optionscope/pkg/models"
	"github.com/michaelwaves/optionscope/web"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	repo    *chain.Repository
	news    *datasource.News
	wsHub   *WSHub
	log     zerolog.Logger
	serveUI bool
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, logger zerolog.Logger) *Server {
	var live chain.QuoteSource
	if cfg.Live.Enabled {
		live = datasource.NewQuotes()
	}

	repo := chain.NewRepository(chain.RepositoryConfig{
		Weeks:       cfg.Chain.Weeks,
		TTL:         cfg.Chain.CacheTTL(),
		Seed:        cfg.Chain.Seed,
		Live:        live,
		LiveTimeout: cfg.Live.Timeout(),
		Logger:      logger,
	})

	var news *datasource.News
	if cfg.News.Enabled {
		news = datasource.NewNews()
	}

	srv := &Server{
		cfg:     cfg,
		repo:    repo,
		news:    news,
		wsHub:   NewWSHub(),
		log:     logger,
		serveUI: true,
	}
	srv.router = srv.buildRouter()
	return srv
}

// SetServeUI controls whether the embedded web UI is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
		s.log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(ctx)
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Chain snapshots and queries.
		r.Get("/chain/{symbol}", s.handleChain)
		r.Post("/chain/{symbol}/query", s.handleChainQuery)
		r.Get("/chain/{symbol}/aggregate", s.handleAggregate)
		r.Get("/chain/{symbol}/top", s.handleTopN)

		// Contract explanation for detail-expansion views.
		r.Post("/explain", s.handleExplain)

		// Market news side panel.
		r.Get("/news", s.handleNews)

		// WebSocket refresh notifications.
		r.Get("/ws", s.handleWebSocket)
	})

	if s.serveUI {
		s.mountSPA(r, web.DistFS())
	}

	return r
}

// mountSPA serves the embedded dashboard, falling back to index.html for
// client-side routes.
func (s *Server) mountSPA(r chi.Router, distFS fs.FS) {
	fileServer := http.FileServer(http.FS(distFS))

	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		rPath := strings.TrimPrefix(req.URL.Path, "/")
		if rPath == "" {
			rPath = "index.html"
		}

		if f, err := distFS.Open(rPath); err == nil {
			f.Close()
			fileServer.ServeHTTP(w, req)
			return
		}

		req.URL.Path = "/"
		fileServer.ServeHTTP(w, req)
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ChainQueryRequest is the body for POST /api/v1/chain/{symbol}/query.
type ChainQueryRequest struct {
	Side    models.Side      `json:"side"`
	Filter  query.FilterSpec `json:"filter"`
	SortKey query.SortKey    `json:"sortKey,omitempty"`
	SortDir query.Direction  `json:"sortDir,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	res, ok := s.chainFor(w, r)
	if !ok {
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "chain_refresh",
		Data: map[string]any{
			"symbol":      res.Chain.Symbol,
			"generatedAt": res.Chain.GeneratedAt,
			"source":      res.Source,
		},
	})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res, Warning: res.Warning})
}

func (s *Server) handleChainQuery(w http.ResponseWriter, r *http.Request) {
	var req ChainQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Side == "" {
		req.Side = models.Call
	}
	if !req.Side.Valid() {
		writeError(w, http.StatusBadRequest, "side must be \"call\" or \"put\"")
		return
	}

	res, ok := s.chainFor(w, r)
	if !ok {
		return
	}

	contracts := query.Filter(res.Chain, req.Side, req.Filter)
	if req.SortKey != "" {
		contracts = query.Sort(contracts, req.SortKey, req.SortDir)
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: contracts, Warning: res.Warning})
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	side, ok := sideParam(w, r)
	if !ok {
		return
	}

	res, ok := s.chainFor(w, r)
	if !ok {
		return
	}

	var buckets []query.VolumeBucket
	switch by := r.URL.Query().Get("by"); by {
	case "", "expiration":
		buckets = query.AggregateByExpiration(res.Chain, side)
	case "strike":
		buckets = query.AggregateByStrike(res.Chain, side)
	default:
		writeError(w, http.StatusBadRequest, "by must be \"expiration\" or \"strike\"")
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: buckets, Warning: res.Warning})
}

func (s *Server) handleTopN(w http.ResponseWriter, r *http.Request) {
	side, ok := sideParam(w, r)
	if !ok {
		return
	}

	n := 5
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = parsed
	}

	res, ok := s.chainFor(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    query.TopN(res.Chain, side, n),
		Warning: res.Warning,
	})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var contract models.Contract
	if err := json.NewDecoder(r.Body).Decode(&contract); err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract body")
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    chain.ExplainContract(contract),
	})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.news == nil {
		writeError(w, http.StatusServiceUnavailable, "news feeds are disabled")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	limit := s.cfg.News.Limit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var articles []models.NewsArticle
	var err error
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		articles, err = s.news.GetSymbolNews(ctx, chain.NormalizeSymbol(symbol), limit)
	} else {
		articles, err = s.news.GetMarketNews(ctx, limit)
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: articles})
}

// chainFor resolves the chain snapshot for the request's {symbol}
// parameter, writing the error response itself on failure.
func (s *Server) chainFor(w http.ResponseWriter, r *http.Request) (models.ChainResult, bool) {
	symbol := chi.URLParam(r, "symbol")
	if strings.TrimSpace(symbol) == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return models.ChainResult{}, false
	}

	res, err := s.repo.GetChain(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return models.ChainResult{}, false
	}
	return res, true
}

func sideParam(w http.ResponseWriter, r *http.Request) (models.Side, bool) {
	side := models.Side(r.URL.Query().Get("side"))
	if side == "" {
		side = models.Call
	}
	if !side.Valid() {
		writeError(w, http.StatusBadRequest, "side must be \"call\" or \"put\"")
		return "", false
	}
	return side, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
