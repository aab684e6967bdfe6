// Package gateway is the HTTP/WebSocket front door onto the analysis
// core: it fetches bars from a MarketDataProvider, runs
// analysis.Engine.AnalyzeMarket, drives one simtrader.Trader per ticker,
// and fans live price ticks out over WebSocket. None of this reaches the
// analysis core directly — C1-C9 never make a network call.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/songzhiyuan98/klinelens-go/internal/analysis"
	"github.com/songzhiyuan98/klinelens-go/internal/simtrader"
	"github.com/songzhiyuan98/klinelens-go/pkg/types"
)

// Server is the gateway's HTTP/WebSocket listener.
type Server struct {
	mu sync.RWMutex

	logger     *zap.Logger
	config     *types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader

	store    *BarStore
	engine   *analysis.Engine
	hub      *Hub
	metrics  *Metrics
	traders  map[string]*simtrader.Trader
	simCfg   simtrader.Config
	stopHub  chan struct{}
}

// NewServer wires a router over store/engine/hub and registers every
// route; call Start to begin listening.
func NewServer(logger *zap.Logger, config *types.ServerConfig, store *BarStore) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		logger:  logger.Named("gateway"),
		config:  config,
		router:  mux.NewRouter(),
		store:   store,
		engine:  analysis.NewEngine(logger),
		hub:     NewHub(logger),
		metrics: NewMetrics(),
		traders: make(map[string]*simtrader.Trader),
		simCfg:  simtrader.DefaultConfig(),
		stopHub: make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/analyze", s.handleAnalyze).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/simtrader/{ticker}/plan", s.handleSimTraderPlan).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/simtrader/{ticker}/state", s.handleSimTraderState).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/simtrader/{ticker}/reset", s.handleSimTraderReset).Methods(http.MethodPost)
	s.router.HandleFunc("/api/v1/stream/{ticker}", s.handleSSE).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	s.router.HandleFunc(s.config.WebSocketPath, s.handleWebSocket)
}

// RunHub starts the hub's registration loop; Start calls this itself, so
// callers only need it when testing against Router() directly.
func (s *Server) RunHub() {
	go s.hub.Run(s.stopHub)
}

// Start runs the hub loop and begins serving HTTP.
func (s *Server) Start() error {
	s.RunHub()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(instrument(s.metrics, s.router))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("starting gateway", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Router exposes the underlying router, mainly so tests can drive it
// through httptest.NewServer without a real listener.
func (s *Server) Router() http.Handler {
	return instrument(s.metrics, s.router)
}

// Stop shuts the HTTP server down and stops the hub.
func (s *Server) Stop(ctx context.Context) error {
	close(s.stopHub)
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "time": time.Now().Unix()})
}

type analyzeRequest struct {
	Ticker    string               `json:"ticker"`
	Timeframe types.Timeframe      `json:"timeframe"`
	Window    string               `json:"window,omitempty"`
	Params    *types.AnalysisParams `json:"params,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	if !req.Timeframe.Valid() {
		req.Timeframe = types.Timeframe1m
	}
	params := types.DefaultAnalysisParams()
	if req.Params != nil {
		params = *req.Params
	}

	bars, err := s.store.GetBars(r.Context(), req.Ticker, req.Timeframe, req.Window)
	if err != nil {
		s.handleProviderError(w, err)
		return
	}

	start := time.Now()
	report, err := s.engine.AnalyzeMarket(bars, req.Ticker, req.Timeframe, params, nil, nil)
	s.metrics.AnalyzeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSimTraderPlan(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	bars, err := s.store.GetBars(r.Context(), ticker, types.Timeframe1m, "")
	if err != nil {
		s.handleProviderError(w, err)
		return
	}

	params := types.DefaultAnalysisParams()
	report, err := s.engine.AnalyzeMarket(bars, ticker, types.Timeframe1m, params, nil, nil)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	snapshot, err := BuildSnapshot(ticker, bars, report, types.Timeframe1m, s.simCfg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	plan := s.traderFor(ticker).Update(snapshot)
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleSimTraderState(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	writeJSON(w, http.StatusOK, s.traderFor(ticker).GetState())
}

func (s *Server) handleSimTraderReset(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	s.traderFor(ticker).ResetDaily()
	writeJSON(w, http.StatusOK, map[string]string{"ticker": ticker, "status": "reset"})
}

func (s *Server) traderFor(ticker string) *simtrader.Trader {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.traders[ticker]
	if !ok {
		t = simtrader.NewTrader(s.logger, ticker, s.simCfg)
		s.traders[ticker] = t
	}
	return t
}

// handleSSE streams the ticker's last known price as a server-sent-events
// feed, polling the hub's cache at a fixed interval.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker2 := time.NewTicker(2 * time.Second)
	defer ticker2.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker2.C:
			tick, ok := s.hub.LastPrice(ticker)
			if !ok {
				continue
			}
			data, err := json.Marshal(tick)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	client := NewClient(s.hub, uuid.NewString(), conn)
	s.metrics.WSClients.Inc()
	client.Register()
	s.logger.Debug("websocket client connected", zap.String("id", client.id))
}

// PublishPrice feeds a live price tick into the hub, for callers (e.g. a
// market-data streaming goroutine in cmd/server) outside the HTTP path.
func (s *Server) PublishPrice(tick PriceTick) {
	s.hub.PublishPrice(tick)
}

func (s *Server) handleProviderError(w http.ResponseWriter, err error) {
	var notFound *TickerNotFoundError
	var rateLimited *RateLimitedError
	switch {
	case errors.As(err, &notFound):
		s.metrics.ProviderErrors.WithLabelValues(s.config.ProviderName, "not_found").Inc()
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &rateLimited):
		s.metrics.ProviderErrors.WithLabelValues(s.config.ProviderName, "rate_limited").Inc()
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		s.metrics.ProviderErrors.WithLabelValues(s.config.ProviderName, "other").Inc()
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusRecorder captures the status code a handler wrote, since
// http.ResponseWriter doesn't expose it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps next with the route/status/duration counters, keyed by
// the matched route template rather than the raw path so per-ticker routes
// don't create unbounded label cardinality.
func instrument(m *Metrics, router *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		router.ServeHTTP(rec, r)
		duration := time.Since(start).Seconds()

		route := routeTemplate(router, r)
		m.RequestDuration.WithLabelValues(route).Observe(duration)
		m.RequestsTotal.WithLabelValues(route, statusClass(rec.status)).Inc()
	})
}

func routeTemplate(router *mux.Router, r *http.Request) string {
	var match mux.RouteMatch
	if router.Match(r, &match) && match.Route != nil {
		if tmpl, err := match.Route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
