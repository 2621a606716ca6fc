package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/analytics"
	"github.com/dgnsrekt/auction-profile/internal/config"
	"github.com/dgnsrekt/auction-profile/internal/data"
	"github.com/dgnsrekt/auction-profile/internal/metrics"
	"github.com/dgnsrekt/auction-profile/internal/poller"
	"github.com/dgnsrekt/auction-profile/internal/recorder"
)

const defaultHistoryLimit = 30

// Reporter builds the quote + analytics report.
type Reporter interface {
	Report(ctx context.Context, req analytics.Request) analytics.Report
	Location() *time.Location
}

// Refresher is the quote poller as seen by the HTTP layer.
type Refresher interface {
	Symbol() string
	Refresh(ctx context.Context) (poller.Result, error)
	Status() poller.Status
}

type Server struct {
	reports Reporter
	poller  Refresher
	quotes  *data.QuoteStore
	cache   *data.BarCache
	history recorder.Recorder
	metrics *metrics.Metrics
	ws      http.Handler
	events  http.Handler
	config  *config.ServerConfig
	logger  *zap.Logger
}

// Deps groups the collaborators of Server. Metrics, WS and Events are
// optional.
type Deps struct {
	Reports Reporter
	Poller  Refresher
	Quotes  *data.QuoteStore
	Cache   *data.BarCache
	History recorder.Recorder
	Metrics *metrics.Metrics
	WS      http.Handler
	Events  http.Handler
}

func NewServer(deps Deps, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	history := deps.History
	if history == nil {
		history = recorder.NewNoopRecorder()
	}
	return &Server{
		reports: deps.Reports,
		poller:  deps.Poller,
		quotes:  deps.Quotes,
		cache:   deps.Cache,
		history: history,
		metrics: deps.Metrics,
		ws:      deps.WS,
		events:  deps.Events,
		config:  cfg,
		logger:  logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// symbol resolves the path symbol, writing a 404 when it is not the
// instrument this server tracks.
func (s *Server) symbol(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol := data.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if symbol != s.poller.Symbol() {
		writeError(w, http.StatusNotFound, "unknown symbol "+symbol)
		return "", false
	}
	return symbol, true
}

// Root is the liveness probe.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type healthResponse struct {
	Status   string        `json:"status"`
	Snapshot bool          `json:"snapshot"`
	Refresh  poller.Status `json:"refresh"`
}

// Health reports "degraded" until a snapshot exists or while refreshes fail.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := s.poller.Status()
	_, ok := s.quotes.Load()

	resp := healthResponse{Status: "ok", Snapshot: ok, Refresh: status}
	if !ok || status.ConsecutiveFailures > 0 {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetReport serves the quote merged with the session analytics. Analytics
// failures degrade to default values; the endpoint still answers 200.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	symbol, ok := s.symbol(w, r)
	if !ok {
		return
	}

	var date string
	if err := runtime.BindQueryParameter("form", true, false, "date", r.URL.Query(), &date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: "+err.Error())
		return
	}
	var ibBars int
	if err := runtime.BindQueryParameter("form", true, false, "ib_bars", r.URL.Query(), &ibBars); err != nil {
		writeError(w, http.StatusBadRequest, "invalid ib_bars: "+err.Error())
		return
	}

	req := analytics.Request{Symbol: symbol, IBBars: ibBars}
	if date != "" {
		day, err := time.ParseInLocation("2006-01-02", date, s.reports.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date: "+date)
			return
		}
		req.Date = day
	}

	s.logger.Debug("report request",
		zap.String("symbol", symbol),
		zap.String("date", date),
		zap.Int("ibBars", ibBars),
	)

	writeJSON(w, http.StatusOK, s.reports.Report(r.Context(), req))
}

type historyResponse struct {
	Symbol   string                   `json:"symbol"`
	Count    int                      `json:"count"`
	Sessions []recorder.SessionRecord `json:"sessions"`
}

// GetHistory lists recorded session summaries, newest first.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol, ok := s.symbol(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit: "+err.Error())
		return
	}

	sessions, err := s.history.ListSessions(r.Context(), symbol, limit)
	if err != nil {
		s.logger.Error("failed to list sessions", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Symbol: symbol, Count: len(sessions), Sessions: sessions})
}

type refreshResponse struct {
	Status    string    `json:"status"`
	Price     float64   `json:"price"`
	FetchedAt time.Time `json:"fetched_at"`
	Cleared   int       `json:"cleared"`
}

// Refresh replaces the quote snapshot now and drops cached history so the
// next report refetches it.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	symbol, ok := s.symbol(w, r)
	if !ok {
		return
	}

	result, err := s.poller.Refresh(r.Context())
	if errors.Is(err, poller.ErrRefreshInProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	var price float64
	if result.Quote != nil {
		price = result.Quote.Price
	}
	cleared := 0
	if s.cache != nil {
		cleared = s.cache.Reset(symbol)
	}

	s.logger.Info("manual refresh",
		zap.String("symbol", symbol),
		zap.Float64("price", price),
		zap.Int("cleared", cleared),
	)

	writeJSON(w, http.StatusOK, refreshResponse{
		Status:    "refreshed",
		Price:     price,
		FetchedAt: result.FetchedAt,
		Cleared:   cleared,
	})
}

// StreamEvents streams report updates as server-sent events.
func (s *Server) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.symbol(w, r); !ok {
		return
	}
	if s.events == nil {
		writeError(w, http.StatusNotFound, "event stream disabled")
		return
	}
	s.events.ServeHTTP(w, r)
}
