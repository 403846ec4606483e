package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"tradewatch/pkg/analysis"
	"tradewatch/pkg/collector"
)

type Server struct {
	collector  *collector.Collector
	logger     *logrus.Logger
	port       string
	staticDir  string
	signingKey string
}

func NewServer(c *collector.Collector, logger *logrus.Logger, port string) *Server {
	return &Server{
		collector: c,
		logger:    logger,
		port:      port,
	}
}

// WithStaticDir mounts a dashboard directory at /.
func (s *Server) WithStaticDir(dir string) *Server {
	s.staticDir = dir
	return s
}

// WithSigningKey enables JWT bearer auth on the API routes.
func (s *Server) WithSigningKey(key string) *Server {
	s.signingKey = key
	return s
}

func (s *Server) Start() error {
	s.logger.Infof("Starting API server on port %s", s.port)
	return http.ListenAndServe(":"+s.port, s.Handler())
}

// Handler builds the full route tree; split out so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/traders/top", s.handleTopTraders)
	apiMux.HandleFunc("/api/traders/", s.handleTrader)
	apiMux.HandleFunc("/api/markets/active", s.handleActiveMarkets)
	apiMux.HandleFunc("/api/markets/", s.handleMarket)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/api/", authMiddleware(s.signingKey, apiMux))
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleTopTraders serves the current trader ranking. Optional query
// parameters: metric (default sharpe_ratio) and limit.
func (s *Server) handleTopTraders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metricName := r.URL.Query().Get("metric")
	metric, ok := analysis.AddressMetric(metricName)
	if !ok {
		http.Error(w, "Unknown metric: "+metricName, http.StatusBadRequest)
		return
	}
	limit := queryInt(r, "limit", 0)

	traders := s.collector.TopTraders()
	ranked := analysis.Rank(traders, nil, metric, limit)
	s.writeJSON(w, http.StatusOK, ranked)
}

func (s *Server) handleTrader(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	address := strings.TrimPrefix(r.URL.Path, "/api/traders/")
	if address == "" || strings.Contains(address, "/") {
		http.Error(w, "Invalid address", http.StatusBadRequest)
		return
	}

	stats, err := s.collector.Trader(address)
	if err != nil {
		if errors.Is(err, analysis.ErrEmptyInput) {
			http.Error(w, "No trades for address", http.StatusNotFound)
			return
		}
		s.logger.WithError(err).WithField("address", address).Error("Trader analysis failed")
		http.Error(w, "Analysis failed", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleActiveMarkets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	markets := s.collector.ActiveMarkets()
	if limit := queryInt(r, "limit", 0); limit > 0 && len(markets) > limit {
		markets = markets[:limit]
	}
	s.writeJSON(w, http.StatusOK, markets)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	symbol := strings.TrimPrefix(r.URL.Path, "/api/markets/")
	if symbol == "" || strings.Contains(symbol, "/") {
		http.Error(w, "Invalid symbol", http.StatusBadRequest)
		return
	}

	stats, ok := s.collector.Market(symbol)
	if !ok {
		http.Error(w, "Market not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
