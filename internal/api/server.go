package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stockpulse/config"
	"stockpulse/logger"
	"stockpulse/store"
)

const shutdownTimeout = 5 * time.Second

// Server hosts the read-only query API over the market data cache and the
// insight log. It never writes to either.
type Server struct {
	cfg        config.APIConfig
	log        *logger.Log
	cache      *store.MarketCache
	insights   *store.InsightLog
	symbols    []string
	feedState  func() string
	httpServer *http.Server
}

// NewServer constructs the query API server when the API is enabled. When it
// is disabled the returned server is nil.
func NewServer(cfg config.APIConfig, cache *store.MarketCache, insights *store.InsightLog, symbols []string, feedState func() string) *Server {
	if !cfg.Enabled {
		return nil
	}

	cfg.Address = normalizeAddress(cfg.Address)

	return &Server{
		cfg:       cfg,
		log:       logger.GetLogger(),
		cache:     cache,
		insights:  insights,
		symbols:   symbols,
		feedState: feedState,
	}
}

// Run starts the API server and blocks until the provided context is
// cancelled or the underlying HTTP server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	log := s.log.WithComponent("api_server")

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.buildRouter(),
	}

	log.WithFields(logger.Fields{"address": s.cfg.Address}).Info("starting query API server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		log.Info("query API server stopped")
		return nil
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return err
	}
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/market-data", s.handleAllMarketData)
	router.GET("/market-data/:symbol", s.handleSymbolMarketData)
	router.GET("/insights", s.handleAllInsights)
	router.GET("/insights/:symbol", s.handleSymbolInsights)
	router.GET("/healthz", s.handleHealth)

	return router
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ":8080"
	}
	if !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}
