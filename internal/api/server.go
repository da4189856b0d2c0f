// Package api serves the read-side HTTP endpoints over the store.
package api

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geomark/internal/cache"
	"github.com/sells-group/geomark/internal/config"
	"github.com/sells-group/geomark/internal/store"
)

// NewRouter wires the middleware stack and routes.
func NewRouter(st store.Store, c *cache.Cache, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(rateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &Handlers{store: st, cache: c}

	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/placemarks", h.ListPlacemarks)
		r.Get("/placemarks/bbox", h.QueryBBox)
		r.Get("/placemarks/{id}", h.GetPlacemark)
		r.Get("/timeline", h.Timeline)
		r.Get("/folders", h.ListFolders)
		r.Get("/stats", h.Stats)
	})

	return r
}

// NewServer builds an http.Server on the configured port. Shutdown is the
// caller's job (the serve command handles signals).
func NewServer(st store.Store, c *cache.Cache, cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(st, c, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// rateLimiter applies a token bucket per client address (RealIP runs
// earlier in the chain). Requests over the budget get 429 rather than
// queueing.
func rateLimiter(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	clientLimiter := func(addr string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[addr]
		if !ok {
			l = rate.NewLimiter(limit, burst)
			limiters[addr] = l
		}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !clientLimiter(host).Allow() {
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
