package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clinicbook/clinicbook-api/internal/config"
	"github.com/clinicbook/clinicbook-api/pkg/metrics"
)

// RequestID tags every request, generating an ID when the client sent none.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString("request_id")),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request completed", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		collector.InFlightGauge.Inc()
		c.Next()
		collector.InFlightGauge.Dec()

		// FullPath keeps cardinality bounded: /api/v1/patients/:id, not the
		// expanded URL.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		collector.RequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		collector.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterPool tracks one token bucket per client IP.
type rateLimiterPool struct {
	mu      sync.Mutex
	clients map[string]*rateClient
	rps     float64
	burst   int
}

func newRateLimiterPool(cfg config.RateLimitConfig) *rateLimiterPool {
	return &rateLimiterPool{
		clients: make(map[string]*rateClient),
		rps:     cfg.RequestsPerSecond,
		burst:   cfg.BurstSize,
	}
}

func (p *rateLimiterPool) get(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	cl, ok := p.clients[ip]
	if !ok {
		cl = &rateClient{limiter: rate.NewLimiter(rate.Limit(p.rps), p.burst)}
		p.clients[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

func (p *rateLimiterPool) sweep(maxIdle time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for ip, cl := range p.clients {
		if time.Since(cl.lastSeen) > maxIdle {
			delete(p.clients, ip)
		}
	}
}

// run sweeps stale entries until ctx is cancelled.
func (p *rateLimiterPool) run(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(maxIdle)
		}
	}
}

// RateLimit applies a per-IP token bucket. Stale entries are dropped after
// ten minutes of inactivity; the janitor goroutine exits when ctx is
// cancelled.
func RateLimit(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	pool := newRateLimiterPool(cfg)
	go pool.run(ctx, time.Minute, 10*time.Minute)

	return func(c *gin.Context) {
		if !pool.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", maxAge)
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
