package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"payment-events/internal/infra/redis"
	"payment-events/internal/usecase"
)

type Options struct {
	WebhookPath    string
	MaxBodyBytes   int64
	HandlerTimeout time.Duration
	AdminRateLimit int // per client per minute, 0 disables
}

// Server exposes the provider webhook endpoint, the admin read API, health
// and metrics.
type Server struct {
	webhook usecase.WebhookUseCase
	admin   usecase.AdminUseCase
	auth    *AdminAuth
	limiter Limiter
	opts    Options
	log     *zerolog.Logger
}

// NewServer builds the HTTP surface. limiter may be nil.
func NewServer(
	webhook usecase.WebhookUseCase,
	admin usecase.AdminUseCase,
	auth *AdminAuth,
	limiter Limiter,
	opts Options,
	logger *zerolog.Logger,
) *Server {
	if opts.WebhookPath == "" {
		opts.WebhookPath = "/webhooks/stripe"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 10
	}
	return &Server{webhook: webhook, admin: admin, auth: auth, limiter: limiter, opts: opts, log: logger}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post(s.opts.WebhookPath, s.handleWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			RateLimit(s.limiter, s.opts.AdminRateLimit, redis.AdminClientKey, s.log),
			s.requireAdmin,
			Timeout(s.opts.HandlerTimeout),
		)
		r.Get("/orders/{id}", s.getOrder)
		r.Get("/webhook-events", s.listEvents)
		r.Get("/webhook-events/counts", s.eventCounts)
		r.Get("/anomalies", s.listAnomalies)
	})

	return Chain(r, TraceID(s.log), Recover(s.log), RequestLog(s.log))
}
