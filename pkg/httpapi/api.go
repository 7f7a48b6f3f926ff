package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/hapticqueue/pkg/clientip"
	"github.com/dmitrymomot/hapticqueue/pkg/command"
	"github.com/dmitrymomot/hapticqueue/pkg/httpserver"
	"github.com/dmitrymomot/hapticqueue/pkg/logger"
	"github.com/dmitrymomot/hapticqueue/pkg/pattern"
	"github.com/dmitrymomot/hapticqueue/pkg/queue"
	"github.com/dmitrymomot/hapticqueue/pkg/requestid"
)

// Queue is the part of the queue manager the API drives.
type Queue interface {
	Enqueue(ctx context.Context, cmd command.Command, userID, source string, opts ...queue.EnqueueOption) queue.EnqueueResult
	Cancel(id string) error
	Pause()
	Resume()
	Item(id string) (queue.Item, bool)
	Pending() []queue.Item
	Status() queue.QueueStatus
	Stats() queue.Stats
}

// Executor is the part of the pattern executor the API drives.
type Executor interface {
	Execute(ctx context.Context, p pattern.Pattern, deviceID, userID, source string, opts ...pattern.ExecuteOption) (string, error)
	Cancel(id string) error
	Execution(id string) (pattern.Snapshot, bool)
	Active() []pattern.Snapshot
	Stats() pattern.Stats
}

// API serves the HTTP routes. Build it with New and mount Handler.
type API struct {
	queue    Queue
	executor Executor
	library  *pattern.Library
	log      *slog.Logger
	metrics  http.Handler
	feed     http.Handler
	checks   map[string]httpserver.Check
	proxies  []string
}

// Option configures the API.
type Option func(*API)

func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.log = l
		}
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *API) { a.metrics = h }
}

// WithFeedHandler mounts h (normally a websocket hub) at /ws.
func WithFeedHandler(h http.Handler) Option {
	return func(a *API) { a.feed = h }
}

// WithTrustedHeaders sets the proxy headers used to resolve the client address.
// Calling it without headers trusts only the connection's remote address.
func WithTrustedHeaders(headers ...string) Option {
	return func(a *API) { a.proxies = append([]string{}, headers...) }
}

// WithHealthCheck adds a named readiness check to /healthz.
func WithHealthCheck(name string, check httpserver.Check) Option {
	return func(a *API) {
		if name == "" || check == nil {
			return
		}
		if a.checks == nil {
			a.checks = make(map[string]httpserver.Check)
		}
		a.checks[name] = check
	}
}

func New(q Queue, ex Executor, lib *pattern.Library, opts ...Option) (*API, error) {
	if q == nil {
		return nil, ErrQueueRequired
	}
	if ex == nil {
		return nil, ErrExecutorRequired
	}
	if lib == nil {
		return nil, ErrLibraryRequired
	}

	a := &API{
		queue:    q,
		executor: ex,
		library:  lib,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		proxies:  clientip.DefaultHeaders,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(logger.Component("httpapi"))
	return a, nil
}

// Handler builds the router.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware())
	r.Use(clientip.Middleware(a.proxies))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthHandler(a.log, a.checks))
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics)
	}
	if a.feed != nil {
		r.Method(http.MethodGet, "/ws", a.feed)
	}

	r.Route("/commands", func(r chi.Router) {
		r.Post("/", a.enqueueCommand)
		r.Delete("/{id}", a.cancelCommand)
	})

	r.Route("/queue", func(r chi.Router) {
		r.Get("/status", a.queueStatus)
		r.Get("/stats", a.queueStats)
		r.Get("/items", a.pendingItems)
		r.Get("/items/{id}", a.queueItem)
		r.Post("/pause", a.pauseQueue)
		r.Post("/resume", a.resumeQueue)
	})

	r.Route("/patterns", func(r chi.Router) {
		r.Get("/", a.listPatterns)
		r.Post("/{name}/execute", a.executePattern)
	})

	r.Route("/executions", func(r chi.Router) {
		r.Get("/", a.activeExecutions)
		r.Get("/stats", a.executionStats)
		r.Get("/{id}", a.execution)
		r.Delete("/{id}", a.cancelExecution)
	})

	return r
}
