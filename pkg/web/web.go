// Package web serves the coffee shop over HTTP: server-rendered pages for
// customers and a JSON API.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"coffeeshop/pkg/catalog"
	"coffeeshop/pkg/logger"
	"coffeeshop/pkg/order"
)

//go:embed templates/*.html
var templateFS embed.FS

// OrderService is the core the handlers drive.
type OrderService interface {
	Menu() []catalog.Product
	PlaceOrder(ctx context.Context, raw map[string]string) (order.Order, error)
	ReviseOrder(ctx context.Context, id int64, raw map[int64]string) (order.Order, error)
	RemoveOrder(ctx context.Context, id int64) error
	GetOrder(ctx context.Context, id int64) (order.Order, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	svc     OrderService
	log     *logger.Logger
	tracer  trace.Tracer
	timeout time.Duration
	checks  map[string]HealthCheck
	tmpl    *template.Template
}

// Option configures a Handler.
type Option func(*Handler)

// WithTracer sets the tracer injected into every request context.
func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) { h.tracer = t }
}

// WithTimeout bounds every call into the order service.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) { h.checks[name] = check }
}

// New parses the page templates and returns a Handler.
func New(svc OrderService, log *logger.Logger, opts ...Option) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	h := &Handler{
		svc:     svc,
		log:     log,
		tracer:  noop.NewTracerProvider().Tracer("coffeeshop"),
		timeout: 5 * time.Second,
		checks:  make(map[string]HealthCheck),
		tmpl:    tmpl,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Routes returns the application router wrapped in the middleware chain.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	r.HandleFunc("/", h.listOrdersPage).Methods(http.MethodGet)
	r.HandleFunc("/menu", h.menuPage).Methods(http.MethodGet)
	r.HandleFunc("/menu", h.placeOrderForm).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id:[0-9]+}/edit", h.editOrderPage).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id:[0-9]+}/edit", h.reviseOrderForm).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id:[0-9]+}/delete", h.removeOrderForm).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/menu", h.menuHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.listOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.placeOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id:[0-9]+}", h.getOrderHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}", h.reviseOrderHandler).Methods(http.MethodPut)
	api.HandleFunc("/orders/{id:[0-9]+}", h.removeOrderHandler).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", h.healthHandler).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	return chi.Chain(
		middleware.RequestID,
		middleware.RealIP,
		h.traceRequests,
		h.logRequests,
		middleware.Recoverer,
	).Handler(r)
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, h.timeout)
}
