// Package httpapi exposes the point-of-sale services over HTTP+JSON.
package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cupoftea4/pos-mysql/internal/auth"
	"github.com/cupoftea4/pos-mysql/internal/catalog"
	"github.com/cupoftea4/pos-mysql/internal/model"
	"github.com/cupoftea4/pos-mysql/internal/orders"
	"github.com/cupoftea4/pos-mysql/internal/ratelimit"
	"github.com/cupoftea4/pos-mysql/internal/reports"
)

type Authenticator interface {
	Register(ctx context.Context, email, password, role string) (string, error)
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
	Resolve(ctx context.Context, raw string) (model.Identity, error)
}

type Catalog interface {
	ListItems(ctx context.Context, who model.Identity, search string, page model.Page) (catalog.ItemPage, error)
	GetItem(ctx context.Context, who model.Identity, itemID int64) (model.Item, error)
	CreateItem(ctx context.Context, who model.Identity, in model.ItemInput) (model.Item, error)
	UpdateItem(ctx context.Context, itemID int64, in model.ItemInput) (model.Item, error)
	DeleteItem(ctx context.Context, itemID int64) error
	ListCategories(ctx context.Context, search string, page model.Page) (catalog.CategoryPage, error)
	GetCategory(ctx context.Context, categoryID int64) (model.Category, error)
	CreateCategory(ctx context.Context, who model.Identity, name string) (model.Category, error)
	UpdateCategory(ctx context.Context, categoryID int64, name string) error
}

type Orders interface {
	CreateOrder(ctx context.Context, who model.Identity, req orders.CreateRequest) (orders.Created, error)
	RefundOrder(ctx context.Context, who model.Identity, orderID int64) error
	ListOrders(ctx context.Context, search string, page model.Page) (orders.OrderPage, error)
	Receipt(ctx context.Context, orderID int64) (model.Order, error)
}

type Reports interface {
	SalesReport(ctx context.Context, period string) ([]model.SalesBucket, error)
	SalesDetails(ctx context.Context, period, date string) (reports.Details, error)
}

type ReceiptRenderer interface {
	Render(w io.Writer, o model.Order) error
}

// Services are the collaborators behind the routes.
type Services struct {
	Auth     Authenticator
	Catalog  Catalog
	Orders   Orders
	Reports  Reports
	Receipts ReceiptRenderer
	// Limiter throttles register and login. Nil disables it.
	Limiter ratelimit.Limiter
	// Health reports whether the backing store is reachable.
	Health func(ctx context.Context) error
}

type Options struct {
	// TokenHeader carries the bearer token. Authorization: Bearer is
	// accepted as well.
	TokenHeader string
	CORSOrigins []string
	Log         logrus.FieldLogger
}

type handler struct {
	svc         Services
	log         logrus.FieldLogger
	tokenHeader string
}

// NewRouter builds the HTTP handler. Every route is served both at the root
// and under /api.
func NewRouter(svc Services, opts Options) http.Handler {
	if svc.Limiter == nil {
		svc.Limiter = ratelimit.Nop()
	}
	if opts.TokenHeader == "" {
		opts.TokenHeader = "x-auth-token"
	}
	h := &handler{svc: svc, log: opts.Log, tokenHeader: opts.TokenHeader}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(h.logRequests)
	r.Use(h.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", opts.TokenHeader},
		ExposedHeaders:   []string{"Content-Disposition", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.health)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Message: "Route not found", Error: "not_found"})
	})

	r.Group(h.routes)
	r.Route("/api", h.routes)

	return otelhttp.NewHandler(r, "pos-server")
}

func (h *handler) routes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.With(h.rateLimit("register")).Post("/register", h.register)
		r.With(h.rateLimit("login")).Post("/login", h.login)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/categories", func(r chi.Router) {
			r.Use(h.require(auth.ManageCategories))
			r.Get("/", h.listCategories)
			r.Post("/", h.createCategory)
			r.Get("/{id}", h.getCategory)
			r.Put("/{id}", h.updateCategory)
		})

		r.Route("/items", func(r chi.Router) {
			r.With(h.require(auth.ReadItems)).Get("/", h.listItems)
			r.With(h.require(auth.ReadItems)).Get("/{id}", h.getItem)
			r.With(h.require(auth.ManageItems)).Post("/", h.createItem)
			r.With(h.require(auth.ManageItems)).Put("/{id}", h.updateItem)
			r.With(h.require(auth.ManageItems)).Delete("/{id}", h.deleteItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(h.require(auth.ReadOrders)).Get("/", h.listOrders)
			r.With(h.require(auth.CreateOrders)).Post("/", h.createOrder)
			r.With(h.require(auth.RefundOrders)).Post("/refund/{id}", h.refundOrder)
			r.With(h.require(auth.PrintReceipts)).Get("/receipt/{id}", h.receipt)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(h.require(auth.ViewReports))
			r.Get("/sales", h.salesReport)
			r.Get("/sales/details", h.salesDetails)
		})
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.svc.Health != nil {
		if err := h.svc.Health(r.Context()); err != nil {
			h.log.WithError(err).Warn("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
