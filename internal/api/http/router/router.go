package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dtroode/pastry-storefront/internal/api/http/handler"
	"github.com/dtroode/pastry-storefront/internal/api/http/middleware"
	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

// SessionService is everything the session and checkout endpoints need.
type SessionService interface {
	handler.SessionService
	handler.CheckoutService
}

// Router represents the HTTP router of the storefront agent.
type Router struct {
	cart          model.CartStore
	session       SessionService
	catalog       handler.CatalogService
	notifications handler.NotificationService
	revalidator   handler.Revalidator
	signals       handler.SignalSource
	logger        *logger.Logger
}

// New creates new Router instance.
func New(
	cart model.CartStore,
	session SessionService,
	catalog handler.CatalogService,
	notifications handler.NotificationService,
	revalidator handler.Revalidator,
	signals handler.SignalSource,
	logger *logger.Logger,
) *Router {
	return &Router{
		cart:          cart,
		session:       session,
		catalog:       catalog,
		notifications: notifications,
		revalidator:   revalidator,
		signals:       signals,
		logger:        logger,
	}
}

// Register builds the chi router with request id, real ip, logging and panic recovery.
func (r *Router) Register() http.Handler {
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.NewLogging(r.logger).Handler)
	mux.Use(chimw.Recoverer)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.registerSessionRoutes(mux)
	r.registerCartRoutes(mux)
	r.registerNotificationRoutes(mux)

	events := handler.NewEvents(r.signals, r.logger)
	mux.Get("/events", events.Serve)

	return mux
}

func (r *Router) registerSessionRoutes(mux chi.Router) {
	h := handler.NewSession(r.session, r.cart, r.revalidator, r.logger)
	mux.Get("/session", h.Get)
	mux.Post("/session/login", h.Login)
	mux.Post("/session/logout", h.Logout)
	mux.Post("/revalidate", h.Revalidate)
}

func (r *Router) registerCartRoutes(mux chi.Router) {
	products := handler.NewProducts(r.catalog, r.logger)
	mux.Get("/products", products.List)

	h := handler.NewCart(r.cart, r.catalog, r.session, r.logger)
	mux.Route("/cart", func(cr chi.Router) {
		cr.Get("/", h.Get)
		cr.Delete("/", h.Clear)
		cr.Post("/items", h.AddItem)
		cr.Patch("/items/{productID}", h.UpdateItem)
		cr.Delete("/items/{productID}", h.RemoveItem)
	})
	mux.Post("/checkout", h.Checkout)
}

func (r *Router) registerNotificationRoutes(mux chi.Router) {
	h := handler.NewNotifications(r.notifications)
	mux.Get("/notifications", h.List)
	mux.Post("/notifications/read", h.MarkRead)
}
