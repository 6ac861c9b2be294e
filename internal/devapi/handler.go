package devapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dtroode/pastry-storefront/internal/api/http/middleware"
	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

const roleAdmin = "admin"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

type stockConflict struct {
	Message   string `json:"message"`
	ProductID int64  `json:"product_id"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// Server serves the storefront API contract from a Catalog.
type Server struct {
	catalog *Catalog
	tokens  model.TokenManager
	auth    *Authenticate
	logger  *logger.Logger
}

func NewServer(catalog *Catalog, tokens model.TokenManager, logger *logger.Logger) *Server {
	return &Server{
		catalog: catalog,
		tokens:  tokens,
		auth:    NewAuthenticate(tokens, logger),
		logger:  logger,
	}
}

// Router builds the chi router of the API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLogging(s.logger).Handler)
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Get("/products", s.listProducts)
		r.Get("/products/{id}", s.getProduct)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Handler)
			r.Post("/logout", s.logout)
			r.Get("/user", s.currentUser)
			r.Post("/orders", s.placeOrder)
			r.Get("/my-orders", s.myOrders)
			r.With(s.requireAdmin).Patch("/products/{id}", s.updateProduct)
			r.With(s.requireAdmin).Patch("/orders/{id}/status", s.setOrderStatus)
		})
	})

	return r
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "The email and password fields are required.")
		return
	}

	user, err := s.catalog.Authenticate(req.Email, req.Password)
	if err != nil {
		s.logger.Info("Dev API: login failed", "email", req.Email)
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	token, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		s.logger.Error("Dev API: failed to issue token",
			"user_id", user.ID,
			"error", err.Error())
		writeMessage(w, http.StatusInternalServerError, "Server Error")
		return
	}

	s.logger.Info("Dev API: user logged in", "user_id", user.ID)
	writeData(w, http.StatusOK, model.Credentials{Token: token, User: user})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.auth.Revoke(bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.user(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	writeData(w, http.StatusOK, user)
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.catalog.Products())
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := s.catalog.Product(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	p, err := s.catalog.UpdateProduct(id, patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (s *Server) placeOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var draft model.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	order, created, err := s.catalog.PlaceOrder(userID, draft)
	if err != nil {
		s.writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		s.logger.Info("Dev API: order placed",
			"order_id", order.ID,
			"user_id", userID,
			"total", order.Total.String())
	}
	writeData(w, status, order)
}

func (s *Server) myOrders(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	writeData(w, http.StatusOK, s.catalog.Orders(userID))
}

func (s *Server) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	order, err := s.catalog.SetOrderStatus(id, req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, order)
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.user(r)
		if !ok || user.Role != roleAdmin {
			s.writeError(w, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) user(r *http.Request) (model.UserRecord, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		return model.UserRecord{}, false
	}
	user, err := s.catalog.User(userID)
	if err != nil {
		return model.UserRecord{}, false
	}
	return user, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var stockErr *model.StockExceededError
	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, stockConflict{
			Message:   "Insufficient stock.",
			ProductID: stockErr.ProductID,
			Available: stockErr.Ceiling,
			Requested: stockErr.Requested,
		})
	case errors.Is(err, model.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, ErrForbidden):
		writeMessage(w, http.StatusForbidden, "This action is unauthorized.")
	case errors.Is(err, ErrInvalidInput):
		writeMessage(w, http.StatusUnprocessableEntity, "The given data was invalid.")
	default:
		s.logger.Error("Dev API: request failed", "error", err.Error())
		writeMessage(w, http.StatusInternalServerError, "Server Error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"data": v})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
