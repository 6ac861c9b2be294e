package handler

import (
	"context"
	"net/http"

	"github.com/oapi-codegen/nullable"

	"github.com/dtroode/pastry-storefront/internal/logger"
	"github.com/dtroode/pastry-storefront/internal/model"
)

// SessionService signs the origin in and out.
type SessionService interface {
	Login(ctx context.Context, email, password string) (model.UserRecord, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (model.UserRecord, bool)
}

// Revalidator reconciles state with storage on demand.
type Revalidator interface {
	Tick(ctx context.Context)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes who the origin is signed in as.
type SessionResponse struct {
	Authenticated bool                                `json:"authenticated"`
	Identity      string                              `json:"identity,omitempty"`
	User          nullable.Nullable[model.UserRecord] `json:"user,omitempty"`
}

// Session handles session and revalidation endpoints.
type Session struct {
	session     SessionService
	cart        model.CartStore
	revalidator Revalidator
	logger      *logger.Logger
}

func NewSession(session SessionService, cart model.CartStore, revalidator Revalidator, logger *logger.Logger) *Session {
	return &Session{
		session:     session,
		cart:        cart,
		revalidator: revalidator,
		logger:      logger,
	}
}

// Get returns the current session.
func (h *Session) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state(r.Context()))
}

// Login signs in with email and password.
func (h *Session) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	h.logger.Debug("Session handler: processing login request", "email", req.Email)

	if _, err := h.session.Login(r.Context(), req.Email, req.Password); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.state(r.Context()))
}

// Logout signs out. The persisted cart is kept for the next login.
func (h *Session) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.state(r.Context()))
}

// Revalidate re-resolves identity and reloads state, as on regaining visibility.
func (h *Session) Revalidate(w http.ResponseWriter, r *http.Request) {
	h.revalidator.Tick(r.Context())
	writeJSON(w, http.StatusOK, h.state(r.Context()))
}

func (h *Session) state(ctx context.Context) SessionResponse {
	resp := SessionResponse{
		Authenticated: h.cart.IsAuthenticated(),
		Identity:      string(h.cart.Identity()),
	}
	if user, ok := h.session.CurrentUser(ctx); ok && resp.Authenticated {
		resp.User = nullable.NewNullableWithValue(user)
	} else {
		resp.User = nullable.NewNullNullable[model.UserRecord]()
	}
	return resp
}
