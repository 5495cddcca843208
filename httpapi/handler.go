package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/identity"
	"github.com/MrEthical07/sessionauth/internal/slogx"
	"github.com/MrEthical07/sessionauth/middleware"
	"github.com/MrEthical07/sessionauth/password"
)

const maxBodyBytes = 1 << 16

// Accounts is the user directory behind register and login.
type Accounts interface {
	Register(ctx context.Context, email, password string) (sessionauth.Identity, error)
	Authenticate(ctx context.Context, email, password string) (sessionauth.Identity, error)
}

// Handler serves the cookie-based auth endpoints for one Engine.
type Handler struct {
	engine   *sessionauth.Engine
	accounts Accounts
	validate *validator.Validate

	cookies    sessionauth.CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
	production bool
	throttle   sessionauth.SecurityConfig
	clientIP   middleware.KeyExtractor
}

// New takes cookie, throttle and proxy policy from the engine's Config.
// Forwarding headers are ignored when the proxy list does not parse; the
// Engine's Config.Validate rejects such lists anyway.
func New(engine *sessionauth.Engine, accounts Accounts) *Handler {
	cfg := engine.Config()
	clientIP := middleware.ClientIP
	if proxies, err := middleware.ParseTrustedProxies(cfg.Security.TrustedProxies); err == nil {
		clientIP = proxies.ClientIP
	}
	return &Handler{
		engine:     engine,
		accounts:   accounts,
		validate:   validator.New(),
		cookies:    cfg.Cookie,
		accessTTL:  cfg.JWT.AccessTTL,
		refreshTTL: cfg.JWT.RefreshTTL,
		production: cfg.Security.ProductionMode,
		throttle:   cfg.Security,
		clientIP:   clientIP,
	}
}

// Routes returns the auth API mux. Callers add logging and CORS around it.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	limit := func(scope string, next http.HandlerFunc) http.Handler {
		if !h.throttle.EnableAuthThrottle {
			return next
		}
		return middleware.RateLimit(h.engine, middleware.RateLimitConfig{
			RequestsPerSecond: h.throttle.AuthRequestsPerSecond,
			Burst:             h.throttle.AuthBurst,
			Scope:             scope,
		}, h.clientIP)(next)
	}

	mux.Handle("POST /api/auth/register", limit("register", h.Register))
	mux.Handle("POST /api/auth/login", limit("login", h.Login))
	mux.Handle("POST /api/auth/refresh", limit("refresh", h.Refresh))
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.Handle("GET /api/auth/me", middleware.Guard(h.engine)(http.HandlerFunc(h.Me)))

	return h.requestContext(mux)
}

// requestContext copies the request id and client address into the context
// keys the engine reads for audit events.
func (h *Handler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := sessionauth.WithClientIP(r.Context(), h.clientIP(r))
		if id := slogx.RequestIDFromContext(ctx); id != "" {
			ctx = sessionauth.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Register creates an account and signs it in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	id, err := h.accounts.Register(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorBody{Message: "User already exists"})
		return
	case errors.Is(err, password.ErrTooShort):
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorBody{Message: "Password too short"})
		return
	case err != nil:
		h.internalError(w, r, "register failed", err)
		return
	}

	pair, err := h.engine.Issue(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	user := newUserResponse(id)
	middleware.WriteJSON(w, http.StatusCreated, authResponse{Message: "User created successfully", User: &user})
}

// Login checks credentials and sets a fresh cookie pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	id, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		middleware.WriteJSON(w, http.StatusUnauthorized, middleware.ErrorBody{Message: "Invalid credentials"})
		return
	case err != nil:
		h.internalError(w, r, "login failed", err)
		return
	}

	pair, err := h.engine.Issue(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	user := newUserResponse(id)
	middleware.WriteJSON(w, http.StatusOK, authResponse{Message: "Login successful", User: &user})
}

// Refresh rotates the refresh cookie. The presented token stops working.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	pair, err := h.engine.Refresh(r.Context(), h.cookieValue(r, h.cookies.RefreshName))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	middleware.WriteJSON(w, http.StatusOK, authResponse{Message: "Tokens refreshed successfully"})
}

// Logout always succeeds; the refresh cookie is optional.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.engine.Revoke(r.Context(), h.cookieValue(r, h.cookies.RefreshName))
	h.clearAuthCookies(w)
	middleware.WriteJSON(w, http.StatusOK, authResponse{Message: "Logged out successfully"})
}

// Me returns the identity carried by the access cookie.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, r, sessionauth.ErrUnauthenticated)
		return
	}
	user := newUserResponse(id)
	middleware.WriteJSON(w, http.StatusOK, authResponse{Message: "ok", User: &user})
}

func (h *Handler) cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorBody{Message: "Invalid request"})
		return req, false
	}

	if err := h.validate.Struct(req); err != nil {
		resp := validationErrorResponse{Message: "Validation error"}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Fields = make(map[string]string, len(verrs))
			for _, fe := range verrs {
				resp.Fields[fe.Field()] = fe.Tag()
			}
		}
		middleware.WriteJSON(w, http.StatusBadRequest, resp)
		return req, false
	}
	return req, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if sessionauth.HTTPStatus(err) >= http.StatusInternalServerError {
		slogx.FromContext(r.Context()).Error("auth request failed", slog.Any("error", err))
	}
	middleware.WriteError(w, err, h.production)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slogx.FromContext(r.Context()).Error(msg, slog.Any("error", err))
	middleware.WriteError(w, errors.Join(sessionauth.ErrInternal, err), h.production)
}
