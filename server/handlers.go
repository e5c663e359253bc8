package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/tokengate/auth"
	"github.com/jonwraymond/tokengate/observe"
	"github.com/jonwraymond/tokengate/resilience"
)

type handlers struct {
	deps Deps
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MeResponse describes the caller's security context.
type MeResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// UserResponse is one entry of the admin user listing.
type UserResponse struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	if h.deps.LoginLimiter != nil && !h.deps.LoginLimiter.Allow(clientKey(r)) {
		w.Header().Set("Retry-After", "1")
		h.deps.Responder.WriteStatus(w, r, http.StatusTooManyRequests, messageTooManyLogins)
		return
	}

	var req loginRequest
	body := http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.deps.Responder.WriteStatus(w, r, http.StatusBadRequest, messageMalformedLogin)
		return
	}

	result, err := h.deps.Authenticator.Login(r.Context(), auth.Credential{
		Username: req.Username,
		Password: req.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.deps.Responder.WriteStatus(w, r, http.StatusUnauthorized, auth.MessageInvalidCredentials)
		return
	case errors.Is(err, auth.ErrUserStoreUnavailable):
		if resilience.IsRejection(err) {
			w.Header().Set("Retry-After", "1")
		}
		h.deps.Responder.WriteStatus(w, r, http.StatusServiceUnavailable, messageUnavailable)
		return
	default:
		h.deps.Responder.WriteStatus(w, r, http.StatusInternalServerError, messageInternal)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		TokenType: strings.TrimSpace(h.deps.Gate.Config().TokenPrefix),
		Username:  result.Username,
		Roles:     roleList(result.Roles),
		ExpiresAt: result.ExpiresAt.UTC(),
	})
}

func (h *handlers) publicHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, MeResponse{
		Username: id.Principal,
		Roles:    roleList(id.Roles),
	})
}

func (h *handlers) adminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.deps.Users.List(r.Context())
	if err != nil {
		h.deps.Logger.Error(r.Context(), "list users failed", observe.Field{Key: "error", Value: err.Error()})
		h.deps.Responder.WriteStatus(w, r, http.StatusServiceUnavailable, messageUnavailable)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, UserResponse{
			ID:       u.ID,
			Username: u.Username,
			Roles:    roleList(u.Roles),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// clientKey identifies the caller for rate limiting by remote address.
// Forwarding headers are ignored since they are caller-controlled.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func roleList(r auth.Roles) []string {
	out := r.Slice()
	if out == nil {
		return []string{}
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
