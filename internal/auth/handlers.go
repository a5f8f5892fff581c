// ABOUTME: HTTP handlers for the identity service: register, login, me, refresh, logout
// ABOUTME: Issues access+refresh token pairs and transports them as cookies

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/murmurhq/murmur/internal/store"
	"github.com/murmurhq/murmur/internal/token"
)

// Handler serves the /auth endpoints.
type Handler struct {
	users    store.Users
	issuer   *token.Issuer
	verifier *token.Verifier
	cookies  CookiePolicy
	logger   *slog.Logger
}

// NewHandler creates the auth handler.
func NewHandler(users store.Users, issuer *token.Issuer, verifier *token.Verifier, cookies CookiePolicy, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		users:    users,
		issuer:   issuer,
		verifier: verifier,
		cookies:  cookies,
		logger:   logger.With("component", "auth"),
	}
}

// Routes registers the auth endpoints on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("GET /auth/me", h.handleMe)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /auth/users", h.handleListUsers)
}

// Profile is the public view of a user returned by auth endpoints.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func profileOf(u *store.User) Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// issueSession creates an access+refresh pair for the user and transports
// both as cookies.
func (h *Handler) issueSession(w http.ResponseWriter, userID string) error {
	access, err := h.issuer.Issue(userID, token.KindAccess, h.cookies.AccessTTL)
	if err != nil {
		return err
	}
	refresh, err := h.issuer.Issue(userID, token.KindRefresh, h.cookies.RefreshTTL)
	if err != nil {
		return err
	}
	h.cookies.SetPair(w, access, refresh)
	return nil
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "name, email, and password are required")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &store.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			writeJSONError(w, http.StatusConflict, "email already exists")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.issueSession(w, user.ID); err != nil {
		h.logger.Error("failed to issue session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, profileOf(user))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a bcrypt comparison so absent and present emails take
			// the same time to reject.
			CheckDummyPassword(req.Password)
			writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("failed to look up user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !CheckPassword(user.PasswordHash, req.Password) {
		writeJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.issueSession(w, user.ID); err != nil {
		h.logger.Error("failed to issue session", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, profileOf(user))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, errMsg := verifyCookie(r, h.verifier, token.KindAccess, AccessCookieName)
	if errMsg != "" {
		writeJSONError(w, http.StatusUnauthorized, errMsg)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to look up user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, profileOf(user))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims, errMsg := verifyCookie(r, h.verifier, token.KindRefresh, RefreshCookieName)
	if errMsg != "" {
		writeJSONError(w, http.StatusUnauthorized, errMsg)
		return
	}

	// Only a new access token is minted; the refresh token keeps its
	// original expiry, so a session's total lifetime is bounded.
	access, err := h.issuer.Issue(claims.Subject, token.KindAccess, h.cookies.AccessTTL)
	if err != nil {
		h.logger.Error("failed to issue access token", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.cookies.SetAccess(w, access)

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, profileOf(u))
	}
	writeJSON(w, http.StatusOK, profiles)
}
