package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Sankethhn/Farmlink/internal/auth"
	"github.com/Sankethhn/Farmlink/internal/model"
	"github.com/Sankethhn/Farmlink/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB          *sql.DB
	JWTSecret   string
	TokenExpiry time.Duration
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        *model.User `json:"user"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Login handles POST /auth/login. The identity is looked up by email and
// role together, so the same failure covers a wrong password and a login
// attempt under the wrong role.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "email, password, and role required")
		return
	}

	user, err := store.GetUserByEmailAndRole(r.Context(), h.DB, req.Email, req.Role)
	if err != nil {
		storeError(w, err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "invalid email, password, or role")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("login failed", "email", req.Email, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid email, password, or role")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Email, user.Role, h.TokenExpiry)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("user logged in", "email", user.Email, "role", user.Role)
	jsonResponse(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	})
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := model.ValidateEmail(req.Email); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := model.ValidateFullName(req.FullName); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !model.ValidRole(req.Role) {
		jsonError(w, http.StatusBadRequest, "role must be farmer or business")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Email, string(hash),
		req.FullName, req.Role, req.Phone, req.Address)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("user registered", "email", user.Email, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		storeError(w, err)
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}
