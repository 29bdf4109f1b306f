package handler

import (
	"net"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sandeepkv93/fittrack-backend/internal/http/response"
	"github.com/sandeepkv93/fittrack-backend/internal/observability"
	"github.com/sandeepkv93/fittrack-backend/internal/service"
)

type AuthHandler struct {
	auth     service.AuthServiceInterface
	validate *validator.Validate
}

func NewAuthHandler(auth service.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{auth: auth, validate: newValidator()}
}

type signupRequest struct {
	Email           string `json:"email" validate:"required,email,max=320"`
	Username        string `json:"username" validate:"required,max=32"`
	Password        string `json:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
}

type signupResponse struct {
	UserID string `json:"userId"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	id, err := h.auth.Signup(r.Context(), service.SignupInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		IP:       clientIP(r),
	})
	if err != nil {
		observability.AuditAuth(r, observability.AuthEvent{Action: "auth.signup", Err: err})
		writeServiceError(w, r, err)
		return
	}
	observability.AuditAuth(r, observability.AuthEvent{Action: "auth.signup", AccountID: id.String()})
	response.JSON(w, r, http.StatusOK, signupResponse{UserID: id.String()})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	pair, err := h.auth.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       clientIP(r),
	})
	if err != nil {
		observability.AuditAuth(r, observability.AuthEvent{Action: "auth.login", Err: err})
		writeServiceError(w, r, err)
		return
	}
	observability.AuditAuth(r, observability.AuthEvent{Action: "auth.login"})
	response.JSON(w, r, http.StatusOK, pair)
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		observability.AuditAuth(r, observability.AuthEvent{Action: "auth.refresh", Err: err})
		writeServiceError(w, r, err)
		return
	}
	observability.AuditAuth(r, observability.AuthEvent{Action: "auth.refresh"})
	response.JSON(w, r, http.StatusOK, pair)
}

// Me handles GET /me and GET /auth/user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	profile, err := h.auth.Me(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
