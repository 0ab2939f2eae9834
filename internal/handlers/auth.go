package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"habitloop/internal/mailer"
	"habitloop/internal/middleware"
	"habitloop/internal/models"
	"habitloop/internal/store"
)

type AuthHandler struct {
	users store.UserStore
	mail  mailer.Mailer
	auth  *middleware.AuthMiddleware
	log   *zap.Logger
}

func NewAuthHandler(users store.UserStore, mail mailer.Mailer, auth *middleware.AuthMiddleware, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, mail: mail, auth: auth, log: log}
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error("hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	token, err := mailer.NewToken()
	if err != nil {
		h.log.Error("generate verification token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}
	expires := time.Now().Add(24 * time.Hour)

	user := &models.User{
		ID:                 uuid.New(),
		Email:              email,
		PasswordHash:       string(hash),
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		VerifyToken:        &token,
		VerifyTokenExpires: &expires,
		CreatedAt:          time.Now(),
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		h.log.Error("create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	// Delivery happens off the request path so a slow mail provider can't
	// stall signup.
	go func(to, name, token string) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := h.mail.SendVerification(ctx, to, name, token); err != nil {
			h.log.Error("send verification email", zap.String("to", to), zap.Error(err))
		}
	}(user.Email, user.FirstName, token)

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "account created, check your email to verify your address",
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := h.users.UserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error("lookup user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not log in")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsValidated {
		writeError(w, http.StatusForbidden, "email address not verified")
		return
	}

	token, err := h.auth.IssueToken(user.ID, time.Now())
	if err != nil {
		h.log.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not log in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	if token == "" || email == "" {
		writeError(w, http.StatusBadRequest, "token and email are required")
		return
	}

	user, err := h.users.UserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "invalid verification link")
			return
		}
		h.log.Error("lookup user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not verify email")
		return
	}
	if user.IsValidated {
		writeJSON(w, http.StatusOK, map[string]string{"message": "email already verified"})
		return
	}
	if user.VerifyToken == nil || *user.VerifyToken != token {
		writeError(w, http.StatusBadRequest, "invalid verification link")
		return
	}
	if user.VerifyTokenExpires == nil || time.Now().After(*user.VerifyTokenExpires) {
		writeError(w, http.StatusBadRequest, "verification link expired")
		return
	}

	if err := h.users.MarkValidated(r.Context(), user.ID); err != nil {
		h.log.Error("mark validated", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not verify email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified, you can log in now"})
}

type resendRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ResendValidation(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// The response never reveals whether the address exists.
	accepted := func() {
		writeJSON(w, http.StatusAccepted, map[string]string{
			"message": "if that address has an unverified account, a new link is on its way",
		})
	}

	user, err := h.users.UserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Error("lookup user", zap.Error(err))
		}
		accepted()
		return
	}
	if user.IsValidated {
		accepted()
		return
	}

	token, err := mailer.NewToken()
	if err != nil {
		h.log.Error("generate verification token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not resend verification")
		return
	}
	if err := h.users.SetVerification(r.Context(), user.ID, token, time.Now().Add(24*time.Hour)); err != nil {
		h.log.Error("set verification", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not resend verification")
		return
	}

	go func(to, name, token string) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := h.mail.SendVerification(ctx, to, name, token); err != nil {
			h.log.Error("send verification email", zap.String("to", to), zap.Error(err))
		}
	}(user.Email, user.FirstName, token)

	accepted()
}
