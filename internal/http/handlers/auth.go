package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/hirebase/internal/account"
	"github.com/geocoder89/hirebase/internal/auth"
	"github.com/geocoder89/hirebase/internal/domain/user"
	"github.com/geocoder89/hirebase/internal/http/middlewares"
	"github.com/geocoder89/hirebase/internal/observability"
	"github.com/gin-gonic/gin"
)

type AuthService interface {
	Register(ctx context.Context, in account.RegisterInput) (account.AuthResult, error)
	Login(ctx context.Context, email, password string) (account.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Pair, error)
	GetProfile(u user.User) user.User
	UpdateProfile(ctx context.Context, u user.User, upd user.ProfileUpdate) (user.User, error)
	Logout(ctx context.Context, u user.User) error
}

const (
	// bcrypt dominates register/login
	credentialTimeout = 5 * time.Second
	storeTimeout      = 3 * time.Second
)

type AuthHandler struct {
	svc  AuthService
	prom *observability.Prom
}

func NewAuthHandler(svc AuthService, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{svc: svc, prom: prom}
}

type RegisterRequest struct {
	Email     string  `json:"email" binding:"required,email,max=255"`
	Password  string  `json:"password" binding:"required,min=8,max=72"`
	FirstName string  `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string  `json:"last_name" binding:"required,min=1,max=100"`
	Phone     *string `json:"phone" binding:"omitempty,max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthResponse struct {
	User   user.User     `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

func newTokenResponse(p auth.Pair) TokenResponse {
	return TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    p.ExpiresIn,
	}
}

// outcome maps a service error to the code used in both the response body
// and the auth outcome metric.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, account.ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, account.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, account.ErrAccountNotActive):
		return "account_not_active"
	case errors.Is(err, account.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, account.ErrUserNotEligible):
		return "user_not_eligible"
	case errors.Is(err, account.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, account.ErrInvalidProfile):
		return "invalid_request"
	default:
		return "internal_error"
	}
}

// respondServiceError is the single place service errors become HTTP.
func respondServiceError(ctx *gin.Context, err error) {
	code := outcome(err)

	switch code {
	case "email_taken":
		RespondError(ctx, http.StatusBadRequest, code, "Email already registered", nil)
	case "invalid_credentials":
		RespondUnauthorized(ctx, code, "Incorrect email or password")
	case "account_not_active":
		RespondForbidden(ctx, code, "Account is not active")
	case "invalid_token":
		RespondUnauthorized(ctx, code, "Invalid refresh token")
	case "user_not_eligible":
		RespondUnauthorized(ctx, code, "User not found or inactive")
	case "unauthenticated":
		RespondUnauthorized(ctx, code, "Could not validate credentials")
	case "invalid_request":
		RespondBadRequest(ctx, "Invalid request body", nil)
	default:
		_ = ctx.Error(err)
		RespondInternal(ctx, "Something went wrong")
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), credentialTimeout)
	defer cancel()

	res, err := h.svc.Register(cctx, account.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})

	h.prom.AuthOutcome("register", outcome(err))

	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.JSON(http.StatusCreated, AuthResponse{
		User:   res.User,
		Tokens: newTokenResponse(res.Tokens),
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), credentialTimeout)
	defer cancel()

	res, err := h.svc.Login(cctx, req.Email, req.Password)

	h.prom.AuthOutcome("login", outcome(err))

	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.JSON(http.StatusOK, AuthResponse{
		User:   res.User,
		Tokens: newTokenResponse(res.Tokens),
	})
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req RefreshRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	pair, err := h.svc.Refresh(cctx, req.RefreshToken)

	h.prom.AuthOutcome("refresh", outcome(err))

	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.JSON(http.StatusOK, newTokenResponse(pair))
}

func currentUser(ctx *gin.Context) (user.User, bool) {
	u, ok := middlewares.UserFromContext(ctx)
	if !ok {
		// route registered without RequireAuth
		RespondUnauthorized(ctx, "unauthenticated", "Not authenticated")
		return user.User{}, false
	}
	return u, true
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := currentUser(ctx)
	if !ok {
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, h.svc.GetProfile(u))
}

func (h *AuthHandler) UpdateMe(ctx *gin.Context) {
	u, ok := currentUser(ctx)
	if !ok {
		return
	}

	var req user.ProfileUpdate

	if !BindJSON(ctx, &req) {
		return
	}

	var nullErr *user.NullFieldError
	if err := req.Validate(); errors.As(err, &nullErr) {
		fields := make([]FieldError, 0, len(nullErr.Fields))
		for _, f := range nullErr.Fields {
			fields = append(fields, FieldError{Field: f, Rule: "required", Message: "cannot be null"})
		}
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": fields})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	updated, err := h.svc.UpdateProfile(cctx, u, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	u, ok := currentUser(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), storeTimeout)
	defer cancel()

	err := h.svc.Logout(cctx, u)

	h.prom.AuthOutcome("logout", outcome(err))

	ctx.Status(http.StatusNoContent)
}
