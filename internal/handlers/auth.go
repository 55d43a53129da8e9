package handlers

import (
	"context"
	"errors"
	"net/http"

	"userhub/internal/apperrors"
	"userhub/internal/handlers/render"
	"userhub/internal/handlers/userctx"
	"userhub/internal/logger"
	"userhub/internal/service/auth"
)

type authService interface {
	// Register user; has to return apperrors.ErrUserAlreadyExists if email is taken
	Register(ctx context.Context, name string, email string, password string) (auth.AuthResult, error)

	// Login user; has to return apperrors.ErrInvalidCredentials on bad email or password
	Login(ctx context.Context, email string, password string) (auth.AuthResult, error)

	// Refresh trades the presented (possibly just expired) token for a new one
	Refresh(ctx context.Context, raw string) (auth.AuthResult, error)

	// Logout revokes the presented token server side
	Logout(ctx context.Context, raw string) error
}

type AuthHandler struct {
	auth   authService
	logger logger.Logger
}

func NewAuth(auth authService, l logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: l}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type registerRequest struct {
		Name                 string `json:"name" validate:"required,max=255"`
		Email                string `json:"email" validate:"required,email,max=255"`
		Password             string `json:"password" validate:"required,min=6"`
		PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
	}

	data, err := render.BindAndValidate[registerRequest](w, r)
	if err != nil {
		return
	}

	result, err := h.auth.Register(r.Context(), data.Name, data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.FieldErrors(w, map[string][]string{"email": {"The email has already been taken"}})
		default:
			h.logger.Error("register failed", "error", err)
			render.ServerError(w)
		}
		return
	}

	render.JSON(w, newAuthResponse(result))
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type loginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	data, err := render.BindAndValidate[loginRequest](w, r)
	if err != nil {
		return
	}

	result, err := h.auth.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.AuthError(w, "Invalid email or password")
		default:
			h.logger.Error("login failed", "error", err)
			render.ServerError(w)
		}
		return
	}

	render.JSON(w, newAuthResponse(result))
}

func (h *AuthHandler) profile(w http.ResponseWriter, r *http.Request) {
	user, _ := userctx.FromContext(r.Context())
	render.JSON(w, newUserResponse(user))
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	type logoutResponse struct {
		Message string `json:"message"`
	}

	raw, err := auth.BearerToken(r)
	if err != nil {
		render.AuthError(w, "Unauthenticated")
		return
	}

	if err := h.auth.Logout(r.Context(), raw); err != nil {
		h.logger.Warn("logout revocation failed", "error", err)
		render.ServerError(w)
		return
	}

	render.JSON(w, logoutResponse{Message: "Successfully logged out"})
}

// refresh is deliberately not behind the auth middleware: the presented
// token may already be expired and only the token manager can judge it
func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	raw, err := auth.BearerToken(r)
	if err != nil {
		render.AuthError(w, "Token refresh failed")
		return
	}

	result, err := h.auth.Refresh(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrTokenExpired),
			errors.Is(err, apperrors.ErrTokenInvalid),
			errors.Is(err, apperrors.ErrTokenRevoked),
			errors.Is(err, apperrors.ErrUserNotFound):
			render.AuthError(w, "Token refresh failed")
		default:
			h.logger.Error("refresh failed", "error", err)
			render.ServerError(w)
		}
		return
	}

	render.JSON(w, newAuthResponse(result))
}
