package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"userhub/internal/apperrors"
	"userhub/internal/handlers/render"
	"userhub/internal/handlers/userctx"
	"userhub/internal/logger"
	"userhub/internal/models"
	"userhub/internal/repository"
)

type userService interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
	ListUsers(ctx context.Context, page int, perPage int) (repository.UserPage, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
	Statistics(ctx context.Context) (repository.UserStats, error)
	UpdateUser(ctx context.Context, actor models.User, id int64, arg repository.UpdateUserParams) (models.User, error)
	DeleteUser(ctx context.Context, actor models.User, id int64) error
	DeleteOwnAccount(ctx context.Context, actor models.User) error
	ChangePassword(ctx context.Context, actor models.User, currentPassword string, newPassword string) error
}

type UserHandler struct {
	users  userService
	logger logger.Logger
}

func NewUser(users userService, l logger.Logger) *UserHandler {
	return &UserHandler{users: users, logger: l}
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	type listResponse struct {
		Data        []userResponse `json:"data"`
		CurrentPage int            `json:"current_page"`
		LastPage    int            `json:"last_page"`
		PerPage     int            `json:"per_page"`
		Total       int64          `json:"total"`
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, err := h.users.ListUsers(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list users failed", "error", err)
		render.ServerError(w)
		return
	}

	lastPage := int((result.Total + int64(result.PerPage) - 1) / int64(result.PerPage))
	if lastPage < 1 {
		lastPage = 1
	}

	render.JSON(w, listResponse{
		Data:        newUserResponses(result.Users),
		CurrentPage: result.Page,
		LastPage:    lastPage,
		PerPage:     result.PerPage,
		Total:       result.Total,
	})
}

func (h *UserHandler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if len(query) < 2 {
		render.FieldErrors(w, map[string][]string{"query": {"Value is too short (minimum 2)"}})
		return
	}

	users, err := h.users.SearchUsers(r.Context(), query)
	if err != nil {
		h.logger.Error("search users failed", "error", err)
		render.ServerError(w)
		return
	}

	render.JSON(w, newUserResponses(users))
}

func (h *UserHandler) statistics(w http.ResponseWriter, r *http.Request) {
	type statsData struct {
		TotalUsers  int64 `json:"total_users"`
		RecentUsers int64 `json:"recent_users_last_7_days"`
	}
	type statsResponse struct {
		Success bool      `json:"success"`
		Data    statsData `json:"data"`
	}

	stats, err := h.users.Statistics(r.Context())
	if err != nil {
		h.logger.Error("user statistics failed", "error", err)
		render.ServerError(w)
		return
	}

	render.JSON(w, statsResponse{
		Success: true,
		Data:    statsData{TotalUsers: stats.TotalUsers, RecentUsers: stats.RecentUsers},
	})
}

func (h *UserHandler) show(w http.ResponseWriter, r *http.Request) {
	type showResponse struct {
		Success bool         `json:"success"`
		Data    userResponse `json:"data"`
	}

	id, err := userID(r)
	if err != nil {
		render.Fail(w, "User not found", http.StatusNotFound)
		return
	}

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.Fail(w, "User not found", http.StatusNotFound)
		default:
			h.logger.Error("get user failed", "error", err)
			render.ServerError(w)
		}
		return
	}

	render.JSON(w, showResponse{Success: true, Data: newUserResponse(user)})
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	type updateRequest struct {
		Name  *string `json:"name" validate:"omitempty,min=1,max=255"`
		Email *string `json:"email" validate:"omitempty,email,max=255"`
	}
	type updateResponse struct {
		Success bool         `json:"success"`
		Message string       `json:"message"`
		Data    userResponse `json:"data"`
	}

	id, err := userID(r)
	if err != nil {
		render.Fail(w, "User not found", http.StatusNotFound)
		return
	}

	data, err := render.BindAndValidate[updateRequest](w, r)
	if err != nil {
		return
	}

	actor, _ := userctx.FromContext(r.Context())
	user, err := h.users.UpdateUser(r.Context(), actor, id, repository.UpdateUserParams{
		Name:  data.Name,
		Email: data.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.Fail(w, "User not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrNotOwner):
			render.Fail(w, "Unauthorized to update this user", http.StatusForbidden)
		case errors.Is(err, apperrors.ErrEmailTaken):
			render.FieldErrors(w, map[string][]string{"email": {"The email has already been taken"}})
		default:
			h.logger.Error("update user failed", "error", err)
			render.ServerError(w)
		}
		return
	}

	render.JSON(w, updateResponse{Success: true, Message: "User updated successfully", Data: newUserResponse(user)})
}

func (h *UserHandler) destroy(w http.ResponseWriter, r *http.Request) {
	type destroyResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	id, err := userID(r)
	if err != nil {
		render.Fail(w, "User not found", http.StatusNotFound)
		return
	}

	actor, _ := userctx.FromContext(r.Context())
	err = h.users.DeleteUser(r.Context(), actor, id)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.Fail(w, "User not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrNotOwner):
			render.Fail(w, "You cannot delete your own account from this endpoint. Please use the profile deletion endpoint.", http.StatusForbidden)
		default:
			h.logger.Error("delete user failed", "error", err)
			render.ServerError(w)
		}
		return
	}

	render.JSON(w, destroyResponse{Success: true, Message: "User deleted successfully"})
}

func (h *UserHandler) deleteOwnAccount(w http.ResponseWriter, r *http.Request) {
	type deleteResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	actor, _ := userctx.FromContext(r.Context())
	if err := h.users.DeleteOwnAccount(r.Context(), actor); err != nil {
		h.logger.Error("delete own account failed", "error", err)
		render.ServerError(w)
		return
	}

	render.JSON(w, deleteResponse{Success: true, Message: "Your account has been deleted successfully"})
}

func (h *UserHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	type changePasswordRequest struct {
		CurrentPassword         string `json:"current_password" validate:"required,min=6"`
		NewPassword             string `json:"new_password" validate:"required,min=6"`
		NewPasswordConfirmation string `json:"new_password_confirmation" validate:"required,eqfield=NewPassword"`
	}
	type changePasswordResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[changePasswordRequest](w, r)
	if err != nil {
		return
	}

	actor, _ := userctx.FromContext(r.Context())
	err = h.users.ChangePassword(r.Context(), actor, data.CurrentPassword, data.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrPasswordMismatch):
			render.AuthError(w, "Current password is incorrect")
		case errors.Is(err, apperrors.ErrPasswordNotChanged):
			render.FieldErrors(w, map[string][]string{"new_password": {"New password must be different from current password"}})
		default:
			h.logger.Error("change password failed", "error", err)
			render.ServerError(w)
		}
		return
	}

	render.JSON(w, changePasswordResponse{Success: true, Message: "Password updated successfully"})
}

func userID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
