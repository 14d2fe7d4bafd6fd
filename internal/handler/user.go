package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/garageworks/repair-shop/internal/model"
	"github.com/garageworks/repair-shop/internal/repository"
)

// AccountDirectory is the slice of the user repository the account
// management endpoints need.
type AccountDirectory interface {
	ListAll(ctx context.Context) ([]model.User, error)
	ListCustomers(ctx context.Context) ([]model.User, error)
	Delete(ctx context.Context, id uint64) error
}

// UserHandler serves the staff-facing account management endpoints.
type UserHandler struct {
	Users AccountDirectory
}

func NewUserHandler(u AccountDirectory) *UserHandler { return &UserHandler{Users: u} }

// List handles GET /api/users (admin). Password hashes are stripped by the
// public projection.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Users.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}
	out := []model.PublicUser{}
	for _, u := range users {
		out = append(out, u.PublicProfile())
	}
	return c.JSON(http.StatusOK, out)
}

// Delete handles DELETE /api/users/:id (admin).
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Users.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}

type customerEntry struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// ListCustomers handles GET /api/users/customers (admin, technician).
// Staff use the result to open a repair on a customer's behalf; an empty
// list is a normal response, not an error.
func (h *UserHandler) ListCustomers(c echo.Context) error {
	customers, err := h.Users.ListCustomers(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch customers"})
	}
	out := []customerEntry{}
	for _, u := range customers {
		out = append(out, customerEntry{ID: u.ID, Name: u.Name, Phone: u.Phone, Email: u.Email})
	}
	return c.JSON(http.StatusOK, out)
}
