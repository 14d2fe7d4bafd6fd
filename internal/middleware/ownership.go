package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/garageworks/repair-shop/internal/model"
	"github.com/garageworks/repair-shop/internal/repository"
)

// RepairStore is the slice of the repair repository the ownership guard
// needs. Declared here so tests can substitute a fake.
type RepairStore interface {
	GetByID(ctx context.Context, id uint64) (model.Repair, error)
}

// RequireRepairOwnership guards routes carrying a repair :id parameter.
// It runs after Auth and never substitutes for it. The guard:
//
//  1. rejects malformed ids with 400
//  2. rejects missing repairs with 404
//  3. passes staff (admin, technician) through unconditionally
//  4. passes customers only when the repair's customer reference equals
//     their own id; otherwise 403
//
// The loaded repair is stored in context under "repair" so the handler
// does not have to read it again.
func RequireRepairOwnership(repairs RepairStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := strconv.ParseUint(c.Param("id"), 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid repair ID format"})
			}

			rep, err := repairs.GetByID(c.Request().Context(), id)
			if err != nil {
				if errors.Is(err, repository.ErrRepairNotFound) {
					return c.JSON(http.StatusNotFound, echo.Map{"error": "Repair not found"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
			}

			u, ok := CurrentUser(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}

			if !model.StaffRole(u.Role) {
				// Compare as strings, matching how ids travel on the wire.
				owner := strconv.FormatUint(rep.CustomerID, 10)
				caller := strconv.FormatUint(u.ID, 10)
				if owner != caller {
					return c.JSON(http.StatusForbidden, echo.Map{
						"error":   "Access denied",
						"details": "You can only view and edit your own repairs",
					})
				}
			}

			c.Set("repair", rep)
			return next(c)
		}
	}
}

// RepairFromContext returns the repair loaded by RequireRepairOwnership.
func RepairFromContext(c echo.Context) (model.Repair, bool) {
	rep, ok := c.Get("repair").(model.Repair)
	return rep, ok
}
