package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/garageworks/repair-shop/internal/middleware"
	"github.com/garageworks/repair-shop/internal/model"
	"github.com/garageworks/repair-shop/internal/queue"
	"github.com/garageworks/repair-shop/internal/repository"
	queue_publisher "github.com/garageworks/repair-shop/internal/service"
)

// RepairJobs is the slice of the repair repository the repair endpoints
// need. *repository.RepairRepo satisfies it; tests substitute a fake.
type RepairJobs interface {
	Create(ctx context.Context, rep *model.Repair) error
	GetByID(ctx context.Context, id uint64) (model.Repair, error)
	ListAll(ctx context.Context) ([]model.Repair, error)
	ListByCustomer(ctx context.Context, customerID uint64) ([]model.Repair, error)
	ListByTechnicianName(ctx context.Context, name string) ([]model.Repair, error)
	Update(ctx context.Context, rep *model.Repair) error
	Delete(ctx context.Context, id uint64) error
}

// RepairHandler bundles dependencies for the repair CRUD endpoints.
// Publish defaults to the RabbitMQ publisher and is called from a
// goroutine so event delivery never delays a response.
type RepairHandler struct {
	Repairs RepairJobs
	Publish func(ctx context.Context, ev queue.RepairEvent) error
}

func NewRepairHandler(repairs RepairJobs) *RepairHandler {
	return &RepairHandler{
		Repairs: repairs,
		Publish: queue_publisher.PublishRepairEvent,
	}
}

// listForUser returns the role-scoped repair listing: customers see their
// own repairs, technicians see repairs assigned to their display name,
// admins see everything.
func (h *RepairHandler) listForUser(ctx context.Context, u model.User) ([]model.Repair, error) {
	switch u.Role {
	case model.RoleCustomer:
		return h.Repairs.ListByCustomer(ctx, u.ID)
	case model.RoleTechnician:
		return h.Repairs.ListByTechnicianName(ctx, u.Name)
	default:
		return h.Repairs.ListAll(ctx)
	}
}

// matchesSearch reports whether the repair matches a case-insensitive
// substring query across customer name, vehicle brand/model and license
// plate.
func matchesSearch(rep model.Repair, q string) bool {
	q = strings.ToLower(q)
	for _, field := range []string{rep.CustomerName, rep.VehicleBrand, rep.VehicleModel, rep.LicensePlate} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// filterSearch applies matchesSearch over a listing. A blank query returns
// the input unchanged; search is a pure filter over the role-scoped
// result, not a separate index.
func filterSearch(reps []model.Repair, q string) []model.Repair {
	q = strings.TrimSpace(q)
	if q == "" {
		return reps
	}
	out := []model.Repair{}
	for _, rep := range reps {
		if matchesSearch(rep, q) {
			out = append(out, rep)
		}
	}
	return out
}

// List handles GET /api/repairs with optional ?q= search.
func (h *RepairHandler) List(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reps, err := h.listForUser(c.Request().Context(), u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}
	return c.JSON(http.StatusOK, filterSearch(reps, c.QueryParam("q")))
}

// Export handles GET /api/repairs/export: the same role-scoped listing
// served as a downloadable JSON file.
func (h *RepairHandler) Export(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reps, err := h.listForUser(c.Request().Context(), u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to export repairs"})
	}
	name := fmt.Sprintf("repairs-export-%s.json", time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=`+name)
	return c.JSON(http.StatusOK, reps)
}

// Get handles GET /api/repairs/:id. RequireRepairOwnership has already
// validated the id, loaded the record and checked access.
func (h *RepairHandler) Get(c echo.Context) error {
	rep, ok := middleware.RepairFromContext(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}
	return c.JSON(http.StatusOK, rep)
}

type repairCreateReq struct {
	CustomerID         uint64              `json:"customerId"`
	CustomerName       string              `json:"customerName"`
	CustomerPhone      string              `json:"customerPhone"`
	VehicleBrand       string              `json:"vehicleBrand"`
	VehicleModel       string              `json:"vehicleModel"`
	LicensePlate       string              `json:"licensePlate"`
	Description        string              `json:"repairDescription"`
	EstimatedCost      *float64            `json:"estimatedCost"`
	AssignedTechnician string              `json:"assignedTechnician"`
	Notes              []string            `json:"notes"`
	Images             []model.RepairImage `json:"images"`
}

// Create handles POST /api/repairs. Customers open repairs for
// themselves; staff may open one on a customer's behalf by passing
// customerId. Missing contact fields default from the caller's profile
// and status always starts at pending.
func (h *RepairHandler) Create(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req repairCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	if req.CustomerID == 0 {
		req.CustomerID = u.ID
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		req.CustomerName = u.Name
	}
	if strings.TrimSpace(req.CustomerPhone) == "" {
		req.CustomerPhone = u.Phone
	}

	for name, v := range map[string]string{
		"customerName":      req.CustomerName,
		"vehicleBrand":      req.VehicleBrand,
		"vehicleModel":      req.VehicleModel,
		"licensePlate":      req.LicensePlate,
		"repairDescription": req.Description,
	} {
		if strings.TrimSpace(v) == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": name + " is required"})
		}
	}
	if req.EstimatedCost == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "estimatedCost is required"})
	}
	if *req.EstimatedCost < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "estimatedCost must be non-negative"})
	}

	rep := model.Repair{
		CustomerID:         req.CustomerID,
		CustomerName:       strings.TrimSpace(req.CustomerName),
		CustomerPhone:      strings.TrimSpace(req.CustomerPhone),
		VehicleBrand:       strings.TrimSpace(req.VehicleBrand),
		VehicleModel:       strings.TrimSpace(req.VehicleModel),
		LicensePlate:       strings.TrimSpace(req.LicensePlate),
		Description:        strings.TrimSpace(req.Description),
		Status:             model.StatusPending,
		EstimatedCost:      *req.EstimatedCost,
		AssignedTechnician: strings.TrimSpace(req.AssignedTechnician),
		Notes:              req.Notes,
		Images:             req.Images,
	}

	if err := h.Repairs.Create(c.Request().Context(), &rep); err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create repair"})
	}

	h.publishEvent(queue.EventRepairCreated, rep, u)
	return c.JSON(http.StatusCreated, rep)
}

// repairUpdateReq uses pointer fields so an absent key can be told apart
// from a zero value; only present fields are applied to the record.
type repairUpdateReq struct {
	CustomerName       *string              `json:"customerName"`
	CustomerPhone      *string              `json:"customerPhone"`
	VehicleBrand       *string              `json:"vehicleBrand"`
	VehicleModel       *string              `json:"vehicleModel"`
	LicensePlate       *string              `json:"licensePlate"`
	Description        *string              `json:"repairDescription"`
	Status             *string              `json:"status"`
	EstimatedCost      *float64             `json:"estimatedCost"`
	ActualCost         *float64             `json:"actualCost"`
	AssignedTechnician *string              `json:"assignedTechnician"`
	Notes              *[]string            `json:"notes"`
	Images             *[]model.RepairImage `json:"images"`
}

// applyRepairUpdate merges an update request into the repair according to
// the caller's role. Technicians are limited to status, actual cost and
// notes; everything else in their request is silently dropped. Other
// authorized writers (the owning customer, admins) may set any field.
// Status transitions are unrestricted. Returns a user-facing message for
// validation failures.
func applyRepairUpdate(role string, rep *model.Repair, req repairUpdateReq) (string, bool) {
	if req.Status != nil && !model.ValidStatus(*req.Status) {
		return "invalid status", false
	}
	if req.EstimatedCost != nil && *req.EstimatedCost < 0 {
		return "estimatedCost must be non-negative", false
	}
	if req.ActualCost != nil && *req.ActualCost < 0 {
		return "actualCost must be non-negative", false
	}

	if role != model.RoleTechnician {
		if req.CustomerName != nil {
			rep.CustomerName = *req.CustomerName
		}
		if req.CustomerPhone != nil {
			rep.CustomerPhone = *req.CustomerPhone
		}
		if req.VehicleBrand != nil {
			rep.VehicleBrand = *req.VehicleBrand
		}
		if req.VehicleModel != nil {
			rep.VehicleModel = *req.VehicleModel
		}
		if req.LicensePlate != nil {
			rep.LicensePlate = *req.LicensePlate
		}
		if req.Description != nil {
			rep.Description = *req.Description
		}
		if req.EstimatedCost != nil {
			rep.EstimatedCost = *req.EstimatedCost
		}
		if req.AssignedTechnician != nil {
			rep.AssignedTechnician = *req.AssignedTechnician
		}
		if req.Images != nil {
			rep.Images = *req.Images
		}
	}

	// Fields every authorized writer may change.
	if req.Status != nil {
		rep.Status = *req.Status
	}
	if req.ActualCost != nil {
		rep.ActualCost = req.ActualCost
	}
	if req.Notes != nil {
		rep.Notes = *req.Notes
	}

	// Completion timestamp follows the status value.
	if rep.Status == model.StatusCompleted {
		if rep.CompletedAt == nil {
			now := time.Now().UTC()
			rep.CompletedAt = &now
		}
	} else {
		rep.CompletedAt = nil
	}
	return "", true
}

// Update handles PUT /api/repairs/:id. Ownership has been checked by the
// middleware; the write itself is find-filter-save without a transaction,
// so concurrent writers race and the last write wins.
func (h *RepairHandler) Update(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rep, ok := middleware.RepairFromContext(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}

	var req repairUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	prevStatus := rep.Status
	if msg, ok := applyRepairUpdate(u.Role, &rep, req); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	if err := h.Repairs.Update(c.Request().Context(), &rep); err != nil {
		if errors.Is(err, repository.ErrRepairNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Repair not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}

	if rep.Status != prevStatus {
		h.publishEvent(queue.EventRepairStatusChanged, rep, u)
	}
	return c.JSON(http.StatusOK, rep)
}

// Delete handles DELETE /api/repairs/:id. Admin only (enforced by route
// middleware).
func (h *RepairHandler) Delete(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid repair ID format"})
	}

	// Read first so the deletion event can describe the repair.
	rep, err := h.Repairs.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRepairNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Repair not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}

	if err := h.Repairs.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrRepairNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Repair not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Server error"})
	}

	h.publishEvent(queue.EventRepairDeleted, rep, u)
	return c.JSON(http.StatusOK, echo.Map{"message": "Repair deleted successfully"})
}

// publishEvent fires a repair event without blocking the request.
// Delivery failures are logged inside the publisher and ignored here.
func (h *RepairHandler) publishEvent(event string, rep model.Repair, actor model.User) {
	if h.Publish == nil {
		return
	}
	ev := queue.RepairEvent{
		Event:        event,
		RepairID:     rep.ID,
		CustomerID:   rep.CustomerID,
		CustomerName: rep.CustomerName,
		LicensePlate: rep.LicensePlate,
		Status:       rep.Status,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}
	go func() { _ = h.Publish(context.Background(), ev) }()
}
