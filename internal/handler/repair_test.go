package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/garageworks/repair-shop/internal/model"
	"github.com/garageworks/repair-shop/internal/queue"
	"github.com/garageworks/repair-shop/internal/repository"
)

type fakeRepairJobs struct {
	all        []model.Repair
	byCustomer map[uint64][]model.Repair
	byTech     map[string][]model.Repair
	byID       map[uint64]model.Repair

	created *model.Repair
	updated *model.Repair
	deleted []uint64
}

func (f *fakeRepairJobs) Create(ctx context.Context, rep *model.Repair) error {
	rep.ID = 101
	rep.CreatedAt = time.Now().UTC()
	rep.UpdatedAt = rep.CreatedAt
	f.created = rep
	return nil
}

func (f *fakeRepairJobs) GetByID(ctx context.Context, id uint64) (model.Repair, error) {
	rep, ok := f.byID[id]
	if !ok {
		return model.Repair{}, repository.ErrRepairNotFound
	}
	return rep, nil
}

func (f *fakeRepairJobs) ListAll(ctx context.Context) ([]model.Repair, error) { return f.all, nil }

func (f *fakeRepairJobs) ListByCustomer(ctx context.Context, id uint64) ([]model.Repair, error) {
	return f.byCustomer[id], nil
}

func (f *fakeRepairJobs) ListByTechnicianName(ctx context.Context, name string) ([]model.Repair, error) {
	return f.byTech[name], nil
}

func (f *fakeRepairJobs) Update(ctx context.Context, rep *model.Repair) error {
	f.updated = rep
	return nil
}

func (f *fakeRepairJobs) Delete(ctx context.Context, id uint64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newRepairCtx(t *testing.T, method, path string, body []byte, u model.User) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", u)
	c.Set("user_id", u.ID)
	c.Set("role", u.Role)
	return c, rec
}

func repairsOf(t *testing.T, rec *httptest.ResponseRecorder) []model.Repair {
	t.Helper()
	var out []model.Repair
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	return out
}

func TestListRoleScoping(t *testing.T) {
	janes := []model.Repair{{ID: 1, CustomerID: 7, CustomerName: "Jane"}}
	bobs := []model.Repair{{ID: 2, CustomerID: 8, CustomerName: "Bob"}}
	assigned := []model.Repair{{ID: 3, CustomerID: 8, AssignedTechnician: "Tom"}}

	fake := &fakeRepairJobs{
		all:        append(append([]model.Repair{}, janes...), bobs...),
		byCustomer: map[uint64][]model.Repair{7: janes, 8: bobs},
		byTech:     map[string][]model.Repair{"Tom": assigned},
	}
	h := &RepairHandler{Repairs: fake}

	// Customer A never sees customer B's repairs.
	c, rec := newRepairCtx(t, http.MethodGet, "/api/repairs", nil, model.User{ID: 7, Role: model.RoleCustomer})
	if err := h.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	got := repairsOf(t, rec)
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("customer listing leaked: %+v", got)
	}

	// Technician sees repairs assigned to their display name.
	c, rec = newRepairCtx(t, http.MethodGet, "/api/repairs", nil, model.User{ID: 9, Name: "Tom", Role: model.RoleTechnician})
	if err := h.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	got = repairsOf(t, rec)
	if len(got) != 1 || got[0].ID != 3 {
		t.Errorf("technician listing wrong: %+v", got)
	}

	// Admin sees everything.
	c, rec = newRepairCtx(t, http.MethodGet, "/api/repairs", nil, model.User{ID: 1, Role: model.RoleAdmin})
	if err := h.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got = repairsOf(t, rec); len(got) != 2 {
		t.Errorf("admin listing should include both, got %+v", got)
	}
}

func TestListSearchFilter(t *testing.T) {
	fake := &fakeRepairJobs{all: []model.Repair{
		{ID: 1, CustomerName: "Jane", VehicleBrand: "Honda", VehicleModel: "Civic", LicensePlate: "ABC123"},
		{ID: 2, CustomerName: "Bob", VehicleBrand: "Toyota", VehicleModel: "Corolla", LicensePlate: "XYZ789"},
	}}
	h := &RepairHandler{Repairs: fake}

	c, rec := newRepairCtx(t, http.MethodGet, "/api/repairs?q=hond", nil, model.User{ID: 1, Role: model.RoleAdmin})
	if err := h.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	got := repairsOf(t, rec)
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("search should match brand case-insensitively: %+v", got)
	}
}

func TestMatchesSearchFields(t *testing.T) {
	rep := model.Repair{CustomerName: "Jane Doe", VehicleBrand: "Honda", VehicleModel: "Civic", LicensePlate: "ABC123"}
	for _, q := range []string{"jane", "HONDA", "civ", "abc123"} {
		if !matchesSearch(rep, q) {
			t.Errorf("expected match for %q", q)
		}
	}
	if matchesSearch(rep, "tesla") {
		t.Error("unexpected match for tesla")
	}
}

func TestCreateDefaults(t *testing.T) {
	fake := &fakeRepairJobs{}
	h := &RepairHandler{Repairs: fake}

	body, _ := json.Marshal(map[string]any{
		"customerName":      "Jane",
		"customerPhone":     "555",
		"vehicleBrand":      "Honda",
		"vehicleModel":      "Civic",
		"licensePlate":      "ABC123",
		"repairDescription": "brake pads",
		"estimatedCost":     150,
	})
	c, rec := newRepairCtx(t, http.MethodPost, "/api/repairs", body, model.User{ID: 7, Name: "Jane", Role: model.RoleCustomer})
	if err := h.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if fake.created == nil {
		t.Fatal("nothing persisted")
	}
	if fake.created.Status != model.StatusPending {
		t.Errorf("status should default to pending, got %q", fake.created.Status)
	}
	if fake.created.CustomerID != 7 {
		t.Errorf("customerId should default to caller, got %d", fake.created.CustomerID)
	}
	if fake.created.EstimatedCost != 150 {
		t.Errorf("estimatedCost lost: %v", fake.created.EstimatedCost)
	}
	if fake.created.ID == 0 {
		t.Error("expected generated id on response record")
	}
}

func TestCreateValidation(t *testing.T) {
	h := &RepairHandler{Repairs: &fakeRepairJobs{}}
	u := model.User{ID: 7, Name: "Jane", Role: model.RoleCustomer}

	// Missing estimated cost.
	body, _ := json.Marshal(map[string]any{
		"customerName": "Jane", "customerPhone": "555", "vehicleBrand": "Honda",
		"vehicleModel": "Civic", "licensePlate": "ABC123", "repairDescription": "x",
	})
	c, rec := newRepairCtx(t, http.MethodPost, "/api/repairs", body, u)
	if err := h.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing estimatedCost should be 400, got %d", rec.Code)
	}

	// Negative estimated cost.
	body, _ = json.Marshal(map[string]any{
		"customerName": "Jane", "customerPhone": "555", "vehicleBrand": "Honda",
		"vehicleModel": "Civic", "licensePlate": "ABC123", "repairDescription": "x",
		"estimatedCost": -5,
	})
	c, rec = newRepairCtx(t, http.MethodPost, "/api/repairs", body, u)
	if err := h.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative estimatedCost should be 400, got %d", rec.Code)
	}
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func TestApplyRepairUpdateTechnicianFilter(t *testing.T) {
	rep := model.Repair{
		ID: 1, VehicleBrand: "Honda", Status: model.StatusPending,
		Notes: []string{}, EstimatedCost: 150,
	}
	req := repairUpdateReq{
		VehicleBrand: strPtr("Tesla"), // disallowed for technicians
		Status:       strPtr(model.StatusInProgress),
		ActualCost:   f64Ptr(200),
		Notes:        &[]string{"ordered parts"},
	}
	if msg, ok := applyRepairUpdate(model.RoleTechnician, &rep, req); !ok {
		t.Fatalf("update rejected: %s", msg)
	}
	if rep.VehicleBrand != "Honda" {
		t.Errorf("technician must not change vehicleBrand, got %q", rep.VehicleBrand)
	}
	if rep.Status != model.StatusInProgress {
		t.Errorf("status change dropped: %q", rep.Status)
	}
	if rep.ActualCost == nil || *rep.ActualCost != 200 {
		t.Errorf("actualCost change dropped: %v", rep.ActualCost)
	}
	if len(rep.Notes) != 1 || rep.Notes[0] != "ordered parts" {
		t.Errorf("notes change dropped: %v", rep.Notes)
	}
}

func TestApplyRepairUpdateAdminUnrestricted(t *testing.T) {
	rep := model.Repair{ID: 1, VehicleBrand: "Honda", Status: model.StatusPending}
	req := repairUpdateReq{VehicleBrand: strPtr("Tesla"), Status: strPtr(model.StatusCompleted)}
	if msg, ok := applyRepairUpdate(model.RoleAdmin, &rep, req); !ok {
		t.Fatalf("update rejected: %s", msg)
	}
	if rep.VehicleBrand != "Tesla" {
		t.Errorf("admin edit dropped: %q", rep.VehicleBrand)
	}
	if rep.CompletedAt == nil {
		t.Error("completedDate should be stamped when status becomes completed")
	}

	// Reverting away from completed clears the timestamp.
	req = repairUpdateReq{Status: strPtr(model.StatusPending)}
	if _, ok := applyRepairUpdate(model.RoleAdmin, &rep, req); !ok {
		t.Fatal("revert rejected")
	}
	if rep.CompletedAt != nil {
		t.Error("completedDate should clear when leaving completed")
	}
}

func TestApplyRepairUpdateValidation(t *testing.T) {
	rep := model.Repair{Status: model.StatusPending}
	if _, ok := applyRepairUpdate(model.RoleAdmin, &rep, repairUpdateReq{Status: strPtr("scrapped")}); ok {
		t.Error("unknown status must be rejected")
	}
	if _, ok := applyRepairUpdate(model.RoleAdmin, &rep, repairUpdateReq{ActualCost: f64Ptr(-1)}); ok {
		t.Error("negative actualCost must be rejected")
	}
	if _, ok := applyRepairUpdate(model.RoleAdmin, &rep, repairUpdateReq{EstimatedCost: f64Ptr(-1)}); ok {
		t.Error("negative estimatedCost must be rejected")
	}
}

func TestUpdatePublishesStatusChange(t *testing.T) {
	rep := model.Repair{ID: 5, CustomerID: 7, Status: model.StatusPending}
	fake := &fakeRepairJobs{byID: map[uint64]model.Repair{5: rep}}

	events := make(chan queue.RepairEvent, 1)
	h := &RepairHandler{
		Repairs: fake,
		Publish: func(ctx context.Context, ev queue.RepairEvent) error {
			events <- ev
			return nil
		},
	}

	body, _ := json.Marshal(map[string]any{"status": model.StatusInProgress})
	c, rec := newRepairCtx(t, http.MethodPut, "/api/repairs/5", body, model.User{ID: 9, Name: "Tom", Role: model.RoleTechnician})
	c.SetParamNames("id")
	c.SetParamValues("5")
	c.Set("repair", rep)

	if err := h.Update(c); err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case ev := <-events:
		if ev.Event != queue.EventRepairStatusChanged {
			t.Errorf("expected status_changed event, got %q", ev.Event)
		}
		if ev.RepairID != 5 || ev.Status != model.StatusInProgress {
			t.Errorf("event payload wrong: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("status change event not published")
	}
}

func TestDeleteNotFound(t *testing.T) {
	h := &RepairHandler{Repairs: &fakeRepairJobs{byID: map[uint64]model.Repair{}}}
	c, rec := newRepairCtx(t, http.MethodDelete, "/api/repairs/42", nil, model.User{ID: 1, Role: model.RoleAdmin})
	c.SetParamNames("id")
	c.SetParamValues("42")
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetIsIdempotent(t *testing.T) {
	rep := model.Repair{ID: 5, CustomerID: 7, CustomerName: "Jane"}
	h := &RepairHandler{Repairs: &fakeRepairJobs{byID: map[uint64]model.Repair{5: rep}}}

	var bodies []string
	for i := 0; i < 2; i++ {
		c, rec := newRepairCtx(t, http.MethodGet, "/api/repairs/5", nil, model.User{ID: 7, Role: model.RoleCustomer})
		c.Set("repair", rep)
		if err := h.Get(c); err != nil {
			t.Fatalf("get: %v", err)
		}
		bodies = append(bodies, rec.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Error("two reads with no intervening writes must return identical content")
	}
}
