package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/garageworks/repair-shop/internal/model"
)

// RepairRepo provides persistence for repair jobs. Notes and images are
// stored in JSON columns and (un)marshalled here so the rest of the
// application only ever sees []string and []model.RepairImage.
type RepairRepo struct{ DB *sql.DB }

func NewRepairRepo(db *sql.DB) *RepairRepo { return &RepairRepo{DB: db} }

const repairColumns = "id,customer_id,customer_name,customer_phone,vehicle_brand,vehicle_model," +
	"license_plate,description,status,estimated_cost,actual_cost,assigned_technician," +
	"notes,images,created_at,updated_at,completed_at"

func scanRepair(row interface{ Scan(...any) error }) (model.Repair, error) {
	var (
		rep        model.Repair
		notesJSON  []byte
		imagesJSON []byte
	)
	err := row.Scan(&rep.ID, &rep.CustomerID, &rep.CustomerName, &rep.CustomerPhone,
		&rep.VehicleBrand, &rep.VehicleModel, &rep.LicensePlate, &rep.Description,
		&rep.Status, &rep.EstimatedCost, &rep.ActualCost, &rep.AssignedTechnician,
		&notesJSON, &imagesJSON, &rep.CreatedAt, &rep.UpdatedAt, &rep.CompletedAt)
	if err != nil {
		return model.Repair{}, err
	}
	rep.Notes = decodeNotes(notesJSON)
	rep.Images = decodeImages(imagesJSON)
	return rep, nil
}

func decodeNotes(raw []byte) []string {
	notes := []string{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &notes)
	}
	return notes
}

func decodeImages(raw []byte) []model.RepairImage {
	images := []model.RepairImage{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &images)
	}
	return images
}

func encodeJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("[]")
	}
	return b
}

// Create inserts a repair and fills in its generated id. The customer
// reference is checked against the users table first; a dangling reference
// is reported as ErrCustomerNotFound before anything is written.
func (r *RepairRepo) Create(ctx context.Context, rep *model.Repair) error {
	var n int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM users WHERE id=?", rep.CustomerID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrCustomerNotFound
	}

	if rep.Notes == nil {
		rep.Notes = []string{}
	}
	if rep.Images == nil {
		rep.Images = []model.RepairImage{}
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO repairs
		 (customer_id, customer_name, customer_phone, vehicle_brand, vehicle_model,
		  license_plate, description, status, estimated_cost, actual_cost,
		  assigned_technician, notes, images)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rep.CustomerID, rep.CustomerName, rep.CustomerPhone, rep.VehicleBrand,
		rep.VehicleModel, rep.LicensePlate, rep.Description, rep.Status,
		rep.EstimatedCost, rep.ActualCost, rep.AssignedTechnician,
		encodeJSON(rep.Notes), encodeJSON(rep.Images))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = uint64(id)
	// Re-read so timestamps come from the database, not our clock.
	created, err := r.GetByID(ctx, rep.ID)
	if err == nil {
		*rep = created
	}
	return nil
}

// GetByID fetches a repair by id. Missing rows map to ErrRepairNotFound.
func (r *RepairRepo) GetByID(ctx context.Context, id uint64) (model.Repair, error) {
	rep, err := scanRepair(r.DB.QueryRowContext(ctx,
		"SELECT "+repairColumns+" FROM repairs WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Repair{}, ErrRepairNotFound
	}
	return rep, err
}

func (r *RepairRepo) queryRepairs(ctx context.Context, query string, args ...any) ([]model.Repair, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Repair{}
	for rows.Next() {
		rep, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// ListAll returns every repair, newest first. Admin listings only.
func (r *RepairRepo) ListAll(ctx context.Context) ([]model.Repair, error) {
	return r.queryRepairs(ctx,
		"SELECT "+repairColumns+" FROM repairs ORDER BY created_at DESC")
}

// ListByCustomer returns repairs owned by the given user, newest first.
func (r *RepairRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Repair, error) {
	return r.queryRepairs(ctx,
		"SELECT "+repairColumns+" FROM repairs WHERE customer_id=? ORDER BY created_at DESC",
		customerID)
}

// ListByTechnicianName returns repairs assigned to the given technician
// display name, newest first. The match is by denormalized name, not by
// user id, so a renamed technician loses sight of earlier assignments.
func (r *RepairRepo) ListByTechnicianName(ctx context.Context, name string) ([]model.Repair, error) {
	return r.queryRepairs(ctx,
		"SELECT "+repairColumns+" FROM repairs WHERE assigned_technician=? ORDER BY created_at DESC",
		name)
}

// Update persists every mutable column of the repair. Multi-step
// find-filter-save flows in the handlers are not transactional; concurrent
// writers to the same repair race and the last write wins.
func (r *RepairRepo) Update(ctx context.Context, rep *model.Repair) error {
	if rep.Notes == nil {
		rep.Notes = []string{}
	}
	if rep.Images == nil {
		rep.Images = []model.RepairImage{}
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE repairs SET
		 customer_id=?, customer_name=?, customer_phone=?, vehicle_brand=?,
		 vehicle_model=?, license_plate=?, description=?, status=?,
		 estimated_cost=?, actual_cost=?, assigned_technician=?, notes=?, images=?,
		 completed_at=?
		 WHERE id=?`,
		rep.CustomerID, rep.CustomerName, rep.CustomerPhone, rep.VehicleBrand,
		rep.VehicleModel, rep.LicensePlate, rep.Description, rep.Status,
		rep.EstimatedCost, rep.ActualCost, rep.AssignedTechnician,
		encodeJSON(rep.Notes), encodeJSON(rep.Images), rep.CompletedAt, rep.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Zero affected rows can also mean a no-op write to an existing row,
		// so confirm absence before reporting not found.
		if _, getErr := r.GetByID(ctx, rep.ID); getErr != nil {
			return getErr
		}
	}
	updated, err := r.GetByID(ctx, rep.ID)
	if err == nil {
		*rep = updated
	}
	return nil
}

// Delete removes a repair row. Returns ErrRepairNotFound when no row matched.
func (r *RepairRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM repairs WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRepairNotFound
	}
	return nil
}
