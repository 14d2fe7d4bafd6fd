package model

import "time"

// Repair status values. Creation always starts at StatusPending. The
// progression pending -> in-progress -> completed is the expected flow but
// is deliberately not enforced: any authorized writer may set any status,
// including reverting a completed job.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// ValidStatus reports whether s is one of the known repair statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// RepairImage is one uploaded attachment on a repair. Stored inside the
// repairs.images JSON column.
type RepairImage struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Repair represents a repair job as stored in the `repairs` table.
// Customer name and phone are denormalized from the owning user at
// creation time so the record stays readable after account edits.
// Notes and Images live in JSON columns; the repository handles the
// (un)marshalling.
//
// AssignedTechnician is a free-text display name, not a user reference.
// Technician listings match on it by name, which is known to break when a
// technician is renamed; kept as-is until the assignment model changes.
type Repair struct {
	ID                 uint64        `json:"id"`
	CustomerID         uint64        `json:"customerId"`
	CustomerName       string        `json:"customerName"`
	CustomerPhone      string        `json:"customerPhone"`
	VehicleBrand       string        `json:"vehicleBrand"`
	VehicleModel       string        `json:"vehicleModel"`
	LicensePlate       string        `json:"licensePlate"`
	Description        string        `json:"repairDescription"`
	Status             string        `json:"status"`
	EstimatedCost      float64       `json:"estimatedCost"`
	ActualCost         *float64      `json:"actualCost,omitempty"`
	AssignedTechnician string        `json:"assignedTechnician,omitempty"`
	Notes              []string      `json:"notes"`
	Images             []RepairImage `json:"images"`
	CreatedAt          time.Time     `json:"createdDate"`
	UpdatedAt          time.Time     `json:"updatedDate"`
	CompletedAt        *time.Time    `json:"completedDate,omitempty"`
}
