// Package queue defines message payloads exchanged over the message broker.
package queue

// Event names published to the repair.events queue.
const (
	EventRepairCreated       = "repair.created"
	EventRepairStatusChanged = "repair.status_changed"
	EventRepairDeleted       = "repair.deleted"
)

// RepairEvent is published whenever a repair is created, changes status or
// is deleted. It carries enough information for downstream consumers to
// log or notify without querying the primary database.
type RepairEvent struct {
	Event        string `json:"event"`
	RepairID     uint64 `json:"repair_id"`
	CustomerID   uint64 `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	LicensePlate string `json:"license_plate"`
	Status       string `json:"status"`
	ActorID      uint64 `json:"actor_id"`
	ActorRole    string `json:"actor_role"`
	OccurredAt   string `json:"occurred_at"`
}
