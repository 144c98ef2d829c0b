package models

import "time"

type ServiceOrder struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	ServiceType   string     `json:"service_type"`
	EquipmentType string     `json:"equipment_type,omitempty"`
	Description   string     `json:"description"`
	Unit          string     `json:"unit"`
	Requester     string     `json:"requester"`
	Responsible   string     `json:"responsible"`
	Priority      string     `json:"priority"`
	OpenedAt      *time.Time `json:"opened_at"`
	FinalizedAt   *time.Time `json:"finalized_at"`
	RuleID        string     `json:"rule_id,omitempty"`
	CreatedDate   string     `json:"created_date"`
	CreatedAt     time.Time  `json:"created_at"`
}

type RecurrenceRule struct {
	ID          string    `json:"id"`
	Active      bool      `json:"active"`
	DaysOfWeek  []int     `json:"days_of_week"`
	StartTime   string    `json:"start_time"`
	ServiceType string    `json:"service_type"`
	Description string    `json:"description"`
	Unit        string    `json:"unit"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MaterialMovement struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	Direction    string    `json:"direction"`
	Material     string    `json:"material"`
	Quantity     int       `json:"quantity"`
	Receiver     string    `json:"receiver"`
	SignatureRef string    `json:"signature_ref,omitempty"`
	MovedAt      time.Time `json:"moved_at"`
}

type ActivityEntry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Status     string     `json:"status"`
	Summary    []byte     `json:"summary"`
}

const (
	MovementCheckIn  = "CHECK_IN"
	MovementCheckOut = "CHECK_OUT"
)
