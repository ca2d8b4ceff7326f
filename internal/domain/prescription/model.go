package prescription

import (
	"errors"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrNotFound          = errors.New("prescription not found")
	ErrInvalidTransition = errors.New("invalid prescription status change")
	ErrMismatch          = errors.New("prescription does not match its appointment")
)

type Medicine struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	Dosage    string `json:"dosage" validate:"required"`
	Frequency string `json:"frequency" validate:"required"`
	Duration  string `json:"duration" validate:"required"`
	Notes     string `json:"notes,omitempty"`
}

type Prescription struct {
	ID              string     `json:"id"`
	DoctorID        string     `json:"doctorId"`
	PatientID       string     `json:"patientId"`
	AppointmentID   string     `json:"appointmentId"`
	AppointmentDate string     `json:"appointmentDate"`
	Medicines       []Medicine `json:"medicines"`
	Diagnosis       string     `json:"diagnosis"`
	Instructions    string     `json:"instructions,omitempty"`
	FollowUpDate    string     `json:"followUpDate,omitempty"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type CreateRequest struct {
	DoctorID      string     `json:"doctorId" validate:"required"`
	PatientID     string     `json:"patientId" validate:"required"`
	AppointmentID string     `json:"appointmentId" validate:"required"`
	Medicines     []Medicine `json:"medicines" validate:"required,min=1,dive"`
	Diagnosis     string     `json:"diagnosis" validate:"required"`
	Instructions  string     `json:"instructions"`
	FollowUpDate  string     `json:"followUpDate" validate:"omitempty,isodate"`
}

// UpdateRequest edits a prescription in place. Nil fields are unchanged.
type UpdateRequest struct {
	Medicines    []Medicine `json:"medicines" validate:"omitempty,min=1,dive"`
	Diagnosis    *string    `json:"diagnosis"`
	Instructions *string    `json:"instructions"`
	FollowUpDate *string    `json:"followUpDate" validate:"omitempty,isodate"`
}
