package appointment

import (
	"time"
)

type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// Open reports whether the appointment can still be completed, cancelled or
// moved. Completed and cancelled appointments are final.
func (s Status) Open() bool {
	return s == StatusScheduled || s == StatusRescheduled
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

const (
	ConsultationOnline  = "online"
	ConsultationOffline = "offline"

	PartyDoctor  = "doctor"
	PartyPatient = "patient"

	PaymentCompleted = "completed"
)

type Appointment struct {
	ID               string     `json:"id"`
	DoctorID         string     `json:"doctorId"`
	PatientID        string     `json:"patientId"`
	PatientName      string     `json:"patientName"`
	PatientPhone     string     `json:"patientPhone"`
	Date             string     `json:"date"`
	TimeSlot         string     `json:"timeSlot"`
	ConsultationType string     `json:"consultationType"`
	Status           Status     `json:"status"`
	Symptoms         string     `json:"symptoms,omitempty"`
	Prescription     string     `json:"prescription,omitempty"`
	PrescriptionID   string     `json:"prescriptionId,omitempty"`
	ConsultationFee  int        `json:"consultationFee"`
	TokenNumber      string     `json:"tokenNumber,omitempty"`
	PaymentStatus    string     `json:"paymentStatus,omitempty"`
	CancelReason     string     `json:"cancelReason,omitempty"`
	CancelledBy      string     `json:"cancelledBy,omitempty"`
	RescheduledBy    string     `json:"rescheduledBy,omitempty"`
	RescheduledAt    *time.Time `json:"rescheduledAt,omitempty"`
	OriginalDate     string     `json:"originalDate,omitempty"`
	OriginalTimeSlot string     `json:"originalTimeSlot,omitempty"`
	RescheduledCount int        `json:"rescheduledCount"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share a record with the store.
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	cp := *a
	if a.RescheduledAt != nil {
		at := *a.RescheduledAt
		cp.RescheduledAt = &at
	}
	return &cp
}

// Patch carries the fields a mutation changes. Nil fields are left alone.
type Patch struct {
	Status           *Status    `json:"status,omitempty"`
	Date             *string    `json:"date,omitempty"`
	TimeSlot         *string    `json:"timeSlot,omitempty"`
	Symptoms         *string    `json:"symptoms,omitempty"`
	Prescription     *string    `json:"prescription,omitempty"`
	PrescriptionID   *string    `json:"prescriptionId,omitempty"`
	CancelReason     *string    `json:"cancelReason,omitempty"`
	CancelledBy      *string    `json:"cancelledBy,omitempty"`
	RescheduledBy    *string    `json:"rescheduledBy,omitempty"`
	RescheduledAt    *time.Time `json:"rescheduledAt,omitempty"`
	OriginalDate     *string    `json:"originalDate,omitempty"`
	OriginalTimeSlot *string    `json:"originalTimeSlot,omitempty"`
	RescheduledCount *int       `json:"rescheduledCount,omitempty"`
	PaymentStatus    *string    `json:"paymentStatus,omitempty"`
}

// Apply merges the non-nil fields of p into a. It does not touch UpdatedAt;
// repositories stamp that themselves.
func (p Patch) Apply(a *Appointment) {
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.TimeSlot != nil {
		a.TimeSlot = *p.TimeSlot
	}
	if p.Symptoms != nil {
		a.Symptoms = *p.Symptoms
	}
	if p.Prescription != nil {
		a.Prescription = *p.Prescription
	}
	if p.PrescriptionID != nil {
		a.PrescriptionID = *p.PrescriptionID
	}
	if p.CancelReason != nil {
		a.CancelReason = *p.CancelReason
	}
	if p.CancelledBy != nil {
		a.CancelledBy = *p.CancelledBy
	}
	if p.RescheduledBy != nil {
		a.RescheduledBy = *p.RescheduledBy
	}
	if p.RescheduledAt != nil {
		at := *p.RescheduledAt
		a.RescheduledAt = &at
	}
	if p.OriginalDate != nil {
		a.OriginalDate = *p.OriginalDate
	}
	if p.OriginalTimeSlot != nil {
		a.OriginalTimeSlot = *p.OriginalTimeSlot
	}
	if p.RescheduledCount != nil {
		a.RescheduledCount = *p.RescheduledCount
	}
	if p.PaymentStatus != nil {
		a.PaymentStatus = *p.PaymentStatus
	}
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	DoctorID  string
	PatientID string
	Date      string
	Status    Status
}

func (f Filter) Matches(a *Appointment) bool {
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	if f.Date != "" && a.Date != f.Date {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

func ptr[T any](v T) *T { return &v }
