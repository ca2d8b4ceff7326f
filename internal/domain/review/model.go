package review

import (
	"errors"
	"time"
)

var (
	ErrAlreadyReviewed = errors.New("appointment already reviewed")
	ErrNotReviewable   = errors.New("only completed consultations can be reviewed")
	ErrNotParticipant  = errors.New("appointment belongs to another patient")
)

type Review struct {
	ID            string    `json:"id"`
	DoctorID      string    `json:"doctorId"`
	PatientID     string    `json:"patientId"`
	PatientName   string    `json:"patientName"`
	AppointmentID string    `json:"appointmentId"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type CreateRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required"`
	DoctorID      string `json:"doctorId"`
	Rating        int    `json:"rating" validate:"required,min=1,max=5"`
	Comment       string `json:"comment" validate:"max=2000"`
}
