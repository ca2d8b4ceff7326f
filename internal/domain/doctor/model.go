package doctor

import (
	"time"

	"github.com/medibook/medibook/internal/domain/appointment"
)

// ErrNotFound is shared with the appointment package so a booking against an
// unknown doctor maps to the same error.
var ErrNotFound = appointment.ErrDoctorNotFound

type Availability struct {
	Days      []string `json:"days"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
}

type Doctor struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Email             string       `json:"email"`
	Phone             string       `json:"phone"`
	Specialization    string       `json:"specialization"`
	Qualification     string       `json:"qualification"`
	Experience        int          `json:"experience"`
	ConsultationFee   int          `json:"consultationFee"`
	Rating            float64      `json:"rating"`
	ReviewCount       int          `json:"reviewCount"`
	Hospital          string       `json:"hospital"`
	About             string       `json:"about,omitempty"`
	ConsultationTypes []string     `json:"consultationTypes"`
	Availability      Availability `json:"availability"`
	CreatedAt         time.Time    `json:"createdAt"`
}

func (d *Doctor) Clone() *Doctor {
	cp := *d
	cp.ConsultationTypes = append([]string(nil), d.ConsultationTypes...)
	cp.Availability.Days = append([]string(nil), d.Availability.Days...)
	return &cp
}

// Stats summarises a doctor's appointment book.
type Stats struct {
	DoctorID          string  `json:"doctorId"`
	TotalAppointments int     `json:"totalAppointments"`
	Scheduled         int     `json:"scheduled"`
	Completed         int     `json:"completed"`
	Cancelled         int     `json:"cancelled"`
	Rescheduled       int     `json:"rescheduled"`
	DistinctPatients  int     `json:"distinctPatients"`
	Revenue           int     `json:"revenue"`
	Today             int     `json:"today"`
	Upcoming          int     `json:"upcoming"`
	Rating            float64 `json:"rating"`
	ReviewCount       int     `json:"reviewCount"`
}

type Filter struct {
	Specialization   string
	Query            string
	ConsultationType string
}
