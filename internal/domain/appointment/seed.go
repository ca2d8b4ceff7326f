package appointment

import (
	"time"

	"github.com/medibook/medibook/internal/platform/validate"
)

// SeedAppointments returns the demo appointment set, dated around today so
// the dashboards always have past and upcoming consultations to show.
func SeedAppointments(today time.Time) []*Appointment {
	day := func(offset int) string {
		return today.AddDate(0, 0, offset).Format(validate.DateLayout)
	}
	created := today.AddDate(0, 0, -14).UTC().Truncate(time.Hour)

	seed := []*Appointment{
		{
			ID: "apt-1001", DoctorID: "doc-1", PatientID: "pat-1", PatientName: "Aarav Sharma", PatientPhone: "+919812345670",
			Date: day(-7), TimeSlot: "10:00 AM - 10:15 AM", ConsultationType: ConsultationOffline, Status: StatusCompleted,
			Symptoms: "Chest discomfort after exercise", Prescription: "Atorvastatin 10mg at night",
			ConsultationFee: 800, TokenNumber: "T-1", PaymentStatus: PaymentCompleted,
		},
		{
			ID: "apt-1002", DoctorID: "doc-2", PatientID: "pat-1", PatientName: "Aarav Sharma", PatientPhone: "+919812345670",
			Date: day(-3), TimeSlot: "2:30 PM - 2:45 PM", ConsultationType: ConsultationOnline, Status: StatusCancelled,
			Symptoms: "Skin rash on forearm", ConsultationFee: 600, TokenNumber: "T-1", PaymentStatus: PaymentCompleted,
			CancelReason: "Feeling better", CancelledBy: PartyPatient,
		},
		{
			ID: "apt-1003", DoctorID: "doc-1", PatientID: "pat-2", PatientName: "Meera Iyer", PatientPhone: "+919876543210",
			Date: day(0), TimeSlot: "9:00 AM - 9:15 AM", ConsultationType: ConsultationOffline, Status: StatusScheduled,
			Symptoms: "Follow-up on blood pressure", ConsultationFee: 800, TokenNumber: "T-1", PaymentStatus: PaymentCompleted,
		},
		{
			ID: "apt-1004", DoctorID: "doc-3", PatientID: "pat-3", PatientName: "Rohan Das", PatientPhone: "+919900112233",
			Date: day(1), TimeSlot: "11:00 AM - 11:15 AM", ConsultationType: ConsultationOnline, Status: StatusScheduled,
			Symptoms: "Recurring migraines", ConsultationFee: 1000, TokenNumber: "T-1", PaymentStatus: PaymentCompleted,
		},
		{
			ID: "apt-1005", DoctorID: "doc-1", PatientID: "pat-3", PatientName: "Rohan Das", PatientPhone: "+919900112233",
			Date: day(2), TimeSlot: "3:00 PM - 3:15 PM", ConsultationType: ConsultationOffline, Status: StatusRescheduled,
			Symptoms: "Palpitations", ConsultationFee: 800, TokenNumber: "T-1", PaymentStatus: PaymentCompleted,
			RescheduledBy: PartyDoctor, OriginalDate: day(1), OriginalTimeSlot: "9:30 AM - 9:45 AM", RescheduledCount: 1,
		},
		{
			ID: "apt-1006", DoctorID: "doc-4", PatientID: "pat-2", PatientName: "Meera Iyer", PatientPhone: "+919876543210",
			Date: day(-10), TimeSlot: "4:00 PM - 4:15 PM", ConsultationType: ConsultationOnline, Status: StatusCompleted,
			Symptoms: "Child vaccination schedule", Prescription: "Vaccination plan shared",
			ConsultationFee: 500, TokenNumber: "T-1", PaymentStatus: PaymentCompleted,
		},
	}
	for _, a := range seed {
		a.CreatedAt = created
		a.UpdatedAt = created
		if a.Status == StatusRescheduled {
			at := created.Add(24 * time.Hour)
			a.RescheduledAt = &at
		}
	}
	return seed
}
