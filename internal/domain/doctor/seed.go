package doctor

import "time"

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// SeedDoctors returns the demo directory.
func SeedDoctors() []*Doctor {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	both := []string{"online", "offline"}
	return []*Doctor{
		{
			ID: "doc-1", Name: "Dr. Priya Menon", Email: "priya.menon@medibook.example", Phone: "+919810000001",
			Specialization: "Cardiology", Qualification: "MBBS, MD, DM (Cardiology)", Experience: 14,
			ConsultationFee: 800, Rating: 4.8, ReviewCount: 126, Hospital: "City Heart Institute",
			About: "Interventional cardiologist focused on preventive heart care.", ConsultationTypes: both,
			Availability: Availability{Days: weekdays, StartTime: "09:00", EndTime: "17:00"}, CreatedAt: created,
		},
		{
			ID: "doc-2", Name: "Dr. Arjun Kapoor", Email: "arjun.kapoor@medibook.example", Phone: "+919810000002",
			Specialization: "Dermatology", Qualification: "MBBS, MD (Dermatology)", Experience: 9,
			ConsultationFee: 600, Rating: 4.6, ReviewCount: 88, Hospital: "SkinCare Clinic",
			ConsultationTypes: both,
			Availability: Availability{Days: weekdays, StartTime: "10:00", EndTime: "16:00"}, CreatedAt: created,
		},
		{
			ID: "doc-3", Name: "Dr. Kavita Rao", Email: "kavita.rao@medibook.example", Phone: "+919810000003",
			Specialization: "Neurology", Qualification: "MBBS, DM (Neurology)", Experience: 18,
			ConsultationFee: 1000, Rating: 4.9, ReviewCount: 203, Hospital: "NeuroLife Hospital",
			About: "Headache and epilepsy specialist.", ConsultationTypes: []string{"online"},
			Availability: Availability{Days: []string{"Monday", "Wednesday", "Friday"}, StartTime: "09:00", EndTime: "13:00"}, CreatedAt: created,
		},
		{
			ID: "doc-4", Name: "Dr. Sameer Joshi", Email: "sameer.joshi@medibook.example", Phone: "+919810000004",
			Specialization: "Pediatrics", Qualification: "MBBS, DCH", Experience: 11,
			ConsultationFee: 500, Rating: 4.7, ReviewCount: 154, Hospital: "Little Steps Children's Hospital",
			ConsultationTypes: both,
			Availability: Availability{Days: weekdays, StartTime: "09:00", EndTime: "17:00"}, CreatedAt: created,
		},
		{
			ID: "doc-5", Name: "Dr. Nisha Verma", Email: "nisha.verma@medibook.example", Phone: "+919810000005",
			Specialization: "Orthopedics", Qualification: "MBBS, MS (Ortho)", Experience: 12,
			ConsultationFee: 700, Rating: 4.5, ReviewCount: 97, Hospital: "Joint & Spine Centre",
			ConsultationTypes: []string{"offline"},
			Availability: Availability{Days: []string{"Tuesday", "Thursday", "Saturday"}, StartTime: "14:00", EndTime: "17:00"}, CreatedAt: created,
		},
		{
			ID: "doc-6", Name: "Dr. Rahul Iyer", Email: "rahul.iyer@medibook.example", Phone: "+919810000006",
			Specialization: "General Medicine", Qualification: "MBBS, MD", Experience: 7,
			ConsultationFee: 400, Rating: 4.4, ReviewCount: 61, Hospital: "Community Health Centre",
			ConsultationTypes: both,
			Availability: Availability{Days: weekdays, StartTime: "09:00", EndTime: "12:00"}, CreatedAt: created,
		},
	}
}
