package identity

import "github.com/medibook/medibook/internal/platform/auth"

// DemoPassword is the password of every seeded account.
const DemoPassword = "medibook-demo"

type SeedUser struct {
	User     User
	Password string
}

func SeedUsers() []SeedUser {
	users := []User{
		{ID: "pat-1", Name: "Aarav Sharma", Email: "aarav@medibook.example", Phone: "+919812345670", Role: auth.RolePatient},
		{ID: "pat-2", Name: "Meera Iyer", Email: "meera@medibook.example", Phone: "+919876543210", Role: auth.RolePatient},
		{ID: "pat-3", Name: "Rohan Das", Email: "rohan@medibook.example", Phone: "+919900112233", Role: auth.RolePatient},
		{ID: "usr-doc-1", Name: "Dr. Priya Menon", Email: "priya.menon@medibook.example", Phone: "+919810000001", Role: auth.RoleDoctor, DoctorID: "doc-1"},
		{ID: "usr-doc-2", Name: "Dr. Arjun Kapoor", Email: "arjun.kapoor@medibook.example", Phone: "+919810000002", Role: auth.RoleDoctor, DoctorID: "doc-2"},
		{ID: "usr-doc-3", Name: "Dr. Kavita Rao", Email: "kavita.rao@medibook.example", Phone: "+919810000003", Role: auth.RoleDoctor, DoctorID: "doc-3"},
		{ID: "usr-doc-4", Name: "Dr. Sameer Joshi", Email: "sameer.joshi@medibook.example", Phone: "+919810000004", Role: auth.RoleDoctor, DoctorID: "doc-4"},
		{ID: "usr-doc-5", Name: "Dr. Nisha Verma", Email: "nisha.verma@medibook.example", Phone: "+919810000005", Role: auth.RoleDoctor, DoctorID: "doc-5"},
		{ID: "usr-doc-6", Name: "Dr. Rahul Iyer", Email: "rahul.iyer@medibook.example", Phone: "+919810000006", Role: auth.RoleDoctor, DoctorID: "doc-6"},
		{ID: "usr-admin", Name: "Clinic Admin", Email: "admin@medibook.example", Phone: "+919810000099", Role: auth.RoleAdmin},
	}
	out := make([]SeedUser, len(users))
	for i, u := range users {
		out[i] = SeedUser{User: u, Password: DemoPassword}
	}
	return out
}
