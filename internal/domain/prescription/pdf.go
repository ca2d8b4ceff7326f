package prescription

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// Header carries the names printed above the medicine table.
type Header struct {
	Clinic      string
	DoctorName  string
	Specialty   string
	PatientName string
}

// WritePDF renders rx as a one-page A4 prescription.
func WritePDF(w io.Writer, rx *Prescription, h Header) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(20, 60, 120)
	pdf.CellFormat(0, 10, h.Clinic, "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, h.DoctorName+"  |  "+h.Specialty, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Prescription", "1", 1, "C", false, 0, "")
	detail(pdf, "Patient", h.PatientName)
	detail(pdf, "Date", rx.AppointmentDate)
	detail(pdf, "Diagnosis", rx.Diagnosis)
	if rx.FollowUpDate != "" {
		detail(pdf, "Follow-up", rx.FollowUpDate)
	}
	pdf.Ln(4)

	widths := []float64{50, 35, 40, 30, 31}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 236, 245)
	for i, col := range []string{"Medicine", "Dosage", "Frequency", "Duration", "Notes"} {
		pdf.CellFormat(widths[i], 8, col, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, m := range rx.Medicines {
		for i, v := range []string{m.Name, m.Dosage, m.Frequency, m.Duration, m.Notes} {
			pdf.CellFormat(widths[i], 8, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if rx.Instructions != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Instructions", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, rx.Instructions, "", "L", false)
	}

	pdf.SetY(pdf.GetY() + 12)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 6, fmt.Sprintf("Prescription %s  |  status: %s", rx.ID, rx.Status), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render prescription pdf: %w", err)
	}
	return nil
}

func detail(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 8, label, "1", 0, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, value, "1", 1, "", false, 0, "")
}
