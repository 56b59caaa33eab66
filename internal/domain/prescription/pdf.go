package prescription

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	clinicName    = "Centro Médico Integral"
	clinicContact = "Tel: (02) 123-4567 | Email: info@hospital.com"
	pageWidth     = 180.0
)

// RenderPDF lays out a single-page A4 prescription.
func RenderPDF(p *Prescription, patient *PatientInfo, now time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetCreationDate(now)
	pdf.SetTitle(fmt.Sprintf("Receta %s", p.ID), true)
	pdf.SetAuthor(clinicName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(107, 114, 128)
		pdf.CellFormat(0, 10, tr("Documento generado el "+now.Format("02/01/2006 15:04")), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(30, 64, 175)
	pdf.CellFormat(110, 8, tr(clinicName), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(70, 8, tr("Receta N° "+shortID(p.ID.String())), "", 1, "R", false, 0, "")
	pdf.CellFormat(110, 6, tr(clinicContact), "", 0, "L", false, 0, "")
	pdf.CellFormat(70, 6, "Fecha: "+p.IssuedAt.Format("02/01/2006 15:04"), "", 1, "R", false, 0, "")
	pdf.SetDrawColor(209, 213, 219)
	pdf.Line(15, pdf.GetY()+2, 15+pageWidth, pdf.GetY()+2)
	pdf.Ln(6)

	section(pdf, tr, "DATOS DEL PACIENTE")
	age := "N/A"
	if patient.Age != nil {
		age = strconv.Itoa(*patient.Age) + " años"
	}
	rows := [][4]string{
		{"Nombre:", patient.Name, "Cédula:", patient.NationalID},
		{"Edad:", age, "Género:", orNA(patient.Gender)},
		{"Dirección:", orNA(patient.Address), "Teléfono:", orNA(patient.Phone)},
	}
	pdf.SetDrawColor(229, 231, 235)
	pdf.SetFillColor(243, 244, 246)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(30, 7, tr(row[0]), "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(60, 7, tr(row[1]), "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(30, 7, tr(row[2]), "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(60, 7, tr(row[3]), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	section(pdf, tr, "PRESCRIPCIÓN MÉDICA")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetFillColor(254, 243, 199)
	pdf.SetDrawColor(245, 158, 11)
	pdf.MultiCell(0, 6, tr(p.Medications), "1", "L", true)
	pdf.Ln(4)

	if p.Instructions != nil && strings.TrimSpace(*p.Instructions) != "" {
		section(pdf, tr, "INDICACIONES")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetFillColor(219, 234, 254)
		pdf.SetDrawColor(59, 130, 246)
		pdf.MultiCell(0, 6, tr(*p.Instructions), "1", "L", true)
		pdf.Ln(4)
	}

	// signature
	pdf.Ln(20)
	pdf.SetDrawColor(0, 0, 0)
	x := 15 + pageWidth/2 - 35
	pdf.Line(x, pdf.GetY(), x+70, pdf.GetY())
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, tr(orNA(p.PhysicianName)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr("Médico tratante"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render prescription pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func section(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(30, 64, 175)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}
