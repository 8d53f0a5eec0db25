package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// ReportExporter renders report data into downloadable bytes
type ReportExporter interface {
	Export(reportType, format string, data ReportData) ([]byte, string, string, error)
	BuildReceiptPDF(receipt ReceiptData) ([]byte, string, string, error)
}

type reportExporter struct{}

func NewReportExporter() ReportExporter {
	return &reportExporter{}
}

func (e *reportExporter) Export(reportType, format string, data ReportData) ([]byte, string, string, error) {
	timestamp := time.Now().Format("20060102_150405")

	switch reportType {
	case ReportTypeRegistrations:
		return e.exportRegistrationsByFormat(format, timestamp, data)
	case ReportTypeMembers:
		return e.exportMembersByFormat(format, timestamp, data)
	case ReportTypeCollections:
		return e.exportCollectionsByFormat(format, timestamp, data)
	default:
		return nil, "", "", fmt.Errorf("unsupported report type: %s", reportType)
	}
}

//// ============================
/// REGISTRATION LIST EXPORTS
//// ============================

func (e *reportExporter) exportRegistrationsByFormat(format, timestamp string, data ReportData) ([]byte, string, string, error) {
	switch format {
	case FormatCSV:
		raw, err := e.exportRegistrationsCSV(data.Registrations)
		if err != nil {
			return nil, "", "", err
		}
		return raw, fmt.Sprintf("registrations_report_%s.csv", timestamp), "text/csv", nil

	case FormatExcel:
		raw, err := e.exportRegistrationsExcel(data.Registrations)
		if err != nil {
			return nil, "", "", err
		}
		return raw, fmt.Sprintf("registrations_report_%s.xlsx", timestamp), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil

	case FormatPDF:
		raw, err := e.exportRegistrationsPDF(data.YatraName, data.Registrations)
		if err != nil {
			return nil, "", "", err
		}
		return raw, fmt.Sprintf("registrations_report_%s.pdf", timestamp), "application/pdf", nil

	default:
		return nil, "", "", fmt.Errorf("unsupported format for registrations: %s", format)
	}
}

func (e *reportExporter) exportRegistrationsCSV(rows []RegistrationReportRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Registration Number", "Devotee", "Contact Email", "Contact Phone", "Status", "Members", "Total Amount", "Created At"}
	if err := writer.Write(headers); err != nil {
		return nil, err
	}

	for _, r := range rows {
		record := []string{
			r.RegistrationNumber,
			r.DevoteeName,
			r.ContactEmail,
			r.ContactPhone,
			r.Status,
			strconv.Itoa(r.MemberCount),
			strconv.Itoa(r.TotalAmount),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (e *reportExporter) exportRegistrationsExcel(rows []RegistrationReportRow) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Registrations"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headers := []string{"Registration Number", "Devotee", "Contact Email", "Contact Phone", "Status", "Members", "Total Amount", "Created At"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheet, cell, h)
	}

	for rIdx, r := range rows {
		row := rIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.RegistrationNumber)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.DevoteeName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.ContactEmail)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.ContactPhone)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.Status)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.MemberCount)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), r.TotalAmount)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), r.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *reportExporter) exportRegistrationsPDF(yatraName string, rows []RegistrationReportRow) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, fmt.Sprintf("Registrations - %s", yatraName))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	headers := []string{"Reg. Number", "Devotee", "Email", "Status", "Members", "Amount", "Created"}
	widths := []float64{35, 45, 60, 40, 20, 25, 35}

	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, r := range rows {
		pdf.CellFormat(widths[0], 6, r.RegistrationNumber, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, r.DevoteeName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, r.ContactEmail, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, r.Status, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 6, strconv.Itoa(r.MemberCount), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[5], 6, strconv.Itoa(r.TotalAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[6], 6, r.CreatedAt.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

//// ============================
/// MEMBER MANIFEST EXPORTS
//// ============================

func (e *reportExporter) exportMembersByFormat(format, timestamp string, data ReportData) ([]byte, string, string, error) {
	switch format {
	case FormatCSV:
		raw, err := e.exportMembersCSV(data.Members)
		if err != nil {
			return nil, "", "", err
		}
		return raw, fmt.Sprintf("member_manifest_%s.csv", timestamp), "text/csv", nil

	case FormatExcel:
		raw, err := e.exportMembersExcel(data.Members)
		if err != nil {
			return nil, "", "", err
		}
		return raw, fmt.Sprintf("member_manifest_%s.xlsx", timestamp), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil

	case FormatPDF:
		raw, err := e.exportMembersPDF(data.YatraName, data.Members)
		if err != nil {
			return nil, "", "", err
		}
		return raw, fmt.Sprintf("member_manifest_%s.pdf", timestamp), "application/pdf", nil

	default:
		return nil, "", "", fmt.Errorf("unsupported format for members: %s", format)
	}
}

func (e *reportExporter) exportMembersCSV(rows []MemberReportRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Registration Number", "Full Name", "Date of Birth", "Gender", "Room Category", "Price", "Free", "Dietary Restrictions", "Medical Notes", "Status"}
	if err := writer.Write(headers); err != nil {
		return nil, err
	}

	for _, r := range rows {
		record := []string{
			r.RegistrationNumber,
			r.FullName,
			r.DateOfBirth.Format("2006-01-02"),
			r.Gender,
			r.RoomCategory,
			strconv.Itoa(r.PriceCharged),
			strconv.FormatBool(r.IsFree),
			r.DietaryRestrictions,
			r.MedicalNotes,
			r.Status,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (e *reportExporter) exportMembersExcel(rows []MemberReportRow) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Member Manifest"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headers := []string{"Registration Number", "Full Name", "Date of Birth", "Gender", "Room Category", "Price", "Free", "Dietary Restrictions", "Medical Notes", "Status"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheet, cell, h)
	}

	for rIdx, r := range rows {
		row := rIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.RegistrationNumber)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.FullName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.DateOfBirth.Format("2006-01-02"))
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.Gender)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), r.RoomCategory)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), r.PriceCharged)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), r.IsFree)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), r.DietaryRestrictions)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), r.MedicalNotes)
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), r.Status)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *reportExporter) exportMembersPDF(yatraName string, rows []MemberReportRow) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, fmt.Sprintf("Member Manifest - %s", yatraName))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 9)
	headers := []string{"Reg. Number", "Full Name", "DOB", "Gender", "Category", "Price", "Status"}
	widths := []float64{35, 60, 25, 20, 40, 25, 40}

	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, r := range rows {
		price := strconv.Itoa(r.PriceCharged)
		if r.IsFree {
			price = "FREE"
		}
		pdf.CellFormat(widths[0], 6, r.RegistrationNumber, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, r.FullName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, r.DateOfBirth.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, r.Gender, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 6, r.RoomCategory, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[5], 6, price, "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[6], 6, r.Status, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

//// ============================
/// COLLECTION EXPORTS
//// ============================

func (e *reportExporter) exportCollectionsByFormat(format, timestamp string, data ReportData) ([]byte, string, string, error) {
	switch format {
	case FormatCSV:
		raw, err := e.exportCollectionsCSV(data.Collections)
		if err != nil {
			return nil, "", "", err
		}
		return raw, fmt.Sprintf("collections_report_%s.csv", timestamp), "text/csv", nil

	case FormatExcel:
		raw, err := e.exportCollectionsExcel(data.Collections)
		if err != nil {
			return nil, "", "", err
		}
		return raw, fmt.Sprintf("collections_report_%s.xlsx", timestamp), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil

	case FormatPDF:
		raw, err := e.exportCollectionsPDF(data.YatraName, data.Collections)
		if err != nil {
			return nil, "", "", err
		}
		return raw, fmt.Sprintf("collections_report_%s.pdf", timestamp), "application/pdf", nil

	default:
		return nil, "", "", fmt.Errorf("unsupported format for collections: %s", format)
	}
}

func (e *reportExporter) exportCollectionsCSV(rows []CollectionReportRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Room Category", "Members", "Free Members", "Amount"}
	if err := writer.Write(headers); err != nil {
		return nil, err
	}

	var totalMembers, totalAmount int64
	for _, r := range rows {
		record := []string{
			r.RoomCategory,
			strconv.FormatInt(r.Members, 10),
			strconv.FormatInt(r.FreeMembers, 10),
			strconv.FormatInt(r.Amount, 10),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
		totalMembers += r.Members
		totalAmount += r.Amount
	}

	if err := writer.Write([]string{"TOTAL", strconv.FormatInt(totalMembers, 10), "", strconv.FormatInt(totalAmount, 10)}); err != nil {
		return nil, err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (e *reportExporter) exportCollectionsExcel(rows []CollectionReportRow) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Collections"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headers := []string{"Room Category", "Members", "Free Members", "Amount"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheet, cell, h)
	}

	var totalMembers, totalAmount int64
	row := 2
	for _, r := range rows {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), r.RoomCategory)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), r.Members)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), r.FreeMembers)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), r.Amount)
		totalMembers += r.Members
		totalAmount += r.Amount
		row++
	}
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "TOTAL")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), totalMembers)
	f.SetCellValue(sheet, fmt.Sprintf("D%d", row), totalAmount)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *reportExporter) exportCollectionsPDF(yatraName string, rows []CollectionReportRow) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, fmt.Sprintf("Collections - %s", yatraName))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	headers := []string{"Room Category", "Members", "Free", "Amount (INR)"}
	widths := []float64{80, 30, 30, 40}

	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	var totalMembers, totalAmount int64
	for _, r := range rows {
		pdf.CellFormat(widths[0], 6, r.RoomCategory, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, strconv.FormatInt(r.Members, 10), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 6, strconv.FormatInt(r.FreeMembers, 10), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, strconv.FormatInt(r.Amount, 10), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
		totalMembers += r.Members
		totalAmount += r.Amount
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(widths[0], 7, "TOTAL", "1", 0, "L", false, 0, "")
	pdf.CellFormat(widths[1], 7, strconv.FormatInt(totalMembers, 10), "1", 0, "C", false, 0, "")
	pdf.CellFormat(widths[2], 7, "", "1", 0, "C", false, 0, "")
	pdf.CellFormat(widths[3], 7, strconv.FormatInt(totalAmount, 10), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

//// ============================
/// REGISTRATION RECEIPT PDF
//// ============================

// BuildReceiptPDF renders a single registration's receipt
func (e *reportExporter) BuildReceiptPDF(receipt ReceiptData) ([]byte, string, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 12, "Yatra Registration Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	writeField := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(55, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}

	writeField("Registration Number:", receipt.RegistrationNumber)
	writeField("Yatra:", receipt.YatraName)
	writeField("Destination:", receipt.Destination)
	writeField("Dates:", fmt.Sprintf("%s to %s", receipt.StartDate.Format("02 Jan 2006"), receipt.EndDate.Format("02 Jan 2006")))
	writeField("Primary Registrant:", receipt.DevoteeName)
	writeField("Contact Email:", receipt.ContactEmail)
	writeField("Status:", receipt.Status)
	if receipt.PaymentReference != "" {
		writeField("Payment Reference:", receipt.PaymentReference)
	}
	if receipt.ConfirmedAt != nil {
		writeField("Confirmed At:", receipt.ConfirmedAt.Format("02 Jan 2006 15:04"))
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	headers := []string{"Member", "Room Category", "Price (INR)"}
	widths := []float64{80, 70, 40}
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, m := range receipt.Members {
		price := strconv.Itoa(m.PriceCharged)
		if m.IsFree {
			price = "FREE"
		}
		pdf.CellFormat(widths[0], 6, m.FullName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, m.RoomCategory, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, price, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(widths[0]+widths[1], 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[2], 8, strconv.Itoa(receipt.TotalAmount), "1", 0, "R", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "Hare Krishna. Please carry this receipt during the yatra.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", "", err
	}

	filename := fmt.Sprintf("receipt_%s.pdf", receipt.RegistrationNumber)
	return buf.Bytes(), filename, "application/pdf", nil
}
