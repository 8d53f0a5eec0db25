package reports

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

func sampleReportData() ReportData {
	return ReportData{
		YatraName: "Vrindavan Yatra",
		Registrations: []RegistrationReportRow{
			{RegistrationNumber: "YTR-2026-0001", DevoteeName: "Radha Sharma", ContactEmail: "radha@example.com", Status: "CONFIRMED", MemberCount: 2, TotalAmount: 8000, CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
			{RegistrationNumber: "YTR-2026-0002", DevoteeName: "Arjun Iyer", ContactEmail: "arjun@example.com", Status: "PENDING", MemberCount: 3, TotalAmount: 38000, CreatedAt: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)},
		},
		Collections: []CollectionReportRow{
			{RoomCategory: "Dormitory", Members: 3, FreeMembers: 1, Amount: 16000},
			{RoomCategory: "Double Room", Members: 2, FreeMembers: 0, Amount: 30000},
		},
	}
}

func TestExport_RegistrationsCSV(t *testing.T) {
	e := NewReportExporter()
	raw, filename, mimeType, err := e.Export(ReportTypeRegistrations, FormatCSV, sampleReportData())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if mimeType != "text/csv" {
		t.Errorf("unexpected mime type %s", mimeType)
	}
	if !strings.HasPrefix(filename, "registrations_report_") || !strings.HasSuffix(filename, ".csv") {
		t.Errorf("unexpected filename %s", filename)
	}

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[1][0] != "YTR-2026-0001" {
		t.Errorf("unexpected first row: %v", records[1])
	}
	if records[2][6] != "38000" {
		t.Errorf("expected amount 38000 in second row, got %v", records[2][6])
	}
}

func TestExport_CollectionsCSVTotals(t *testing.T) {
	e := NewReportExporter()
	raw, _, _, err := e.Export(ReportTypeCollections, FormatCSV, sampleReportData())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	last := records[len(records)-1]
	if last[0] != "TOTAL" || last[1] != "5" || last[3] != "46000" {
		t.Errorf("unexpected totals row: %v", last)
	}
}

func TestExport_UnsupportedTypeAndFormat(t *testing.T) {
	e := NewReportExporter()
	if _, _, _, err := e.Export("bookings", FormatCSV, ReportData{}); err == nil {
		t.Errorf("unknown report type should fail")
	}
	if _, _, _, err := e.Export(ReportTypeRegistrations, "docx", ReportData{}); err == nil {
		t.Errorf("unknown format should fail")
	}
}

func TestExport_ExcelAndPDFProduceBytes(t *testing.T) {
	e := NewReportExporter()
	data := sampleReportData()

	raw, _, mimeType, err := e.Export(ReportTypeRegistrations, FormatExcel, data)
	if err != nil {
		t.Fatalf("excel export failed: %v", err)
	}
	if len(raw) == 0 {
		t.Errorf("excel export produced no bytes")
	}
	if !strings.Contains(mimeType, "spreadsheet") {
		t.Errorf("unexpected excel mime type %s", mimeType)
	}

	raw, _, mimeType, err = e.Export(ReportTypeCollections, FormatPDF, data)
	if err != nil {
		t.Fatalf("pdf export failed: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("%PDF")) {
		t.Errorf("pdf export does not start with %%PDF header")
	}
	if mimeType != "application/pdf" {
		t.Errorf("unexpected pdf mime type %s", mimeType)
	}
}

func TestBuildReceiptPDF(t *testing.T) {
	e := NewReportExporter()
	receipt := ReceiptData{
		RegistrationNumber: "YTR-2026-0042",
		YatraName:          "Vrindavan Yatra",
		Destination:        "Vrindavan",
		StartDate:          time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		EndDate:            time.Date(2026, 11, 7, 0, 0, 0, 0, time.UTC),
		DevoteeName:        "Radha Sharma",
		ContactEmail:       "radha@example.com",
		Status:             "CONFIRMED",
		TotalAmount:        8000,
		PaymentReference:   "UTR12345",
		Members: []ReceiptMember{
			{FullName: "Radha Sharma", RoomCategory: "Dormitory", PriceCharged: 8000},
			{FullName: "Gopal Sharma", RoomCategory: "Dormitory", IsFree: true},
		},
	}

	raw, filename, mimeType, err := e.BuildReceiptPDF(receipt)
	if err != nil {
		t.Fatalf("BuildReceiptPDF failed: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("%PDF")) {
		t.Errorf("receipt does not start with %%PDF header")
	}
	if filename != "receipt_YTR-2026-0042.pdf" {
		t.Errorf("unexpected filename %s", filename)
	}
	if mimeType != "application/pdf" {
		t.Errorf("unexpected mime type %s", mimeType)
	}
}
