package reports

import (
	"context"
	"fmt"

	"github.com/krishnadas018/yatra-management-backend/internal/auditlog"
	"github.com/krishnadas018/yatra-management-backend/middleware"
)

// ReportService performs business logic and coordinates repo + exporter.
type ReportService interface {
	GetReportData(ctx context.Context, reportType string, filter ReportFilter) (ReportData, error)
	ExportReport(ctx context.Context, access middleware.AccessContext, reportType, format string, filter ReportFilter, ip string) ([]byte, string, string, error)
	GenerateReceipt(ctx context.Context, access middleware.AccessContext, registrationNumber, ip string) ([]byte, string, string, error)
}

type reportService struct {
	repo     ReportRepository
	exporter ReportExporter
	auditSvc auditlog.Service
}

func NewReportService(repo ReportRepository, exporter ReportExporter, auditSvc auditlog.Service) ReportService {
	return &reportService{
		repo:     repo,
		exporter: exporter,
		auditSvc: auditSvc,
	}
}

// ===============================
// Yatra Reports
// ===============================

func (s *reportService) GetReportData(ctx context.Context, reportType string, filter ReportFilter) (ReportData, error) {
	if reportType != ReportTypeRegistrations && reportType != ReportTypeMembers && reportType != ReportTypeCollections {
		return ReportData{}, fmt.Errorf("invalid report type: %s", reportType)
	}

	var data ReportData
	var err error

	data.YatraName, err = s.repo.GetYatraName(ctx, filter.YatraID)
	if err != nil {
		return ReportData{}, err
	}

	switch reportType {
	case ReportTypeRegistrations:
		data.Registrations, err = s.repo.GetRegistrationRows(ctx, filter)
	case ReportTypeMembers:
		data.Members, err = s.repo.GetMemberRows(ctx, filter)
	case ReportTypeCollections:
		data.Collections, err = s.repo.GetCollectionRows(ctx, filter)
	}
	return data, err
}

func (s *reportService) ExportReport(ctx context.Context, access middleware.AccessContext, reportType, format string, filter ReportFilter, ip string) ([]byte, string, string, error) {
	if !access.IsAdmin() {
		return nil, "", "", fmt.Errorf("access denied: admin role required")
	}

	data, err := s.GetReportData(ctx, reportType, filter)
	if err != nil {
		details := map[string]interface{}{
			"report_type": reportType,
			"format":      format,
			"yatra_id":    filter.YatraID,
			"error":       err.Error(),
		}
		s.auditSvc.LogAction(ctx, &access.UserID, &filter.YatraID, "REPORT_DOWNLOAD_FAILED", details, ip, "failure")
		return nil, "", "", err
	}

	raw, filename, mimeType, err := s.exporter.Export(reportType, format, data)
	if err != nil {
		details := map[string]interface{}{
			"report_type": reportType,
			"format":      format,
			"yatra_id":    filter.YatraID,
			"error":       err.Error(),
		}
		s.auditSvc.LogAction(ctx, &access.UserID, &filter.YatraID, "REPORT_DOWNLOAD_FAILED", details, ip, "failure")
		return nil, "", "", err
	}

	details := map[string]interface{}{
		"report_type": reportType,
		"format":      format,
		"yatra_id":    filter.YatraID,
		"filename":    filename,
	}
	s.auditSvc.LogAction(ctx, &access.UserID, &filter.YatraID, "REPORT_DOWNLOADED", details, ip, "success")

	return raw, filename, mimeType, nil
}

// ===============================
// Registration Receipt
// ===============================

func (s *reportService) GenerateReceipt(ctx context.Context, access middleware.AccessContext, registrationNumber, ip string) ([]byte, string, string, error) {
	receipt, devoteeID, err := s.repo.GetReceiptData(ctx, registrationNumber)
	if err != nil {
		return nil, "", "", err
	}

	if !access.IsAdmin() && devoteeID != access.UserID {
		return nil, "", "", fmt.Errorf("access denied: not your registration")
	}

	raw, filename, mimeType, err := s.exporter.BuildReceiptPDF(*receipt)
	if err != nil {
		details := map[string]interface{}{
			"registration_number": registrationNumber,
			"error":               err.Error(),
		}
		s.auditSvc.LogAction(ctx, &access.UserID, nil, "RECEIPT_DOWNLOAD_FAILED", details, ip, "failure")
		return nil, "", "", err
	}

	details := map[string]interface{}{
		"registration_number": registrationNumber,
		"filename":            filename,
	}
	s.auditSvc.LogAction(ctx, &access.UserID, nil, "RECEIPT_DOWNLOADED", details, ip, "success")

	return raw, filename, mimeType, nil
}
