package reports

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/krishnadas018/yatra-management-backend/middleware"
)

type Handler struct {
	service ReportService
}

func NewHandler(svc ReportService) *Handler {
	return &Handler{service: svc}
}

// 🎯 GET /api/v1/admin/yatras/:id/reports?type=registrations&format=csv
func (h *Handler) DownloadReport(c *gin.Context) {
	access, exists := middleware.GetAccessContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}
	ip := middleware.GetIPFromContext(c)

	yatraID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid yatra ID"})
		return
	}

	reportType := strings.ToLower(c.Query("type"))
	if reportType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type query param required: registrations|members|collections"})
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", FormatCSV))

	filter := ReportFilter{
		YatraID: uint(yatraID),
		Status:  c.Query("status"),
	}
	if fromStr := c.Query("from_date"); fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from_date, expected YYYY-MM-DD"})
			return
		}
		filter.FromDate = &from
	}
	if toStr := c.Query("to_date"); toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to_date, expected YYYY-MM-DD"})
			return
		}
		filter.ToDate = &to
	}

	raw, filename, mimeType, err := h.service.ExportReport(c.Request.Context(), access, reportType, format, filter, ip)
	if err != nil {
		if strings.Contains(err.Error(), "access denied") {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		if strings.Contains(err.Error(), "invalid") || strings.Contains(err.Error(), "unsupported") {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, mimeType, raw)
}

// 🎯 GET /api/v1/registrations/number/:number/receipt
func (h *Handler) DownloadReceipt(c *gin.Context) {
	access, exists := middleware.GetAccessContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}
	ip := middleware.GetIPFromContext(c)

	number := c.Param("number")
	if number == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "registration number required"})
		return
	}

	raw, filename, mimeType, err := h.service.GenerateReceipt(c.Request.Context(), access, number, ip)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if strings.Contains(err.Error(), "access denied") {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, mimeType, raw)
}
