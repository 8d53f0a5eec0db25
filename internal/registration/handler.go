package registration

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/krishnadas018/yatra-management-backend/config"
	"github.com/krishnadas018/yatra-management-backend/middleware"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var vErr *ValidationError
	var tErr *InvalidTransitionError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Msg})
	case errors.As(err, &tErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": tErr.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrDuplicateRegistration),
		errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrRegistrationClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func getAccess(c *gin.Context) (middleware.AccessContext, bool) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
	}
	return access, ok
}

func parseRegID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration ID"})
		return 0, false
	}
	return uint(id), true
}

// 🎯 Create Registration - POST /registrations
func (h *Handler) CreateRegistration(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	var req CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.service.CreateRegistration(c.Request.Context(), req, access, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": reg})
}

// 🎯 Update Registration - PUT /registrations/:id (PENDING only)
func (h *Handler) UpdateRegistration(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	regID, ok := parseRegID(c)
	if !ok {
		return
	}

	var req UpdateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.service.UpdateRegistration(c.Request.Context(), regID, req, access, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reg})
}

// 🎯 Upload Payment - POST /registrations/:id/payment (multipart)
func (h *Handler) UploadPayment(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	regID, ok := parseRegID(c)
	if !ok {
		return
	}

	reference := c.PostForm("payment_reference")
	method := c.PostForm("payment_method")

	// The screenshot is the payment proof; the reference string is optional
	file, err := c.FormFile("screenshot")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment screenshot is required"})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" && ext != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "screenshot must be a png, jpg or pdf"})
		return
	}

	dir := filepath.Join(config.UploadPath, "payments")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store screenshot"})
		return
	}

	filename := uuid.New().String() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(dir, filename)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store screenshot"})
		return
	}
	screenshotPath := filepath.Join("payments", filename)

	reg, err := h.service.UploadPayment(c.Request.Context(), regID, reference, method, screenshotPath, access, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reg})
}

// 🎯 Download Payment Screenshot - GET /registrations/:id/payment-screenshot
func (h *Handler) DownloadPaymentScreenshot(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	regID, ok := parseRegID(c)
	if !ok {
		return
	}

	reg, err := h.service.GetRegistration(c.Request.Context(), regID, access)
	if err != nil {
		respondError(c, err)
		return
	}
	if reg.PaymentScreenshot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no payment screenshot on file"})
		return
	}

	c.File(filepath.Join(config.UploadPath, *reg.PaymentScreenshot))
}

// 🎯 Cancel Registration - POST /registrations/:id/cancel
func (h *Handler) CancelRegistration(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	regID, ok := parseRegID(c)
	if !ok {
		return
	}

	var req CancelRegistrationRequest
	_ = c.ShouldBindJSON(&req) // remarks are optional

	reg, err := h.service.CancelRegistration(c.Request.Context(), regID, req.Remarks, access, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reg})
}

// 🎯 Admin Update Status - PATCH /registrations/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	regID, ok := parseRegID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.service.AdminUpdateStatus(c.Request.Context(), regID, req.Status, req.Remarks, access, middleware.GetIPFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reg})
}

// 🎯 Get Registration - GET /registrations/:id
func (h *Handler) GetRegistration(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	regID, ok := parseRegID(c)
	if !ok {
		return
	}

	reg, err := h.service.GetRegistration(c.Request.Context(), regID, access)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reg})
}

// 🎯 Get Registration by Number - GET /registrations/number/:number
func (h *Handler) GetByNumber(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	number := c.Param("number")
	reg, err := h.service.GetByNumber(c.Request.Context(), number, access)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": reg})
}

// 🎯 Get Status History - GET /registrations/:id/history
func (h *Handler) GetStatusHistory(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	regID, ok := parseRegID(c)
	if !ok {
		return
	}

	reg, err := h.service.GetRegistration(c.Request.Context(), regID, access)
	if err != nil {
		respondError(c, err)
		return
	}

	history, err := ParseStatusHistory(reg.StatusHistory)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decode status history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history})
}

// 🎯 List My Registrations - GET /registrations/my
func (h *Handler) ListMyRegistrations(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	regs, err := h.service.ListMyRegistrations(c.Request.Context(), access, c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch registrations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": regs})
}

// 🎯 List Registrations for Yatra - GET /yatras/:id/registrations (admin)
func (h *Handler) ListByYatra(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	yatraID64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid yatra ID"})
		return
	}
	yatraID := uint(yatraID64)

	filter := RegistrationFilter{
		YatraID: &yatraID,
		Status:  c.Query("status"),
		Search:  c.Query("search"),
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && limit > 0 && limit <= 100 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && offset >= 0 {
		filter.Offset = offset
	}

	regs, total, err := h.service.ListByYatra(c.Request.Context(), filter, access)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": regs, "total": total})
}

// 🎯 Status Counts for Yatra - GET /yatras/:id/registrations/counts (admin)
func (h *Handler) GetStatusCounts(c *gin.Context) {
	access, ok := getAccess(c)
	if !ok {
		return
	}

	yatraID64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid yatra ID"})
		return
	}

	counts, err := h.service.GetStatusCounts(c.Request.Context(), uint(yatraID64), access)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": counts})
}
