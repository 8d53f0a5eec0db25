package yatra

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/krishnadas018/yatra-management-backend/middleware"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// ========================= YATRA HANDLERS =============================

// 🎯 Create Yatra - POST /yatras
func (h *Handler) CreateYatra(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	var req CreateYatraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	y, err := h.service.CreateYatra(c.Request.Context(), req, access, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": y})
}

// 🎯 List Yatras - GET /yatras (public listing; admins see drafts too)
func (h *Handler) ListYatras(c *gin.Context) {
	includeAll := false
	if access, ok := middleware.GetAccessContext(c); ok && access.IsAdmin() {
		includeAll = true
	}

	yatras, err := h.service.ListYatras(c.Request.Context(), includeAll)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch yatras"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": yatras})
}

// 🎯 Get Yatra - GET /yatras/:id
func (h *Handler) GetYatra(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	y, err := h.service.GetYatraByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "yatra not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": y})
}

// 🎯 Update Yatra - PUT /yatras/:id
func (h *Handler) UpdateYatra(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateYatraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	y, err := h.service.UpdateYatra(c.Request.Context(), id, req, access, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": y})
}

// 🎯 Update Yatra Status - PATCH /yatras/:id/status
func (h *Handler) UpdateYatraStatus(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateYatraStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.UpdateYatraStatus(c.Request.Context(), id, req.Status, access, middleware.GetIPFromContext(c)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "yatra status updated"})
}

// 🎯 Delete Yatra - DELETE /yatras/:id
func (h *Handler) DeleteYatra(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteYatra(c.Request.Context(), id, access, middleware.GetIPFromContext(c)); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "yatra deleted"})
}

// ========================= ROOM CATEGORY HANDLERS =============================

// 🎯 Add Room Category - POST /yatras/:id/categories
func (h *Handler) AddRoomCategory(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	yatraID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input RoomCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cat, err := h.service.AddRoomCategory(c.Request.Context(), yatraID, input, access, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": cat})
}

// 🎯 List Room Categories - GET /yatras/:id/categories
func (h *Handler) ListRoomCategories(c *gin.Context) {
	yatraID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	categories, err := h.service.ListRoomCategories(c.Request.Context(), yatraID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch room categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// 🎯 Update Room Category - PUT /categories/:category_id
func (h *Handler) UpdateRoomCategory(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	categoryID, ok := parseIDParam(c, "category_id")
	if !ok {
		return
	}

	var input RoomCategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cat, err := h.service.UpdateRoomCategory(c.Request.Context(), categoryID, input, access, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cat})
}

// 🎯 Delete Room Category - DELETE /categories/:category_id
func (h *Handler) DeleteRoomCategory(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	categoryID, ok := parseIDParam(c, "category_id")
	if !ok {
		return
	}

	if err := h.service.DeleteRoomCategory(c.Request.Context(), categoryID, access, middleware.GetIPFromContext(c)); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "room category deleted"})
}

// ========================= PAYMENT OPTION HANDLERS =============================

// 🎯 Create Payment Option - POST /payment-options
func (h *Handler) CreatePaymentOption(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	var req CreatePaymentOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opt, err := h.service.CreatePaymentOption(c.Request.Context(), req, access, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": opt})
}

// 🎯 List Payment Options - GET /payment-options
func (h *Handler) ListPaymentOptions(c *gin.Context) {
	options, err := h.service.ListPaymentOptions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payment options"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": options})
}

// 🎯 List Yatra Payment Options - GET /yatras/:id/payment-options
func (h *Handler) ListYatraPaymentOptions(c *gin.Context) {
	yatraID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	y, err := h.service.GetYatraByID(c.Request.Context(), yatraID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "yatra not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": y.PaymentOptions})
}

// 🎯 Deactivate Payment Option - DELETE /payment-options/:option_id
func (h *Handler) DeactivatePaymentOption(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	optionID, ok := parseIDParam(c, "option_id")
	if !ok {
		return
	}

	if err := h.service.DeactivatePaymentOption(c.Request.Context(), optionID, access, middleware.GetIPFromContext(c)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "payment option deactivated"})
}

// 🎯 Attach Payment Option - POST /yatras/:id/payment-options/:option_id
func (h *Handler) AttachPaymentOption(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	yatraID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	optionID, ok := parseIDParam(c, "option_id")
	if !ok {
		return
	}

	if err := h.service.AttachPaymentOption(c.Request.Context(), yatraID, optionID, access, middleware.GetIPFromContext(c)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "payment option attached"})
}

// 🎯 Detach Payment Option - DELETE /yatras/:id/payment-options/:option_id
func (h *Handler) DetachPaymentOption(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	yatraID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	optionID, ok := parseIDParam(c, "option_id")
	if !ok {
		return
	}

	if err := h.service.DetachPaymentOption(c.Request.Context(), yatraID, optionID, access, middleware.GetIPFromContext(c)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "payment option detached"})
}
