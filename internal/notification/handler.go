package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/krishnadas018/yatra-management-backend/config"
	"github.com/krishnadas018/yatra-management-backend/middleware"
	"github.com/krishnadas018/yatra-management-backend/utils"
)

type Handler struct {
	Service Service
}

func NewHandler(s Service) *Handler {
	return &Handler{Service: s}
}

type sendNotificationRequest struct {
	YatraID    *uint    `json:"yatra_id,omitempty"`
	Subject    string   `json:"subject" binding:"required"`
	Body       string   `json:"body" binding:"required"`
	Audience   string   `json:"audience,omitempty"`   // devotees / admins / all
	Recipients []string `json:"recipients,omitempty"` // explicit list overrides audience
}

// POST /api/v1/notifications/send (admin)
func (h *Handler) SendNotification(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipients := req.Recipients
	if len(recipients) == 0 {
		if req.Audience == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "either recipients or audience is required"})
			return
		}
		var err error
		recipients, err = h.Service.GetEmailsByAudience(req.Audience)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	err := h.Service.SendNotification(c.Request.Context(), access.UserID, req.YatraID, "email", req.Subject, req.Body, recipients, middleware.GetIPFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification sent", "recipients": len(recipients)})
}

// GET /api/v1/notifications (sender's own broadcast log)
func (h *Handler) GetNotifications(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	logs, err := h.Service.GetNotificationsByUser(c.Request.Context(), access.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, logs)
}

// GET /api/v1/notifications/inapp
func (h *Handler) ListInApp(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	var yatraIDPtr *uint
	if yatraIDStr := c.Query("yatra_id"); yatraIDStr != "" {
		if yatraID, err := strconv.ParseUint(yatraIDStr, 10, 32); err == nil {
			yid := uint(yatraID)
			yatraIDPtr = &yid
		}
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	items, err := h.Service.ListInAppByUser(c.Request.Context(), access.UserID, yatraIDPtr, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch in-app notifications"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// GET /api/v1/notifications/inapp/unread-count
func (h *Handler) GetUnreadCount(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	count, err := h.Service.CountUnread(c.Request.Context(), access.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// PUT /api/v1/notifications/inapp/:id/read
func (h *Handler) MarkInAppRead(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.Service.MarkInAppAsRead(c.Request.Context(), uint(id), access.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "marked as read"})
}

// GET /api/v1/notifications/stream (SSE)
func (h *Handler) StreamInApp(c *gin.Context) {
	access, ok := middleware.GetAccessContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "access context missing"})
		return
	}

	h.streamForUser(c, access.UserID)
}

// GET /api/v1/notifications/stream-token?token=JWT (SSE without auth middleware;
// EventSource cannot set an Authorization header)
func (h *Handler) StreamInAppWithToken(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	cfg := config.Load()
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTAccessSecret), nil
	})
	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
		return
	}
	uidFloat, ok := claims["user_id"].(float64)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user_id missing"})
		return
	}

	h.streamForUser(c, uint(uidFloat))
}

func (h *Handler) streamForUser(c *gin.Context, userID uint) {
	// Specific origin is required for SSE with credentials
	origin := c.GetHeader("Origin")
	if origin == "" {
		origin = "http://localhost:4173"
	}
	c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
	c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}

	channel := "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
	sub := utils.RedisClient.Subscribe(c, channel)
	defer sub.Close()

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	flusher.Flush()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = c.Writer.Write([]byte("event: inapp\n"))
			_, _ = c.Writer.Write([]byte("data: " + msg.Payload + "\n\n"))
			flusher.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
