package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/internal/repository"
	"github.com/jordanskizash/mindbase/internal/service"
	"github.com/jordanskizash/mindbase/pkg/log"
)

// SessionHandler 负责会话 CRUD 端点。
type SessionHandler struct {
	sessionService service.SessionService
}

// NewSessionHandler 创建一个新的 SessionHandler。
func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// List 处理 GET /api/sessions，按最近更新倒序返回全部会话。
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessionService.List(c.Request.Context())
	if err != nil {
		log.Errorf("failed to list sessions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// Save 处理 POST /api/sessions，按客户端生成的主键全量 upsert。
// 过期 revision 返回 409，同步器对此按“新状态已胜出”丢弃处理。
func (h *SessionHandler) Save(c *gin.Context) {
	var session model.ChatSession
	if err := c.ShouldBindJSON(&session); err != nil || session.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session payload"})
		return
	}

	if err := h.sessionService.Save(c.Request.Context(), &session); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			c.JSON(http.StatusConflict, gin.H{"error": "Stale session revision"})
			return
		}
		log.Errorf("failed to save session %s: %v", session.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Get 处理 GET /api/sessions/:id，响应中嵌套会话当前的计划。
func (h *SessionHandler) Get(c *gin.Context) {
	detail, err := h.sessionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		log.Errorf("failed to get session %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch session"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Delete 处理 DELETE /api/sessions/:id，关联消息与计划一并清除。
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessionService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		log.Errorf("failed to delete session %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
