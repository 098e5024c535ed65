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

// LearningPlanHandler 负责学习计划 CRUD 与面板聚合端点。
type LearningPlanHandler struct {
	planService service.LearningPlanService
}

// NewLearningPlanHandler 创建一个新的 LearningPlanHandler。
func NewLearningPlanHandler(planService service.LearningPlanService) *LearningPlanHandler {
	return &LearningPlanHandler{planService: planService}
}

// List 处理 GET /api/learning-plans。
func (h *LearningPlanHandler) List(c *gin.Context) {
	plans, err := h.planService.List(c.Request.Context())
	if err != nil {
		log.Errorf("failed to list learning plans: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch learning plans"})
		return
	}
	c.JSON(http.StatusOK, plans)
}

// Save 处理 POST /api/learning-plans，全量 upsert 并替换子集合。
func (h *LearningPlanHandler) Save(c *gin.Context) {
	var plan model.LearningPlan
	if err := c.ShouldBindJSON(&plan); err != nil || plan.ID == "" || plan.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid learning plan payload"})
		return
	}

	if err := h.planService.Save(c.Request.Context(), &plan); err != nil {
		if errors.Is(err, repository.ErrStaleWrite) {
			c.JSON(http.StatusConflict, gin.H{"error": "Stale learning plan revision"})
			return
		}
		log.Errorf("failed to save learning plan %s: %v", plan.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save learning plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Get 处理 GET /api/learning-plans/:id。
func (h *LearningPlanHandler) Get(c *gin.Context) {
	plan, err := h.planService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Learning plan not found"})
			return
		}
		log.Errorf("failed to get learning plan %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch learning plan"})
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Delete 处理 DELETE /api/learning-plans/:id。
func (h *LearningPlanHandler) Delete(c *gin.Context) {
	if err := h.planService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		log.Errorf("failed to delete learning plan %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete learning plan"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Overview 处理 GET /api/user/learning-plans，返回面板用的会话+计划摘要。
func (h *LearningPlanHandler) Overview(c *gin.Context) {
	overview, err := h.planService.Overview(c.Request.Context())
	if err != nil {
		log.Errorf("failed to build learning plan overview: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch learning plans"})
		return
	}
	c.JSON(http.StatusOK, overview)
}
