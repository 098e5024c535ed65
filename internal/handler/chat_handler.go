// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/internal/service"
	"github.com/jordanskizash/mindbase/pkg/log"
)

// ChatHandler 负责处理补全流中继的 HTTP 端点。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// sseEventWriter 把事件帧编码为 SSE 帧写入响应。
// 首帧写出时才落定流式响应头，因此上游在此之前失败仍可退回普通 JSON 错误。
type sseEventWriter struct {
	w        gin.ResponseWriter
	wroteAny bool
}

// WriteEvent 实现 service.EventWriter。每帧为 data: <json>\n\n，写出后立即冲刷。
func (s *sseEventWriter) WriteEvent(ev model.StreamEvent) error {
	if !s.wroteAny {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.wroteAny = true
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal stream event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("failed to write stream frame: %w", err)
	}
	s.w.Flush()
	return nil
}

// Stream 处理 POST /api/chat。
// 请求体缺失 messages 时直接拒绝；上游在开流前失败时返回单个非流式错误；
// 开流后失败则中断连接，不补发 done 帧，消费者据此识别异常结束。
func (h *ChatHandler) Stream(c *gin.Context) {
	var req model.ChatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Messages == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Messages array is required"})
		return
	}

	writer := &sseEventWriter{w: c.Writer}
	if err := h.chatService.StreamCompletion(c.Request.Context(), req, writer); err != nil {
		if !writer.wroteAny {
			log.Errorf("chat completion failed before streaming: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate response"})
			return
		}
		// 流已开始，只能异常截断
		log.Errorf("chat completion failed mid-stream: %v", err)
		c.Abort()
	}
}
