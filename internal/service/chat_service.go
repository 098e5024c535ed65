// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"strings"

	"github.com/jordanskizash/mindbase/internal/config"
	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/pkg/llm"
	"github.com/jordanskizash/mindbase/pkg/log"
)

// 未显式配置时使用的生成参数，与产品固定采样约定一致。
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

// EventWriter 抽象了下游帧的写出端，由传输层（SSE handler）实现。
// 慢消费者会阻塞 WriteEvent，背压经由它一路传导到上游读取。
type EventWriter interface {
	WriteEvent(ev model.StreamEvent) error
}

// ChatService 定义了补全流中继的接口。
type ChatService interface {
	// StreamCompletion 把对话转发给 LLM 并将事件帧依次写入 w。
	// 上游在任何帧写出之前失败时，错误原样返回且 w 未被触碰，
	// 调用方可以改走非流式错误响应。
	StreamCompletion(ctx context.Context, req model.ChatStreamRequest, w EventWriter) error
}

type chatService struct {
	llmClient llm.Client
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(llmClient llm.Client) ChatService {
	return &chatService{llmClient: llmClient}
}

// StreamCompletion 协调一轮完整的流式补全：
// content 帧逐分块下发，流结束后按需提取结构化数据，最后固定以 done 帧收尾。
func (s *chatService) StreamCompletion(ctx context.Context, req model.ChatStreamRequest, w EventWriter) error {
	systemPrompt := tutoringPrompt
	if req.ExtractStructuredData {
		systemPrompt = planAuthoringPrompt
	}

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, m := range req.Messages {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	// 累计全文：content 帧冗余携带，消费者凭它在丢帧后重新对齐
	fullContent := &strings.Builder{}
	onDelta := func(content string) error {
		fullContent.WriteString(content)
		return w.WriteEvent(model.StreamEvent{
			Type:        model.StreamEventContent,
			Content:     content,
			FullContent: fullContent.String(),
		})
	}

	if err := s.llmClient.StreamChatMessages(ctx, messages, s.buildGenerationParams(), onDelta); err != nil {
		return err
	}

	// 提取围栏 JSON；解析失败时降级为不产出计划，但留下可观测的日志
	if req.ExtractStructuredData && strings.Contains(fullContent.String(), "```json") {
		if raw, ok := ExtractFencedJSON(fullContent.String()); ok {
			if err := w.WriteEvent(model.StreamEvent{
				Type: model.StreamEventStructuredData,
				Data: raw,
			}); err != nil {
				return err
			}
		} else {
			log.Warnf("structured data block did not parse, degrading to plain response (fullContent length=%d)", fullContent.Len())
		}
	}

	return w.WriteEvent(model.StreamEvent{Type: model.StreamEventDone})
}

// buildGenerationParams 合并配置值与产品默认采样参数。
func (s *chatService) buildGenerationParams() *llm.GenerationParams {
	temperature := config.Conf.LLM.Generation.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := config.Conf.LLM.Generation.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	gp := llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
	if config.Conf.LLM.Generation.TopP != 0 {
		p := config.Conf.LLM.Generation.TopP
		gp.TopP = &p
	}
	return &gp
}
