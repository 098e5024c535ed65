package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/pkg/log"
	"github.com/jordanskizash/mindbase/pkg/streamclient"
)

// 回复失败时写入 transcript 的兜底文案。
const apologyMessage = "Sorry, I'm having trouble responding right now. Please try again."

// 命中任一关键词即视为学习计划请求，启用结构化输出模式。
var planRequestKeywords = []string{
	"learning plan", "course", "curriculum", "roadmap",
	"guide", "study plan", "learn", "teach",
}

// Consumer 消费聊天事件流：维护实时 transcript，并在收到结构化数据时物化计划。
type Consumer struct {
	api   *streamclient.Client
	state *State
}

// NewConsumer 创建一个新的 Consumer。
func NewConsumer(api *streamclient.Client, state *State) *Consumer {
	return &Consumer{api: api, state: state}
}

// Respond 以当前会话的完整消息历史请求一轮助手回复。
// 流正常以 done 帧收尾时返回 nil；请求失败或流异常中断时，
// 在 transcript 里追加带错误详情的道歉消息后返回错误。没有自动重试。
func (c *Consumer) Respond(ctx context.Context) error {
	session := c.state.CurrentSession()
	if session == nil {
		return errors.New("no current session")
	}

	messages := make([]model.ChatMessage, 0, len(session.Messages))
	for _, m := range session.Messages {
		role := "assistant"
		if m.IsUser {
			role = "user"
		}
		messages = append(messages, model.ChatMessage{Role: role, Content: m.Content})
	}

	c.state.SetAwaiting(true)

	stream, err := c.api.OpenStream(ctx, model.ChatStreamRequest{
		Messages:              messages,
		ExtractStructuredData: c.shouldExtract(session),
	})
	if err != nil {
		c.failTurn(err)
		return err
	}
	defer stream.Close()

	// 助手侧的占位消息，流式期间按帧覆写内容
	aiMessageID, _ := c.state.AddMessage("", false)

	sawDone := false
	var streamErr error
	for {
		ev, err := stream.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				streamErr = err
			}
			break
		}

		switch ev.Type {
		case model.StreamEventContent:
			// 用冗余的累计全文覆写，丢帧后依旧收敛到正确结果
			c.state.UpdateMessage(aiMessageID, ev.FullContent)
		case model.StreamEventStructuredData:
			c.materializePlan(session.ID, ev.Data)
		case model.StreamEventDone:
			sawDone = true
		}
		if sawDone {
			break
		}
	}

	if !sawDone {
		// 没有 done 帧的结束一律按失败处理
		if streamErr == nil {
			streamErr = errors.New("stream ended before completion")
		}
		c.failTurn(streamErr)
		return streamErr
	}

	c.state.SetAwaiting(false)
	return nil
}

// shouldExtract 判断本轮是否要求结构化输出：
// 首条消息，或最近一条用户消息命中计划类关键词。
func (c *Consumer) shouldExtract(session *model.ChatSession) bool {
	if len(session.Messages) == 1 && session.Messages[0].IsUser {
		return true
	}
	for i := len(session.Messages) - 1; i >= 0; i-- {
		if session.Messages[i].IsUser {
			return isPlanRequest(session.Messages[i].Content)
		}
	}
	return false
}

func isPlanRequest(content string) bool {
	lowered := strings.ToLower(content)
	for _, kw := range planRequestKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// materializePlan 把 structured_data 帧里的文档物化为当前会话的新计划。
// 载荷不含 learningPlan 键或无法解析时忽略该帧。
func (c *Consumer) materializePlan(sessionID string, data json.RawMessage) {
	var payload model.PlanPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Warnf("ignoring structured data frame: %v", err)
		return
	}
	if payload.LearningPlan == nil {
		return
	}
	c.state.SetPlan(model.NewPlanFromDocument(sessionID, payload.LearningPlan))
}

// failTurn 是唯一的错误恢复路径：补一条带错误详情的助手消息并清除等待指示。
func (c *Consumer) failTurn(err error) {
	content := apologyMessage
	if err != nil {
		content = fmt.Sprintf("%s Error: %v", apologyMessage, err)
	}
	c.state.AddMessage(content, false)
	c.state.SetAwaiting(false)
}
