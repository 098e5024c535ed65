package model

import "encoding/json"

// 流式事件类型。structured_data 至多出现一次且总在 done 之前。
const (
	StreamEventContent        = "content"
	StreamEventStructuredData = "structured_data"
	StreamEventDone           = "done"
)

// StreamEvent 是中继下发给消费者的单个帧载荷。
// content 帧同时携带增量片段与累计全文，消费者丢帧后可凭全文自行对齐。
type StreamEvent struct {
	Type        string          `json:"type"`
	Content     string          `json:"content,omitempty"`
	FullContent string          `json:"fullContent,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// ChatMessage 表示一条按角色标记的对话消息。
type ChatMessage struct {
	Role    string `json:"role"` // "user" / "assistant" / "system"
	Content string `json:"content"`
}

// ChatStreamRequest 是 /api/chat 的请求体。
type ChatStreamRequest struct {
	Messages              []ChatMessage `json:"messages"`
	ExtractStructuredData bool          `json:"extractStructuredData"`
}
