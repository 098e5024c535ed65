// Package model 包含了应用的数据模型定义。
package model

import "time"

// Message 代表会话中的一条消息，用户或助手各占一方。
type Message struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	SessionID string    `gorm:"index;not null;size:64" json:"sessionId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsUser    bool      `gorm:"not null" json:"isUser"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
}

func (Message) TableName() string {
	return "messages"
}

// ChatSession 代表一次学习会话及其完整的消息序列。
// 消息以插入顺序为准，不按内容重排。
type ChatSession struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	InitialPrompt string    `gorm:"type:text" json:"initialPrompt,omitempty"`
	Revision      int64     `gorm:"not null;default:0" json:"revision"`
	Messages      []Message `gorm:"foreignKey:SessionID;references:ID;constraint:OnDelete:CASCADE" json:"messages"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// 会话标题取首条用户输入，超长时截断。
const sessionTitleMaxLen = 50

// SessionTitleFromPrompt 根据首条用户输入推导会话标题。
func SessionTitleFromPrompt(prompt string) string {
	if prompt == "" {
		return "New Learning Session"
	}
	runes := []rune(prompt)
	if len(runes) > sessionTitleMaxLen {
		return string(runes[:sessionTitleMaxLen]) + "..."
	}
	return prompt
}
