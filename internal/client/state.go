// Package client 实现消费端：流消费者、应用状态与防抖同步器。
// 当前会话与当前计划由显式的 State 对象持有并注入各协作方，不存在环境全局态。
package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jordanskizash/mindbase/internal/model"
)

// State 持有消费端的可变状态。
// 所有修改都以“整体替换”的方式产生新快照，读取方拿到的是副本，
// 互斥锁保证同一实体不会交错写入。
type State struct {
	mu             sync.Mutex
	currentSession *model.ChatSession
	currentPlan    *model.LearningPlan
	awaiting       bool
	onChange       func()
}

// NewState 创建一个空的应用状态。
func NewState() *State {
	return &State{}
}

// SetOnChange 注册内容变更回调（同步器挂接在这里）。
// 回调在锁外触发，可以安全地回读状态。
func (s *State) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *State) notifyChange() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// CreateSession 以首条用户输入创建新会话并置为当前会话。
func (s *State) CreateSession(initialPrompt string) *model.ChatSession {
	now := time.Now()
	session := &model.ChatSession{
		ID:            "session_" + uuid.NewString(),
		Title:         model.SessionTitleFromPrompt(initialPrompt),
		InitialPrompt: initialPrompt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if initialPrompt != "" {
		session.Messages = []model.Message{{
			ID:        "msg_" + uuid.NewString(),
			SessionID: session.ID,
			Content:   initialPrompt,
			IsUser:    true,
			Timestamp: now,
		}}
	}

	s.mu.Lock()
	s.currentSession = session
	s.mu.Unlock()

	s.notifyChange()
	return cloneSession(session)
}

// SetCurrentSession 把已加载的会话置为当前会话（例如从持久层取回）。
func (s *State) SetCurrentSession(session *model.ChatSession) {
	s.mu.Lock()
	s.currentSession = cloneSession(session)
	s.mu.Unlock()
	s.notifyChange()
}

// CurrentSession 返回当前会话的快照，无会话时返回 nil。
func (s *State) CurrentSession() *model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.currentSession)
}

// AddMessage 向当前会话追加一条消息并返回其 id。
// 没有当前会话时返回 false。
func (s *State) AddMessage(content string, isUser bool) (string, bool) {
	s.mu.Lock()
	if s.currentSession == nil {
		s.mu.Unlock()
		return "", false
	}
	now := time.Now()
	next := cloneSession(s.currentSession)
	msg := model.Message{
		ID:        "msg_" + uuid.NewString(),
		SessionID: next.ID,
		Content:   content,
		IsUser:    isUser,
		Timestamp: now,
	}
	next.Messages = append(next.Messages, msg)
	next.UpdatedAt = now
	next.Revision++
	s.currentSession = next
	s.mu.Unlock()

	s.notifyChange()
	return msg.ID, true
}

// UpdateMessage 以全文替换指定消息的内容。
// 流式回复期间按帧调用，用事件里的累计全文保持幂等。
func (s *State) UpdateMessage(messageID, content string) bool {
	s.mu.Lock()
	if s.currentSession == nil {
		s.mu.Unlock()
		return false
	}
	next := cloneSession(s.currentSession)
	found := false
	for i := range next.Messages {
		if next.Messages[i].ID == messageID {
			next.Messages[i].Content = content
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return false
	}
	next.UpdatedAt = time.Now()
	next.Revision++
	s.currentSession = next
	s.mu.Unlock()

	s.notifyChange()
	return true
}

// SetPlan 以全新计划替换当前计划（重新生成即整体替换，不做合并）。
func (s *State) SetPlan(plan *model.LearningPlan) {
	s.mu.Lock()
	s.currentPlan = clonePlan(plan)
	s.mu.Unlock()
	s.notifyChange()
}

// CurrentPlan 返回当前计划的快照，无计划时返回 nil。
func (s *State) CurrentPlan() *model.LearningPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePlan(s.currentPlan)
}

// ToggleLesson 翻转课时完成标志并同步重算派生进度。
func (s *State) ToggleLesson(moduleID, lessonID string) bool {
	s.mu.Lock()
	if s.currentPlan == nil {
		s.mu.Unlock()
		return false
	}
	next := clonePlan(s.currentPlan)
	if !next.ToggleLesson(moduleID, lessonID) {
		s.mu.Unlock()
		return false
	}
	next.UpdatedAt = time.Now()
	next.Revision++
	s.currentPlan = next
	s.mu.Unlock()

	s.notifyChange()
	return true
}

// SetAwaiting 设置“等待回复”指示，不触发变更回调。
func (s *State) SetAwaiting(awaiting bool) {
	s.mu.Lock()
	s.awaiting = awaiting
	s.mu.Unlock()
}

// Awaiting 返回是否正在等待助手回复。
func (s *State) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

func cloneSession(src *model.ChatSession) *model.ChatSession {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Messages = make([]model.Message, len(src.Messages))
	copy(dst.Messages, src.Messages)
	return &dst
}

func clonePlan(src *model.LearningPlan) *model.LearningPlan {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Modules = make([]model.LearningModule, len(src.Modules))
	for i, m := range src.Modules {
		mc := m
		mc.Lessons = make([]model.LearningLesson, len(m.Lessons))
		copy(mc.Lessons, m.Lessons)
		dst.Modules[i] = mc
	}
	dst.Resources = make([]model.LearningResource, len(src.Resources))
	copy(dst.Resources, src.Resources)
	return &dst
}
