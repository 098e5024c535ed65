package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jordanskizash/mindbase/internal/config"
	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/pkg/log"
	"github.com/jordanskizash/mindbase/pkg/streamclient"
)

// 默认的防抖空闲间隔。
const defaultAutoSaveDelay = 2 * time.Second

// Saver 抽象持久化写回端，由 streamclient.Client 实现。
type Saver interface {
	SaveSession(ctx context.Context, session *model.ChatSession) error
	SavePlan(ctx context.Context, plan *model.LearningPlan) error
}

// Synchronizer 观察当前会话与当前计划，在内容指纹变化后按尾沿防抖写回。
// 任一时刻至多一个计时器在挂起：重新调度总是先取消旧计时器。
type Synchronizer struct {
	state *State
	saver Saver
	delay time.Duration

	mu            sync.Mutex
	timer         *time.Timer
	lastSessionFP string
	lastPlanFP    string
}

// NewSynchronizerFromConfig 按全局配置的防抖间隔创建同步器。
func NewSynchronizerFromConfig(state *State, saver Saver) *Synchronizer {
	return NewSynchronizer(state, saver, time.Duration(config.Conf.AutoSave.DelayMs)*time.Millisecond)
}

// NewSynchronizer 创建同步器并挂接到状态的变更回调上。
// delay 非正值时使用默认的 2 秒。
func NewSynchronizer(state *State, saver Saver, delay time.Duration) *Synchronizer {
	if delay <= 0 {
		delay = defaultAutoSaveDelay
	}
	s := &Synchronizer{state: state, saver: saver, delay: delay}
	state.SetOnChange(s.Schedule)
	return s
}

// Schedule 在一次状态变更后安排写回；窗口内的再次变更会重置计时。
func (s *Synchronizer) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		if err := s.flush(context.Background()); err != nil {
			// 失败快照的指纹未更新，下个防抖周期会带着同样的内容重试
			log.Errorf("auto-save failed: %v", err)
		}
	})
}

// SaveNow 无条件取消挂起的计时器并立刻执行两类写回，
// 供需要同步保证的调用方（例如离开会话前）使用。
func (s *Synchronizer) SaveNow(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.flush(ctx)
}

// flush 对比指纹后写回发生了内容变化的实体，未变化的一律跳过。
func (s *Synchronizer) flush(ctx context.Context) error {
	var firstErr error

	if session := s.state.CurrentSession(); session != nil {
		fp := sessionFingerprint(session)
		s.mu.Lock()
		changed := fp != s.lastSessionFP
		s.mu.Unlock()
		if changed {
			err := s.saver.SaveSession(ctx, session)
			switch {
			case err == nil:
				s.setSessionFP(fp)
				log.Infof("auto-saved session: %s", session.ID)
			case errors.Is(err, streamclient.ErrStaleWrite):
				// 更新的状态已经落库，本快照直接作废
				s.setSessionFP(fp)
				log.Warnf("session write-back superseded: %s", session.ID)
			default:
				firstErr = err
			}
		}
	}

	if plan := s.state.CurrentPlan(); plan != nil {
		fp := planFingerprint(plan)
		s.mu.Lock()
		changed := fp != s.lastPlanFP
		s.mu.Unlock()
		if changed {
			err := s.saver.SavePlan(ctx, plan)
			switch {
			case err == nil:
				s.setPlanFP(fp)
				log.Infof("auto-saved learning plan: %s", plan.ID)
			case errors.Is(err, streamclient.ErrStaleWrite):
				s.setPlanFP(fp)
				log.Warnf("learning plan write-back superseded: %s", plan.ID)
			default:
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}

	return firstErr
}

func (s *Synchronizer) setSessionFP(fp string) {
	s.mu.Lock()
	s.lastSessionFP = fp
	s.mu.Unlock()
}

func (s *Synchronizer) setPlanFP(fp string) {
	s.mu.Lock()
	s.lastPlanFP = fp
	s.mu.Unlock()
}

// sessionFingerprint 只覆盖与持久化相关的内容字段，
// 无关状态变化不会触发多余的写回。
func sessionFingerprint(s *model.ChatSession) string {
	type messageKey struct {
		ID        string    `json:"id"`
		Content   string    `json:"content"`
		Timestamp time.Time `json:"timestamp"`
	}
	key := struct {
		ID        string       `json:"id"`
		Messages  []messageKey `json:"messages"`
		UpdatedAt time.Time    `json:"updatedAt"`
	}{ID: s.ID, UpdatedAt: s.UpdatedAt}
	for _, m := range s.Messages {
		key.Messages = append(key.Messages, messageKey{ID: m.ID, Content: m.Content, Timestamp: m.Timestamp})
	}
	b, _ := json.Marshal(key)
	return string(b)
}

func planFingerprint(p *model.LearningPlan) string {
	type lessonKey struct {
		ID        string `json:"id"`
		Completed bool   `json:"completed"`
	}
	type moduleKey struct {
		ID        string      `json:"id"`
		Progress  int         `json:"progress"`
		Completed bool        `json:"completed"`
		Lessons   []lessonKey `json:"lessons"`
	}
	key := struct {
		ID            string      `json:"id"`
		TotalProgress int         `json:"totalProgress"`
		Modules       []moduleKey `json:"modules"`
		UpdatedAt     time.Time   `json:"updatedAt"`
	}{ID: p.ID, TotalProgress: p.TotalProgress, UpdatedAt: p.UpdatedAt}
	for _, m := range p.Modules {
		mk := moduleKey{ID: m.ID, Progress: m.Progress, Completed: m.Completed}
		for _, l := range m.Lessons {
			mk.Lessons = append(mk.Lessons, lessonKey{ID: l.ID, Completed: l.Completed})
		}
		key.Modules = append(key.Modules, mk)
	}
	b, _ := json.Marshal(key)
	return string(b)
}
