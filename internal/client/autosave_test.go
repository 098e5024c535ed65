package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/pkg/streamclient"
)

// countingSaver 记录写回次数，可注入一次性错误。
type countingSaver struct {
	mu           sync.Mutex
	sessionSaves int
	planSaves    int
	sessionErr   error
	lastSession  *model.ChatSession
}

func (f *countingSaver) SaveSession(ctx context.Context, session *model.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionSaves++
	f.lastSession = session
	return f.sessionErr
}

func (f *countingSaver) SavePlan(ctx context.Context, plan *model.LearningPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.planSaves++
	return nil
}

func (f *countingSaver) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionSaves, f.planSaves
}

func (f *countingSaver) setSessionErr(err error) {
	f.mu.Lock()
	f.sessionErr = err
	f.mu.Unlock()
}

func TestSynchronizerCoalescesBurst(t *testing.T) {
	state := NewState()
	saver := &countingSaver{}
	NewSynchronizer(state, saver, 30*time.Millisecond)

	// 防抖窗口内的连续变更合并为一次写回
	state.CreateSession("hi")
	for i := 0; i < 5; i++ {
		state.AddMessage("chunk", false)
	}

	require.Eventually(t, func() bool {
		sessions, _ := saver.counts()
		return sessions == 1
	}, time.Second, 10*time.Millisecond)

	// 窗口过后没有多余的写回
	time.Sleep(100 * time.Millisecond)
	sessions, _ := saver.counts()
	assert.Equal(t, 1, sessions)

	saver.mu.Lock()
	saved := saver.lastSession
	saver.mu.Unlock()
	require.NotNil(t, saved)
	assert.Len(t, saved.Messages, 6)
}

func TestSynchronizerSkipsUnchangedSnapshot(t *testing.T) {
	state := NewState()
	saver := &countingSaver{}
	syncer := NewSynchronizer(state, saver, time.Hour)

	state.CreateSession("hi")
	require.NoError(t, syncer.SaveNow(context.Background()))
	require.NoError(t, syncer.SaveNow(context.Background()))

	sessions, _ := saver.counts()
	assert.Equal(t, 1, sessions)
}

func TestSynchronizerSaveNowCancelsPendingTimer(t *testing.T) {
	state := NewState()
	saver := &countingSaver{}
	syncer := NewSynchronizer(state, saver, 30*time.Millisecond)

	state.CreateSession("hi")
	require.NoError(t, syncer.SaveNow(context.Background()))

	time.Sleep(100 * time.Millisecond)
	sessions, _ := saver.counts()
	assert.Equal(t, 1, sessions)
}

func TestSynchronizerRetriesAfterFailure(t *testing.T) {
	state := NewState()
	saver := &countingSaver{}
	syncer := NewSynchronizer(state, saver, time.Hour)

	state.CreateSession("hi")
	saver.setSessionErr(errors.New("backend down"))
	require.Error(t, syncer.SaveNow(context.Background()))

	// 失败快照的指纹未更新，同样的内容会再次尝试
	saver.setSessionErr(nil)
	require.NoError(t, syncer.SaveNow(context.Background()))

	sessions, _ := saver.counts()
	assert.Equal(t, 2, sessions)
}

func TestSynchronizerStaleWriteTreatedAsSettled(t *testing.T) {
	state := NewState()
	saver := &countingSaver{}
	syncer := NewSynchronizer(state, saver, time.Hour)

	state.CreateSession("hi")
	saver.setSessionErr(streamclient.ErrStaleWrite)
	// 更新的状态已经落库：不算故障，该快照作废
	require.NoError(t, syncer.SaveNow(context.Background()))

	saver.setSessionErr(nil)
	require.NoError(t, syncer.SaveNow(context.Background()))

	sessions, _ := saver.counts()
	assert.Equal(t, 1, sessions)
}

func TestSynchronizerSavesPlanIndependently(t *testing.T) {
	state := NewState()
	saver := &countingSaver{}
	syncer := NewSynchronizer(state, saver, time.Hour)

	state.CreateSession("hi")
	state.SetPlan(&model.LearningPlan{
		ID:        "p1",
		SessionID: "s1",
		Modules: []model.LearningModule{
			{ID: "m1", Lessons: []model.LearningLesson{{ID: "l1"}}},
		},
	})
	require.NoError(t, syncer.SaveNow(context.Background()))

	sessions, plans := saver.counts()
	assert.Equal(t, 1, sessions)
	assert.Equal(t, 1, plans)

	// 只翻转课时：会话指纹不变，仅计划被写回
	require.True(t, state.ToggleLesson("m1", "l1"))
	require.NoError(t, syncer.SaveNow(context.Background()))

	sessions, plans = saver.counts()
	assert.Equal(t, 1, sessions)
	assert.Equal(t, 2, plans)
}
