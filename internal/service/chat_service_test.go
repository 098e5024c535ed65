package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanskizash/mindbase/internal/model"
	"github.com/jordanskizash/mindbase/pkg/llm"
)

// fakeLLM 按脚本回放分块，并记录收到的消息与生成参数。
type fakeLLM struct {
	chunks   []string
	err      error
	messages []llm.Message
	gen      *llm.GenerationParams
}

func (f *fakeLLM) StreamChatMessages(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, onDelta llm.DeltaFunc) error {
	f.messages = messages
	f.gen = gen
	if f.err != nil {
		return f.err
	}
	for _, chunk := range f.chunks {
		if err := onDelta(chunk); err != nil {
			return err
		}
	}
	return nil
}

type recordingWriter struct {
	events []model.StreamEvent
	errAt  int
}

func (w *recordingWriter) WriteEvent(ev model.StreamEvent) error {
	if w.errAt > 0 && len(w.events)+1 >= w.errAt {
		return errors.New("client went away")
	}
	w.events = append(w.events, ev)
	return nil
}

func TestStreamCompletionContentFrames(t *testing.T) {
	fake := &fakeLLM{chunks: []string{"Hel", "lo ", "world"}}
	w := &recordingWriter{}
	svc := NewChatService(fake)

	err := svc.StreamCompletion(context.Background(), model.ChatStreamRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: "hi"}},
	}, w)
	require.NoError(t, err)
	require.Len(t, w.events, 4)

	assert.Equal(t, model.StreamEventContent, w.events[0].Type)
	assert.Equal(t, "Hel", w.events[0].Content)
	assert.Equal(t, "Hel", w.events[0].FullContent)
	assert.Equal(t, "lo ", w.events[1].Content)
	assert.Equal(t, "Hello ", w.events[1].FullContent)
	assert.Equal(t, "Hello world", w.events[2].FullContent)
	assert.Equal(t, model.StreamEventDone, w.events[3].Type)
}

func TestStreamCompletionSystemPromptSelection(t *testing.T) {
	fake := &fakeLLM{chunks: []string{"ok"}}
	svc := NewChatService(fake)

	err := svc.StreamCompletion(context.Background(), model.ChatStreamRequest{
		Messages:              []model.ChatMessage{{Role: "user", Content: "teach me piano"}},
		ExtractStructuredData: true,
	}, &recordingWriter{})
	require.NoError(t, err)

	require.NotEmpty(t, fake.messages)
	assert.Equal(t, "system", fake.messages[0].Role)
	assert.Equal(t, planAuthoringPrompt, fake.messages[0].Content)
	assert.Equal(t, "teach me piano", fake.messages[1].Content)

	err = svc.StreamCompletion(context.Background(), model.ChatStreamRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: "what is a chord"}},
	}, &recordingWriter{})
	require.NoError(t, err)
	assert.Equal(t, tutoringPrompt, fake.messages[0].Content)
}

func TestStreamCompletionStructuredData(t *testing.T) {
	fake := &fakeLLM{chunks: []string{
		"Here is your plan:\n```json\n{\"learningPlan\": ",
		"{\"title\": \"Piano\"}}\n```",
	}}
	w := &recordingWriter{}
	svc := NewChatService(fake)

	err := svc.StreamCompletion(context.Background(), model.ChatStreamRequest{
		Messages:              []model.ChatMessage{{Role: "user", Content: "plan please"}},
		ExtractStructuredData: true,
	}, w)
	require.NoError(t, err)
	require.Len(t, w.events, 4)

	// structured_data 恰好一帧，且位于 done 之前
	assert.Equal(t, model.StreamEventStructuredData, w.events[2].Type)
	assert.JSONEq(t, `{"learningPlan": {"title": "Piano"}}`, string(w.events[2].Data))
	assert.Equal(t, model.StreamEventDone, w.events[3].Type)
}

func TestStreamCompletionExtractionDisabled(t *testing.T) {
	// 未开启提取时，即使全文含围栏块也不产出 structured_data
	fake := &fakeLLM{chunks: []string{"```json\n{\"learningPlan\": {}}\n```"}}
	w := &recordingWriter{}
	svc := NewChatService(fake)

	err := svc.StreamCompletion(context.Background(), model.ChatStreamRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: "hi"}},
	}, w)
	require.NoError(t, err)
	require.Len(t, w.events, 2)
	assert.Equal(t, model.StreamEventContent, w.events[0].Type)
	assert.Equal(t, model.StreamEventDone, w.events[1].Type)
}

func TestStreamCompletionMalformedBlockDegrades(t *testing.T) {
	fake := &fakeLLM{chunks: []string{"```json\n{not json\n```"}}
	w := &recordingWriter{}
	svc := NewChatService(fake)

	err := svc.StreamCompletion(context.Background(), model.ChatStreamRequest{
		Messages:              []model.ChatMessage{{Role: "user", Content: "plan"}},
		ExtractStructuredData: true,
	}, w)
	require.NoError(t, err)

	// 解析失败静默降级：无 structured_data，done 照常
	require.Len(t, w.events, 2)
	assert.Equal(t, model.StreamEventDone, w.events[1].Type)
}

func TestStreamCompletionUpstreamFailure(t *testing.T) {
	fake := &fakeLLM{err: errors.New("upstream 500")}
	w := &recordingWriter{}
	svc := NewChatService(fake)

	err := svc.StreamCompletion(context.Background(), model.ChatStreamRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: "hi"}},
	}, w)
	require.Error(t, err)
	// 任何帧写出前失败，done 不补发
	assert.Empty(t, w.events)
}

func TestStreamCompletionWriterFailurePropagates(t *testing.T) {
	fake := &fakeLLM{chunks: []string{"a", "b", "c"}}
	w := &recordingWriter{errAt: 2}
	svc := NewChatService(fake)

	err := svc.StreamCompletion(context.Background(), model.ChatStreamRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: "hi"}},
	}, w)
	require.Error(t, err)
	assert.Len(t, w.events, 1)
}

func TestBuildGenerationParamsDefaults(t *testing.T) {
	fake := &fakeLLM{chunks: []string{"ok"}}
	svc := NewChatService(fake)

	err := svc.StreamCompletion(context.Background(), model.ChatStreamRequest{
		Messages: []model.ChatMessage{{Role: "user", Content: "hi"}},
	}, &recordingWriter{})
	require.NoError(t, err)

	require.NotNil(t, fake.gen)
	require.NotNil(t, fake.gen.Temperature)
	require.NotNil(t, fake.gen.MaxTokens)
	assert.InDelta(t, 0.7, *fake.gen.Temperature, 1e-9)
	assert.Equal(t, 2000, *fake.gen.MaxTokens)
	assert.Nil(t, fake.gen.TopP)
}
