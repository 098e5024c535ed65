package streamclient

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanskizash/mindbase/internal/model"
)

// chunkReader 每次 Read 只吐出一个预设分片，模拟网络分包。
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func drain(t *testing.T, dec *Decoder) []model.StreamEvent {
	t.Helper()
	var events []model.StreamEvent
	for {
		ev, err := dec.Next()
		if err == io.EOF {
			return events
		}
		require.NoError(t, err)
		events = append(events, *ev)
	}
}

func TestDecoderBasicFrames(t *testing.T) {
	stream := "data: {\"type\":\"content\",\"content\":\"Hi\",\"fullContent\":\"Hi\"}\n\n" +
		"data: {\"type\":\"done\"}\n\n"
	events := drain(t, NewDecoder(strings.NewReader(stream)))

	require.Len(t, events, 2)
	assert.Equal(t, model.StreamEventContent, events[0].Type)
	assert.Equal(t, "Hi", events[0].Content)
	assert.Equal(t, model.StreamEventDone, events[1].Type)
}

func TestDecoderFrameSplitAcrossReads(t *testing.T) {
	// 一帧被任意切开跨多次 Read，解码结果不受影响
	r := &chunkReader{chunks: []string{
		"data: {\"type\":\"cont",
		"ent\",\"content\":\"ab\",\"fullCo",
		"ntent\":\"ab\"}\n\ndata: {\"ty",
		"pe\":\"done\"}\n\n",
	}}
	events := drain(t, NewDecoder(r))

	require.Len(t, events, 2)
	assert.Equal(t, "ab", events[0].Content)
	assert.Equal(t, model.StreamEventDone, events[1].Type)
}

func TestDecoderSkipsMalformedAndBlankLines(t *testing.T) {
	stream := ": comment line\n" +
		"data: {malformed\n" +
		"data: \n" +
		"\n" +
		"data: {\"type\":\"done\"}\n\n"
	events := drain(t, NewDecoder(strings.NewReader(stream)))

	require.Len(t, events, 1)
	assert.Equal(t, model.StreamEventDone, events[0].Type)
}

func TestDecoderCRLFLines(t *testing.T) {
	stream := "data: {\"type\":\"done\"}\r\n\r\n"
	events := drain(t, NewDecoder(strings.NewReader(stream)))

	require.Len(t, events, 1)
	assert.Equal(t, model.StreamEventDone, events[0].Type)
}

func TestDecoderStructuredDataPayload(t *testing.T) {
	stream := "data: {\"type\":\"structured_data\",\"data\":{\"learningPlan\":{\"title\":\"Go\"}}}\n\n"
	events := drain(t, NewDecoder(strings.NewReader(stream)))

	require.Len(t, events, 1)
	assert.Equal(t, model.StreamEventStructuredData, events[0].Type)
	assert.JSONEq(t, `{"learningPlan":{"title":"Go"}}`, string(events[0].Data))
}

func TestDecoderEOFMidLine(t *testing.T) {
	// 末尾残缺的半行不构成帧，直接以 EOF 结束
	stream := "data: {\"type\":\"content\",\"content\":\"a\",\"fullContent\":\"a\"}\n\ndata: {\"type\":"
	dec := NewDecoder(strings.NewReader(stream))

	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, model.StreamEventContent, ev.Type)

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
}
