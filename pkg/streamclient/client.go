package streamclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jordanskizash/mindbase/internal/model"
)

// Client 是后端 API 的 HTTP 客户端：开聊天流、写回会话与计划。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建一个指向 baseURL 的客户端。
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// Stream 是一条已打开的事件流，按帧拉取直到 done 或流中断。
type Stream struct {
	body io.ReadCloser
	dec  *Decoder
}

// Next 返回下一帧，流耗尽时返回 io.EOF。
func (s *Stream) Next() (*model.StreamEvent, error) {
	return s.dec.Next()
}

// Close 关闭底层连接。
func (s *Stream) Close() error {
	return s.body.Close()
}

// OpenStream 发起聊天请求并返回事件流。
// 服务器以非流式错误响应（4xx/5xx）拒绝时返回其中的错误信息。
func (c *Client) OpenStream(ctx context.Context, req model.ChatStreamRequest) (*Stream, error) {
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/chat", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call chat endpoint: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("chat endpoint rejected request: %s", readErrorBody(resp.Body, resp.Status))
	}

	return &Stream{body: resp.Body, dec: NewDecoder(resp.Body)}, nil
}

// readErrorBody 解析非流式错误响应 {"error": "..."}，解析不动时退回状态行。
func readErrorBody(body io.Reader, status string) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return status
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		return status
	}
	return payload.Error
}
