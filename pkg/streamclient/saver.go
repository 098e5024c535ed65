package streamclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jordanskizash/mindbase/internal/model"
)

// ErrStaleWrite 表示服务器因 revision 过期拒绝了写回（409）。
// 对同步器而言这不是故障：更新的状态已经落库。
var ErrStaleWrite = errors.New("stale write rejected by server")

// SaveSession 把会话快照全量写回 POST /api/sessions。
func (c *Client) SaveSession(ctx context.Context, session *model.ChatSession) error {
	return c.postEntity(ctx, "/api/sessions", session)
}

// SavePlan 把计划快照全量写回 POST /api/learning-plans。
func (c *Client) SavePlan(ctx context.Context, plan *model.LearningPlan) error {
	return c.postEntity(ctx, "/api/learning-plans", plan)
}

func (c *Client) postEntity(ctx context.Context, path string, entity any) error {
	reqBytes, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create save request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call save endpoint: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return ErrStaleWrite
	default:
		return fmt.Errorf("save endpoint returned %s: %s", resp.Status, readErrorBody(resp.Body, resp.Status))
	}
}
