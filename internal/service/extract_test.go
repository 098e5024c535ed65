package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFencedJSON(t *testing.T) {
	full := "Here is your plan:\n```json\n{\"learningPlan\": {\"title\": \"Guitar\"}}\n```\nEnjoy!"

	raw, ok := ExtractFencedJSON(full)
	require.True(t, ok)
	assert.JSONEq(t, `{"learningPlan": {"title": "Guitar"}}`, string(raw))
}

func TestExtractFencedJSONFirstBlockWins(t *testing.T) {
	// 非贪婪匹配：存在多个围栏块时只取第一个
	full := "```json\n{\"a\": 1}\n```\nand then\n```json\n{\"b\": 2}\n```"

	raw, ok := ExtractFencedJSON(full)
	require.True(t, ok)
	assert.JSONEq(t, `{"a": 1}`, string(raw))
}

func TestExtractFencedJSONNoBlock(t *testing.T) {
	raw, ok := ExtractFencedJSON("plain prose, no fenced block here")
	assert.False(t, ok)
	assert.Nil(t, raw)
}

func TestExtractFencedJSONInvalidPayload(t *testing.T) {
	raw, ok := ExtractFencedJSON("```json\n{\"title\": \"truncated\n```")
	assert.False(t, ok)
	assert.Nil(t, raw)
}

func TestExtractFencedJSONEmptyBlock(t *testing.T) {
	raw, ok := ExtractFencedJSON("```json\n```")
	assert.False(t, ok)
	assert.Nil(t, raw)
}
