package service

import (
	"encoding/json"
	"regexp"
)

// 非贪婪匹配首个 ```json 围栏块。
var fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractFencedJSON 从累计全文中提取第一个 json 围栏块并校验其可解析性。
// 没有围栏块或内容不是合法 JSON 时返回 false，调用方按“未产出计划”降级处理。
func ExtractFencedJSON(fullContent string) (json.RawMessage, bool) {
	match := fencedJSONPattern.FindStringSubmatch(fullContent)
	if match == nil || match[1] == "" {
		return nil, false
	}

	raw := []byte(match[1])
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, false
	}
	return json.RawMessage(raw), true
}
