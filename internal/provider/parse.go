package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// aiPayload 模型返回的对象格式（两种组字段名都接受）
type aiPayload struct {
	Keywords      []string   `json:"keywords"`
	Entities      []string   `json:"entities"`
	EntityGroups  [][]string `json:"entityGroups"`
	EntityGroups2 [][]string `json:"entity_groups"`
}

// stripCodeFence 去掉模型习惯性包裹的 markdown 代码块标记
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// 语言标注（json / JSON）占第一行
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 8 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// extractJSON 从自由文本中截取首个完整 JSON 值（对象或数组）
func extractJSON(content string) string {
	s := stripCodeFence(content)
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}
	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	depth := 0
	inStr := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch c {
			case '\\':
				i++
			case '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// ParseResponse 解析模型输出。支持三种格式：
//  1. 对象 {"keywords": [...], "entityGroups": [[...]]}（entity_groups 亦可）
//  2. 对象里只有平铺 entities（旧格式，调用方降级为单词组）
//  3. 纯数组 ["kw", ...]（最旧格式，仅关键词）
func ParseResponse(content string) (Result, error) {
	raw := extractJSON(content)
	if raw == "" {
		return Result{}, fmt.Errorf("响应中未找到JSON: %q", truncateForLog(content))
	}

	if strings.HasPrefix(raw, "[") {
		var keywords []string
		if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
			return Result{}, fmt.Errorf("解析关键词数组失败: %w", err)
		}
		return Result{Keywords: cleanStrings(keywords)}, nil
	}

	var payload aiPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Result{}, fmt.Errorf("解析响应对象失败: %w", err)
	}

	groups := payload.EntityGroups
	if len(groups) == 0 {
		groups = payload.EntityGroups2
	}
	var cleanedGroups [][]string
	for _, g := range groups {
		if cg := cleanStrings(g); len(cg) > 0 {
			cleanedGroups = append(cleanedGroups, cg)
		}
	}

	return Result{
		Keywords:     cleanStrings(payload.Keywords),
		Entities:     cleanStrings(payload.Entities),
		EntityGroups: cleanedGroups,
	}, nil
}

func cleanStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func truncateForLog(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
