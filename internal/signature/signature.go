// Package signature 计算事件内容签名，用于检测事件的增强结果是否过期。
// 要求跨运行字节级稳定，不要求密码学强度。
package signature

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// 规则文本参与签名的前缀长度与选项数上限
const (
	rulesPrefixLen = 1200
	maxOptions     = 80
)

// djb2 32位滚动哈希（按字节）
func djb2(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = h<<5 + h + uint32(s[i])
	}
	return h
}

func rulesPreview(rules string) string {
	r := strings.TrimSpace(rules)
	if len(r) > rulesPrefixLen {
		r = r[:rulesPrefixLen]
	}
	return r
}

// stableJSON 序列化为键序稳定、无多余空白的 JSON
func stableJSON(payload map[string]interface{}) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		b.Write(kb)
		b.WriteByte(':')
		vb, _ := json.Marshal(payload[k])
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String()
}

// Core 核心签名：标题 + 规则前缀
func Core(title, rules string) string {
	stable := stableJSON(map[string]interface{}{
		"title": strings.TrimSpace(title),
		"rules": rulesPreview(rules),
	})
	return fmt.Sprintf("%08x", djb2(stable))
}

// Full 完整签名：标题 + 市场数 + 去重排序后的选项（上限80） + 规则前缀。
// 选项先去重再排序，选项顺序不影响结果。
func Full(title string, marketIDs, optionTitles []string, rules string) string {
	seen := make(map[string]bool, len(optionTitles))
	var options []string
	for _, o := range optionTitles {
		o = strings.TrimSpace(o)
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		options = append(options, o)
	}
	sort.Strings(options)
	if len(options) > maxOptions {
		options = options[:maxOptions]
	}
	if options == nil {
		options = []string{}
	}
	stable := stableJSON(map[string]interface{}{
		"title":       strings.TrimSpace(title),
		"optionCount": len(marketIDs),
		"options":     options,
		"rules":       rulesPreview(rules),
	})
	return fmt.Sprintf("%08x", djb2(stable))
}
