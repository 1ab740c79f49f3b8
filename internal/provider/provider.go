// Package provider 封装关键词/实体组的生成来源（当前为 GLM 聊天补全接口）。
package provider

import "context"

// Result 单个事件的生成结果。EntityGroups 为组间 AND、组内 OR 的结构；
// 旧格式只返回 Entities 平铺列表时由调用方降级为单词组。
type Result struct {
	Keywords     []string
	Entities     []string
	EntityGroups [][]string
}

// Context 生成请求的事件上下文（日志与提示词用）
type Context struct {
	EventID       string
	BestMarketID  string
	BestMarketURL string
	AvoidTerms    []string // 上一轮被校验拒绝的词，提示模型避开
}

// KeywordProvider 关键词生成器接口
type KeywordProvider interface {
	Generate(ctx context.Context, title, rules string, pctx Context) (Result, error)
}
