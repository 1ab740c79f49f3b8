package matcher

import (
	"fmt"
	"regexp"
	"strings"
)

var yearRe = regexp.MustCompile(`^\d{4}$`)

// scoreEntry 对单个索引词打分。
// 实体词在文本中出现时直接给到阈值分并短路返回，保证目标必然可见。
func (m *Matcher) scoreEntry(tok tokenized, e *entry) (float64, []string) {
	var reasons []string
	score := 0.0

	if e.isEntity && e.keywordPlain != "" && strings.Contains(tok.plain, e.keywordPlain) {
		reasons = append(reasons, "entity:"+e.keywordPlain)
		return clamp01(m.threshold), reasons
	}

	switch {
	// 1. 完整短语命中
	case e.keywordPlain != "" && strings.Contains(tok.plain, e.keywordPlain):
		if !strings.Contains(e.keywordPlain, " ") {
			if m.rejectSingle(e.keywordPlain) {
				reasons = append(reasons, "rejected:"+e.keywordPlain)
			} else {
				score += minF(0.65, float64(len(e.keywordPlain))*0.1)
				reasons = append(reasons, "phrase:"+e.keywordPlain)
			}
		} else {
			score += 0.85 + minF(0.1, float64(len(e.keywordPlain))/120)
			reasons = append(reasons, "phrase:"+e.keywordPlain)
		}

	// 2. 多词关键词按 token 命中
	case len(e.tokens) >= 2:
		present := 0
		for _, t := range e.tokens {
			if tok.tokens[t] {
				present++
			}
		}
		if present == len(e.tokens) {
			near := tokensNear(tok.plain, e.tokens)
			if near {
				score += 0.7
				reasons = append(reasons, "tokens:all", "near")
			} else {
				score += 0.45
				reasons = append(reasons, "tokens:all")
			}
		} else if present >= 2 {
			// 单 token 命中对多词关键词太弱，至少两词才计分
			score += 0.35 + float64(present-2)*0.05
			reasons = append(reasons, fmt.Sprintf("tokens:%d/%d", present, len(e.tokens)))
		}

	// 3. 单词关键词
	case len(e.tokens) == 1:
		t := e.tokens[0]
		if tok.tokens[t] {
			if m.rejectSingle(t) {
				reasons = append(reasons, "rejected:"+t)
			} else if len(t) <= 6 {
				score += minF(0.48, float64(len(t))*0.09)
				reasons = append(reasons, "single:"+t)
			} else {
				score += minF(0.70, float64(len(t))*0.09)
				reasons = append(reasons, "single:"+t)
			}
		}
	}

	// cashtag/hashtag 强调加分，每个关键词最多一次
	for _, t := range e.tokens {
		if len(t) >= 3 && (strings.Contains(tok.raw, "$"+t) || strings.Contains(tok.raw, "#"+t)) {
			score += 0.05
			reasons = append(reasons, "tag:"+t)
			break
		}
	}

	return clamp01(score), reasons
}

// rejectSingle 裸年份、过短 token 与泛化币圈词不计分
func (m *Matcher) rejectSingle(t string) bool {
	if yearRe.MatchString(t) {
		return true
	}
	if len(t) <= 3 {
		return true
	}
	return len(t) <= 6 && m.lex.CommonMatchTerms[t]
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
