package keyword

import (
	"regexp"
	"strings"
)

var (
	btcWordRe = regexp.MustCompile(`\bbtc\b`)
	ethWordRe = regexp.MustCompile(`\beth\b`)
	fedWordRe = regexp.MustCompile(`\bfed\b`)
	czWordRe  = regexp.MustCompile(`\bcz\b`)
)

// AllowTermsFromTitle 从标题中识别知名标识（币种/机构/人物），
// 生成标题溯源检查的放行词表（ticker 与全称互为别名）。
func AllowTermsFromTitle(title string) map[string]bool {
	lower := strings.ToLower(title)
	allow := make(map[string]bool)

	if strings.Contains(lower, "bitcoin") || btcWordRe.MatchString(lower) {
		allow["btc"] = true
		allow["bitcoin"] = true
	}
	if strings.Contains(lower, "ethereum") || ethWordRe.MatchString(lower) {
		allow["eth"] = true
		allow["ethereum"] = true
	}
	if strings.Contains(lower, "fomc") || strings.Contains(lower, "federal reserve") || fedWordRe.MatchString(lower) {
		allow["fed"] = true
		allow["fomc"] = true
		allow["federalreserve"] = true
		allow["federal reserve"] = true
	}
	if strings.Contains(lower, "binance") {
		allow["binance"] = true
	}
	if czWordRe.MatchString(lower) || strings.Contains(lower, "changpeng zhao") || strings.Contains(lower, "changpengzhao") {
		allow["cz"] = true
		allow["changpengzhao"] = true
		allow["changpeng zhao"] = true
	}
	return allow
}

// IsFromTitle 判断实体词是否可溯源到事件标题：
// 放行词表命中、包含中文（词典译名，不要求出现在标题中）、
// 或压缩后的词是压缩标题的子串。严格子串/别名检查，不做模糊匹配。
func IsFromTitle(term, title string, allow map[string]bool) bool {
	t := Normalize(term)
	if t == "" {
		return false
	}
	if allow[t] {
		return true
	}
	if HasCJK(t) {
		return true
	}
	tCompact := CompactAlnum(t)
	titleCompact := CompactAlnum(title)
	return tCompact != "" && titleCompact != "" && strings.Contains(titleCompact, tCompact)
}
