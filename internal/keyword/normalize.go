package keyword

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Normalize 规范化关键词：小写、折叠空白、去除成对引号
func Normalize(kw string) string {
	s := strings.ToLower(strings.TrimSpace(kw))
	s = strings.Join(strings.Fields(s), " ")
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// CompactAlnum 压缩为纯小写字母数字（用于标题溯源的子串判断）
func CompactAlnum(text string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(text), "")
}

// HasCJK 是否包含中日韩统一表意文字（U+4E00..U+9FFF）
func HasCJK(s string) bool {
	for _, r := range s {
		if r >= 0x4e00 && r <= 0x9fff {
			return true
		}
	}
	return false
}

// Truncate 截断到不超过 max 个字节并追加省略号，永远在 rune 边界上切分
func Truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return strings.TrimRight(text[:cut], " \t\n") + "..."
}

func isASCIIAlnum(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

// SimpleTokenize 简单分词：按非字母数字切分，保留 btc/usdt、gpt-6、$btc 这类组合
func SimpleTokenize(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if isASCIIAlnum(ch) {
			if ch >= 'A' && ch <= 'Z' {
				ch += 'a' - 'A'
			}
			cur.WriteByte(ch)
			continue
		}
		if (ch == '/' || ch == '-') && cur.Len() > 0 && i+1 < len(text) && isASCIIAlnum(text[i+1]) {
			cur.WriteByte(ch)
			continue
		}
		if ch == '$' {
			flush()
			cur.WriteByte('$')
			continue
		}
		flush()
	}
	flush()
	return out
}
