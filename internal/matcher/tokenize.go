package matcher

import (
	"regexp"
	"strings"
)

// mentionRe X 上的 @提及：去掉 @ 保留句柄本身（句柄常等于项目/人物名）
var mentionRe = regexp.MustCompile(`(^|\s)@([a-zA-Z0-9_]{1,20})\b`)

func stripMentions(text string) string {
	return mentionRe.ReplaceAllString(text, "$1$2")
}

func normalizeText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

func isCJKRune(r rune) bool {
	return r >= 0x4e00 && r <= 0x9fff
}

// normalizeForMatch 返回 (raw, plain)：plain 只保留 ascii 字母数字与中日韩统一表意文字，
// 其余字符替换为空格后折叠
func normalizeForMatch(text string) (string, string) {
	raw := normalizeText(text)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', isCJKRune(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	plain := strings.Join(strings.Fields(b.String()), " ")
	return raw, plain
}

type tokenized struct {
	raw    string
	plain  string
	tokens map[string]bool
}

// addCJKGrams 中文没有空格分词，把连续汉字串的全部 n-gram（n=1..8）都作为 token，
// 保证"美联储降息"能命中索引里的"降息"
func addCJKGrams(tokens map[string]bool, runs []rune) {
	if len(runs) == 0 {
		return
	}
	tokens[string(runs)] = true
	maxN := len(runs)
	if maxN > 8 {
		maxN = 8
	}
	for n := 1; n <= maxN; n++ {
		for i := 0; i+n <= len(runs); i++ {
			tokens[string(runs[i:i+n])] = true
		}
	}
}

func tokenize(text string) tokenized {
	raw, plain := normalizeForMatch(text)
	tokens := make(map[string]bool)

	var ascii []byte
	var cjk []rune
	flush := func() {
		if len(ascii) > 0 {
			tokens[string(ascii)] = true
			ascii = ascii[:0]
		}
		if len(cjk) > 0 {
			addCJKGrams(tokens, cjk)
			cjk = cjk[:0]
		}
	}
	for _, r := range plain {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if len(cjk) > 0 {
				addCJKGrams(tokens, cjk)
				cjk = cjk[:0]
			}
			ascii = append(ascii, byte(r))
		case isCJKRune(r):
			if len(ascii) > 0 {
				tokens[string(ascii)] = true
				ascii = ascii[:0]
			}
			cjk = append(cjk, r)
		default:
			flush()
		}
	}
	flush()

	return tokenized{raw: raw, plain: plain, tokens: tokens}
}

// findTokenBoundaryIndex 在 token 边界上查找 needle（前后必须是空格或串首尾）
func findTokenBoundaryIndex(haystack, needle string) int {
	if haystack == "" || needle == "" {
		return -1
	}
	pos := 0
	for {
		idx := strings.Index(haystack[pos:], needle)
		if idx < 0 {
			return -1
		}
		idx += pos
		beforeOK := idx == 0 || haystack[idx-1] == ' '
		after := idx + len(needle)
		afterOK := after == len(haystack) || haystack[after] == ' '
		if beforeOK && afterOK {
			return idx
		}
		pos = idx + 1
	}
}

// tokensNear 2~3 个 token 是否在文本中彼此邻近（2词≤50、3词≤80字符跨度）
func tokensNear(plain string, keywordTokens []string) bool {
	var toks []string
	for _, t := range keywordTokens {
		if t != "" {
			toks = append(toks, t)
		}
	}
	if len(toks) < 2 || len(toks) > 3 {
		return false
	}
	minPos, maxPos := -1, -1
	for _, t := range toks {
		pos := findTokenBoundaryIndex(plain, t)
		if pos < 0 {
			return false
		}
		if minPos < 0 || pos < minPos {
			minPos = pos
		}
		if pos > maxPos {
			maxPos = pos
		}
	}
	span := maxPos - minPos
	if len(toks) == 2 {
		return span <= 50
	}
	return span <= 80
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
