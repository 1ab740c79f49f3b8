package keyword

import (
	"regexp"
	"strings"
)

var (
	basisPointRe = regexp.MustCompile(`^\d{1,3}(?:bp|bps|basispoints?)$`)
	monthDayRe   = regexp.MustCompile(`^(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)\d{1,2}(?:st|nd|rd|th)?$`)
	isoDateRe    = regexp.MustCompile(`\b(19|20)\d{2}[-/]\d{1,2}[-/]\d{1,2}\b`)
	usDateRe     = regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/](19|20)\d{2}\b`)
	fourDigitRe  = regexp.MustCompile(`^\d{4}$`)
)

// Validator 实体词校验器，基于只读词表
type Validator struct {
	lex *Lexicon
}

func NewValidator(lex *Lexicon) *Validator {
	return &Validator{lex: lex}
}

func (v *Validator) Lexicon() *Lexicon { return v.lex }

// IsValidEntityTerm 判断候选词是否允许作为实体标识。
// 拒绝结果/机制类词汇、疑问词、时间词、日期样式、纯年份与过短/过长短语。
func (v *Validator) IsValidEntityTerm(term string) bool {
	t := Normalize(term)
	if t == "" {
		return false
	}
	if v.lex.StopTerms[t] {
		return false
	}
	// 明显的结果类 token（teamai/teamhuman 等）
	if strings.HasPrefix(t, "team") && len(t) <= 12 {
		return false
	}

	tokens := strings.Fields(t)
	if len(tokens) > 4 {
		return false
	}

	for _, tok := range tokens {
		if v.lex.QuestionWords[tok] {
			return false
		}
		if v.lex.Months[tok] {
			return false
		}
		if v.lex.TimeWords[tok] {
			return false
		}
		if fourDigitRe.MatchString(tok) {
			return false
		}
		if basisPointRe.MatchString(tok) {
			return false
		}
		if monthDayRe.MatchString(tok) {
			return false
		}
	}

	if len(tokens) == 1 && v.lex.GenericTokens[tokens[0]] {
		return false
	}

	// 多词实体允许轻量连接词，但拒绝编码结果/机制语义的泛化实词
	if len(tokens) >= 2 {
		allGeneric := true
		for _, tok := range tokens {
			if v.lex.GenericTokens[tok] && !v.lex.Connectors[tok] {
				return false
			}
			if !v.lex.GenericTokens[tok] && !isDigits(tok) {
				allGeneric = false
			}
		}
		if allGeneric {
			return false
		}
	}

	if fourDigitRe.MatchString(t) {
		return false
	}
	if len(t) < 3 && !v.lex.AllowShort[t] {
		return false
	}
	if isoDateRe.MatchString(t) || usDateRe.MatchString(t) {
		return false
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
