package keyword

import (
	"sort"
	"strings"
)

// 降级分词/ n-gram 用的轻量停用词（与实体词表独立）
var fallbackStop = toSet(
	"a", "an", "and", "are", "as", "at", "be", "before", "by", "end",
	"for", "from", "has", "have", "in", "is", "it", "of", "on", "or",
	"the", "to", "will", "with",
)

// FallbackKeywords 确定性降级关键词：对标题+选项+规则做词法分词，
// 去停用词、限长，标题的规范形式放在首位。
func FallbackKeywords(title string, optionTitles []string, rules string, max int) []string {
	if max <= 0 {
		max = 25
	}
	text := title + " " + strings.Join(optionTitles, " ") + "\n" + rules
	var keywords []string
	seen := make(map[string]bool)
	for _, w := range SimpleTokenize(text) {
		if len(w) < 3 && !(strings.HasPrefix(w, "$") && len(w) >= 3) {
			continue
		}
		if fallbackStop[w] || len(w) > 40 || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
		if len(keywords) >= max {
			break
		}
	}
	if nt := Normalize(title); nt != "" && !seen[nt] && len(nt) <= 80 {
		keywords = append([]string{nt}, keywords...)
	}
	return keywords
}

// TitleNGrams 标题的非停用词 bigram/trigram（短标题也能保持可匹配）
func TitleNGrams(title string, maxPhrases int) []string {
	if maxPhrases <= 0 {
		maxPhrases = 12
	}
	var filtered []string
	for _, w := range SimpleTokenize(title) {
		if fallbackStop[w] {
			continue
		}
		switch {
		case isDigits(w) && len(w) == 4:
			filtered = append(filtered, w)
		case strings.HasPrefix(w, "$") && len(w) >= 3:
			filtered = append(filtered, w)
		case len(w) >= 3:
			filtered = append(filtered, w)
		}
	}

	var phrases []string
	for i := 0; i+1 < len(filtered); i++ {
		if filtered[i] == filtered[i+1] {
			continue
		}
		phrases = append(phrases, filtered[i]+" "+filtered[i+1])
	}
	for i := 0; i+2 < len(filtered); i++ {
		phrases = append(phrases, filtered[i]+" "+filtered[i+1]+" "+filtered[i+2])
	}

	var out []string
	seen := make(map[string]bool)
	for _, p := range phrases {
		p = Normalize(p)
		if p == "" || len(p) > 60 || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
		if len(out) >= maxPhrases {
			break
		}
	}
	return out
}

// FallbackEntityGroups 不经 AI 的实体组猜测：知名主题直接给出别名组，
// 否则从标题候选中取"特异度"最高者（非泛化、非数字 token 计数）。
func (v *Validator) FallbackEntityGroups(title string) [][]string {
	raw := strings.TrimSpace(title)
	if raw == "" {
		return nil
	}
	lower := strings.ToLower(raw)

	switch {
	case strings.Contains(lower, "tiktok"):
		return [][]string{{"tiktok"}}
	case strings.Contains(lower, "oscars") || strings.Contains(lower, "academy awards"):
		return [][]string{{"oscars", "academy awards", "oscar"}}
	case strings.Contains(lower, "super bowl"):
		return [][]string{{"super bowl", "nfl", "super bowl champion"}}
	case strings.Contains(lower, "world cup"):
		return [][]string{{"world cup", "fifa world cup", "fifa"}}
	case strings.Contains(lower, "champions league"):
		return [][]string{{"champions league", "uefa champions league", "uefa"}}
	case strings.Contains(lower, "premier league"):
		return [][]string{{"premier league", "english premier league", "epl"}}
	}

	var groups [][]string
	if strings.Contains(lower, "fomc") || strings.Contains(lower, "federal reserve") || fedWordRe.MatchString(lower) {
		groups = append(groups, []string{"fed", "fomc", "federal reserve", "federalreserve"})
	}
	if strings.Contains(lower, "bitcoin") || btcWordRe.MatchString(lower) {
		groups = append(groups, []string{"btc", "bitcoin"})
	}
	if strings.Contains(lower, "ethereum") || ethWordRe.MatchString(lower) {
		groups = append(groups, []string{"eth", "ethereum"})
	}
	if strings.Contains(lower, "binance") {
		groups = append(groups, []string{"binance"})
	}
	if czWordRe.MatchString(lower) || strings.Contains(lower, "changpeng zhao") {
		groups = append(groups, []string{"cz", "changpengzhao"})
	}

	taken := make(map[string]bool)
	for _, g := range groups {
		for _, t := range g {
			taken[t] = true
		}
	}

	var candidates []string
	for _, tok := range SimpleTokenize(raw) {
		tok = strings.TrimLeft(tok, "$#")
		if t := Normalize(tok); t != "" {
			candidates = append(candidates, t)
		}
	}
	candidates = append(candidates, TitleNGrams(raw, 24)...)

	type scored struct {
		specificity int
		tokens      int
		length      int
		term        string
	}
	var ranked []scored
	seen := make(map[string]bool)
	for _, cand := range candidates {
		cand = Normalize(cand)
		if cand == "" || taken[cand] || seen[cand] {
			continue
		}
		seen[cand] = true
		if !v.IsValidEntityTerm(cand) || !IsFromTitle(cand, raw, nil) {
			continue
		}
		toks := strings.Fields(cand)
		spec := 0
		for _, t := range toks {
			if !v.lex.GenericTokens[t] && !isDigits(t) {
				spec++
			}
		}
		ranked = append(ranked, scored{spec, len(toks), len(cand), cand})
	}

	if len(ranked) > 0 && len(groups) < MaxEntityGroups {
		sort.SliceStable(ranked, func(i, j int) bool {
			a, b := ranked[i], ranked[j]
			if a.specificity != b.specificity {
				return a.specificity > b.specificity
			}
			// 有特异度时偏好更短的短语，否则偏好更长的
			if a.specificity > 0 {
				if a.tokens != b.tokens {
					return a.tokens < b.tokens
				}
				return a.length < b.length
			}
			if a.tokens != b.tokens {
				return a.tokens > b.tokens
			}
			return a.length > b.length
		})
		groups = append(groups, []string{ranked[0].term})
	}
	return groups
}
