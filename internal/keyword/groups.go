package keyword

import "strings"

// 实体组结构上限：组间 AND，组内 OR
const (
	MaxEntityGroups     = 2
	MaxTermsPerGroup    = 4
	MaxInvalidTermsKept = 20
)

// NormalizeEntityGroups 把 AI 输出的原始实体组转为已校验的 AND-of-OR 结构：
// 仅保留通过实体校验且可溯源到标题的词，组内去重，组内上限 maxTerms，
// 丢弃空组，总组数上限 maxGroups。
func (v *Validator) NormalizeEntityGroups(groups [][]string, title string, allow map[string]bool, maxGroups, maxTerms int) [][]string {
	if maxGroups <= 0 {
		maxGroups = MaxEntityGroups
	}
	if maxTerms <= 0 {
		maxTerms = MaxTermsPerGroup
	}
	var normalized [][]string
	for _, group := range groups {
		var ng []string
		seen := make(map[string]bool, len(group))
		for _, term := range group {
			nt := Normalize(term)
			if nt == "" || seen[nt] {
				continue
			}
			if !v.IsValidEntityTerm(nt) {
				continue
			}
			if !IsFromTitle(nt, title, allow) {
				continue
			}
			seen[nt] = true
			ng = append(ng, nt)
			if len(ng) >= maxTerms {
				break
			}
		}
		if len(ng) > 0 {
			normalized = append(normalized, ng)
		}
		if len(normalized) >= maxGroups {
			break
		}
	}
	return normalized
}

// CollectInvalidTerms 收集被拒绝的实体词（最多 20 个），
// 用于向 KeywordProvider 的重试请求反馈"避免使用"列表。
func (v *Validator) CollectInvalidTerms(groups [][]string, entities []string, title string, allow map[string]bool) []string {
	var bad []string
	seen := make(map[string]bool)
	add := func(term string) {
		nt := Normalize(term)
		if nt == "" || seen[nt] {
			return
		}
		if !v.IsValidEntityTerm(nt) || !IsFromTitle(nt, title, allow) {
			seen[nt] = true
			bad = append(bad, nt)
		}
	}
	for _, group := range groups {
		for _, term := range group {
			add(term)
		}
	}
	for _, term := range entities {
		add(term)
	}
	if len(bad) > MaxInvalidTermsKept {
		bad = bad[:MaxInvalidTermsKept]
	}
	return bad
}

// SingletonGroups 把旧版 entities 列表视为单词组的 AND（向后兼容）
func SingletonGroups(entities []string) [][]string {
	var groups [][]string
	for _, e := range entities {
		if t := Normalize(e); t != "" {
			groups = append(groups, []string{t})
		}
	}
	return groups
}

// CanonicalEntities 取每个 OR 组的组首词作为规范实体（展示/调试用）
func CanonicalEntities(groups [][]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		head := strings.TrimSpace(g[0])
		if head != "" && !seen[head] {
			seen[head] = true
			out = append(out, head)
		}
	}
	return out
}

// AugmentEntityGroups 用词典译名与已知别名扩充实体组：
// 组内追加，不新增组，保证 BOJ/Bank of Japan 这类缩写也能触发匹配。
func (l *Lexicon) AugmentEntityGroups(groups [][]string) [][]string {
	var out [][]string
	for _, group := range groups {
		ng := append([]string(nil), group...)
		seen := make(map[string]bool, len(ng))
		for _, t := range ng {
			if nt := Normalize(t); nt != "" {
				seen[nt] = true
			}
		}
		appendTerm := func(term string) {
			nt := Normalize(term)
			if nt == "" || seen[nt] {
				return
			}
			seen[nt] = true
			ng = append(ng, term)
		}
		for _, term := range group {
			nt := Normalize(term)
			if nt == "" {
				continue
			}
			// 实体译名：精确命中或候选词包含词典键
			for key, cns := range l.EntityTranslations {
				if key == nt || (len(key) >= 3 && strings.Contains(nt, key)) {
					for _, cn := range cns {
						appendTerm(cn)
					}
				}
			}
			// 关键词译名：仅精确命中
			if cns, ok := l.KeywordTranslations[nt]; ok {
				for _, cn := range cns {
					appendTerm(cn)
				}
			}
			// 别名：仅精确命中规范词
			if aliases, ok := l.Aliases[nt]; ok {
				for _, alias := range aliases {
					appendTerm(alias)
				}
			}
		}
		if len(ng) > 0 {
			out = append(out, ng)
		}
	}
	if len(out) == 0 {
		return groups
	}
	return out
}
