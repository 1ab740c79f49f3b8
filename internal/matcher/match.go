package matcher

import "sort"

// 每多命中一个不同关键词，按其自身分数的 12% 追加奖励
const multiKeywordBonus = 0.12

// TargetMatch 单个候选目标的打分结果
type TargetMatch struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Score      float64  `json:"score"`
	Keyword    string   `json:"keyword"`
	MatchCount int      `json:"matchCount"`
	Reasons    []string `json:"reasons"`
}

// MatchResult 一次查询的完整结果
type MatchResult struct {
	OK        bool          `json:"ok"`
	Matched   bool          `json:"matched"`
	Reason    string        `json:"reason,omitempty"`
	Mode      string        `json:"mode,omitempty"`
	Threshold float64       `json:"threshold"`
	Results   []TargetMatch `json:"results"`
}

// 累加状态：最高分词为基准分，其余每个不同命中词按自身分数的 12% 追加。
// 与候选词的遍历顺序无关，同一快照对同一文本的打分完全确定。
type accumulated struct {
	id        string
	baseScore float64
	bonusSum  float64
	keyword   string
	count     int
	reasons   []string
	matched   map[string]bool
	hasEntity bool
}

func (a *accumulated) total() float64 {
	return a.baseScore + (a.bonusSum-a.baseScore)*multiKeywordBonus
}

// TopMatches 对文本打分并返回排名前 topN 的目标。
// 实体门槛：没有任何实体词命中的目标直接丢弃，泛化关键词的巧合不允许浮出。
func (m *Matcher) TopMatches(text string) MatchResult {
	tok := tokenize(stripMentions(text))
	if tok.plain == "" {
		return MatchResult{OK: true, Matched: false, Reason: "empty_text", Threshold: m.threshold, Results: []TargetMatch{}}
	}

	// 首 token 召回候选词
	var candidates []*entry
	seen := make(map[*entry]bool)
	for t := range tok.tokens {
		for _, e := range m.firstTokenMap[t] {
			if !seen[e] {
				seen[e] = true
				candidates = append(candidates, e)
			}
		}
	}

	targets := make(map[string]*accumulated)
	for _, e := range candidates {
		if len(e.keyword) < 2 {
			continue
		}
		score, reasons := m.scoreEntry(tok, e)
		if score <= 0 {
			continue
		}

		for _, id := range e.targetIDs {
			acc, ok := targets[id]
			if !ok {
				acc = &accumulated{id: id, matched: make(map[string]bool)}
				targets[id] = acc
			}
			// 重复词不重复计分
			if acc.matched[e.keyword] {
				continue
			}
			acc.matched[e.keyword] = true
			acc.bonusSum += score
			acc.count++
			for _, r := range reasons {
				acc.reasons = append(acc.reasons, r)
			}
			if score > acc.baseScore || (score == acc.baseScore && (acc.keyword == "" || e.keywordPlain < acc.keyword)) {
				acc.baseScore = score
				acc.keyword = e.keywordPlain
			}
			if e.isEntity {
				acc.hasEntity = true
			}
		}
	}

	if len(targets) == 0 {
		return MatchResult{OK: true, Matched: false, Reason: "no_candidates", Mode: m.mode, Threshold: m.threshold, Results: []TargetMatch{}}
	}

	var eligible []*accumulated
	for _, acc := range targets {
		if acc.hasEntity {
			eligible = append(eligible, acc)
		}
	}
	if len(eligible) == 0 {
		return MatchResult{OK: true, Matched: false, Reason: "no_entity_match", Mode: m.mode, Threshold: m.threshold, Results: []TargetMatch{}}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		si, sj := eligible[i].total(), eligible[j].total()
		if si != sj {
			return si > sj
		}
		return eligible[i].id < eligible[j].id
	})
	if len(eligible) > m.topN {
		eligible = eligible[:m.topN]
	}

	results := make([]TargetMatch, 0, len(eligible))
	matched := false
	for _, acc := range eligible {
		title, ok := m.titles[acc.id]
		if !ok {
			continue
		}
		score := clamp01(acc.total())
		if score >= m.threshold {
			matched = true
		}
		results = append(results, TargetMatch{
			ID:         acc.id,
			Title:      title,
			Score:      score,
			Keyword:    acc.keyword,
			MatchCount: acc.count,
			Reasons:    acc.reasons,
		})
	}

	return MatchResult{
		OK:        true,
		Matched:   matched,
		Mode:      m.mode,
		Threshold: m.threshold,
		Results:   results,
	}
}
