// Package matcher 把任意文本与索引快照里的事件/市场做匹配打分。
// 构建一次后只读，可被多个调用方并发查询，不做任何 I/O。
package matcher

import (
	"strings"

	"OpinionMatch/internal/keyword"
	"OpinionMatch/internal/model"
)

// 运行模式：快照带 eventIndex 时按事件匹配，否则按市场匹配
const (
	ModeEvent  = "event"
	ModeMarket = "market"
)

// entry 单个索引词的预构建记录
type entry struct {
	keyword      string
	keywordPlain string
	tokens       []string
	targetIDs    []string
	isEntity     bool // 该词在至少一个目标的实体组中出现
}

type Matcher struct {
	mode          string
	firstTokenMap map[string][]*entry
	titles        map[string]string
	lex           *keyword.Lexicon
	threshold     float64
	topN          int
}

// New 从快照构建匹配器。threshold<=0 取 0.50，topN<=0 取 5。
func New(data *model.Data, lex *keyword.Lexicon, threshold float64, topN int) *Matcher {
	if threshold <= 0 {
		threshold = 0.50
	}
	if topN <= 0 {
		topN = 5
	}
	m := &Matcher{
		firstTokenMap: make(map[string][]*entry),
		titles:        make(map[string]string),
		lex:           lex,
		threshold:     threshold,
		topN:          topN,
	}

	var index model.InvertedIndex
	entityTerms := make(map[string]map[string]bool) // 实体词 -> 目标ID集合
	if len(data.EventIndex) > 0 {
		m.mode = ModeEvent
		index = data.EventIndex
		for id, e := range data.Events {
			m.titles[id] = e.Title
			collectEntityTerms(entityTerms, id, e.EntityGroups)
		}
	} else {
		m.mode = ModeMarket
		index = data.Index
		for id, mk := range data.Markets {
			m.titles[id] = mk.Title
			collectEntityTerms(entityTerms, id, mk.EntityGroups)
		}
	}

	for term, targetIDs := range index {
		if term == "" || len(targetIDs) == 0 {
			continue
		}
		lower := strings.TrimSpace(strings.ToLower(term))
		_, plain := normalizeForMatch(lower)
		var tokens []string
		if plain != "" {
			tokens = strings.Split(plain, " ")
		}

		isEntity := false
		if ids, ok := entityTerms[lower]; ok {
			for _, tid := range targetIDs {
				if ids[tid] {
					isEntity = true
					break
				}
			}
		}

		e := &entry{
			keyword:      lower,
			keywordPlain: plain,
			tokens:       tokens,
			targetIDs:    targetIDs,
			isEntity:     isEntity,
		}
		first := ""
		if len(tokens) > 0 {
			first = tokens[0]
		} else if fields := strings.Fields(lower); len(fields) > 0 {
			first = fields[0]
		}
		if first != "" {
			m.firstTokenMap[first] = append(m.firstTokenMap[first], e)
		}
	}
	return m
}

func collectEntityTerms(entityTerms map[string]map[string]bool, id string, groups [][]string) {
	for _, group := range groups {
		for _, term := range group {
			nt := strings.TrimSpace(strings.ToLower(term))
			if nt == "" {
				continue
			}
			if entityTerms[nt] == nil {
				entityTerms[nt] = make(map[string]bool)
			}
			entityTerms[nt][id] = true
		}
	}
}

func (m *Matcher) Mode() string { return m.mode }

func (m *Matcher) Threshold() float64 { return m.threshold }
