package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// FlexString 兼容字符串/数字两种 JSON 形式的ID字段
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		*f = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// FlexEpoch 兼容数字（秒或毫秒）与 ISO 字符串两种时间形式；保留原始值以区分"缺失"和"0"
type FlexEpoch struct {
	raw json.RawMessage
}

func (e *FlexEpoch) UnmarshalJSON(b []byte) error {
	e.raw = append(e.raw[:0], b...)
	return nil
}

func (e FlexEpoch) MarshalJSON() ([]byte, error) {
	if len(e.raw) == 0 {
		return []byte("null"), nil
	}
	return e.raw, nil
}

// IsZero 原始值是否为 0/"0"（API 对未截止市场常返回 cutoffAt: 0）
func (e FlexEpoch) IsZero() bool {
	s := strings.Trim(strings.TrimSpace(string(e.raw)), `"`)
	return s == "0" || s == "0.0"
}

// Seconds 解析为 Unix 秒；无法解析或非正值返回 (0, false)
func (e FlexEpoch) Seconds() (int64, bool) {
	s := strings.TrimSpace(string(e.raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(e.raw, &v); err != nil {
			return 0, false
		}
		return parseEpochString(v)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return normalizeEpoch(int64(f))
}

func normalizeEpoch(v int64) (int64, bool) {
	if v <= 0 {
		return 0, false
	}
	// 毫秒时间戳降为秒
	if v > 1_000_000_000_000 {
		v /= 1000
	}
	return v, true
}

func parseEpochString(v string) (int64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	// 先按 ISO-8601 变体解析
	candidate := v
	if i := strings.IndexByte(candidate, '.'); i >= 0 && strings.Contains(candidate, "-") {
		// 去掉小数秒（可能带 Z 后缀）
		rest := candidate[i:]
		if j := strings.IndexAny(rest, "Z+"); j >= 0 {
			candidate = candidate[:i] + rest[j:]
		} else {
			candidate = candidate[:i]
		}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, candidate); err == nil {
			return normalizeEpoch(t.Unix())
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return normalizeEpoch(int64(f))
}

// RawParentEvent 市场节点内嵌的父事件引用
type RawParentEvent struct {
	EventMarketID FlexString `json:"eventMarketId"`
	Title         string     `json:"title"`
}

// RawMarket 源 API 的市场节点（可能嵌套 childMarkets）
type RawMarket struct {
	MarketID      FlexString      `json:"marketId"`
	MarketIDSnake FlexString      `json:"market_id"`
	AltID         FlexString      `json:"id"`
	MarketTitle   string          `json:"marketTitle"`
	Title         string          `json:"title"`
	ParentEvent   *RawParentEvent `json:"parentEvent"`
	ParentEventID FlexString      `json:"parentEventId"`
	Rules         string          `json:"rules"`
	Rule          string          `json:"rule"`
	Description   string          `json:"description"`
	StatusEnum    string          `json:"statusEnum"`
	ResolvedAt    FlexEpoch       `json:"resolvedAt"`
	CutoffAt      FlexEpoch       `json:"cutoffAt"`
	Volume        *float64        `json:"volume"`
	VolumeUsd     *float64        `json:"volumeUsd"`
	Volume24h     *float64        `json:"volume24h"`
	TotalVolume   *float64        `json:"totalVolume"`
	Liquidity     *float64        `json:"liquidity"`
	YesLabel      *string         `json:"yesLabel"`
	NoLabel       *string         `json:"noLabel"`
	YesTokenID    string          `json:"yesTokenId"`
	NoTokenID     string          `json:"noTokenId"`
	ChildMarkets  []RawMarket     `json:"childMarkets"`
}

// EffectiveID 优先取规范市场ID字段。部分响应里 id 指向父事件分组ID，
// 不是每个可交易市场唯一，放在最后兜底。
func (m *RawMarket) EffectiveID() string {
	for _, v := range []string{m.MarketID.String(), m.MarketIDSnake.String(), m.AltID.String()} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// EffectiveTitle 优先 marketTitle，回退 title
func (m *RawMarket) EffectiveTitle() string {
	if t := strings.TrimSpace(m.MarketTitle); t != "" {
		return t
	}
	return strings.TrimSpace(m.Title)
}

// ParentEventMarketID 内嵌父事件的事件市场ID（无则空串）
func (m *RawMarket) ParentEventMarketID() string {
	if m.ParentEvent == nil {
		return ""
	}
	return strings.TrimSpace(m.ParentEvent.EventMarketID.String())
}

// ParentEventTitle 内嵌父事件标题（无则空串）
func (m *RawMarket) ParentEventTitle() string {
	if m.ParentEvent == nil {
		return ""
	}
	return strings.TrimSpace(m.ParentEvent.Title)
}

// RulesText 结算规则文本：rules > rule > description
func (m *RawMarket) RulesText() string {
	for _, v := range []string{m.Rules, m.Rule, m.Description} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// VolumeValue 按字段优先级取交易量，全部缺失返回 0
func (m *RawMarket) VolumeValue() float64 {
	for _, v := range []*float64{m.Volume, m.VolumeUsd, m.Volume24h, m.TotalVolume, m.Liquidity} {
		if v != nil {
			return *v
		}
	}
	return 0
}

// ParentEventDetail wrap-events 接口返回的父事件详情
type ParentEventDetail struct {
	CutoffAt   FlexEpoch   `json:"cutoffAt"`
	StatusEnum string      `json:"statusEnum"`
	ResolvedAt FlexEpoch   `json:"resolvedAt"`
	Title      string      `json:"title"`
	SubMarkets []SubMarket `json:"subMarkets,omitempty"`
}
