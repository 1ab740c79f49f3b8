package model

// Labels 市场的 yes/no 展示标签（可能缺失）
type Labels struct {
	YesLabel *string `json:"yesLabel"`
	NoLabel  *string `json:"noLabel"`
}

// Event 聚合后的事件（一个事件可包含多个子市场/选项）
type Event struct {
	Title        string     `json:"title"`
	MarketIDs    []string   `json:"marketIds"`
	BestMarketID string     `json:"bestMarketId"`
	BestLabels   *Labels    `json:"bestLabels,omitempty"`
	Keywords     []string   `json:"keywords"`
	Entities     []string   `json:"entities"`     // 每个 OR 组的规范形式（组首词）
	EntityGroups [][]string `json:"entityGroups"` // AND-of-OR：组间 AND，组内 OR
	SigCore      string     `json:"sigCore,omitempty"`
	SigFull      string     `json:"sigFull,omitempty"`
	Reused       bool       `json:"reused"`
}

// SubMarket 多选市场的子市场投影
type SubMarket struct {
	MarketID   string `json:"marketId"`
	Title      string `json:"title"`
	YesTokenID string `json:"yesTokenId,omitempty"`
	NoTokenID  string `json:"noTokenId,omitempty"`
}

// 市场类型：binary（二元）/ multi（多选）
const (
	MarketTypeBinary = "binary"
	MarketTypeMulti  = "multi"
)

// Market 可直接查询的市场投影，携带所属事件的 keywords/entityGroups 副本
type Market struct {
	Title        string      `json:"title"`
	URL          string      `json:"url"`
	YesTokenID   string      `json:"yesTokenId,omitempty"`
	NoTokenID    string      `json:"noTokenId,omitempty"`
	Volume       float64     `json:"volume"`
	Labels       *Labels     `json:"labels,omitempty"`
	Type         string      `json:"type,omitempty"`
	SubMarkets   []SubMarket `json:"subMarkets,omitempty"`
	Keywords     []string    `json:"keywords,omitempty"`
	Entities     []string    `json:"entities,omitempty"`
	EntityGroups [][]string  `json:"entityGroups,omitempty"`
}

// InvertedIndex 规范化关键词/实体词 -> 排序去重后的事件或市场ID列表
type InvertedIndex map[string][]string

// SkippedCounts 构建期间各类跳过原因的计数
type SkippedCounts struct {
	StatusEnum           int `json:"statusEnum"`
	CutoffMissingInvalid int `json:"cutoff_missing_or_invalid"`
	CutoffExpired        int `json:"cutoff_expired"`
	CutoffZeroKept       int `json:"cutoff_zero_kept"`
	Resolved             int `json:"resolved"`
	MissingID            int `json:"missing_id"`
	MissingTitle         int `json:"missing_title"`
	TitleFiltered        int `json:"title_pattern_filtered"`
}

// AIStats 关键词生成（复用/调用/降级）统计
type AIStats struct {
	PreviousLoaded         bool `json:"previousLoaded"`
	FullRefresh            bool `json:"fullRefresh"`
	OnlyNew                bool `json:"onlyAiForNew"`
	Reused                 int  `json:"reused"`
	RegeneratedEmptyGroups int  `json:"regenerated_empty_entitygroups"`
	SkippedNew             int  `json:"skipped_new"`
	Calls                  int  `json:"calls"`
	Retries                int  `json:"retries"`
	Fallback               int  `json:"fallback"`
	Empty                  int  `json:"empty"`
	NonEmpty               int  `json:"non_empty"`
	Errors                 int  `json:"errors"`
}

// Counts 单次构建的汇总计数
type Counts struct {
	Seen     int           `json:"seen"`
	Kept     int           `json:"kept"`
	Markets  int           `json:"markets"`
	Keywords int           `json:"keywords"`
	Events   int           `json:"events"`
	Skipped  SkippedCounts `json:"skipped"`
	AI       AIStats       `json:"ai"`
}

// Meta 快照元信息
type Meta struct {
	GeneratedAt string `json:"generatedAt"`
	RunID       string `json:"runId"`
	Source      string `json:"source"`
	Model       string `json:"model"`
	Counts      Counts `json:"counts"`
}

// Data 完整快照：既是构建输出，也是下次增量构建的可选输入
type Data struct {
	Meta       Meta               `json:"meta"`
	Events     map[string]*Event  `json:"events"`
	Markets    map[string]*Market `json:"markets"`
	Index      InvertedIndex      `json:"index"`
	EventIndex InvertedIndex      `json:"eventIndex"`
}
