package keyword

// Lexicon 词表配置：停用词、泛化词、别名与中英对照词典。
// 进程启动时构建一次，只读共享，不做运行时修改。
type Lexicon struct {
	// StopTerms 不允许作为实体词的固定词条（结果/机制类词汇、交易所名等）
	StopTerms map[string]bool
	// GenericTokens 单独出现时无识别力的泛化 token
	GenericTokens map[string]bool
	// Connectors 多词实体中允许出现的连接词（GenericTokens 的子集）
	Connectors map[string]bool
	// QuestionWords 疑问/助动词，出现在实体短语任何位置即拒绝
	QuestionWords map[string]bool
	// Months 月份全称与缩写
	Months map[string]bool
	// TimeWords 相对时间词（before/after/until 等）
	TimeWords map[string]bool
	// AllowShort 放行的短标识（不足3字符但有实际含义，如 cz）
	AllowShort map[string]bool
	// CommonMatchTerms 匹配阶段视为过于常见、单词命中不计分的词
	CommonMatchTerms map[string]bool
	// EntityTranslations 实体词 -> 已知中文译名（用于补充实体组）
	EntityTranslations map[string][]string
	// KeywordTranslations 普通关键词 -> 已知中文译名（仅精确匹配时补充）
	KeywordTranslations map[string][]string
	// Aliases 规范词 -> 常见别名/缩写（BOJ ↔ Bank of Japan 等）
	Aliases map[string][]string
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// NewDefaultLexicon 构建默认词表
func NewDefaultLexicon() *Lexicon {
	return &Lexicon{
		StopTerms: toSet(
			"crypto", "web3", "market", "markets", "team", "human", "ai",
			"teamai", "teamhuman", "humanvsai", "price", "defi", "token",
			"airdrop", "launch", "ipo", "tge", "fdv", "ath", "all time high",
			"rate decision", "fed rate decision", "interest rate",
			"interest rates", "rate cut", "rate hike", "yes", "no", "other",
			"resolution", "settlement", "settled", "increase", "decrease",
			"no change", "nochange", "unchanged", "hold", "winner", "champion",
			"acquire", "acquired", "acquirer", "acquisition", "buyout",
			"takeover", "closing", "close", "deal", "announced", "announce",
			"official", "announcement", "officialannouncement", "developer",
			"company", "brand", "investor", "buyer", "seller", "market cap",
			"marketcap", "valuation", "ticker", "exchange", "nasdaq", "nyse",
			"sec",
		),
		GenericTokens: toSet(
			"a", "an", "and", "are", "as", "at", "be", "by", "before",
			"after", "until", "till", "within", "end", "for", "from", "has",
			"have", "in", "is", "it", "of", "on", "or", "the", "to", "will",
			"with", "who", "which", "what", "winner", "champion", "best",
			"released", "release", "launch", "launched", "announced",
			"announce", "acquire", "acquired", "acquisition", "buyout",
			"takeover", "decision", "rate", "rates", "human", "ai", "team",
			"vs",
		),
		Connectors: toSet(
			"a", "an", "and", "of", "the", "to", "in", "on", "for", "at",
		),
		QuestionWords: toSet(
			"will", "who", "what", "which", "when", "where", "why", "how",
		),
		Months: toSet(
			"january", "february", "march", "april", "may", "june", "july",
			"august", "september", "october", "november", "december",
			"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept",
			"oct", "nov", "dec",
		),
		TimeWords: toSet(
			"before", "after", "until", "till", "by", "within",
		),
		// cz 是 X 上常见的两字母标识
		AllowShort: toSet("cz"),
		CommonMatchTerms: toSet(
			"crypto", "web3", "trade", "market", "price", "defi", "token",
			"wallet", "chain", "coin", "yield", "stake", "swap", "pool",
			"mint", "airdrop",
		),
		EntityTranslations: map[string][]string{
			"russia":          {"俄罗斯", "俄国"},
			"ukraine":         {"乌克兰"},
			"china":           {"中国"},
			"us":              {"美国", "美"},
			"united states":   {"美国"},
			"japan":           {"日本"},
			"south korea":     {"韩国"},
			"north korea":     {"朝鲜"},
			"taiwan":          {"台湾"},
			"iran":            {"伊朗"},
			"israel":          {"以色列"},
			"bitcoin":         {"比特币"},
			"btc":             {"比特币"},
			"ethereum":        {"以太坊"},
			"eth":             {"以太坊"},
			"solana":          {"索拉纳"},
			"xrp":             {"瑞波币"},
			"dogecoin":        {"狗狗币"},
			"fed":             {"美联储", "联储"},
			"federal reserve": {"美联储", "联邦储备"},
			"fomc":            {"美联储会议", "联储会议"},
			"sec":             {"美国证监会", "证监会"},
			"nato":            {"北约"},
			"trump":           {"川普", "特朗普"},
			"biden":           {"拜登"},
			"putin":           {"普京"},
			"zelensky":        {"泽连斯基"},
			"musk":            {"马斯克"},
			"elon musk":       {"马斯克", "埃隆马斯克"},
			"cz":              {"赵长鹏"},
			"changpeng zhao":  {"赵长鹏"},
			"vitalik":         {"v神", "维塔利克"},
			"apple":           {"苹果"},
			"microsoft":       {"微软"},
			"google":          {"谷歌"},
			"tesla":           {"特斯拉"},
			"nvidia":          {"英伟达"},
			"tiktok":          {"tiktok", "抖音"},
			"binance":         {"币安"},
			"coinbase":        {"coinbase"},
			"blackrock":       {"贝莱德"},
			"olympics":        {"奥运会", "奥运"},
			"world cup":       {"世界杯"},
			"super bowl":      {"超级碗"},
			"oscars":          {"奥斯卡"},
			"champions league": {"欧冠", "欧洲冠军联赛"},
		},
		KeywordTranslations: map[string][]string{
			"war":       {"战争", "战事"},
			"ceasefire": {"停火", "停战", "和平协议"},
			"election":  {"选举", "大选"},
			"president": {"总统"},
			"rate cut":  {"降息"},
			"rate hike": {"加息"},
			"inflation": {"通货膨胀", "通胀"},
			"recession": {"衰退", "经济衰退"},
			"tariff":    {"关税"},
			"ipo":       {"上市", "首次公开募股"},
			"all-time high": {"历史新高", "新高"},
			"acquisition":   {"收购", "并购"},
			"bankruptcy":    {"破产"},
			"championship":  {"冠军", "锦标赛"},
		},
		Aliases: map[string][]string{
			"bank of japan":   {"boj", "日银", "日本央行"},
			"boj":             {"bank of japan", "日银", "日本央行"},
			"federal reserve": {"fed", "fomc", "美联储", "联储"},
			"fed":             {"federal reserve", "fomc", "美联储", "联储"},
			"fomc":            {"fed", "federal reserve", "美联储"},
			"ecb":             {"european central bank", "欧洲央行"},
			"pboc":            {"people's bank of china", "中国人民银行", "央行"},
			"bitcoin":         {"btc", "比特币"},
			"btc":             {"bitcoin", "比特币"},
			"ethereum":        {"eth", "以太坊"},
			"eth":             {"ethereum", "以太坊"},
			"solana":          {"sol", "索拉纳"},
			"xrp":             {"ripple", "瑞波币"},
			"binance":         {"bnb", "币安"},
			"elon musk":       {"musk", "马斯克"},
			"musk":            {"elon musk", "马斯克"},
			"changpeng zhao":  {"cz", "赵长鹏"},
			"cz":              {"changpeng zhao", "赵长鹏"},
			"vitalik":         {"vitalik buterin", "v神"},
			"donald trump":    {"trump", "川普", "特朗普"},
			"trump":           {"donald trump", "川普", "特朗普"},
			"tesla":           {"tsla", "特斯拉"},
			"apple":           {"aapl", "苹果"},
			"nvidia":          {"nvda", "英伟达"},
			"google":          {"goog", "googl", "alphabet", "谷歌"},
			"meta":            {"fb", "facebook", "脸书"},
			"super bowl":      {"superbowl", "超级碗"},
			"world cup":       {"世界杯"},
			"champions league": {"ucl", "欧冠"},
			"olympics":         {"olympic games", "奥运会", "奥运"},
			"oscars":           {"academy awards", "奥斯卡"},
			"nato":             {"north atlantic treaty organization", "北约"},
		},
	}
}
