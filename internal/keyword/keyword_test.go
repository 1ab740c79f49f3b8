package keyword

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`  Rate   Cut  `, "rate cut"},
		{`"Kraken IPO"`, "kraken ipo"},
		{"BTC", "btc"},
		{"\t  \n", ""},
		{`"  spaced  "`, "spaced"},
		{"已经 规范化", "已经 规范化"},
	}
	for _, c := range cases {
		got := Normalize(c.in)
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
		// 规范化必须幂等
		if again := Normalize(got); again != got {
			t.Errorf("Normalize not idempotent: %q -> %q", got, again)
		}
	}
}

func TestSimpleTokenize(t *testing.T) {
	got := SimpleTokenize("Will $BTC hit 100k? btc/usdt and GPT-6!")
	want := []string{"will", "$btc", "hit", "100k", "btc/usdt", "and", "gpt-6"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate = %q, want unchanged", got)
	}
	// 限长落在多字节字符中间时，必须退到完整字符的边界
	title := "美联储会在三月降息吗"
	for max := 1; max < len(title); max++ {
		got := Truncate(title, max)
		if !utf8.ValidString(got) {
			t.Fatalf("Truncate(%q, %d) = %q splits a rune", title, max, got)
		}
		if !strings.HasSuffix(got, "...") {
			t.Fatalf("Truncate(%q, %d) = %q missing ellipsis", title, max, got)
		}
	}
	if got := Truncate("abc def", 4); got != "abc..." {
		t.Fatalf("Truncate = %q, want trailing space trimmed", got)
	}
}

func TestIsValidEntityTerm(t *testing.T) {
	v := NewValidator(NewDefaultLexicon())

	valid := []string{"binance", "cz", "kraken", "bank of japan", "changpeng zhao", "fed cut"}
	for _, term := range valid {
		if !v.IsValidEntityTerm(term) {
			t.Errorf("IsValidEntityTerm(%q) = false, want true", term)
		}
	}

	invalid := []string{
		"",                // 空
		"crypto",          // 固定停用词
		"teamai",          // 结果类 token
		"will trump win",  // 疑问词
		"march",           // 月份
		"before",          // 时间词
		"2025",            // 纯年份
		"50bps",           // 基点
		"jan15",           // 月+日
		"xi",              // 过短且不在放行表
		"rate",            // 泛化单词
		"best team",       // 全泛化多词
		"2025-03-01",      // 日期样式
		"one two three four five", // 超过 4 个 token
	}
	for _, term := range invalid {
		if v.IsValidEntityTerm(term) {
			t.Errorf("IsValidEntityTerm(%q) = true, want false", term)
		}
	}
}

func TestIsFromTitle(t *testing.T) {
	title := "Will CZ return to Binance before 2025?"
	allow := AllowTermsFromTitle(title)

	if !IsFromTitle("binance", title, allow) {
		t.Error("binance appears in the title")
	}
	if !IsFromTitle("changpeng zhao", title, allow) {
		t.Error("changpeng zhao is an allowed alias of cz")
	}
	if !IsFromTitle("赵长鹏", title, allow) {
		t.Error("CJK translations are exempt from substring provenance")
	}
	if IsFromTitle("solana", title, allow) {
		t.Error("a term absent from the title must be rejected")
	}
	// 压缩后子串判断：大小写与标点不影响溯源
	if !IsFromTitle("cz return", title, nil) {
		t.Error("compact substring check should ignore punctuation")
	}
}

func TestAllowTermsFromTitle(t *testing.T) {
	allow := AllowTermsFromTitle("Fed decision: will BTC moon?")
	for _, term := range []string{"fed", "fomc", "btc", "bitcoin"} {
		if !allow[term] {
			t.Errorf("allow[%q] = false, want true", term)
		}
	}
	if allow["binance"] {
		t.Error("binance is not mentioned in the title")
	}
}

func TestNormalizeEntityGroups(t *testing.T) {
	v := NewValidator(NewDefaultLexicon())
	title := "Will CZ return to Binance before 2025?"
	allow := AllowTermsFromTitle(title)

	groups := [][]string{
		{"CZ", "Changpeng Zhao", "cz", "2025"}, // 重复与年份被剔除
		{"Binance", "Solana"},                  // solana 无法溯源到标题
		{"kraken"},                             // 超出组数上限
	}
	got := v.NormalizeEntityGroups(groups, title, allow, 0, 0)
	want := [][]string{{"cz", "changpeng zhao"}, {"binance"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("groups = %v, want %v", got, want)
	}
}

func TestNormalizeEntityGroupsCapsTermsPerGroup(t *testing.T) {
	v := NewValidator(NewDefaultLexicon())
	title := "alpha beta gamma delta epsilon zeta"
	groups := [][]string{{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}}
	got := v.NormalizeEntityGroups(groups, title, nil, 0, 0)
	if len(got) != 1 || len(got[0]) != MaxTermsPerGroup {
		t.Fatalf("groups = %v, want a single group of %d terms", got, MaxTermsPerGroup)
	}
}

func TestCollectInvalidTerms(t *testing.T) {
	v := NewValidator(NewDefaultLexicon())
	title := "Will CZ return to Binance before 2025?"
	bad := v.CollectInvalidTerms(
		[][]string{{"solana", "binance"}},
		[]string{"will", "2025", "cz"},
		title, AllowTermsFromTitle(title),
	)
	want := []string{"solana", "will", "2025"}
	if !reflect.DeepEqual(bad, want) {
		t.Fatalf("invalid terms = %v, want %v", bad, want)
	}
}

func TestSingletonGroupsAndCanonicalEntities(t *testing.T) {
	groups := SingletonGroups([]string{"CZ", " Binance ", ""})
	want := [][]string{{"cz"}, {"binance"}}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("groups = %v, want %v", groups, want)
	}

	heads := CanonicalEntities([][]string{{"cz", "changpeng zhao"}, {"binance"}, {}, {"cz"}})
	if !reflect.DeepEqual(heads, []string{"cz", "binance"}) {
		t.Fatalf("heads = %v", heads)
	}
}

func TestAugmentEntityGroups(t *testing.T) {
	lex := NewDefaultLexicon()
	out := lex.AugmentEntityGroups([][]string{{"fed"}})
	if len(out) != 1 {
		t.Fatalf("augmentation must not create new groups, got %v", out)
	}
	has := func(term string) bool {
		for _, t := range out[0] {
			if t == term {
				return true
			}
		}
		return false
	}
	// 词典译名 + 别名都要进组
	for _, term := range []string{"fed", "美联储", "federal reserve", "fomc"} {
		if !has(term) {
			t.Errorf("augmented group missing %q: %v", term, out[0])
		}
	}
}

func TestFallbackKeywords(t *testing.T) {
	kws := FallbackKeywords("Will CZ return to Binance?", []string{"Yes", "No"}, "Resolves YES if CZ is CEO again.", 25)
	if len(kws) == 0 {
		t.Fatal("no fallback keywords produced")
	}
	if kws[0] != "will cz return to binance?" {
		t.Fatalf("normalized title must come first, got %q", kws[0])
	}
	joined := " " + strings.Join(kws, " ") + " "
	if !strings.Contains(joined, " binance ") {
		t.Fatalf("keywords = %v, want binance present", kws)
	}
	// 首位的标题短语自然含停用词，单词关键词里不允许出现
	for _, kw := range kws[1:] {
		if kw == "will" || kw == "the" || kw == "is" {
			t.Fatalf("stopwords must be filtered: %v", kws)
		}
	}
}

func TestFallbackKeywordsRespectsMax(t *testing.T) {
	long := strings.Repeat("alpha bravo charlie delta echo foxtrot golf hotel ", 4)
	kws := FallbackKeywords("title", nil, long, 5)
	// 首位的标题之外最多 max 个
	if len(kws) > 6 {
		t.Fatalf("len = %d, want <= 6", len(kws))
	}
}

func TestTitleNGrams(t *testing.T) {
	grams := TitleNGrams("Kraken IPO approved in 2026", 12)
	want := map[string]bool{"kraken ipo": true, "kraken ipo approved": true}
	for _, g := range grams {
		delete(want, g)
		if strings.Contains(" "+g+" ", " in ") {
			t.Fatalf("stopword leaked into n-gram %q", g)
		}
	}
	if len(want) > 0 {
		t.Fatalf("missing n-grams %v in %v", want, grams)
	}
}

func TestFallbackEntityGroups(t *testing.T) {
	v := NewValidator(NewDefaultLexicon())

	// 知名主题直接给别名组
	got := v.FallbackEntityGroups("Will TikTok be banned?")
	if !reflect.DeepEqual(got, [][]string{{"tiktok"}}) {
		t.Fatalf("groups = %v", got)
	}

	// 标题里同时出现两个已知标识时产出两组
	got = v.FallbackEntityGroups("Will CZ return to Binance before 2025?")
	if len(got) != 2 {
		t.Fatalf("groups = %v, want 2 groups", got)
	}
	flat := map[string]bool{}
	for _, g := range got {
		for _, term := range g {
			flat[term] = true
		}
	}
	if !flat["binance"] || !flat["cz"] {
		t.Fatalf("groups = %v, want binance and cz groups", got)
	}

	// 无已知标识时取特异度最高的标题候选
	got = v.FallbackEntityGroups("Kraken files confidential paperwork")
	if len(got) == 0 {
		t.Fatal("expected at least one guessed group")
	}

	if got := v.FallbackEntityGroups("   "); got != nil {
		t.Fatalf("empty title should yield nil, got %v", got)
	}
}
