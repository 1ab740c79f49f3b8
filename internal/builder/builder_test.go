package builder

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"OpinionMatch/internal/config"
	"OpinionMatch/internal/keyword"
	"OpinionMatch/internal/model"
	"OpinionMatch/internal/provider"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// fakeProvider 固定返回预设结果的生成器
type fakeProvider struct {
	calls   int
	results []provider.Result
	err     error
}

func (f *fakeProvider) Generate(_ context.Context, _, _ string, _ provider.Context) (provider.Result, error) {
	f.calls++
	if f.err != nil {
		return provider.Result{}, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx], nil
}

func rawMarketJSON(t *testing.T, js string) model.RawMarket {
	t.Helper()
	var m model.RawMarket
	if err := json.Unmarshal([]byte(js), &m); err != nil {
		t.Fatalf("unmarshal raw market: %v", err)
	}
	return m
}

func newTestBuilder(cfg *config.BuildConfig, p provider.KeywordProvider) *Builder {
	v := keyword.NewValidator(keyword.NewDefaultLexicon())
	b := NewBuilder(cfg, p, "test-model", v, 0, testLogger())
	b.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return b
}

func TestDecideStates(t *testing.T) {
	prevWithGroups := &model.Event{
		Title:        "Will CZ return to Binance before 2025?",
		EntityGroups: [][]string{{"cz"}, {"binance"}},
		SigCore:      "aaaaaaaa",
		SigFull:      "bbbbbbbb",
	}
	prevEmptyGroups := &model.Event{Title: prevWithGroups.Title, SigCore: "aaaaaaaa"}
	prevLegacy := &model.Event{Title: prevWithGroups.Title, EntityGroups: [][]string{{"cz"}}}

	cases := []struct {
		name   string
		prev   *model.Event
		policy Policy
		want   DecisionState
	}{
		{"seeded", prevWithGroups, Policy{OnlyNew: true, HasProvider: true}, StateSeeded},
		{"seeded ignores signatures", prevWithGroups, Policy{OnlyNew: true, HasProvider: true}, StateSeeded},
		{"signature match core", prevWithGroups, Policy{HasProvider: true}, StateSignatureMatch},
		{"legacy title match", prevLegacy, Policy{HasProvider: true, AllowLegacy: true}, StateLegacyMatch},
		{"legacy disallowed", prevLegacy, Policy{HasProvider: true}, StateRegenerate},
		{"empty groups force regenerate", prevEmptyGroups, Policy{OnlyNew: true, HasProvider: true}, StateRegenerate},
		{"full refresh ignores previous", prevWithGroups, Policy{OnlyNew: true, FullRefresh: true, HasProvider: true}, StateRegenerate},
		{"no provider falls back", nil, Policy{}, StateFallback},
		{"skip ai falls back", prevEmptyGroups, Policy{HasProvider: true, SkipAI: true}, StateFallback},
		{"new event regenerates", nil, Policy{HasProvider: true}, StateRegenerate},
	}
	for _, tc := range cases {
		got := Decide(prevWithGroups.Title, "aaaaaaaa", "cccccccc", tc.prev, tc.policy)
		if got != tc.want {
			t.Errorf("%s: Decide = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDecideSignatureMismatchRegenerates(t *testing.T) {
	prev := &model.Event{
		Title:        "old title",
		EntityGroups: [][]string{{"cz"}},
		SigCore:      "11111111",
		SigFull:      "22222222",
	}
	got := Decide("new title", "33333333", "44444444", prev, Policy{HasProvider: true, AllowLegacy: true})
	if got != StateRegenerate {
		t.Fatalf("Decide = %v, want regenerate on signature mismatch", got)
	}
}

func TestFlattenNestedMarkets(t *testing.T) {
	root := rawMarketJSON(t, `{
		"marketId": "parent",
		"title": "Parent",
		"childMarkets": [
			{"marketId": "c1", "title": "Child 1", "childMarkets": [{"marketId": "g1", "title": "Grand 1"}]},
			{"marketId": "c2", "title": "Child 2"}
		]
	}`)
	flat := Flatten([]model.RawMarket{root})
	var ids []string
	for i := range flat {
		ids = append(ids, flat[i].EffectiveID())
		if len(flat[i].ChildMarkets) != 0 {
			t.Errorf("flattened node %s still carries children", flat[i].EffectiveID())
		}
	}
	want := []string{"parent", "c1", "g1", "c2"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestFlattenDeepNesting(t *testing.T) {
	// 构造 10000 层嵌套，递归实现会在这里爆栈
	leaf := model.RawMarket{MarketID: "leaf", Title: "Leaf"}
	node := leaf
	for i := 0; i < 10000; i++ {
		node = model.RawMarket{ChildMarkets: []model.RawMarket{node}}
	}
	flat := Flatten([]model.RawMarket{node})
	if flat[len(flat)-1].EffectiveID() != "leaf" {
		t.Fatal("deep nesting lost the leaf node")
	}
}

func binaryMarket(t *testing.T, id, title string, cutoff int64) model.RawMarket {
	t.Helper()
	return rawMarketJSON(t, `{
		"marketId": "`+id+`",
		"title": "`+title+`",
		"statusEnum": "Activated",
		"cutoffAt": `+jsonInt(cutoff)+`,
		"volume": 100,
		"yesTokenId": "yt-`+id+`",
		"noTokenId": "nt-`+id+`",
		"rules": "Resolution rules for `+id+`."
	}`)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestBuildBinaryMarketEndToEnd(t *testing.T) {
	fp := &fakeProvider{results: []provider.Result{{
		Keywords:     []string{"CZ returns", "binance comeback"},
		EntityGroups: [][]string{{"cz", "changpeng zhao"}, {"binance"}},
	}}}
	cfg := &config.BuildConfig{}
	b := newTestBuilder(cfg, fp)

	markets := []model.RawMarket{
		binaryMarket(t, "m1", "Will CZ return to Binance before 2025?", 1_800_000_000),
	}
	data, err := b.Build(context.Background(), markets, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	m, ok := data.Markets["m1"]
	if !ok {
		t.Fatal("market m1 missing from output")
	}
	if m.Type != model.MarketTypeBinary {
		t.Fatalf("type = %q, want binary", m.Type)
	}
	if len(m.EntityGroups) != 2 {
		t.Fatalf("entityGroups = %v, want 2 validated groups", m.EntityGroups)
	}
	// 独立二元市场只进 markets，不进 events
	if _, ok := data.Events["m1"]; ok {
		t.Fatal("independent binary market must not appear in events")
	}
	if ids := data.Index["cz"]; len(ids) != 1 || ids[0] != "m1" {
		t.Fatalf("index[cz] = %v", ids)
	}
	if fp.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", fp.calls)
	}
}

func TestBuildSkipsExpiredAndFiltered(t *testing.T) {
	b := newTestBuilder(&config.BuildConfig{SkipAI: true}, nil)

	markets := []model.RawMarket{
		binaryMarket(t, "live", "Will ETH flip BTC?", 1_800_000_000),
		binaryMarket(t, "expired", "Expired market", 1_600_000_000),
		binaryMarket(t, "filtered", "Bitcoin above ... on December 25", 1_800_000_000),
		rawMarketJSON(t, `{"marketId":"resolved","title":"Done","statusEnum":"Resolved","cutoffAt":1800000000}`),
		rawMarketJSON(t, `{"marketId":"zero","title":"No cutoff yet","statusEnum":"Activated","cutoffAt":0,"volume":5}`),
	}
	data, err := b.Build(context.Background(), markets, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, ok := data.Markets["expired"]; ok {
		t.Fatal("expired market must be skipped")
	}
	if _, ok := data.Markets["filtered"]; ok {
		t.Fatal("title-filtered market must be skipped")
	}
	if _, ok := data.Markets["resolved"]; ok {
		t.Fatal("non-activated market must be skipped")
	}
	if _, ok := data.Markets["zero"]; !ok {
		t.Fatal("cutoffAt=0 market must be kept")
	}

	sk := data.Meta.Counts.Skipped
	if sk.CutoffExpired != 1 || sk.TitleFiltered != 1 || sk.StatusEnum != 1 || sk.CutoffZeroKept != 1 {
		t.Fatalf("skip counters = %+v", sk)
	}
}

func TestBuildMultiChoiceEvent(t *testing.T) {
	fp := &fakeProvider{results: []provider.Result{{
		Keywords:     []string{"super bowl winner"},
		EntityGroups: [][]string{{"super bowl"}},
	}}}
	b := newTestBuilder(&config.BuildConfig{}, fp)

	child1 := rawMarketJSON(t, `{
		"marketId": "opt1", "marketTitle": "Chiefs",
		"parentEvent": {"eventMarketId": "ev1", "title": "Super Bowl winner 2026"},
		"parentEventId": "ev1",
		"statusEnum": "Activated", "cutoffAt": 0, "volume": 10
	}`)
	child2 := rawMarketJSON(t, `{
		"marketId": "opt2", "marketTitle": "Eagles",
		"parentEvent": {"eventMarketId": "ev1", "title": "Super Bowl winner 2026"},
		"parentEventId": "ev1",
		"statusEnum": "Activated", "cutoffAt": 0, "volume": 30
	}`)
	parents := map[string]model.ParentEventDetail{
		"ev1": {
			Title:      "Super Bowl winner 2026",
			StatusEnum: "Activated",
			CutoffAt:   epochJSON(t, 1_800_000_000),
			SubMarkets: []model.SubMarket{
				{MarketID: "opt1", Title: "Chiefs"},
				{MarketID: "opt2", Title: "Eagles"},
			},
		},
	}

	data, err := b.Build(context.Background(), []model.RawMarket{child1, child2}, parents, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ev, ok := data.Events["ev1"]
	if !ok {
		t.Fatal("true parent event missing from events output")
	}
	if ev.Title != "Super Bowl winner 2026" {
		t.Fatalf("event title = %q", ev.Title)
	}
	m, ok := data.Markets["ev1"]
	if !ok {
		t.Fatal("event-level market entry missing")
	}
	if m.Type != model.MarketTypeMulti || len(m.SubMarkets) != 2 {
		t.Fatalf("market type = %q subMarkets = %v", m.Type, m.SubMarkets)
	}
	if ids := data.EventIndex["super bowl"]; len(ids) != 1 || ids[0] != "ev1" {
		t.Fatalf("eventIndex[super bowl] = %v", ids)
	}
	if fp.calls != 1 {
		t.Fatalf("provider calls = %d, want 1 per event bucket", fp.calls)
	}
}

func epochJSON(t *testing.T, v int64) model.FlexEpoch {
	t.Helper()
	var e model.FlexEpoch
	if err := json.Unmarshal([]byte(jsonInt(v)), &e); err != nil {
		t.Fatalf("unmarshal epoch: %v", err)
	}
	return e
}

func TestBuildSeedsFromPreviousSnapshot(t *testing.T) {
	fp := &fakeProvider{results: []provider.Result{{
		Keywords:     []string{"eth flip"},
		EntityGroups: [][]string{{"eth", "ethereum"}},
	}}}
	b := newTestBuilder(&config.BuildConfig{OnlyAIForNew: true}, fp)

	previous := &model.Data{
		Events: map[string]*model.Event{
			"old": {
				Title:        "Will BTC hit 100k?",
				Keywords:     []string{"btc 100k"},
				EntityGroups: [][]string{{"btc", "bitcoin"}},
			},
		},
		Markets: map[string]*model.Market{
			"old": {Title: "Will BTC hit 100k?", Keywords: []string{"btc 100k"}, EntityGroups: [][]string{{"btc", "bitcoin"}}},
		},
	}
	markets := []model.RawMarket{
		binaryMarket(t, "old", "Will BTC hit 100k?", 1_800_000_000),
		binaryMarket(t, "new", "Will ETH flip BTC this cycle?", 1_800_000_000),
	}
	data, err := b.Build(context.Background(), markets, nil, previous)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if fp.calls != 1 {
		t.Fatalf("provider calls = %d, want 1 (only the new event)", fp.calls)
	}
	if data.Meta.Counts.AI.Reused != 1 {
		t.Fatalf("reused = %d, want 1", data.Meta.Counts.AI.Reused)
	}
	if _, ok := data.Markets["old"]; !ok {
		t.Fatal("seeded market dropped")
	}
	if m, ok := data.Markets["new"]; !ok || len(m.EntityGroups) == 0 {
		t.Fatal("new market missing enrichment")
	}
}

func TestBuildRemovesEventsMissingFromAPI(t *testing.T) {
	b := newTestBuilder(&config.BuildConfig{OnlyAIForNew: true, SkipAI: true}, nil)
	previous := &model.Data{
		Events: map[string]*model.Event{
			"gone": {Title: "Old event", EntityGroups: [][]string{{"old"}}},
		},
		Markets: map[string]*model.Market{
			"gone": {Title: "Old event"},
		},
	}
	markets := []model.RawMarket{
		binaryMarket(t, "live", "Will ETH flip BTC?", 1_800_000_000),
	}
	data, err := b.Build(context.Background(), markets, nil, previous)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := data.Markets["gone"]; ok {
		t.Fatal("market absent from the latest fetch must be pruned")
	}
	if _, ok := data.Events["gone"]; ok {
		t.Fatal("event absent from the latest fetch must be pruned")
	}
	if _, ok := data.Index["old"]; ok {
		t.Fatal("index must be rebuilt without pruned entries")
	}
}

func TestBuildCorrectiveRetryWithAvoidList(t *testing.T) {
	// 第一次返回全是非法实体组，第二次修正
	fp := &fakeProvider{results: []provider.Result{
		{Keywords: []string{"cz back"}, EntityGroups: [][]string{{"2025", "will"}}},
		{Keywords: []string{"cz back"}, EntityGroups: [][]string{{"cz"}, {"binance"}}},
	}}
	b := newTestBuilder(&config.BuildConfig{}, fp)

	markets := []model.RawMarket{
		binaryMarket(t, "m1", "Will CZ return to Binance before 2025?", 1_800_000_000),
	}
	data, err := b.Build(context.Background(), markets, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if fp.calls != 2 {
		t.Fatalf("provider calls = %d, want 2 (one corrective retry)", fp.calls)
	}
	if data.Meta.Counts.AI.Retries != 1 {
		t.Fatalf("retries = %d, want 1", data.Meta.Counts.AI.Retries)
	}
	if got := data.Markets["m1"].EntityGroups; len(got) != 2 {
		t.Fatalf("entityGroups = %v, want the corrected groups", got)
	}
}

func TestBuildProviderErrorDegradesToFallback(t *testing.T) {
	fp := &fakeProvider{err: context.DeadlineExceeded}
	b := newTestBuilder(&config.BuildConfig{}, fp)

	markets := []model.RawMarket{
		binaryMarket(t, "m1", "Will CZ return to Binance before 2025?", 1_800_000_000),
	}
	data, err := b.Build(context.Background(), markets, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ai := data.Meta.Counts.AI
	if ai.Errors != 1 || ai.Fallback != 1 {
		t.Fatalf("ai counters = %+v", ai)
	}
	m := data.Markets["m1"]
	if len(m.Keywords) == 0 {
		t.Fatal("fallback keywords missing")
	}
	// 降级实体组猜测：标题里的 cz/binance 应成组
	if len(m.EntityGroups) == 0 {
		t.Fatal("fallback entity groups missing")
	}
}

func TestBuildEntityGroupProvenance(t *testing.T) {
	// 生成器"发明"了标题里不存在的实体，必须被丢弃
	fp := &fakeProvider{results: []provider.Result{
		{Keywords: []string{"eth flip"}, EntityGroups: [][]string{{"eth"}, {"solana"}}},
		{Keywords: []string{"eth flip"}, EntityGroups: [][]string{{"eth"}, {"solana"}}},
	}}
	b := newTestBuilder(&config.BuildConfig{}, fp)

	markets := []model.RawMarket{
		binaryMarket(t, "m1", "Will ETH flip BTC this cycle?", 1_800_000_000),
	}
	data, err := b.Build(context.Background(), markets, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, group := range data.Markets["m1"].EntityGroups {
		for _, term := range group {
			if term == "solana" {
				t.Fatal("invented entity must not survive provenance validation")
			}
		}
	}
}
