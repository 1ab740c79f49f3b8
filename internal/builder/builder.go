// Package builder 把原始市场节点聚合成事件桶，决定复用或重新生成增强结果，
// 并产出事件/市场映射与两套倒排索引。
package builder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"OpinionMatch/internal/config"
	"OpinionMatch/internal/keyword"
	"OpinionMatch/internal/model"
	"OpinionMatch/internal/provider"
	"OpinionMatch/internal/signature"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// 单事件聚合上限：展示选项20个，签名选项500个
const (
	maxOptionTitles    = 20
	maxOptionTitlesAll = 500
	statusActivated    = "Activated"
	statusResolved     = "Resolved"
)

type Builder struct {
	cfg       *config.BuildConfig
	provider  provider.KeywordProvider // nil 表示未配置密钥
	modelName string
	validator *keyword.Validator
	logger    *logrus.Logger
	sleep     time.Duration
	now       func() time.Time // 测试时可替换
}

func NewBuilder(cfg *config.BuildConfig, p provider.KeywordProvider, modelName string, v *keyword.Validator, sleep time.Duration, logger *logrus.Logger) *Builder {
	return &Builder{
		cfg:       cfg,
		provider:  p,
		modelName: modelName,
		validator: v,
		logger:    logger,
		sleep:     sleep,
		now:       time.Now,
	}
}

// eventBucket 单次构建中一个事件的聚合状态
type eventBucket struct {
	eventID         string
	title           string
	marketIDs       []string
	optionTitles    []string // 展示用
	optionTitlesAll []string // 签名用
	optionSeen      map[string]bool
	rulesBest       string
	bestMarketID    string
	bestVolume      float64
	bestLabels      *model.Labels
}

// Build 执行一次完整构建。previous 为上一版快照（可为 nil = 全量）。
// 单个事件的增强失败不会中断整次构建，只记入计数器。
func (b *Builder) Build(ctx context.Context, markets []model.RawMarket, parents map[string]model.ParentEventDetail, previous *model.Data) (*model.Data, error) {
	nowEpoch := b.now().Unix()

	var prevEvents map[string]*model.Event
	var prevMarkets map[string]*model.Market
	if previous != nil && !b.cfg.FullRefresh {
		prevEvents = previous.Events
		prevMarkets = previous.Markets
	}
	onlyNew := len(prevEvents) > 0 && len(prevMarkets) > 0

	policy := Policy{
		OnlyNew:     onlyNew && b.cfg.OnlyAIForNew,
		FullRefresh: b.cfg.FullRefresh,
		SkipAI:      b.cfg.SkipAI,
		HasProvider: b.provider != nil,
		AllowLegacy: true,
	}

	eventsOut := make(map[string]*model.Event)
	marketsOut := make(map[string]*model.Market)
	if onlyNew {
		// 增量模式：以旧快照为底，新数据在其上叠加。
		// 旧记录按值拷贝，previous 在整次构建中保持只读。
		for id, e := range prevEvents {
			cp := *e
			eventsOut[id] = &cp
		}
		for id, m := range prevMarkets {
			cp := *m
			marketsOut[id] = &cp
		}
	}

	counts := model.Counts{}
	counts.AI.PreviousLoaded = previous != nil
	counts.AI.FullRefresh = b.cfg.FullRefresh
	counts.AI.OnlyNew = policy.OnlyNew

	buckets := make(map[string]*eventBucket)
	var bucketOrder []string
	resolvedEventIDs := make(map[string]bool)
	currentAPIEventIDs := make(map[string]bool)
	pseudoParentIDs := make(map[string]bool)
	duplicateIDs := 0

	titlePrefixes := b.cfg.TitleFilterPrefixes
	if titlePrefixes == nil {
		// 已知脏数据：该系列市场的 cutoffAt 错填到下一年
		titlePrefixes = []string{"Bitcoin above ... on "}
	}

	for i := range markets {
		m := &markets[i]
		counts.Seen++
		if b.cfg.MaxMarkets > 0 && counts.Kept >= b.cfg.MaxMarkets {
			break
		}

		marketID := m.EffectiveID()
		parentTitle := m.ParentEventTitle()
		eventID := m.ParentEventMarketID()
		if eventID == "" {
			eventID = strings.TrimSpace(m.ParentEventID.String())
		}
		if eventID == "" {
			eventID = marketID
		}
		// 子市场（多选事件的选项）不单独触发事件下线
		isChild := strings.TrimSpace(m.ParentEventID.String()) != "" && marketID != eventID

		if eventID != "" && onlyNew {
			currentAPIEventIDs[eventID] = true
		}

		if m.StatusEnum != statusActivated {
			counts.Skipped.StatusEnum++
			if eventID != "" && onlyNew && !isChild {
				resolvedEventIDs[eventID] = true
			}
			continue
		}
		if isChild {
			if detail, ok := parents[eventID]; ok && detail.StatusEnum == statusResolved {
				counts.Skipped.StatusEnum++
				if onlyNew {
					resolvedEventIDs[eventID] = true
				}
				continue
			}
		}

		if sec, ok := m.ResolvedAt.Seconds(); ok && sec > 0 {
			counts.Skipped.Resolved++
			if eventID != "" && onlyNew && !isChild {
				resolvedEventIDs[eventID] = true
			}
			continue
		}

		cutoff, cutoffOK := m.CutoffAt.Seconds()
		if !cutoffOK && m.CutoffAt.IsZero() {
			// 子市场的 cutoffAt 常为 0，回退到父事件的截止时间
			if detail, ok := parents[eventID]; ok {
				if pc, pok := detail.CutoffAt.Seconds(); pok && pc > 0 {
					cutoff, cutoffOK = pc, true
				}
			}
		}
		if !cutoffOK {
			if m.CutoffAt.IsZero() {
				counts.Skipped.CutoffZeroKept++
			} else {
				counts.Skipped.CutoffMissingInvalid++
				continue
			}
		} else if cutoff <= nowEpoch {
			counts.Skipped.CutoffExpired++
			if eventID != "" && onlyNew && !isChild {
				resolvedEventIDs[eventID] = true
			}
			continue
		}

		if marketID == "" {
			counts.Skipped.MissingID++
			continue
		}
		title := m.EffectiveTitle()
		if title == "" {
			counts.Skipped.MissingTitle++
			continue
		}

		eventTitle := parentTitle
		if eventTitle == "" {
			eventTitle = title
		}
		if hasAnyPrefix(eventTitle, titlePrefixes) {
			counts.Skipped.TitleFiltered++
			if eventID != "" && onlyNew {
				resolvedEventIDs[eventID] = true
			}
			continue
		}

		counts.Kept++

		volume := m.VolumeValue()
		url := b.marketURL(eventID)
		var optionTitle string
		if parentTitle != "" {
			optionTitle = title
		}

		// 事件即对外的主"市场"：子选项不单独成条，全部聚合到 eventID
		if existing, ok := marketsOut[eventID]; ok {
			duplicateIDs++
			if m.YesTokenID != "" {
				existing.YesTokenID = m.YesTokenID
			}
			if m.NoTokenID != "" {
				existing.NoTokenID = m.NoTokenID
			}
			existing.URL = url
		} else {
			marketsOut[eventID] = &model.Market{
				Title:      eventTitle,
				URL:        url,
				YesTokenID: m.YesTokenID,
				NoTokenID:  m.NoTokenID,
				Labels:     &model.Labels{},
			}
		}

		bucket, ok := buckets[eventID]
		if !ok {
			bucket = &eventBucket{
				eventID:      eventID,
				title:        eventTitle,
				optionSeen:   make(map[string]bool),
				bestMarketID: marketID,
				bestVolume:   volume,
			}
			buckets[eventID] = bucket
			bucketOrder = append(bucketOrder, eventID)
		}
		bucket.marketIDs = append(bucket.marketIDs, marketID)
		if optionTitle != "" && !bucket.optionSeen[optionTitle] {
			bucket.optionSeen[optionTitle] = true
			if len(bucket.optionTitles) < maxOptionTitles {
				bucket.optionTitles = append(bucket.optionTitles, optionTitle)
			}
			if len(bucket.optionTitlesAll) < maxOptionTitlesAll {
				bucket.optionTitlesAll = append(bucket.optionTitlesAll, optionTitle)
			}
		}
		if rules := m.RulesText(); len(rules) > len(bucket.rulesBest) {
			bucket.rulesBest = rules
		}
		if volume >= bucket.bestVolume {
			bucket.bestMarketID = marketID
			bucket.bestVolume = volume
			bucket.bestLabels = &model.Labels{YesLabel: m.YesLabel, NoLabel: m.NoLabel}
		}

		// 旧市场在增量模式下保持原值，只有新市场更新交易量/标签
		if out, ok := marketsOut[eventID]; ok {
			if _, existed := prevMarkets[eventID]; !(policy.OnlyNew && existed) {
				if volume > out.Volume {
					out.Volume = volume
				}
				if bucket.bestMarketID == marketID {
					out.Labels = &model.Labels{YesLabel: m.YesLabel, NoLabel: m.NoLabel}
				}
			}
		}
	}

	if duplicateIDs > 0 {
		b.logger.WithFields(logrus.Fields{
			"duplicates": duplicateIDs,
			"kept":       counts.Kept,
		}).Debug("聚合时遇到重复的事件市场ID")
	}

	// 逐事件增强
	processed := 0
	for _, eventID := range bucketOrder {
		if b.cfg.MaxEvents > 0 && processed >= b.cfg.MaxEvents {
			break
		}
		bucket := buckets[eventID]

		// 只处理真父事件与独立二元市场；其余桶是子市场的错误分组
		isTrueParent, isPseudo := classifyParent(eventID, parents)
		if isPseudo {
			pseudoParentIDs[eventID] = true
			continue
		}
		isIndependentBinary := len(bucket.marketIDs) == 1 && eventID == bucket.marketIDs[0] && !isTrueParent
		if !isTrueParent && !isIndependentBinary {
			continue
		}

		processed++
		if processed%10 == 0 {
			b.logger.WithField("events", processed).Info("事件增强进度")
		}

		if err := b.enrichEvent(ctx, bucket, isTrueParent, prevEvents, policy, eventsOut, marketsOut, &counts.AI); err != nil {
			// 只有 ctx 取消才会走到这里；单事件失败都在 enrichEvent 内部降级
			return nil, err
		}
	}

	// 伪父事件（被包装成事件的二元市场）只保留在 markets 中
	for id := range pseudoParentIDs {
		delete(eventsOut, id)
	}
	// 已结算/过期/被过滤的事件整体下线
	for id := range resolvedEventIDs {
		delete(eventsOut, id)
		delete(marketsOut, id)
	}
	// 增量模式下，源接口不再返回的事件视为消失
	if onlyNew && len(currentAPIEventIDs) > 0 {
		for id := range eventsOut {
			if !currentAPIEventIDs[id] {
				delete(eventsOut, id)
				delete(marketsOut, id)
			}
		}
	}

	b.markMarketTypes(marketsOut, parents)

	// 倒排索引永远从最终映射重建，不允许残留半次构建的状态
	data := &model.Data{
		Events:     eventsOut,
		Markets:    marketsOut,
		Index:      buildMarketIndex(marketsOut),
		EventIndex: buildEventIndex(eventsOut),
	}

	counts.Markets = len(marketsOut)
	counts.Events = len(eventsOut)
	counts.Keywords = len(data.Index)
	data.Meta = model.Meta{
		GeneratedAt: b.now().In(time.FixedZone("UTC+8", 8*3600)).Format("2006-01-02 15:04:05 UTC+8"),
		RunID:       uuid.NewString(),
		Source:      "opinion",
		Model:       b.modelName,
		Counts:      counts,
	}
	return data, nil
}

// enrichEvent 为单个事件桶决定复用/生成/降级路径并写入输出。
// 除 ctx 取消外不返回错误。
func (b *Builder) enrichEvent(ctx context.Context, bucket *eventBucket, isTrueParent bool, prevEvents map[string]*model.Event, policy Policy, eventsOut map[string]*model.Event, marketsOut map[string]*model.Market, stats *model.AIStats) error {
	eventID := bucket.eventID
	title := bucket.title
	if title == "" {
		title = eventID
	}

	rulesText := bucket.rulesBest
	if len(bucket.optionTitles) > 0 {
		rulesText = strings.TrimSpace(rulesText + "\n\nOptions: " + strings.Join(bucket.optionTitles, ", "))
	}
	sigCore := signature.Core(title, bucket.rulesBest)
	sigFull := signature.Full(title, bucket.marketIDs, bucket.optionTitlesAll, bucket.rulesBest)

	prev := prevEvents[eventID]
	state := Decide(title, sigCore, sigFull, prev, policy)

	if state == StateSeeded {
		// 旧记录原样保留（构建开始时已拷入输出）
		stats.Reused++
		return ctx.Err()
	}
	if policy.OnlyNew && prev != nil && len(prev.EntityGroups) == 0 {
		stats.RegeneratedEmptyGroups++
		b.logger.WithField("eventId", eventID).Debug("旧记录实体组为空，强制重新生成")
	}

	var keywords, entities []string
	var entityGroups [][]string
	reused := false
	calledProvider := false

	switch state {
	case StateSignatureMatch, StateLegacyMatch:
		keywords = append(keywords, prev.Keywords...)
		entities = append(entities, prev.Entities...)
		for _, g := range prev.EntityGroups {
			entityGroups = append(entityGroups, append([]string(nil), g...))
		}
		reused = true
		stats.Reused++
	case StateFallback:
		if policy.SkipAI && prev == nil {
			stats.SkippedNew++
		}
		stats.Fallback++
		keywords = keyword.FallbackKeywords(title, bucket.optionTitles, rulesText, 0)
		entityGroups = b.validator.FallbackEntityGroups(title)
	case StateRegenerate:
		calledProvider = true
		stats.Calls++
		result, err := b.generateWithRetry(ctx, eventID, title, rulesText, bucket, stats)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			stats.Errors++
			stats.Fallback++
			b.logger.WithError(err).WithField("eventId", eventID).Warn("生成失败，使用降级关键词")
			keywords = keyword.FallbackKeywords(title, bucket.optionTitles, rulesText, 0)
			entityGroups = b.validator.FallbackEntityGroups(title)
		} else {
			keywords = result.Keywords
			entities = result.Entities
			entityGroups = result.EntityGroups
		}
	}

	if len(keywords) == 0 {
		stats.Empty++
	} else {
		stats.NonEmpty++
	}

	// 无论走哪条路径都补充标题 n-gram，短推文也能命中长标题事件
	for _, s := range keyword.TitleNGrams(title, 0) {
		if !containsString(keywords, s) {
			keywords = append(keywords, s)
		}
	}

	var normalized []string
	for _, kw := range keywords {
		if nkw := keyword.Normalize(kw); nkw != "" && !containsString(normalized, nkw) {
			normalized = append(normalized, nkw)
		}
	}

	allow := keyword.AllowTermsFromTitle(title)
	normalizedGroups := b.validator.NormalizeEntityGroups(entityGroups, title, allow, 0, 0)
	if len(normalizedGroups) == 0 && len(entities) > 0 {
		// 旧格式：平铺 entities 视为单词组的 AND
		normalizedGroups = b.validator.NormalizeEntityGroups(keyword.SingletonGroups(entities), title, allow, 0, 0)
	}
	normalizedEntities := keyword.CanonicalEntities(normalizedGroups)

	if isTrueParent {
		eventsOut[eventID] = &model.Event{
			Title:        title,
			MarketIDs:    []string{eventID},
			BestMarketID: eventID,
			BestLabels:   bucket.bestLabels,
			Keywords:     normalized,
			Entities:     normalizedEntities,
			EntityGroups: normalizedGroups,
			SigCore:      sigCore,
			SigFull:      sigFull,
			Reused:       reused,
		}
	}
	if out, ok := marketsOut[eventID]; ok {
		out.Keywords = normalized
		out.Entities = normalizedEntities
		out.EntityGroups = normalizedGroups
		if bucket.bestLabels != nil {
			out.Labels = bucket.bestLabels
		}
	}

	// 生成调用后的限速休眠，复用/降级路径不休眠
	if calledProvider && b.sleep > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.sleep):
		}
	}
	return ctx.Err()
}

// generateWithRetry 调用生成器一次；若实体组全部未通过校验，
// 带着被拒绝的词再试恰好一次，第二次的结果无论好坏都接受。
func (b *Builder) generateWithRetry(ctx context.Context, eventID, title, rulesText string, bucket *eventBucket, stats *model.AIStats) (provider.Result, error) {
	pctx := provider.Context{
		EventID:       eventID,
		BestMarketID:  bucket.bestMarketID,
		BestMarketURL: b.marketURL(bucket.bestMarketID),
	}
	b.logger.WithFields(logrus.Fields{
		"eventId": eventID,
		"title":   keyword.Truncate(title, 160),
	}).Info("生成实体与关键词")

	result, err := b.provider.Generate(ctx, title, rulesText, pctx)
	if err != nil {
		return provider.Result{}, err
	}
	result.EntityGroups = b.validator.Lexicon().AugmentEntityGroups(result.EntityGroups)

	allow := keyword.AllowTermsFromTitle(title)
	if len(b.validator.NormalizeEntityGroups(result.EntityGroups, title, allow, 0, 0)) > 0 {
		return result, nil
	}

	badTerms := b.validator.CollectInvalidTerms(result.EntityGroups, result.Entities, title, allow)
	stats.Retries++
	b.logger.WithFields(logrus.Fields{
		"eventId": eventID,
		"avoid":   badTerms,
	}).Warn("实体组校验失败，带拒绝词重试一次")

	pctx.AvoidTerms = badTerms
	retry, err := b.provider.Generate(ctx, title, rulesText, pctx)
	if err != nil {
		// 首次结果仍可用（关键词有效，实体组为空）
		return result, nil
	}
	if len(retry.Keywords) == 0 {
		retry.Keywords = result.Keywords
	}
	if len(retry.Entities) == 0 {
		retry.Entities = result.Entities
	}
	retry.EntityGroups = b.validator.Lexicon().AugmentEntityGroups(retry.EntityGroups)
	return retry, nil
}

// classifyParent 按父事件详情区分真父事件与伪父事件。
// 伪父事件 = 只有一个子市场且子市场ID等于事件ID（二元市场被包装成事件）。
func classifyParent(eventID string, parents map[string]model.ParentEventDetail) (isTrueParent, isPseudo bool) {
	detail, ok := parents[eventID]
	if !ok {
		return false, false
	}
	subs := detail.SubMarkets
	switch {
	case len(subs) > 1:
		return true, false
	case len(subs) == 1 && subs[0].MarketID != eventID:
		return true, false
	case len(subs) == 1 && subs[0].MarketID == eventID:
		return false, true
	}
	return false, false
}

// markMarketTypes 标注二元/多选类型；多选市场带上子市场列表
func (b *Builder) markMarketTypes(marketsOut map[string]*model.Market, parents map[string]model.ParentEventDetail) {
	for id, m := range marketsOut {
		detail, ok := parents[id]
		if ok {
			subs := detail.SubMarkets
			if len(subs) > 1 || (len(subs) == 1 && subs[0].MarketID != id) {
				m.Type = model.MarketTypeMulti
				m.SubMarkets = subs
				continue
			}
		}
		m.Type = model.MarketTypeBinary
	}
}

func buildMarketIndex(markets map[string]*model.Market) model.InvertedIndex {
	idx := make(map[string]map[string]bool)
	for id, m := range markets {
		addTerms(idx, id, m.Keywords, m.EntityGroups)
	}
	return finalizeIndex(idx)
}

func buildEventIndex(events map[string]*model.Event) model.InvertedIndex {
	idx := make(map[string]map[string]bool)
	for id, e := range events {
		addTerms(idx, id, e.Keywords, e.EntityGroups)
	}
	return finalizeIndex(idx)
}

func addTerms(idx map[string]map[string]bool, id string, keywords []string, groups [][]string) {
	add := func(term string) {
		nt := keyword.Normalize(term)
		if nt == "" {
			return
		}
		if idx[nt] == nil {
			idx[nt] = make(map[string]bool)
		}
		idx[nt][id] = true
	}
	for _, kw := range keywords {
		add(kw)
	}
	for _, group := range groups {
		for _, term := range group {
			add(term)
		}
	}
}

func finalizeIndex(idx map[string]map[string]bool) model.InvertedIndex {
	out := make(model.InvertedIndex, len(idx))
	for term, ids := range idx {
		sorted := make([]string, 0, len(ids))
		for id := range ids {
			sorted = append(sorted, id)
		}
		sort.Strings(sorted)
		out[term] = sorted
	}
	return out
}

func (b *Builder) marketURL(id string) string {
	if id == "" {
		return ""
	}
	base := b.cfg.FrontendBaseURL
	if base == "" {
		base = "https://app.opinion.trade"
	}
	url := fmt.Sprintf("%s/market/%s", strings.TrimRight(base, "/"), id)
	if ref := b.cfg.RefParam; ref != "" {
		url += "?ref=" + ref
	}
	return url
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
