// Package opinion 拉取 Opinion 预测市场的市场与父事件数据。
package opinion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"OpinionMatch/internal/config"
	"OpinionMatch/internal/interfaces"
	"OpinionMatch/internal/model"
	"OpinionMatch/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

type Adapter struct {
	cfg        *config.SourceConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewOpinionAdapter(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.MarketSource {
	return &Adapter{
		cfg:        cfg,
		httpClient: httpclient.NewHTTPClient(cfg.Proxy, cfg.Timeout, logger),
		logger:     logger,
	}
}

func (a *Adapter) GetName() string {
	return "Opinion"
}

// marketsEnvelope 市场接口的响应外壳。接口历史上返回过裸数组、
// {"data": [...]} 与 {"list": [...]} 三种形态，全部兼容。
type marketsEnvelope struct {
	Data []model.RawMarket `json:"data"`
	List []model.RawMarket `json:"list"`
}

// FetchMarkets 拉取全量市场列表
func (a *Adapter) FetchMarkets(ctx context.Context) ([]model.RawMarket, error) {
	url := a.cfg.BaseURL + a.cfg.MarketsPath
	body, err := a.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("获取市场列表失败: %w", err)
	}

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var markets []model.RawMarket
		if err := json.Unmarshal(body, &markets); err != nil {
			return nil, fmt.Errorf("解析市场数组失败: %w", err)
		}
		return markets, nil
	}

	var env marketsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("解析市场响应失败: %w", err)
	}
	if env.Data != nil {
		return env.Data, nil
	}
	return env.List, nil
}

// eventsEnvelope 父事件接口（wrap-events）的响应外壳
type eventsEnvelope struct {
	Data []rawParentDetail `json:"data"`
	List []rawParentDetail `json:"list"`
}

type rawParentDetail struct {
	EventMarketID model.FlexString  `json:"eventMarketId"`
	Title         string            `json:"title"`
	StatusEnum    string            `json:"statusEnum"`
	CutoffAt      model.FlexEpoch   `json:"cutoffAt"`
	ResolvedAt    model.FlexEpoch   `json:"resolvedAt"`
	ChildMarkets  []model.RawMarket `json:"childMarkets"`
}

// FetchParentEvents 拉取父事件详情（截止时间/状态/子市场）。
// 该接口属于增强数据：失败时记警告并返回空表，不中断整次构建。
func (a *Adapter) FetchParentEvents(ctx context.Context) (map[string]model.ParentEventDetail, error) {
	details := make(map[string]model.ParentEventDetail)
	if a.cfg.EventsPath == "" {
		return details, nil
	}

	url := a.cfg.BaseURL + a.cfg.EventsPath
	body, err := a.get(ctx, url)
	if err != nil {
		a.logger.WithError(err).Warn("获取父事件详情失败，继续使用子市场自身字段")
		return details, nil
	}

	var items []rawParentDetail
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &items); err != nil {
			a.logger.WithError(err).Warn("解析父事件数组失败，继续使用子市场自身字段")
			return details, nil
		}
	} else {
		var env eventsEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			a.logger.WithError(err).Warn("解析父事件响应失败，继续使用子市场自身字段")
			return details, nil
		}
		items = env.Data
		if items == nil {
			items = env.List
		}
	}

	for _, item := range items {
		id := strings.TrimSpace(string(item.EventMarketID))
		if id == "" {
			continue
		}
		var subs []model.SubMarket
		for _, child := range item.ChildMarkets {
			cid := child.EffectiveID()
			if cid == "" {
				continue
			}
			subs = append(subs, model.SubMarket{
				MarketID:   cid,
				Title:      child.EffectiveTitle(),
				YesTokenID: child.YesTokenID,
				NoTokenID:  child.NoTokenID,
			})
		}
		details[id] = model.ParentEventDetail{
			Title:      item.Title,
			StatusEnum: item.StatusEnum,
			CutoffAt:   item.CutoffAt,
			ResolvedAt: item.ResolvedAt,
			SubMarkets: subs,
		}
	}
	return details, nil
}

// get 带线性退避的 GET，重试次数由配置决定（默认3）
func (a *Adapter) get(ctx context.Context, url string) ([]byte, error) {
	retries := a.cfg.RetryCount
	if retries <= 0 {
		retries = 3
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		body, err := a.once(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if attempt == retries {
			break
		}
		a.logger.WithError(err).WithFields(logrus.Fields{
			"url":     url,
			"attempt": attempt,
		}).Warn("请求失败，准备重试")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func (a *Adapter) once(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("状态码异常: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
