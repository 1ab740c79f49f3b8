package interfaces

import (
	"context"

	"OpinionMatch/internal/model"
)

// MarketSource 市场数据源必须实现的核心接口
type MarketSource interface {
	GetName() string                                                                   // 数据源名称
	FetchMarkets(ctx context.Context) ([]model.RawMarket, error)                       // 拉取全量市场
	FetchParentEvents(ctx context.Context) (map[string]model.ParentEventDetail, error) // 拉取父事件详情（失败降级为空表）
}

// SnapshotRepository 索引快照的读写接口
type SnapshotRepository interface {
	LoadPrevious(ctx context.Context) *model.Data // 读取上一版快照（缺失/损坏返回nil）
	Save(data *model.Data) error                  // 原子写出新快照
}
