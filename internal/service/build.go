package service

import (
	"context"
	"fmt"
	"time"

	"OpinionMatch/internal/adapter/opinion"
	"OpinionMatch/internal/builder"
	"OpinionMatch/internal/config"
	"OpinionMatch/internal/interfaces"
	"OpinionMatch/internal/keyword"
	"OpinionMatch/internal/model"
	"OpinionMatch/internal/provider"
	"OpinionMatch/internal/repository"
	"OpinionMatch/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// BuildService 索引构建服务：拉取市场 -> 聚合增强 -> 写出快照
type BuildService struct {
	cfg     *config.Config
	logger  *logrus.Logger
	source  interfaces.MarketSource
	repo    interfaces.SnapshotRepository
	builder *builder.Builder
}

func NewBuildService(cfg *config.Config, logger *logrus.Logger) *BuildService {
	source := opinion.NewOpinionAdapter(&cfg.Source, logger)
	repo := repository.NewSnapshotRepository(
		cfg.Build.OutputPath,
		cfg.Build.PreviousDataURL,
		httpclient.NewHTTPClient(cfg.Source.Proxy, cfg.Source.Timeout, logger),
		logger,
	)

	var kp provider.KeywordProvider
	modelName := cfg.AI.Model
	if cfg.AI.APIKey != "" {
		glm := provider.NewGLM(
			cfg.AI.BaseURL, cfg.AI.Model, cfg.AI.APIKey, cfg.AI.RetryCount,
			httpclient.NewHTTPClient(cfg.AI.Proxy, cfg.AI.Timeout, logger),
			logger,
		)
		kp = glm
		modelName = glm.Model()
	} else {
		logger.Warn("未配置 GLM_KEY：新事件将使用确定性降级关键词")
	}

	b := builder.NewBuilder(
		&cfg.Build, kp, modelName,
		keyword.NewValidator(keyword.NewDefaultLexicon()),
		time.Duration(cfg.AI.SleepMS)*time.Millisecond,
		logger,
	)
	return &BuildService{cfg: cfg, logger: logger, source: source, repo: repo, builder: b}
}

// LoadSnapshot 读取已有快照（服务启动时预热匹配器用）
func (s *BuildService) LoadSnapshot(ctx context.Context) *model.Data {
	return s.repo.LoadPrevious(ctx)
}

// RunBuild 执行一次完整构建并落盘
func (s *BuildService) RunBuild(ctx context.Context) (*model.Data, error) {
	start := time.Now()
	previous := s.repo.LoadPrevious(ctx)

	rawMarkets, err := s.source.FetchMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("拉取市场列表失败: %w", err)
	}
	flat := builder.Flatten(rawMarkets)
	s.logger.WithFields(logrus.Fields{
		"roots":     len(rawMarkets),
		"flattened": len(flat),
	}).Info("市场列表拉取完成")

	// 父事件详情是增强数据，拉取失败不阻塞构建
	parents, err := s.source.FetchParentEvents(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("父事件详情拉取失败")
		parents = map[string]model.ParentEventDetail{}
	}

	data, err := s.builder.Build(ctx, flat, parents, previous)
	if err != nil {
		return nil, fmt.Errorf("构建索引失败: %w", err)
	}
	if err := s.repo.Save(data); err != nil {
		return nil, fmt.Errorf("写出快照失败: %w", err)
	}

	c := data.Meta.Counts
	s.logger.WithFields(logrus.Fields{
		"seen":     c.Seen,
		"kept":     c.Kept,
		"events":   c.Events,
		"markets":  c.Markets,
		"keywords": c.Keywords,
		"reused":   c.AI.Reused,
		"calls":    c.AI.Calls,
		"fallback": c.AI.Fallback,
		"errors":   c.AI.Errors,
		"elapsed":  time.Since(start).Round(time.Millisecond).String(),
	}).Info("索引构建完成")
	return data, nil
}
