package service

import (
	"fmt"
	"sync"

	"OpinionMatch/internal/config"
	"OpinionMatch/internal/keyword"
	"OpinionMatch/internal/matcher"
	"OpinionMatch/internal/model"

	"github.com/sirupsen/logrus"
)

// MatchService 持有当前匹配器实例，构建完成后整体换入新快照
type MatchService struct {
	cfg    *config.MatchConfig
	logger *logrus.Logger
	lex    *keyword.Lexicon

	mu      sync.RWMutex
	matcher *matcher.Matcher
	meta    model.Meta
}

func NewMatchService(cfg *config.MatchConfig, logger *logrus.Logger) *MatchService {
	return &MatchService{
		cfg:    cfg,
		logger: logger,
		lex:    keyword.NewDefaultLexicon(),
	}
}

// Reload 用新快照重建匹配器并原子换入，查询方不感知切换
func (s *MatchService) Reload(data *model.Data) {
	if data == nil {
		return
	}
	m := matcher.New(data, s.lex, s.cfg.Threshold, s.cfg.TopN)

	s.mu.Lock()
	s.matcher = m
	s.meta = data.Meta
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"mode":      m.Mode(),
		"events":    len(data.Events),
		"markets":   len(data.Markets),
		"threshold": m.Threshold(),
	}).Info("匹配器已重载")
}

// Match 对文本打分，索引尚未加载时返回错误
func (s *MatchService) Match(text string) (matcher.MatchResult, error) {
	s.mu.RLock()
	m := s.matcher
	s.mu.RUnlock()

	if m == nil {
		return matcher.MatchResult{}, fmt.Errorf("索引尚未加载，请先触发一次构建")
	}
	return m.TopMatches(text), nil
}

// Meta 返回当前快照的构建元信息
func (s *MatchService) Meta() (model.Meta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta, s.matcher != nil
}
