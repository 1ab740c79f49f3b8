package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"OpinionMatch/internal/interfaces"
	"OpinionMatch/internal/model"

	"github.com/sirupsen/logrus"
)

// snapshotRepository 索引快照仓储：输出文件既是构建结果也是下次增量的输入
type snapshotRepository struct {
	outputPath  string
	previousURL string
	httpClient  *http.Client
	logger      *logrus.Logger
}

func NewSnapshotRepository(outputPath, previousURL string, httpClient *http.Client, logger *logrus.Logger) interfaces.SnapshotRepository {
	return &snapshotRepository{
		outputPath:  outputPath,
		previousURL: previousURL,
		httpClient:  httpClient,
		logger:      logger,
	}
}

// LoadPrevious 读取上一版快照，远程地址优先于本地文件。
// 缺失或损坏一律返回 nil（退化为全量重建），不会让构建失败。
func (r *snapshotRepository) LoadPrevious(ctx context.Context) *model.Data {
	if r.previousURL != "" {
		if data := r.loadFromURL(ctx); data != nil {
			return data
		}
	}
	return r.loadFromFile()
}

func (r *snapshotRepository) loadFromURL(ctx context.Context) *model.Data {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.previousURL, nil)
	if err != nil {
		r.logger.WithError(err).Warn("构建旧快照请求失败")
		return nil
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.WithError(err).WithField("url", r.previousURL).Warn("拉取旧快照失败，尝试本地文件")
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		r.logger.WithField("status", resp.StatusCode).Warn("旧快照地址返回异常状态码")
		return nil
	}

	var data model.Data
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		r.logger.WithError(err).Warn("旧快照解析失败，将全量重建")
		return nil
	}
	r.logger.WithFields(logrus.Fields{
		"events":  len(data.Events),
		"markets": len(data.Markets),
	}).Info("已从远程地址加载旧快照")
	return &data
}

func (r *snapshotRepository) loadFromFile() *model.Data {
	raw, err := os.ReadFile(r.outputPath)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.WithError(err).Warn("读取旧快照文件失败，将全量重建")
		}
		return nil
	}
	var data model.Data
	if err := json.Unmarshal(raw, &data); err != nil {
		r.logger.WithError(err).Warn("旧快照文件损坏，将全量重建")
		return nil
	}
	r.logger.WithFields(logrus.Fields{
		"events":  len(data.Events),
		"markets": len(data.Markets),
	}).Info("已从本地文件加载旧快照")
	return &data
}

// Save 原子写出：先写临时文件再 rename，读方永远不会看到半个快照
func (r *snapshotRepository) Save(data *model.Data) error {
	if err := os.MkdirAll(filepath.Dir(r.outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化快照失败: %w", err)
	}

	tmp := r.outputPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("写临时快照失败: %w", err)
	}
	if err := os.Rename(tmp, r.outputPath); err != nil {
		return fmt.Errorf("替换快照文件失败: %w", err)
	}
	return nil
}
