package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// GLM 聊天补全生成器
type GLM struct {
	baseURL    string
	model      string
	apiKey     string
	retryCount int
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewGLM 构建 GLM 生成器。apiKey 为空时调用方不应注册该 provider。
func NewGLM(baseURL, model, apiKey string, retryCount int, httpClient *http.Client, logger *logrus.Logger) *GLM {
	if baseURL == "" {
		baseURL = "https://open.bigmodel.cn/api/paas/v4"
	}
	if model == "" {
		model = "glm-4-flash"
	}
	if retryCount <= 0 {
		retryCount = 3
	}
	return &GLM{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		retryCount: retryCount,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (g *GLM) Model() string { return g.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

const systemPrompt = `You extract search keywords for prediction-market events. Reply with JSON only, no prose.`

// buildPrompt 组装用户提示词。avoid 列表来自上一轮实体校验的拒绝结果。
func (g *GLM) buildPrompt(title, rules string, pctx Context) string {
	var b strings.Builder
	b.WriteString("Event title: ")
	b.WriteString(strings.TrimSpace(title))
	b.WriteString("\n")
	if r := strings.TrimSpace(rules); r != "" {
		if len(r) > 1200 {
			r = r[:1200]
		}
		b.WriteString("Resolution rules (excerpt): ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	b.WriteString(`
Return a JSON object:
{"keywords": [...], "entityGroups": [[...], [...]]}

keywords: up to 25 lowercase search phrases a social media post about this event would contain.
entityGroups: at most 2 groups, each up to 4 interchangeable names of ONE concrete entity
(person, organization, asset, product) taken from the title. A post must mention something
from every group to be about this event, so never put outcomes, dates, years, price levels,
question words or generic market vocabulary in a group.`)
	if len(pctx.AvoidTerms) > 0 {
		b.WriteString("\nThese terms were rejected, do NOT use them: ")
		b.WriteString(strings.Join(pctx.AvoidTerms, ", "))
	}
	return b.String()
}

// Generate 调用聊天补全接口并解析结果，失败时线性退避重试（上限2s）。
func (g *GLM) Generate(ctx context.Context, title, rules string, pctx Context) (Result, error) {
	prompt := g.buildPrompt(title, rules, pctx)
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return Result{}, fmt.Errorf("序列化请求失败: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= g.retryCount; attempt++ {
		result, err := g.once(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		g.logger.WithError(err).WithFields(logrus.Fields{
			"eventId": pctx.EventID,
			"attempt": attempt,
		}).Warn("GLM调用失败")

		if attempt == g.retryCount {
			break
		}
		backoff := time.Duration(attempt) * 500 * time.Millisecond
		if backoff > 2*time.Second {
			backoff = 2 * time.Second
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return Result{}, fmt.Errorf("GLM调用重试%d次后仍失败: %w", g.retryCount, lastErr)
}

func (g *GLM) once(ctx context.Context, body []byte) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("构建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("状态码异常 %d: %s", resp.StatusCode, truncateForLog(string(data)))
	}

	var cr chatResponse
	if err := json.Unmarshal(data, &cr); err != nil {
		return Result{}, fmt.Errorf("解析响应失败: %w", err)
	}
	if cr.Error != nil {
		return Result{}, fmt.Errorf("接口返回错误 %s: %s", cr.Error.Code, cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return Result{}, fmt.Errorf("响应缺少choices")
	}
	return ParseResponse(cr.Choices[0].Message.Content)
}
