package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/docuchat/docuchat/core/errors"
)

// Provider 外部 embedding 服务的抽象
// 返回的向量数量和顺序必须与输入文本一一对应
type Provider interface {
	EmbedStrings(ctx context.Context, texts []string) ([][]float32, error)
}

// ProviderConfig OpenAI 兼容 embedding 服务配置
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// Dimensions 大于 0 时随请求下发，要求服务端按该维度输出
	Dimensions int
}

// OpenAIProvider OpenAI 兼容接口的 embedding 客户端
type OpenAIProvider struct {
	cfg        ProviderConfig
	httpClient *http.Client
}

// embeddingRequest OpenAI embedding API请求结构
type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions *int     `json:"dimensions,omitempty"`
}

// embeddingResponse OpenAI embedding API响应结构
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
		Object    string    `json:"object"`
	} `json:"data"`
	Model  string `json:"model"`
	Object string `json:"object"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// errorResponse API错误响应
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

// NewOpenAIProvider 创建 embedding 客户端
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "embedding apiKey is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "embedding baseURL is required")
	}
	if cfg.Model == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "embedding model is required")
	}

	// 自定义HTTP客户端，设置合理的超时时间
	httpClient := &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   30 * time.Second,
			ResponseHeaderTimeout: 2 * time.Minute,
			ExpectContinueTimeout: 1 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
		},
	}

	return &OpenAIProvider{cfg: cfg, httpClient: httpClient}, nil
}

// EmbedStrings 实现字符串数组的向量化
func (p *OpenAIProvider) EmbedStrings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := embeddingRequest{
		Input: texts,
		Model: p.cfg.Model,
	}
	if p.cfg.Dimensions > 0 {
		req.Dimensions = &p.cfg.Dimensions
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "failed to marshal request: %v", err)
	}

	url := p.cfg.BaseURL + "/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return nil, errors.Newf(errors.ErrEmbeddingFailed, "HTTP %d: failed to decode error response: %v", resp.StatusCode, err)
		}
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "API error (HTTP %d): %s", resp.StatusCode, errResp.Error.Message)
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, errors.Newf(errors.ErrEmbeddingFailed, "failed to decode response: %v", err)
	}

	if len(embResp.Data) != len(texts) {
		return nil, errors.Newf(errors.ErrEmbeddingFailed,
			"response data length (%d) doesn't match input length (%d)", len(embResp.Data), len(texts))
	}

	// 按响应中的 index 归位，服务端不保证顺序
	result := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(result) {
			return nil, errors.Newf(errors.ErrEmbeddingFailed, "invalid embedding index: %d", data.Index)
		}
		vec := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float32(v)
		}
		result[data.Index] = vec
	}

	return result, nil
}
