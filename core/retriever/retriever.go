package retriever

import (
	"context"
	"strings"

	"github.com/gogf/gf/v2/frame/g"

	"github.com/docuchat/docuchat/core/chunkstore"
	"github.com/docuchat/docuchat/core/common"
	"github.com/docuchat/docuchat/core/errors"
)

const (
	DefaultTopK          = 6  // 默认返回的分片数
	DefaultNumCandidates = 80 // 默认ANN候选集大小
)

// Filters 检索范围过滤条件
// SessionID 为空时使用默认会话，DocumentID 为空时检索整个会话
// TopK/NumCandidates 为0时使用引擎配置值
type Filters struct {
	SessionID     string
	DocumentID    string
	TopK          int
	NumCandidates int
}

// Result 单条检索结果
type Result struct {
	Text       string
	Page       int
	Source     string
	DocumentID string
	Score      float32
}

// Retriever 面向上层的检索接口
type Retriever interface {
	Retrieve(ctx context.Context, query string, filters Filters) ([]Result, error)
}

// Embedder 查询向量化的最小依赖
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Engine 基于向量存储的检索实现
// 存储不可用时降级为空结果，embedding 失败则如实报错
type Engine struct {
	embedder      Embedder
	store         chunkstore.Store
	topK          int
	numCandidates int
}

// Option Engine 可选配置
type Option func(*Engine)

// WithTopK 设置返回的分片数
func WithTopK(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topK = n
		}
	}
}

// WithNumCandidates 设置ANN候选集大小
func WithNumCandidates(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.numCandidates = n
		}
	}
}

// NewEngine 创建检索引擎
func NewEngine(embedder Embedder, store chunkstore.Store, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "embedder is required")
	}
	if store == nil {
		return nil, errors.New(errors.ErrInvalidParameter, "chunk store is required")
	}

	e := &Engine{
		embedder:      embedder,
		store:         store,
		topK:          DefaultTopK,
		numCandidates: DefaultNumCandidates,
	}
	for _, opt := range opts {
		opt(e)
	}

	// 候选集永远不小于返回数
	if e.numCandidates < e.topK {
		e.numCandidates = e.topK
	}
	return e, nil
}

// Retrieve 在会话（可选限定文档）范围内检索与查询最相关的分片
// 返回结果按相似度从高到低排列，跳过空文本分片
func (e *Engine) Retrieve(ctx context.Context, query string, filters Filters) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.ErrInvalidParameter, "query cannot be empty")
	}

	if filters.TopK < 0 || filters.NumCandidates < 0 {
		return nil, errors.New(errors.ErrInvalidParameter, "topK and numCandidates cannot be negative")
	}

	sessionID := common.SafeSessionID(filters.SessionID)

	// 单次请求可覆盖topK/候选集大小，0表示沿用引擎配置
	topK := e.topK
	if filters.TopK > 0 {
		topK = filters.TopK
	}
	numCandidates := e.numCandidates
	if filters.NumCandidates > 0 {
		numCandidates = filters.NumCandidates
	}
	if numCandidates < topK {
		numCandidates = topK
	}

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, errors.Newf(errors.ErrRetrievalFailed, "failed to embed query: %v", err)
	}

	matches, err := e.store.Search(ctx, chunkstore.SearchParams{
		Vector:        vector,
		SessionID:     sessionID,
		DocumentID:    filters.DocumentID,
		TopK:          topK,
		NumCandidates: numCandidates,
	})
	if err != nil {
		// 存储故障不让问答整体失败，降级为空结果
		g.Log().Errorf(ctx, "Vector search failed, returning empty results: %v", err)
		return []Result{}, nil
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		results = append(results, Result{
			Text:       m.Text,
			Page:       m.Page,
			Source:     m.Source,
			DocumentID: m.DocumentID,
			Score:      m.Score,
		})
	}

	g.Log().Debugf(ctx, "Retrieved %d passages for session %s (documentId=%q)",
		len(results), sessionID, filters.DocumentID)
	return results, nil
}
