package chunkstore

import (
	"context"
	"time"

	"github.com/docuchat/docuchat/core/errors"
)

// StoreType 向量存储类型
type StoreType string

const (
	StoreTypeMilvus     StoreType = "milvus"
	StoreTypePostgreSQL StoreType = "postgres"
)

// Passage 待入库的文档分片记录
type Passage struct {
	ID         string
	SessionID  string
	DocumentID string
	Text       string
	Embedding  []float32
	Page       int
	Source     string
	ChunkIndex int // 文档内从 0 开始的分片序号
	CreatedAt  time.Time
}

// Match 相似度检索命中结果
type Match struct {
	Text       string
	Page       int
	Source     string
	DocumentID string
	Score      float32
}

// SearchParams 相似度检索参数
// SessionID 必填，DocumentID 为空时在整个会话范围内检索
type SearchParams struct {
	Vector        []float32
	SessionID     string
	DocumentID    string
	TopK          int
	NumCandidates int // ANN 候选集大小，不低于 TopK
}

// Validate 校验检索参数
func (p SearchParams) Validate() error {
	if len(p.Vector) == 0 {
		return errors.New(errors.ErrInvalidParameter, "search vector cannot be empty")
	}
	if p.SessionID == "" {
		return errors.New(errors.ErrInvalidParameter, "session id cannot be empty")
	}
	if p.TopK <= 0 {
		return errors.Newf(errors.ErrInvalidParameter, "topK must be positive, got %d", p.TopK)
	}
	if p.NumCandidates < p.TopK {
		return errors.Newf(errors.ErrInvalidParameter,
			"numCandidates must be >= topK, got numCandidates=%d topK=%d", p.NumCandidates, p.TopK)
	}
	return nil
}

// Store 分片存储的统一接口，屏蔽具体向量数据库实现
type Store interface {
	// EnsureCollection 保证集合（表）和索引存在
	EnsureCollection(ctx context.Context) error

	// InsertPassages 单次写入一批分片，返回实际写入条数
	InsertPassages(ctx context.Context, passages []Passage) (int, error)

	// CountByDocument 统计某文档已入库的分片数
	CountByDocument(ctx context.Context, documentID string) (int64, error)

	// DeleteByDocument 删除某文档的全部分片
	DeleteByDocument(ctx context.Context, documentID string) error

	// Search 在会话（可选限定文档）范围内做相似度检索
	// 结果按相似度从高到低排列
	Search(ctx context.Context, params SearchParams) ([]Match, error)

	// Close 释放底层连接
	Close(ctx context.Context) error
}
