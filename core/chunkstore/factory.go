package chunkstore

import (
	"fmt"
)

// Config 向量存储配置
type Config struct {
	Type StoreType

	// Client 底层客户端实例
	// milvus: *milvusclient.Client, postgres: *pgxpool.Pool
	Client interface{}

	// Collection 集合名（PostgreSQL 下为表名）
	Collection string

	// Dim 向量维度，整个存储只使用一个维度
	Dim int
}

// New 根据配置创建对应的存储实现
func New(config *Config) (Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Collection == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	if config.Dim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", config.Dim)
	}

	switch config.Type {
	case StoreTypeMilvus:
		return NewMilvusStore(config)
	case StoreTypePostgreSQL:
		return NewPostgresStore(config)
	default:
		return nil, fmt.Errorf("unsupported chunk store type: %s (supported: milvus, postgres)", config.Type)
	}
}
