package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/gogf/gf/v2/frame/g"
)

// 检索与分片的内置默认值，与配置文件中的覆盖项一一对应
const (
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 150
	DefaultTopK          = 6
	DefaultNumCandidates = 80

	// DefaultEmbeddingDim 整个系统唯一的向量维度
	// 集合建表和运行期校验都使用这一个值
	DefaultEmbeddingDim = 384

	DefaultMaxUploadBytes = 20 * 1024 * 1024
	DefaultCollection     = "docuchat_chunks"
)

// EmbeddingConfig embedding 服务配置
type EmbeddingConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Dim     int
}

// ChatConfig 问答模型配置
type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// SplitConfig 分片配置
type SplitConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// RetrieveConfig 检索配置
type RetrieveConfig struct {
	TopK          int
	NumCandidates int
}

// StoreConfig 向量存储配置
type StoreConfig struct {
	Type       string // milvus / postgres
	Collection string
}

// UploadConfig 上传限制配置
type UploadConfig struct {
	MaxBytes int64
	TempDir  string
}

// LoadEmbeddingConfig 读取 embedding 配置
func LoadEmbeddingConfig(ctx context.Context) EmbeddingConfig {
	return EmbeddingConfig{
		APIKey:  g.Cfg().MustGet(ctx, "embedding.apiKey", "").String(),
		BaseURL: g.Cfg().MustGet(ctx, "embedding.baseURL", "").String(),
		Model:   g.Cfg().MustGet(ctx, "embedding.model", "").String(),
		Dim:     g.Cfg().MustGet(ctx, "embedding.dim", DefaultEmbeddingDim).Int(),
	}
}

// LoadChatConfig 读取问答模型配置
func LoadChatConfig(ctx context.Context) ChatConfig {
	return ChatConfig{
		APIKey:  g.Cfg().MustGet(ctx, "chat.apiKey", "").String(),
		BaseURL: g.Cfg().MustGet(ctx, "chat.baseURL", "").String(),
		Model:   g.Cfg().MustGet(ctx, "chat.model", "").String(),
	}
}

// LoadSplitConfig 读取分片配置
func LoadSplitConfig(ctx context.Context) SplitConfig {
	return SplitConfig{
		ChunkSize:    g.Cfg().MustGet(ctx, "split.chunkSize", DefaultChunkSize).Int(),
		ChunkOverlap: g.Cfg().MustGet(ctx, "split.chunkOverlap", DefaultChunkOverlap).Int(),
	}
}

// LoadRetrieveConfig 读取检索配置
func LoadRetrieveConfig(ctx context.Context) RetrieveConfig {
	return RetrieveConfig{
		TopK:          g.Cfg().MustGet(ctx, "retrieve.topK", DefaultTopK).Int(),
		NumCandidates: g.Cfg().MustGet(ctx, "retrieve.numCandidates", DefaultNumCandidates).Int(),
	}
}

// LoadStoreConfig 读取向量存储配置
func LoadStoreConfig(ctx context.Context) StoreConfig {
	return StoreConfig{
		Type:       g.Cfg().MustGet(ctx, "chunkStore.type", "milvus").String(),
		Collection: g.Cfg().MustGet(ctx, "chunkStore.collection", DefaultCollection).String(),
	}
}

// LoadUploadConfig 读取上传限制配置
func LoadUploadConfig(ctx context.Context) UploadConfig {
	return UploadConfig{
		MaxBytes: g.Cfg().MustGet(ctx, "upload.maxBytes", DefaultMaxUploadBytes).Int64(),
		TempDir:  g.Cfg().MustGet(ctx, "upload.tempDir", "").String(),
	}
}

// ValidateConfiguration validates all required configuration items
func ValidateConfiguration(ctx context.Context) error {
	var missingConfigs []string
	var warnings []string

	// 验证 Embedding 配置
	emb := LoadEmbeddingConfig(ctx)
	if emb.APIKey == "" {
		missingConfigs = append(missingConfigs, "embedding.apiKey")
	}
	if emb.BaseURL == "" {
		missingConfigs = append(missingConfigs, "embedding.baseURL")
	}
	if emb.Model == "" {
		missingConfigs = append(missingConfigs, "embedding.model")
	}
	if emb.Dim <= 0 {
		missingConfigs = append(missingConfigs, "embedding.dim")
	}

	// 验证向量存储配置
	store := LoadStoreConfig(ctx)
	switch store.Type {
	case "milvus":
		if g.Cfg().MustGet(ctx, "milvus.address", "").String() == "" {
			missingConfigs = append(missingConfigs, "milvus.address")
		}
	case "postgres":
		if g.Cfg().MustGet(ctx, "postgres.host", "").String() == "" {
			missingConfigs = append(missingConfigs, "postgres.host")
		}
		if g.Cfg().MustGet(ctx, "postgres.user", "").String() == "" {
			missingConfigs = append(missingConfigs, "postgres.user")
		}
		if g.Cfg().MustGet(ctx, "postgres.database", "").String() == "" {
			missingConfigs = append(missingConfigs, "postgres.database")
		}
	default:
		missingConfigs = append(missingConfigs, fmt.Sprintf("chunkStore.type (got %q, expected milvus or postgres)", store.Type))
	}

	// 验证 Chat 配置（缺失时问答接口不可用，但不阻止启动）
	chat := LoadChatConfig(ctx)
	if chat.APIKey == "" {
		warnings = append(warnings, "chat.apiKey is not set")
	}
	if chat.BaseURL == "" {
		warnings = append(warnings, "chat.baseURL is not set")
	}
	if chat.Model == "" {
		warnings = append(warnings, "chat.model is not set")
	}

	// 验证数据库配置
	dbHost := g.Cfg().MustGet(ctx, "database.default.host", "").String()
	dbUser := g.Cfg().MustGet(ctx, "database.default.user", "").String()
	dbName := g.Cfg().MustGet(ctx, "database.default.name", "").String()
	if dbHost == "" {
		missingConfigs = append(missingConfigs, "database.default.host")
	}
	if dbUser == "" {
		missingConfigs = append(missingConfigs, "database.default.user")
	}
	if dbName == "" {
		missingConfigs = append(missingConfigs, "database.default.name")
	}

	if len(warnings) > 0 {
		g.Log().Warningf(ctx, "Configuration warnings:\n- %s", strings.Join(warnings, "\n- "))
	}

	if len(missingConfigs) > 0 {
		return fmt.Errorf("missing required configuration items:\n- %s\n\nPlease check your config.yaml file and ensure all required settings are properly configured", strings.Join(missingConfigs, "\n- "))
	}

	g.Log().Info(ctx, "✓ All required configuration items are present")
	return nil
}
