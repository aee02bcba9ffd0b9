package chunkstore

import (
	"context"
	"fmt"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/google/uuid"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/docuchat/docuchat/core/common"
	"github.com/docuchat/docuchat/core/errors"
)

const maxTextLength = 65535

// MilvusStore Milvus向量数据库实现
type MilvusStore struct {
	client     *milvusclient.Client
	collection string
	dim        int
}

// NewMilvusStore 创建Milvus存储实例
func NewMilvusStore(config *Config) (Store, error) {
	client, ok := config.Client.(*milvusclient.Client)
	if !ok {
		return nil, fmt.Errorf("client must be *milvusclient.Client")
	}

	return &MilvusStore{
		client:     client,
		collection: config.Collection,
		dim:        config.Dim,
	}, nil
}

// collectionFields 分片集合的字段定义
func collectionFields(dim int) []*entity.Field {
	dimStr := fmt.Sprintf("%d", dim)
	return []*entity.Field{
		{
			Name:        "id",
			DataType:    entity.FieldTypeVarChar,
			TypeParams:  map[string]string{"max_length": "64"},
			PrimaryKey:  true,
			AutoID:      false,
			Description: "Chunk unique ID (primary key)",
		},
		{
			Name:        "session_id",
			DataType:    entity.FieldTypeVarChar,
			TypeParams:  map[string]string{"max_length": "255"},
			Description: "Owning session ID",
		},
		{
			Name:        "document_id",
			DataType:    entity.FieldTypeVarChar,
			TypeParams:  map[string]string{"max_length": "64"},
			Description: "Owning document ID",
		},
		{
			Name:        "text",
			DataType:    entity.FieldTypeVarChar,
			TypeParams:  map[string]string{"max_length": "65535"},
			Description: "Document chunk content",
		},
		{
			Name:        "page",
			DataType:    entity.FieldTypeInt64,
			Description: "1-based source page number",
		},
		{
			Name:        "source",
			DataType:    entity.FieldTypeVarChar,
			TypeParams:  map[string]string{"max_length": "512"},
			Description: "Source file name",
		},
		{
			Name:        "chunk_index",
			DataType:    entity.FieldTypeInt64,
			Description: "0-based chunk order within document",
		},
		{
			Name:        "created_at",
			DataType:    entity.FieldTypeInt64,
			Description: "Creation time (unix seconds)",
		},
		{
			Name:        "vector",
			DataType:    entity.FieldTypeFloatVector,
			TypeParams:  map[string]string{"dim": dimStr},
			Description: "Chunk embedding vector",
		},
	}
}

// EnsureCollection 创建集合和索引（如果不存在）并加载到内存
func (m *MilvusStore) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(m.collection))
	if err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to check collection: %v", err)
	}

	if !has {
		schema := &entity.Schema{
			CollectionName: m.collection,
			Description:    "存储文档分片及其向量",
			AutoID:         false,
			Fields:         collectionFields(m.dim),
		}

		// 余弦相似度 + HNSW 索引
		err = m.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(m.collection, schema).WithIndexOptions(
			milvusclient.NewCreateIndexOption(m.collection, "vector", index.NewHNSWIndex(entity.COSINE, 16, 200))))
		if err != nil {
			return errors.Newf(errors.ErrVectorStoreInit, "failed to create collection: %v", err)
		}
		g.Log().Infof(ctx, "Collection '%s' created with dimension %d", m.collection, m.dim)
	}

	_, err = m.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(m.collection))
	if err != nil {
		return errors.Newf(errors.ErrVectorStoreInit, "failed to load collection: %v", err)
	}
	return nil
}

// InsertPassages 以列模式批量写入分片
func (m *MilvusStore) InsertPassages(ctx context.Context, passages []Passage) (int, error) {
	if len(passages) == 0 {
		return 0, nil
	}

	ids := make([]string, len(passages))
	sessionIds := make([]string, len(passages))
	documentIds := make([]string, len(passages))
	texts := make([]string, len(passages))
	pages := make([]int64, len(passages))
	sources := make([]string, len(passages))
	chunkIndexes := make([]int64, len(passages))
	createdAts := make([]int64, len(passages))
	vectors := make([][]float32, len(passages))

	for i, p := range passages {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if len(p.Embedding) != m.dim {
			return 0, errors.Newf(errors.ErrDimensionMismatch,
				"embedding dimension mismatch: expected %d, got %d", m.dim, len(p.Embedding))
		}
		ids[i] = p.ID
		sessionIds[i] = p.SessionID
		documentIds[i] = p.DocumentID
		texts[i] = truncateString(p.Text, maxTextLength)
		pages[i] = int64(p.Page)
		sources[i] = p.Source
		chunkIndexes[i] = int64(p.ChunkIndex)
		createdAts[i] = p.CreatedAt.Unix()
		vectors[i] = p.Embedding
	}

	columns := []column.Column{
		column.NewColumnVarChar("id", ids),
		column.NewColumnVarChar("session_id", sessionIds),
		column.NewColumnVarChar("document_id", documentIds),
		column.NewColumnVarChar("text", texts),
		column.NewColumnInt64("page", pages),
		column.NewColumnVarChar("source", sources),
		column.NewColumnInt64("chunk_index", chunkIndexes),
		column.NewColumnInt64("created_at", createdAts),
		column.NewColumnFloatVector("vector", m.dim, vectors),
	}

	result, err := m.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(m.collection, columns...))
	if err != nil {
		return 0, errors.Newf(errors.ErrStorageRejected, "failed to insert passages: %v", err)
	}

	g.Log().Infof(ctx, "Inserted %d passages into collection '%s'", result.InsertCount, m.collection)
	return int(result.InsertCount), nil
}

// CountByDocument 统计某文档已入库的分片数
func (m *MilvusStore) CountByDocument(ctx context.Context, documentID string) (int64, error) {
	expr, err := documentFilterExpr(documentID)
	if err != nil {
		return 0, err
	}

	rs, err := m.client.Query(ctx, milvusclient.NewQueryOption(m.collection).
		WithFilter(expr).
		WithOutputFields("count(*)").
		WithConsistencyLevel(entity.ClStrong))
	if err != nil {
		return 0, errors.Newf(errors.ErrDatabaseQuery, "failed to count passages: %v", err)
	}

	col := rs.GetColumn("count(*)")
	if col == nil || col.Len() == 0 {
		return 0, errors.New(errors.ErrDatabaseQuery, "count query returned no result")
	}
	val, err := col.Get(0)
	if err != nil {
		return 0, errors.Newf(errors.ErrDatabaseQuery, "failed to read count result: %v", err)
	}
	count, ok := val.(int64)
	if !ok {
		return 0, errors.Newf(errors.ErrDatabaseQuery, "unexpected count result type: %T", val)
	}
	return count, nil
}

// DeleteByDocument 删除某文档的全部分片
func (m *MilvusStore) DeleteByDocument(ctx context.Context, documentID string) error {
	expr, err := documentFilterExpr(documentID)
	if err != nil {
		return err
	}

	result, err := m.client.Delete(ctx, milvusclient.NewDeleteOption(m.collection).WithExpr(expr))
	if err != nil {
		return errors.Newf(errors.ErrVectorDelete, "failed to delete passages of document %s: %v", documentID, err)
	}

	g.Log().Infof(ctx, "Deleted passages of document %s, affected rows: %d", documentID, result.DeleteCount)
	return nil
}

// Search 带会话/文档过滤的向量检索
func (m *MilvusStore) Search(ctx context.Context, params SearchParams) ([]Match, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	expr, err := scopeFilterExpr(params.SessionID, params.DocumentID)
	if err != nil {
		return nil, err
	}

	// ef 控制 HNSW 候选集大小
	annParam := index.NewHNSWAnnParam(params.NumCandidates)

	searchOpt := milvusclient.NewSearchOption(m.collection, params.TopK, []entity.Vector{entity.FloatVector(params.Vector)}).
		WithANNSField("vector").
		WithFilter(expr).
		WithOutputFields("text", "page", "source", "document_id").
		WithConsistencyLevel(entity.ClBounded).
		WithAnnParam(annParam)

	results, err := m.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, errors.Newf(errors.ErrSearchUnavailable, "search has error: %v", err)
	}
	if len(results) == 0 {
		return []Match{}, nil
	}

	return convertSearchResult(results[0].Fields, results[0].Scores)
}

// Close 关闭Milvus客户端连接
func (m *MilvusStore) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}

// convertSearchResult 将列式搜索结果转换为Match列表
func convertSearchResult(columns []column.Column, scores []float32) ([]Match, error) {
	if len(columns) == 0 {
		return []Match{}, nil
	}

	numHits := columns[0].Len()
	matches := make([]Match, numHits)
	for i := 0; i < numHits && i < len(scores); i++ {
		matches[i].Score = scores[i]
	}

	for _, col := range columns {
		switch col.Name() {
		case "text":
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil {
					return nil, fmt.Errorf("failed to get text: %w", err)
				}
				if str, ok := val.(string); ok {
					matches[i].Text = str
				}
			}
		case "page":
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil {
					return nil, fmt.Errorf("failed to get page: %w", err)
				}
				if n, ok := val.(int64); ok {
					matches[i].Page = int(n)
				}
			}
		case "source":
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil {
					return nil, fmt.Errorf("failed to get source: %w", err)
				}
				if str, ok := val.(string); ok {
					matches[i].Source = str
				}
			}
		case "document_id":
			for i := 0; i < col.Len(); i++ {
				val, err := col.Get(i)
				if err != nil {
					return nil, fmt.Errorf("failed to get document_id: %w", err)
				}
				if str, ok := val.(string); ok {
					matches[i].DocumentID = str
				}
			}
		}
	}

	return matches, nil
}

// documentFilterExpr 构造按文档过滤的表达式，documentID 必须是合法UUID
func documentFilterExpr(documentID string) (string, error) {
	if !common.ValidateUUID(documentID) {
		return "", errors.Newf(errors.ErrInvalidParameter,
			"invalid document ID format: %s (must be valid UUID)", documentID)
	}
	// 转义特殊字符（双重保护）
	return fmt.Sprintf(`document_id == "%s"`, common.SanitizeFilterString(documentID)), nil
}

// scopeFilterExpr 构造检索范围表达式：会话必选，文档可选
func scopeFilterExpr(sessionID, documentID string) (string, error) {
	expr := fmt.Sprintf(`session_id == "%s"`, common.SanitizeFilterString(sessionID))
	if documentID != "" {
		docExpr, err := documentFilterExpr(documentID)
		if err != nil {
			return "", err
		}
		expr = expr + " && " + docExpr
	}
	return expr, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
