package chunkstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/docuchat/docuchat/core/common"
	"github.com/docuchat/docuchat/core/errors"
)

// PostgresStore PostgreSQL + pgvector 实现
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
	dim   int
}

// NewPostgresStore 创建PostgreSQL存储实例
func NewPostgresStore(config *Config) (Store, error) {
	pool, ok := config.Client.(*pgxpool.Pool)
	if !ok {
		return nil, fmt.Errorf("client must be *pgxpool.Pool")
	}

	return &PostgresStore{
		pool:  pool,
		table: sanitizeTableName(config.Collection),
		dim:   config.Dim,
	}, nil
}

// EnsureCollection 创建扩展、表和索引（如果不存在）
func (p *PostgresStore) EnsureCollection(ctx context.Context) error {
	statements := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		p.createTableSQL(),
	}
	statements = append(statements, p.createIndexSQL()...)

	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return errors.Newf(errors.ErrVectorStoreInit, "failed to prepare table %s: %v", p.table, err)
		}
	}

	g.Log().Infof(ctx, "Table '%s' ready with dimension %d", p.table, p.dim)
	return nil
}

func (p *PostgresStore) createTableSQL() string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          VARCHAR(64) PRIMARY KEY,
			session_id  VARCHAR(255) NOT NULL,
			document_id VARCHAR(64) NOT NULL,
			text        TEXT NOT NULL,
			page        INTEGER NOT NULL,
			source      VARCHAR(512) NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			embedding   vector(%d) NOT NULL
		)`, p.table, p.dim)
}

func (p *PostgresStore) createIndexSQL() []string {
	return []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING hnsw (embedding vector_cosine_ops)", p.table, p.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_session_document ON %s (session_id, document_id)", p.table, p.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_document_page ON %s (document_id, page)", p.table, p.table),
	}
}

// InsertPassages 事务内批量写入分片
func (p *PostgresStore) InsertPassages(ctx context.Context, passages []Passage) (int, error) {
	if len(passages) == 0 {
		return 0, nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, errors.Newf(errors.ErrStorageRejected, "failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, document_id, text, page, source, chunk_index, created_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.table)

	for _, passage := range passages {
		if passage.ID == "" {
			passage.ID = uuid.New().String()
		}
		if len(passage.Embedding) != p.dim {
			return 0, errors.Newf(errors.ErrDimensionMismatch,
				"embedding dimension mismatch: expected %d, got %d", p.dim, len(passage.Embedding))
		}

		_, err = tx.Exec(ctx, insertSQL,
			passage.ID,
			passage.SessionID,
			passage.DocumentID,
			truncateString(passage.Text, maxTextLength),
			passage.Page,
			passage.Source,
			passage.ChunkIndex,
			passage.CreatedAt,
			pgvector.NewVector(passage.Embedding),
		)
		if err != nil {
			return 0, errors.Newf(errors.ErrStorageRejected, "failed to insert passage %s: %v", passage.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Newf(errors.ErrStorageRejected, "failed to commit transaction: %v", err)
	}

	g.Log().Infof(ctx, "Inserted %d passages into table '%s'", len(passages), p.table)
	return len(passages), nil
}

// CountByDocument 统计某文档已入库的分片数
func (p *PostgresStore) CountByDocument(ctx context.Context, documentID string) (int64, error) {
	if !common.ValidateUUID(documentID) {
		return 0, errors.Newf(errors.ErrInvalidParameter,
			"invalid document ID format: %s (must be valid UUID)", documentID)
	}

	var count int64
	err := p.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE document_id = $1", p.table),
		documentID,
	).Scan(&count)
	if err != nil {
		return 0, errors.Newf(errors.ErrDatabaseQuery, "failed to count passages: %v", err)
	}
	return count, nil
}

// DeleteByDocument 删除某文档的全部分片
func (p *PostgresStore) DeleteByDocument(ctx context.Context, documentID string) error {
	if !common.ValidateUUID(documentID) {
		return errors.Newf(errors.ErrInvalidParameter,
			"invalid document ID format: %s (must be valid UUID)", documentID)
	}

	result, err := p.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", p.table),
		documentID,
	)
	if err != nil {
		return errors.Newf(errors.ErrVectorDelete, "failed to delete passages of document %s: %v", documentID, err)
	}

	g.Log().Infof(ctx, "Deleted passages of document %s, affected rows: %d", documentID, result.RowsAffected())
	return nil
}

// Search 带会话/文档过滤的余弦相似度检索
// 分数为 1 - 余弦距离，与Milvus实现保持同一量纲
func (p *PostgresStore) Search(ctx context.Context, params SearchParams) ([]Match, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.DocumentID != "" && !common.ValidateUUID(params.DocumentID) {
		return nil, errors.Newf(errors.ErrInvalidParameter,
			"invalid document ID format: %s (must be valid UUID)", params.DocumentID)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Newf(errors.ErrSearchUnavailable, "failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	// ef_search 对应 HNSW 的候选集大小，只在本事务内生效
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", params.NumCandidates)); err != nil {
		return nil, errors.Newf(errors.ErrSearchUnavailable, "failed to set ef_search: %v", err)
	}

	querySQL, args := p.searchSQL(params)
	rows, err := tx.Query(ctx, querySQL, args...)
	if err != nil {
		return nil, errors.Newf(errors.ErrSearchUnavailable, "search has error: %v", err)
	}
	defer rows.Close()

	matches := make([]Match, 0, params.TopK)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Text, &m.Page, &m.Source, &m.DocumentID, &m.Score); err != nil {
			return nil, errors.Newf(errors.ErrSearchUnavailable, "failed to scan search result: %v", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Newf(errors.ErrSearchUnavailable, "failed to read search results: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Newf(errors.ErrSearchUnavailable, "failed to commit search transaction: %v", err)
	}

	return matches, nil
}

// searchSQL 构造检索语句，文档过滤可选
func (p *PostgresStore) searchSQL(params SearchParams) (string, []interface{}) {
	vec := pgvector.NewVector(params.Vector)

	if params.DocumentID != "" {
		sql := fmt.Sprintf(`
			SELECT text, page, source, document_id, 1 - (embedding <=> $1) AS score
			FROM %s
			WHERE session_id = $2 AND document_id = $3
			ORDER BY embedding <=> $1
			LIMIT $4`, p.table)
		return sql, []interface{}{vec, params.SessionID, params.DocumentID, params.TopK}
	}

	sql := fmt.Sprintf(`
		SELECT text, page, source, document_id, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE session_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`, p.table)
	return sql, []interface{}{vec, params.SessionID, params.TopK}
}

// Close 关闭连接池
func (p *PostgresStore) Close(ctx context.Context) error {
	p.pool.Close()
	return nil
}

// sanitizeTableName 表名清理，只允许字母、数字和下划线
func sanitizeTableName(name string) string {
	var result strings.Builder
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_' {
			result.WriteRune(char)
		} else {
			result.WriteRune('_')
		}
	}
	return result.String()
}
