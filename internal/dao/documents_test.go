package dao

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	v1 "github.com/docuchat/docuchat/api/docuchat/v1"
	"github.com/docuchat/docuchat/internal/model/gormmodel"
)

// newDryRunDB 构造只生成SQL不执行的gorm实例
func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test",
	}), &gorm.Config{
		DryRun: true,
		// DryRun 不会跳过默认事务的 Begin，必须显式关闭才不连真实数据库
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestDocumentTableName(t *testing.T) {
	assert.Equal(t, "documents", gormmodel.Document{}.TableName())
}

func TestCreateSetsProcessingStatus(t *testing.T) {
	SetDB(newDryRunDB(t))
	defer SetDB(nil)

	doc := &gormmodel.Document{
		DocumentID: "doc-1",
		SessionID:  "s1",
		FileName:   "report.pdf",
		Status:     "whatever", // Create 必须覆盖为 PROCESSING
	}
	err := Document.Create(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, v1.StatusProcessing, doc.Status)
}

func TestMarkReadyGuardsTerminalStates(t *testing.T) {
	db := newDryRunDB(t)

	stmt := db.Model(&gormmodel.Document{}).
		Where("document_id = ? AND status = ?", "doc-1", v1.StatusProcessing).
		Updates(map[string]interface{}{
			"status": v1.StatusReady,
			"pages":  7,
		}).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, `UPDATE "documents"`)
	// WHERE 条件里必须带状态守卫，终态不可被覆盖
	assert.Contains(t, sql, "status")
	assert.Contains(t, stmt.Vars, v1.StatusProcessing)
	assert.Contains(t, stmt.Vars, v1.StatusReady)
}

func TestMarkErrorGuardsTerminalStates(t *testing.T) {
	db := newDryRunDB(t)

	stmt := db.Model(&gormmodel.Document{}).
		Where("document_id = ? AND status = ?", "doc-1", v1.StatusProcessing).
		Updates(map[string]interface{}{
			"status":        v1.StatusError,
			"error_message": "no text could be extracted from this document",
		}).Statement

	assert.Contains(t, stmt.SQL.String(), `UPDATE "documents"`)
	assert.Contains(t, stmt.Vars, v1.StatusError)
	assert.Contains(t, stmt.Vars, "no text could be extracted from this document")
}

func TestListBySessionOrdersByCreationDesc(t *testing.T) {
	db := newDryRunDB(t)

	var docs []gormmodel.Document
	stmt := db.Where("session_id = ?", "s1").
		Order("created_at DESC").
		Find(&docs).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, `FROM "documents"`)
	assert.Contains(t, sql, "session_id")
	assert.Contains(t, sql, "ORDER BY created_at DESC")
}
