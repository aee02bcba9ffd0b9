package gormmodel

import (
	"time"
)

// Document 文档表
// Status 只会是 PROCESSING / READY / ERROR 三个值
type Document struct {
	ID           uint64    `gorm:"primaryKey;column:id;type:bigint"`
	DocumentID   string    `gorm:"column:document_id;type:varchar(64);uniqueIndex;not null"` // 业务ID
	SessionID    string    `gorm:"column:session_id;type:varchar(255);index;not null"`       // 所属会话
	FileName     string    `gorm:"column:file_name;type:varchar(512);not null"`              // 原始文件名
	FileSize     *int64    `gorm:"column:file_size"`                                         // 文件大小（字节），未知时为空
	Status       string    `gorm:"column:status;type:varchar(32);not null"`                  // 生命周期状态
	Pages        int       `gorm:"column:pages;default:0"`                                   // 页数，READY 时填入
	ErrorMessage string    `gorm:"column:error_message;type:text"`                           // 失败原因，ERROR 时填入
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName 设置表名
func (Document) TableName() string {
	return "documents"
}
