package v1

import (
	"github.com/gogf/gf/v2/frame/g"
	"github.com/gogf/gf/v2/net/ghttp"
)

// 文档生命周期状态
// PROCESSING 为初始状态，READY/ERROR 为终态
const (
	StatusProcessing = "PROCESSING"
	StatusReady      = "READY"
	StatusError      = "ERROR"
)

// DocumentInfo 文档信息
type DocumentInfo struct {
	DocumentId   string `json:"document_id" dc:"Document ID"`
	FileName     string `json:"file_name" dc:"Original file name"`
	FileSize     *int64 `json:"file_size" dc:"File size in bytes"`
	Status       string `json:"status" dc:"PROCESSING / READY / ERROR"`
	Pages        int    `json:"pages" dc:"Page count, filled when READY"`
	ErrorMessage string `json:"error_message,omitempty" dc:"Failure reason, filled when ERROR"`
	CreatedAt    string `json:"created_at" dc:"Creation time"`
}

// UploadDocumentReq 上传文档并触发异步摄取
type UploadDocumentReq struct {
	g.Meta    `path:"/v1/documents" method:"post" mime:"multipart/form-data" tags:"documents"`
	File      *ghttp.UploadFile `p:"file" type:"file" dc:"PDF file to ingest" v:"required"`
	SessionId string            `p:"X-Session-Id" in:"header" dc:"Session scope, defaults to 'default'"`
}

type UploadDocumentRes struct {
	g.Meta     `mime:"application/json"`
	DocumentId string `json:"document_id" dc:"Document ID"`
	Status     string `json:"status" dc:"Always PROCESSING on accept"`
	Message    string `json:"message" dc:"Status message"`
}

// ListDocumentsReq 列出当前会话的文档
type ListDocumentsReq struct {
	g.Meta    `path:"/v1/documents" method:"get" tags:"documents"`
	SessionId string `p:"X-Session-Id" in:"header" dc:"Session scope, defaults to 'default'"`
}

type ListDocumentsRes struct {
	g.Meta    `mime:"application/json"`
	Documents []DocumentInfo `json:"documents"`
}

// GetDocumentReq 查询单个文档状态
type GetDocumentReq struct {
	g.Meta     `path:"/v1/documents/:documentId" method:"get" tags:"documents"`
	DocumentId string `p:"documentId" in:"path" dc:"Document ID" v:"required"`
	SessionId  string `p:"X-Session-Id" in:"header" dc:"Session scope, defaults to 'default'"`
}

type GetDocumentRes struct {
	g.Meta `mime:"application/json"`
	DocumentInfo
}

// DeleteDocumentReq 删除文档及其全部分片
type DeleteDocumentReq struct {
	g.Meta     `path:"/v1/documents/:documentId" method:"delete" tags:"documents"`
	DocumentId string `p:"documentId" in:"path" dc:"Document ID" v:"required"`
	SessionId  string `p:"X-Session-Id" in:"header" dc:"Session scope, defaults to 'default'"`
}

type DeleteDocumentRes struct {
	g.Meta  `mime:"application/json"`
	Message string `json:"message" dc:"Deletion result"`
}
