package errors

// ErrCode 业务错误码类型
type ErrCode int

const (
	// 通用错误 1000-1999
	ErrInvalidParameter ErrCode = 1001 // 参数错误
	ErrInternalError    ErrCode = 1002 // 内部错误
	ErrNotFound         ErrCode = 1003 // 资源未找到
	ErrOperationFailed  ErrCode = 1004 // 操作失败

	// Embedding相关 2000-2999
	ErrEmbeddingFailed   ErrCode = 2001 // Embedding调用失败
	ErrDimensionMismatch ErrCode = 2002 // 向量维度不匹配
	ErrLLMCallFailed     ErrCode = 2003 // LLM调用失败

	// 文档相关 4000-4999
	ErrDocumentNotFound ErrCode = 4001 // 文档未找到
	ErrEmptyDocument    ErrCode = 4002 // 文档无可提取文本
	ErrFileUploadFailed ErrCode = 4003 // 文件上传失败
	ErrFileSizeExceeded ErrCode = 4004 // 文件大小超限
	ErrFileTypeInvalid  ErrCode = 4005 // 文件类型不支持
	ErrIngestionFailed  ErrCode = 4006 // 文档摄取失败

	// 向量存储 5000-5999
	ErrVectorStoreInit   ErrCode = 5001 // 向量库初始化失败
	ErrSearchUnavailable ErrCode = 5002 // 向量搜索不可用
	ErrStorageRejected   ErrCode = 5003 // 向量写入被拒绝
	ErrVectorDelete      ErrCode = 5004 // 向量删除失败

	// 数据库相关 6000-6999
	ErrDatabaseQuery  ErrCode = 6001 // 数据库查询失败
	ErrDatabaseInsert ErrCode = 6002 // 数据库插入失败
	ErrDatabaseUpdate ErrCode = 6003 // 数据库更新失败
	ErrDatabaseDelete ErrCode = 6004 // 数据库删除失败
	ErrDatabaseInit   ErrCode = 6005 // 数据库初始化失败

	// 检索/问答相关 9000-9999
	ErrRetrievalFailed ErrCode = 9001 // 检索失败
	ErrChatFailed      ErrCode = 9002 // 问答失败
)

// HTTPStatusCode 返回错误码对应的HTTP状态码
func (e ErrCode) HTTPStatusCode() int {
	switch e {
	case ErrInvalidParameter, ErrFileTypeInvalid:
		return 400
	case ErrNotFound, ErrDocumentNotFound:
		return 404
	case ErrFileSizeExceeded:
		return 413
	case ErrEmptyDocument, ErrDimensionMismatch:
		return 422
	default:
		return 500
	}
}
