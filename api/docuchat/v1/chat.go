package v1

import (
	"github.com/gogf/gf/v2/frame/g"
)

// SourceRef 答案引用的来源（按 来源文件+页码 去重）
type SourceRef struct {
	Source     string  `json:"source" dc:"Source file name"`
	Page       int     `json:"page" dc:"1-based page number"`
	Snippet    string  `json:"snippet" dc:"Passage excerpt, at most 240 characters"`
	Similarity float32 `json:"similarity" dc:"Cosine similarity of the cited passage"`
	DocumentId string  `json:"document_id" dc:"Owning document ID"`
}

// ChatTurn 一轮历史对话
type ChatTurn struct {
	Role    string `json:"role" v:"required" dc:"user or assistant, unknown roles are ignored"`
	Content string `json:"content" v:"required" dc:"Turn text"`
}

// ChatReq 基于已摄取文档的问答
type ChatReq struct {
	g.Meta     `path:"/v1/chat" method:"post" tags:"chat"`
	Question   string     `json:"question" v:"required" dc:"User question"`
	DocumentId string     `json:"document_id" dc:"Optional, restrict to one document"`
	History    []ChatTurn `json:"chat_history" dc:"Optional prior turns, oldest first"`
	SessionId  string     `p:"X-Session-Id" in:"header" dc:"Session scope, defaults to 'default'"`
}

type ChatRes struct {
	g.Meta  `mime:"application/json"`
	Answer  string      `json:"answer" dc:"Generated answer"`
	Sources []SourceRef `json:"sources" dc:"Deduplicated source references"`
}
