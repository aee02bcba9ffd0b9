package v1

import (
	"github.com/gogf/gf/v2/frame/g"
)

// RetrievedPassage 单条检索命中
type RetrievedPassage struct {
	Text       string  `json:"text" dc:"Passage text"`
	Page       int     `json:"page" dc:"1-based source page"`
	Source     string  `json:"source" dc:"Source file name"`
	DocumentId string  `json:"document_id" dc:"Owning document ID"`
	Score      float32 `json:"score" dc:"Similarity score"`
}

// RetrieveReq 会话范围内的向量检索
type RetrieveReq struct {
	g.Meta        `path:"/v1/retrieve" method:"post" tags:"retriever"`
	Question      string `json:"question" v:"required" dc:"Query text"`
	DocumentId    string `json:"document_id" dc:"Optional, restrict to one document"`
	TopK          int    `json:"top_k" v:"min:0" dc:"Optional, number of passages to return, 0 uses the configured default"`
	NumCandidates int    `json:"num_candidates" v:"min:0" dc:"Optional ANN candidate pool size, raised to top_k if smaller"`
	SessionId     string `p:"X-Session-Id" in:"header" dc:"Session scope, defaults to 'default'"`
}

type RetrieveRes struct {
	g.Meta   `mime:"application/json"`
	Passages []RetrievedPassage `json:"passages"`
}
