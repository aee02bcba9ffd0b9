package splitter

import (
	"context"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"

	"github.com/docuchat/docuchat/core/errors"
)

// 元数据键，贯穿分片与检索结果
const (
	MetaPage   = "page"
	MetaSource = "source"
)

// Page 单页文本，Number 从 1 开始
type Page struct {
	Number int
	Text   string
	Source string
}

// Passage 分片结果，携带来源页信息
type Passage struct {
	Text   string
	Page   int
	Source string
}

// Config 分片配置
type Config struct {
	ChunkSize    int // 单个分片最大字符数（按 rune 计）
	ChunkOverlap int // 相邻分片重叠字符数，必须小于 ChunkSize
}

// Validate 校验分片配置
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errors.Newf(errors.ErrInvalidParameter, "chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return errors.Newf(errors.ErrInvalidParameter,
			"chunk overlap must be in [0, chunk size), got overlap=%d size=%d", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// Splitter 将页级文本切分为带页码/来源元数据的分片
// 切分优先级：段落 > 行 > 单词，均不可用时按字符硬切，
// 分片永远不会跨越页边界
type Splitter struct {
	cfg   Config
	trans document.Transformer
}

// New 创建分片器
func New(ctx context.Context, cfg Config) (*Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 递归分割，分隔符优先级与切分优先级一致
	trans, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   cfg.ChunkSize,
		OverlapSize: cfg.ChunkOverlap,
		Separators:  []string{"\n\n", "\n", " "},
	})
	if err != nil {
		return nil, errors.Newf(errors.ErrInternalError, "failed to create recursive splitter: %v", err)
	}

	return &Splitter{cfg: cfg, trans: trans}, nil
}

// Split 切分页序列
// 输入为空或全部页面没有可提取文本时返回 ErrEmptyDocument；
// 相同输入和配置总是产生相同的输出序列
func (s *Splitter) Split(ctx context.Context, pages []Page) ([]Passage, error) {
	docs := make([]*schema.Document, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		docs = append(docs, &schema.Document{
			Content: p.Text,
			MetaData: map[string]interface{}{
				MetaPage:   p.Number,
				MetaSource: p.Source,
			},
		})
	}
	if len(docs) == 0 {
		return nil, errors.New(errors.ErrEmptyDocument, "no text could be extracted from this document")
	}

	chunks, err := s.trans.Transform(ctx, docs)
	if err != nil {
		return nil, errors.Newf(errors.ErrInternalError, "failed to split document: %v", err)
	}

	passages := make([]Passage, 0, len(chunks))
	for _, chunk := range chunks {
		page, source := chunkOrigin(chunk)
		// 递归分割按分隔符工作，无分隔符的长片段需要按字符硬切兜底
		for _, text := range s.hardBound(chunk.Content) {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			passages = append(passages, Passage{
				Text:   text,
				Page:   page,
				Source: source,
			})
		}
	}
	if len(passages) == 0 {
		return nil, errors.New(errors.ErrEmptyDocument, "no text could be extracted from this document")
	}

	return passages, nil
}

// hardBound 对超过 ChunkSize 的文本按 rune 硬切，窗口间保留 ChunkOverlap 重叠
func (s *Splitter) hardBound(text string) []string {
	runes := []rune(text)
	if len(runes) <= s.cfg.ChunkSize {
		return []string{text}
	}

	step := s.cfg.ChunkSize - s.cfg.ChunkOverlap
	var parts []string
	for start := 0; start < len(runes); start += step {
		end := start + s.cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return parts
}

// chunkOrigin 从分片元数据中还原页码和来源文件名
func chunkOrigin(doc *schema.Document) (page int, source string) {
	if doc.MetaData == nil {
		return 0, ""
	}
	switch v := doc.MetaData[MetaPage].(type) {
	case int:
		page = v
	case int64:
		page = int(v)
	case float64:
		page = int(v)
	}
	source, _ = doc.MetaData[MetaSource].(string)
	return page, source
}
