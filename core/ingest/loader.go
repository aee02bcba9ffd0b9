package ingest

import (
	"context"
	"os"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino/components/document/parser"

	"github.com/docuchat/docuchat/core/errors"
	"github.com/docuchat/docuchat/core/splitter"
)

// PageLoader 从本地文件提取页级文本
type PageLoader interface {
	LoadPages(ctx context.Context, path string, source string) ([]splitter.Page, error)
}

// PDFLoader 基于PDF解析器的页加载实现
type PDFLoader struct {
	parser parser.Parser
}

// NewPDFLoader 创建PDF页加载器，按页输出文本
func NewPDFLoader(ctx context.Context) (*PDFLoader, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: true, // 每页一个文档，保留页码信息
	})
	if err != nil {
		return nil, errors.Newf(errors.ErrInternalError, "failed to create pdf parser: %v", err)
	}
	return &PDFLoader{parser: p}, nil
}

// LoadPages 解析PDF文件，页码从1开始
func (l *PDFLoader) LoadPages(ctx context.Context, path string, source string) ([]splitter.Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Newf(errors.ErrIngestionFailed, "failed to open file %s: %v", path, err)
	}
	defer f.Close()

	docs, err := l.parser.Parse(ctx, f)
	if err != nil {
		return nil, errors.Newf(errors.ErrIngestionFailed, "failed to parse pdf: %v", err)
	}

	pages := make([]splitter.Page, 0, len(docs))
	for i, doc := range docs {
		pages = append(pages, splitter.Page{
			Number: i + 1,
			Text:   doc.Content,
			Source: source,
		})
	}
	return pages, nil
}
