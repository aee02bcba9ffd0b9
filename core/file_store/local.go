package file_store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogf/gf/v2/frame/g"
	"github.com/google/uuid"

	"github.com/docuchat/docuchat/core/errors"
)

// LocalStorage 上传文件的本地暂存
// 摄取流水线读取暂存文件，结束后由流水线负责删除
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage 创建本地暂存，目录不存在时自动创建
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "docuchat_uploads")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Newf(errors.ErrFileUploadFailed, "failed to create upload directory %s: %v", baseDir, err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveUpload 将上传内容写入暂存目录，返回暂存文件路径
// 文件名用随机ID生成，原始文件名只保留扩展名
func (l *LocalStorage) SaveUpload(ctx context.Context, reader io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	targetPath := filepath.Join(l.baseDir, uuid.New().String()+ext)

	f, err := os.Create(targetPath)
	if err != nil {
		return "", errors.Newf(errors.ErrFileUploadFailed, "failed to create temp file: %v", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		os.Remove(targetPath)
		return "", errors.Newf(errors.ErrFileUploadFailed, "failed to write temp file: %v", err)
	}

	g.Log().Debugf(ctx, "Upload saved to local storage: %s", targetPath)
	return targetPath, nil
}

// DeleteFile 删除暂存文件
func (l *LocalStorage) DeleteFile(ctx context.Context, filePath string) error {
	if err := os.Remove(filePath); err != nil {
		return errors.Newf(errors.ErrOperationFailed, "failed to delete file %s: %v", filePath, err)
	}
	g.Log().Debugf(ctx, "File deleted from local storage: %s", filePath)
	return nil
}

// FileExists 检查暂存文件是否存在
func (l *LocalStorage) FileExists(ctx context.Context, filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
