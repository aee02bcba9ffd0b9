package common

import (
	"regexp"
	"strings"
)

// SanitizeFilterString 转义 Milvus 布尔表达式中的特殊字符
// 防止通过 sessionId/documentId 进行表达式注入
func SanitizeFilterString(s string) string {
	// 转义反斜杠（必须先转义）
	s = strings.ReplaceAll(s, `\`, `\\`)
	// 转义双引号
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

var (
	uuidWithHyphen    = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
	uuidWithoutHyphen = regexp.MustCompile(`^[a-f0-9]{32}$`)
)

// ValidateUUID 验证 UUID 格式（支持有连字符和无连字符两种格式）
// 返回 true 表示格式合法
func ValidateUUID(uuid string) bool {
	lower := strings.ToLower(uuid)
	return uuidWithHyphen.MatchString(lower) || uuidWithoutHyphen.MatchString(lower)
}
