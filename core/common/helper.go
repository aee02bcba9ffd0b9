package common

import "strings"

// DefaultSessionID 未携带会话标识的请求归入的会话
const DefaultSessionID = "default"

// SafeSessionID 规整会话标识：去除空白，为空时回落到默认会话
func SafeSessionID(provided string) string {
	s := strings.TrimSpace(provided)
	if s == "" {
		return DefaultSessionID
	}
	return s
}
