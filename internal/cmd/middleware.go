package cmd

import (
	"net/http"
	"strings"

	"github.com/gogf/gf/v2/errors/gcode"
	"github.com/gogf/gf/v2/errors/gerror"
	"github.com/gogf/gf/v2/net/ghttp"

	"github.com/docuchat/docuchat/core/errors"
)

// maxMultipartMemory 上传请求的解析上限由配置决定，这里只是兜底
const maxMultipartMemory = 64 << 20

// MiddlewareMultipartMaxMemory 限制文档上传请求的大小
func MiddlewareMultipartMaxMemory(r *ghttp.Request) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		r.Middleware.Next()
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		r.Response.WriteStatus(http.StatusRequestEntityTooLarge)
		r.Response.WriteJson(ghttp.DefaultHandlerResponse{
			Code:    int(errors.ErrFileSizeExceeded),
			Message: "File too large.",
			Data:    nil,
		})
		return
	}

	r.Middleware.Next()
}

// MiddlewareHandlerResponse 统一响应包装
// 业务错误按 AppError 的错误码映射HTTP状态码
func MiddlewareHandlerResponse(r *ghttp.Request) {
	r.Middleware.Next()

	// There's custom buffer content, it then exits current handler.
	if r.Response.BufferLength() > 0 || r.Response.Writer.BytesWritten() > 0 {
		return
	}

	var (
		msg  string
		err  = r.GetError()
		res  = r.GetHandlerResponse()
		code = gcode.CodeOK.Code()
	)

	if err != nil {
		if appErr := errors.GetAppError(err); appErr != nil {
			code = int(appErr.Code)
			msg = appErr.Message
			r.Response.WriteHeader(appErr.Code.HTTPStatusCode())
		} else {
			gc := gerror.Code(err)
			if gc == gcode.CodeNil {
				gc = gcode.CodeInternalError
			}
			code = gc.Code()
			msg = err.Error()
			r.Response.WriteHeader(http.StatusInternalServerError)
		}
	} else if r.Response.Status > 0 && r.Response.Status != http.StatusOK {
		switch r.Response.Status {
		case http.StatusNotFound:
			code = gcode.CodeNotFound.Code()
			msg = "Not Found"
		case http.StatusForbidden:
			code = gcode.CodeNotAuthorized.Code()
			msg = "Forbidden"
		default:
			code = gcode.CodeUnknown.Code()
			msg = http.StatusText(r.Response.Status)
		}
	}

	r.Response.WriteJson(ghttp.DefaultHandlerResponse{
		Code:    code,
		Message: msg,
		Data:    res,
	})
}
