package server

import (
	"context"
	"errors"
	"net/http"

	"ai_gallery_simulator/generator"
	"ai_gallery_simulator/preset"

	"github.com/gin-gonic/gin"
)

// errorBody API 错误响应。Message 为韩文，可直接展示给用户。
type errorBody struct {
	Error  string                 `json:"error"`
	Code   string                 `json:"code"`
	Fields []generator.FieldError `json:"fields,omitempty"`
	// Post 评论已保存但后续评论失败时返回当前帖子。
	Post *generator.Post `json:"post,omitempty"`
}

func classifyError(err error) (int, errorBody) {
	var (
		verr *generator.ValidationError
		derr *generator.DecodeError
		serr *generator.ServiceError
	)
	switch {
	case generator.IsCredentialError(err):
		return http.StatusServiceUnavailable, errorBody{Error: err.Error(), Code: "missing_credential"}
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Error: verr.Error(), Code: "validation", Fields: verr.Fields}
	case errors.Is(err, generator.ErrBusy):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "busy"}
	case errors.Is(err, generator.ErrNoGallery):
		return http.StatusConflict, errorBody{Error: err.Error(), Code: "no_gallery"}
	case errors.Is(err, generator.ErrPostNotFound), errors.Is(err, preset.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error(), Code: "not_found"}
	case errors.Is(err, preset.ErrBuiltinPreset):
		return http.StatusForbidden, errorBody{Error: err.Error(), Code: "builtin_preset"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorBody{Error: err.Error(), Code: "timeout"}
	case errors.As(err, &derr):
		return http.StatusBadGateway, errorBody{Error: err.Error(), Code: "decode"}
	case errors.As(err, &serr):
		return http.StatusBadGateway, errorBody{Error: err.Error(), Code: "service"}
	default:
		return http.StatusInternalServerError, errorBody{Error: generator.DefaultErrorMessage, Code: "internal"}
	}
}

func writeError(c *gin.Context, err error) {
	status, body := classifyError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: "요청 형식이 올바르지 않습니다.", Code: "bad_request"})
}

var errSessionNotFound = errors.New("세션을 찾을 수 없습니다.")

func sessionNotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, errorBody{Error: errSessionNotFound.Error(), Code: "not_found"})
}
