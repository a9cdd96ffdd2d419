package response

import (
	"errors"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/pkg/apperr"
	"github.com/d60-Lab/novel-engine/pkg/logger"
)

// Response 统一响应格式
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageData 分页列表
type PageData struct {
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Total int64       `json:"total"`
	List  interface{} `json:"list"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "created", Data: data})
}

func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Code: http.StatusBadRequest, Message: msg})
}

func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: http.StatusUnauthorized, Message: msg})
}

func Forbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, Response{Code: http.StatusForbidden, Message: msg})
}

// Error 按错误类别映射 HTTP 状态码；无法识别的错误走 InternalError
func Error(c *gin.Context, err error) {
	status, ok := statusOf(err)
	if !ok {
		InternalError(c, err)
		return
	}
	c.JSON(status, Response{Code: status, Message: err.Error()})
}

func statusOf(err error) (int, bool) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, true
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest, true
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized, true
	}
	return 0, false
}

// InternalError 500；原始错误只进日志和 Sentry，不回给客户端
func InternalError(c *gin.Context, err error) {
	logger.Error("internal error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	c.JSON(http.StatusInternalServerError, Response{Code: http.StatusInternalServerError, Message: "internal server error"})
}
