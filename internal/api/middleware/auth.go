package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/novel-engine/internal/service"
	"github.com/d60-Lab/novel-engine/pkg/response"
)

const callerKey = "caller"

// Resolver token -> 调用方
type Resolver interface {
	Resolve(ctx context.Context, token string) (*service.Caller, error)
}

// Auth 要求 Bearer token，解析后把 Caller 放进 gin.Context
func Auth(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, "invalid authorization format, expected 'Bearer <token>'")
			return
		}

		caller, err := resolver.Resolve(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			// token 问题是 401，存储故障按 500 上报
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(callerKey, *caller)
		c.Next()
	}
}

// CallerFrom 取出 Auth 注入的调用方
func CallerFrom(c *gin.Context) (service.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return service.Caller{}, false
	}
	caller, ok := v.(service.Caller)
	return caller, ok
}
