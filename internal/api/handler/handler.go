package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/novel-engine/internal/api/middleware"
	"github.com/d60-Lab/novel-engine/internal/service"
	"github.com/d60-Lab/novel-engine/pkg/response"
)

// Handler 汇总所有 HTTP 处理函数依赖的服务
type Handler struct {
	authService         service.AuthService
	userService         service.UserService
	novelService        service.NovelService
	chapterService      service.ChapterService
	interactionService  service.InteractionService
	progressService     service.ProgressService
	notificationService service.NotificationService
	adminService        service.AdminService
}

type Services struct {
	Auth          service.AuthService
	Users         service.UserService
	Novels        service.NovelService
	Chapters      service.ChapterService
	Interactions  service.InteractionService
	Progress      service.ProgressService
	Notifications service.NotificationService
	Admin         service.AdminService
}

func New(s Services) *Handler {
	return &Handler{
		authService:         s.Auth,
		userService:         s.Users,
		novelService:        s.Novels,
		chapterService:      s.Chapters,
		interactionService:  s.Interactions,
		progressService:     s.Progress,
		notificationService: s.Notifications,
		adminService:        s.Admin,
	}
}

// mustCaller 路由都挂了 Auth，这里取不到说明配置有误
func mustCaller(c *gin.Context) (service.Caller, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
	}
	return caller, ok
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
