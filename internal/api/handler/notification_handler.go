package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/novel-engine/pkg/response"
)

type markReadRequest struct {
	NotificationIDs []uint `json:"notification_ids" binding:"required,min=1"`
}

// ListNotifications 收件箱
// @Summary 通知列表
// @Tags 通知
// @Security BearerAuth
// @Param unread_only query bool false "只看未读"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread_only", "false"))
	list, total, err := h.notificationService.List(c.Request.Context(), caller.ID, unreadOnly, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, response.PageData{Page: page, Limit: limit, Total: total, List: list})
}

// UnreadCount 未读数
// @Summary 未读数
// @Tags 通知
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications/unread-count [get]
func (h *Handler) UnreadCount(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	n, err := h.notificationService.UnreadCount(c.Request.Context(), caller.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"unread_count": n})
}

// MarkRead 标记已读；任一 id 不属于当前用户则整体失败
// @Summary 标记已读
// @Tags 通知
// @Accept json
// @Security BearerAuth
// @Param request body markReadRequest true "通知ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/notifications/mark-read [post]
func (h *Handler) MarkRead(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.notificationService.MarkRead(c.Request.Context(), caller.ID, req.NotificationIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"updated": n})
}

// MarkAllRead 全部已读
// @Summary 全部已读
// @Tags 通知
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications/mark-all-read [post]
func (h *Handler) MarkAllRead(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	n, err := h.notificationService.MarkAllRead(c.Request.Context(), caller.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"updated": n})
}

// DeleteNotification 删除一条通知
// @Summary 删除通知
// @Tags 通知
// @Security BearerAuth
// @Param id path int true "通知ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/notifications/{id} [delete]
func (h *Handler) DeleteNotification(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.notificationService.Delete(c.Request.Context(), caller.ID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
