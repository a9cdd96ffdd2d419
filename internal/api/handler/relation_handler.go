package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/novel-engine/pkg/response"
)

type subscribeRequest struct {
	NovelID string `json:"novel_id" binding:"required"`
}

type toggleFunc func(ctx context.Context, userID uint, novelID string) error

// toggle 点赞/收藏的公共处理：重复开 409，重复关 404
func (h *Handler) toggle(c *gin.Context, fn toggleFunc) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), caller.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// LikeNovel 点赞
// @Summary 点赞
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "小说ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response "已点赞"
// @Router /api/v1/novels/{id}/like [post]
func (h *Handler) LikeNovel(c *gin.Context) { h.toggle(c, h.interactionService.Like) }

// UnlikeNovel 取消点赞
// @Summary 取消点赞
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "小说ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response "未点赞"
// @Router /api/v1/novels/{id}/like [delete]
func (h *Handler) UnlikeNovel(c *gin.Context) { h.toggle(c, h.interactionService.Unlike) }

// BookmarkNovel 收藏
// @Summary 收藏
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "小说ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response "已收藏"
// @Router /api/v1/novels/{id}/bookmark [post]
func (h *Handler) BookmarkNovel(c *gin.Context) { h.toggle(c, h.interactionService.Bookmark) }

// UnbookmarkNovel 取消收藏
// @Summary 取消收藏
// @Tags 互动
// @Security BearerAuth
// @Param id path string true "小说ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response "未收藏"
// @Router /api/v1/novels/{id}/bookmark [delete]
func (h *Handler) UnbookmarkNovel(c *gin.Context) { h.toggle(c, h.interactionService.Unbookmark) }

// Subscribe 订阅小说，之后新章节会发通知
// @Summary 订阅
// @Tags 订阅
// @Accept json
// @Security BearerAuth
// @Param request body subscribeRequest true "订阅信息"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response "已订阅"
// @Router /api/v1/subscriptions [post]
func (h *Handler) Subscribe(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.interactionService.Subscribe(c.Request.Context(), caller.ID, req.NovelID); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"novel_id": req.NovelID})
}

// Unsubscribe 取消订阅
// @Summary 取消订阅
// @Tags 订阅
// @Security BearerAuth
// @Param novel_id path string true "小说ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response "未订阅"
// @Router /api/v1/subscriptions/{novel_id} [delete]
func (h *Handler) Unsubscribe(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	if err := h.interactionService.Unsubscribe(c.Request.Context(), caller.ID, c.Param("novel_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// CheckSubscription 是否已订阅
// @Summary 订阅状态
// @Tags 订阅
// @Security BearerAuth
// @Param novel_id path string true "小说ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/subscriptions/{novel_id}/check [get]
func (h *Handler) CheckSubscription(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	novelID := c.Param("novel_id")
	subscribed, err := h.interactionService.CheckSubscription(c.Request.Context(), caller.ID, novelID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"novel_id": novelID, "is_subscribed": subscribed})
}

// ListMySubscriptions 我订阅的小说
// @Summary 我的订阅
// @Tags 订阅
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/subscriptions [get]
func (h *Handler) ListMySubscriptions(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)
	list, total, err := h.interactionService.ListUserSubscriptions(c.Request.Context(), caller.ID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, response.PageData{Page: page, Limit: limit, Total: total, List: list})
}

// NovelSubscribers 小说的订阅者（可能来自缓存）
// @Summary 订阅者列表
// @Tags 订阅
// @Param id path string true "小说ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/novels/{id}/subscribers [get]
func (h *Handler) NovelSubscribers(c *gin.Context) {
	novelID := c.Param("id")
	list, err := h.interactionService.GetNovelSubscribers(c.Request.Context(), novelID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"novel_id": novelID, "total": len(list), "list": list})
}
