package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/internal/service"
	"github.com/d60-Lab/novel-engine/pkg/response"
)

// CreateNovel 创建小说（EDITOR/ADMIN）
// @Summary 创建小说
// @Tags 小说
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateNovelInput true "小说信息"
// @Success 201 {object} response.Response{data=model.Novel}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/novels [post]
func (h *Handler) CreateNovel(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req service.CreateNovelInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.novelService.CreateNovel(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, n)
}

// ListNovels 小说列表
// @Summary 小说列表
// @Tags 小说
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Param search query string false "标题/作者/简介关键字"
// @Param category query string false "分类"
// @Param status query string false "DRAFT 或 PUBLISHED"
// @Param sort_by query string false "created_at, updated_at, views, title, author_name"
// @Param sort_order query string false "asc 或 desc"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/novels [get]
func (h *Handler) ListNovels(c *gin.Context) {
	page, limit := pageParams(c)
	q := repository.NovelQuery{
		Page:      page,
		Limit:     limit,
		Search:    c.Query("search"),
		Category:  c.Query("category"),
		Status:    model.NovelStatus(c.Query("status")),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	list, total, err := h.novelService.ListNovels(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, response.PageData{Page: page, Limit: limit, Total: total, List: list})
}

// GetNovel 小说详情，计一次浏览
// @Summary 小说详情
// @Tags 小说
// @Produce json
// @Param id path string true "小说ID"
// @Success 200 {object} response.Response{data=model.Novel}
// @Failure 404 {object} response.Response
// @Router /api/v1/novels/{id} [get]
func (h *Handler) GetNovel(c *gin.Context) {
	n, err := h.novelService.GetNovel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, n)
}

// UpdateNovel 部分更新
// @Summary 修改小说
// @Tags 小说
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "小说ID"
// @Param request body service.UpdateNovelInput true "要修改的字段"
// @Success 200 {object} response.Response{data=model.Novel}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/novels/{id} [put]
func (h *Handler) UpdateNovel(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req service.UpdateNovelInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.novelService.UpdateNovel(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, n)
}

// DeleteNovel 删除小说及其章节、关系与阅读进度
// @Summary 删除小说
// @Tags 小说
// @Security BearerAuth
// @Param id path string true "小说ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/novels/{id} [delete]
func (h *Handler) DeleteNovel(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	if err := h.novelService.DeleteNovel(c.Request.Context(), caller, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// NovelStats 小说统计
// @Summary 小说统计
// @Tags 小说
// @Produce json
// @Param id path string true "小说ID"
// @Success 200 {object} response.Response{data=service.NovelStats}
// @Router /api/v1/novels/{id}/stats [get]
func (h *Handler) NovelStats(c *gin.Context) {
	stats, err := h.novelService.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
