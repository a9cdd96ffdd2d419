package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/internal/service"
	"github.com/d60-Lab/novel-engine/pkg/response"
)

// CreateChapter 发布章节，之后按 notify.mode 通知订阅者
// @Summary 发布章节
// @Tags 章节
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateChapterInput true "章节信息"
// @Success 201 {object} response.Response{data=model.Chapter}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/chapters [post]
func (h *Handler) CreateChapter(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req service.CreateChapterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ch, err := h.chapterService.CreateChapter(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ch)
}

// ListChapters 章节列表
// @Summary 章节列表
// @Tags 章节
// @Produce json
// @Param novel_id query string false "小说ID"
// @Param search query string false "关键字"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Param sort_by query string false "chapter_number, created_at, updated_at, views, title"
// @Param sort_order query string false "asc 或 desc"
// @Success 200 {object} response.Response{data=response.PageData}
// @Router /api/v1/chapters [get]
func (h *Handler) ListChapters(c *gin.Context) {
	page, limit := pageParams(c)
	q := repository.ChapterQuery{
		NovelID:   c.Query("novel_id"),
		Search:    c.Query("search"),
		Page:      page,
		Limit:     limit,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	list, total, err := h.chapterService.ListChapters(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, response.PageData{Page: page, Limit: limit, Total: total, List: list})
}

// GetChapter 章节详情，计一次浏览
// @Summary 章节详情
// @Tags 章节
// @Produce json
// @Param id path int true "章节ID"
// @Success 200 {object} response.Response{data=model.Chapter}
// @Failure 404 {object} response.Response
// @Router /api/v1/chapters/{id} [get]
func (h *Handler) GetChapter(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	ch, err := h.chapterService.GetChapter(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ch)
}

// ChapterNavigation 上一章/下一章
// @Summary 章节导航
// @Tags 章节
// @Produce json
// @Param id path int true "章节ID"
// @Success 200 {object} response.Response{data=service.ChapterNavigation}
// @Failure 404 {object} response.Response
// @Router /api/v1/chapters/{id}/navigation [get]
func (h *Handler) ChapterNavigation(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	nav, err := h.chapterService.Navigation(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nav)
}

// UpdateChapter 部分更新
// @Summary 修改章节
// @Tags 章节
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "章节ID"
// @Param request body service.UpdateChapterInput true "要修改的字段"
// @Success 200 {object} response.Response{data=model.Chapter}
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/chapters/{id} [put]
func (h *Handler) UpdateChapter(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req service.UpdateChapterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ch, err := h.chapterService.UpdateChapter(c.Request.Context(), caller, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ch)
}

// DeleteChapter 删除章节
// @Summary 删除章节
// @Tags 章节
// @Security BearerAuth
// @Param id path int true "章节ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/chapters/{id} [delete]
func (h *Handler) DeleteChapter(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.chapterService.DeleteChapter(c.Request.Context(), caller, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
