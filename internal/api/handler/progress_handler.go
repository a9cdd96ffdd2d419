package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/novel-engine/internal/service"
	"github.com/d60-Lab/novel-engine/pkg/response"
)

// UpdateReadingProgress 上报阅读进度
// @Summary 上报阅读进度
// @Tags 阅读进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.UpdateProgressInput true "进度"
// @Success 200 {object} response.Response{data=model.ReadingProgress}
// @Failure 404 {object} response.Response
// @Router /api/v1/reading/progress [put]
func (h *Handler) UpdateReadingProgress(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req service.UpdateProgressInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.progressService.UpdateReadingProgress(c.Request.Context(), caller.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// ListReadingProgress 我的阅读进度
// @Summary 阅读进度列表
// @Tags 阅读进度
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.ReadingProgress}
// @Router /api/v1/reading/progress [get]
func (h *Handler) ListReadingProgress(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	list, err := h.progressService.ListReadingProgress(c.Request.Context(), caller.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// DeleteReadingProgress 删除某本小说的阅读进度
// @Summary 删除阅读进度
// @Tags 阅读进度
// @Security BearerAuth
// @Param novel_id path string true "小说ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/reading/progress/{novel_id} [delete]
func (h *Handler) DeleteReadingProgress(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	if err := h.progressService.DeleteReadingProgress(c.Request.Context(), caller.ID, c.Param("novel_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
